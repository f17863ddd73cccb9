package wml

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// imageResolver resolves a drawing/picture's r:embed (or legacy r:id)
// relationship id to the embedded image bytes it points at, scoped to
// the part (document/footnotes/endnotes) the owning paragraph came from.
// A zero-value imageResolver (nil pkg) always misses, falling back to
// structural-only hashing.
type imageResolver struct {
	pkg     *opc.Package
	partURI string
}

func (r imageResolver) resolve(relID string) ([]byte, bool) {
	if r.pkg == nil {
		return nil, false
	}
	for _, rel := range r.pkg.GetRelationships(r.partURI) {
		if rel.ID != relID || rel.External {
			continue
		}
		return r.pkg.GetPart(opc.Resolve(r.partURI, rel.Target))
	}
	return nil, false
}

// paraToken is one word-level diff token plus enough provenance to
// rebuild the output w:r/w:t (or carry a non-text run element, such as a
// drawing, through verbatim).
type paraToken struct {
	Token
	// Run is the source w:r (or w:hyperlink, math run, ...) this token
	// came from, used to clone run formatting (w:rPr) onto synthesized
	// w:ins/w:del wrapper output.
	Run *xmlnode.Node
	// Structural is true for synthetic placeholder tokens standing in for
	// non-text run content (drawings, pictures, footnote/endnote
	// references), named FOOTNOTE_REF_*, ENDNOTE_REF_*, DRAWING_* and
	// PICT_* respectively.
	Structural bool
	// Elem, when Structural, is the original non-text element to carry
	// through to output verbatim on insert/delete.
	Elem *xmlnode.Node
}

// paragraphTokens walks a paragraph's runs in document order and produces
// the word-level token stream the diff operates on, substituting a
// structural placeholder token for drawings, pictures, and footnote/
// endnote references rather than flattening them away.
func paragraphTokens(p *xmlnode.Node, res imageResolver) []paraToken {
	var out []paraToken
	for _, child := range p.Children {
		if child.Kind != xmlnode.Element {
			continue
		}
		switch child.Local() {
		case "r":
			out = append(out, runTokens(child, res)...)
		case "hyperlink", "smartTag":
			for _, r := range child.ChildrenByLocal("r") {
				out = append(out, runTokens(r, res)...)
			}
		}
	}
	return out
}

func runTokens(r *xmlnode.Node, res imageResolver) []paraToken {
	var out []paraToken
	for _, c := range r.Children {
		if c.Kind != xmlnode.Element {
			continue
		}
		switch c.Local() {
		case "t":
			for _, tok := range tokenize(c.Text()) {
				out = append(out, paraToken{Token: tok, Run: r})
			}
		case "drawing":
			out = append(out, structuralToken("DRAWING", c, r, res))
		case "pict":
			out = append(out, structuralToken("PICT", c, r, res))
		case "footnoteReference":
			id, _ := c.Get("id")
			out = append(out, paraToken{
				Token:      Token{Text: "FOOTNOTE_REF_" + id},
				Run:        r, Structural: true, Elem: c,
			})
		case "endnoteReference":
			id, _ := c.Get("id")
			out = append(out, paraToken{
				Token:      Token{Text: "ENDNOTE_REF_" + id},
				Run:        r, Structural: true, Elem: c,
			})
		}
	}
	return out
}

// structuralToken builds the placeholder token a drawing or legacy VML
// picture is diffed as. When el resolves to an embedded image (via the
// owning part's relationship chain), equality is keyed off the image's
// own bytes and pixel dimensions — two drawings wrapping the identical
// picture at different positions/sizes on the page still compare equal,
// matching how canonicalizePicture hashes PowerPoint pictures. Anything
// that isn't a resolvable image (a shape, a chart, a broken reference)
// falls back to hashing the drawing element's own serialized XML.
func structuralToken(prefix string, el, run *xmlnode.Node, res imageResolver) paraToken {
	h := imageHash(el, res)
	if h == (hashutil.Digest{}) {
		h = hashutil.Sum(marshalForHash(el))
	}
	return paraToken{
		Token:      Token{Text: fmt.Sprintf("%s_%s", prefix, h.String()[:8])},
		Run:        run, Structural: true, Elem: el,
	}
}

func imageHash(el *xmlnode.Node, res imageResolver) hashutil.Digest {
	relID, ok := findEmbedID(el)
	if !ok {
		return hashutil.Digest{}
	}
	data, ok := res.resolve(relID)
	if !ok {
		return hashutil.Digest{}
	}
	imgHash := hashutil.SumLarge(data)
	dims := ""
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		dims = fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
	}
	return hashutil.Combine(imgHash, hashutil.SumString(dims))
}

// findEmbedID finds the first r:id/r:embed reference nested anywhere
// inside el (an a:blip's r:embed for a modern drawing, a v:imagedata's
// r:id for a legacy VML pict).
func findEmbedID(el *xmlnode.Node) (string, bool) {
	var id string
	var found bool
	xmlnode.Walk(el, func(n *xmlnode.Node) bool {
		if found {
			return false
		}
		if n.Kind == xmlnode.Element {
			if v, ok := relReference(n); ok {
				id, found = v, true
				return false
			}
		}
		return true
	})
	return id, found
}

func marshalForHash(n *xmlnode.Node) []byte {
	var buf []byte
	var walk func(n *xmlnode.Node)
	walk = func(n *xmlnode.Node) {
		buf = append(buf, n.Local()...)
		for _, a := range n.Attrs {
			buf = append(buf, a.Name.Local...)
			buf = append(buf, a.Value...)
		}
		if n.Kind == xmlnode.Text {
			buf = append(buf, n.CharData...)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return buf
}

// isShortStructuralText reports whether a token text matches one of the
// short structural-token families the change-counting bridge rule treats
// specially when they sit between a deletion and an insertion.
func isShortStructuralText(s string) bool {
	prefixes := []string{"FOOTNOTE_REF_", "ENDNOTE_REF_", "DRAWING_", "PICT_"}
	for _, p := range prefixes {
		if len(s) > len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}
