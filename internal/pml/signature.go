package pml

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/oxmlredline/compare/internal/xmlio"
	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/xmlnode"
	"github.com/richardlehane/mscfb"
)

// ShapeKind tags the variant of a canonicalized shape: a tagged variant,
// not an inheritance hierarchy.
type ShapeKind int

const (
	ShapeAutoShape ShapeKind = iota
	ShapeTextBox
	ShapePicture
	ShapeTable
	ShapeChart
	ShapeSmartArt
	ShapeOleObject
	ShapeGroup
	ShapeConnector
)

// ShapeSignature is one shape's canonical content.
type ShapeSignature struct {
	ID     string
	Name   string
	Kind   ShapeKind
	ZOrder int

	X, Y, CX, CY int64 // EMU
	Rotation     int    // 60,000ths of a degree, ECMA-376 18.18.19

	PlaceholderType string
	PlaceholderIdx  int

	Text           string
	TextFormatHash hashutil.Digest

	ImageHash     hashutil.Digest
	ImageWidth    int
	ImageHeight   int
	TableHash     hashutil.Digest
	ChartHash     hashutil.Digest
	OleHash       hashutil.Digest
	ContentHash   hashutil.Digest
}

// SlideEntry is one row of presentation.xml's sldIdLst.
type SlideEntry struct {
	RID    string
	Target string
}

// SlideSignature is one slide's canonical content.
type SlideSignature struct {
	Target         string
	Title          string
	LayoutType     string
	BackgroundHash hashutil.Digest
	Shapes         []*ShapeSignature
	NotesText      string
	ContentHash    hashutil.Digest
}

// PresentationSignature is the canonical projection of one .pptx package.
type PresentationSignature struct {
	Slides        []SlideEntry
	SlideSig      map[string]*SlideSignature // keyed by slide part target URI
	SlideWidth    int64
	SlideHeight   int64
}

// Canonicalize builds the PresentationSignature for pkg: resolves
// ppt/presentation.xml's sldIdLst, and for each slide canonicalizes its
// background, layout type, shape tree and notes.
func Canonicalize(pkg *opc.Package) (*PresentationSignature, error) {
	root, ok, err := pkg.GetPartAsXML(presentationPartURI)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rlerrors.New(rlerrors.MalformedPackage, "pml.Canonicalize", "missing %s", presentationPartURI)
	}

	rels := pkg.GetRelationships(presentationPartURI)
	relTarget := make(map[string]string, len(rels))
	for _, r := range rels {
		relTarget[r.ID] = opc.Resolve(presentationPartURI, r.Target)
	}

	sig := &PresentationSignature{SlideSig: make(map[string]*SlideSignature)}
	if sldSz := root.FirstChildByLocal("sldSz"); sldSz != nil {
		sig.SlideWidth = int64Attr(sldSz, "cx")
		sig.SlideHeight = int64Attr(sldSz, "cy")
	}

	idLst := xmlnode.Find(root, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "sldIdLst"
	})
	if idLst == nil {
		return sig, nil
	}
	for _, id := range idLst.ChildrenByLocal("sldId") {
		rid, _ := id.GetNS(relN, "id")
		target := relTarget[rid]
		if target == "" {
			continue
		}
		sig.Slides = append(sig.Slides, SlideEntry{RID: rid, Target: target})
		ss, err := canonicalizeSlide(pkg, target)
		if err != nil {
			return nil, err
		}
		sig.SlideSig[target] = ss
	}
	return sig, nil
}

func canonicalizeSlide(pkg *opc.Package, target string) (*SlideSignature, error) {
	root, ok, err := pkg.GetPartAsXML(target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rlerrors.New(rlerrors.MalformedPackage, "pml.canonicalizeSlide", "missing slide part %s", target)
	}

	ss := &SlideSignature{Target: target}

	cSld := root.FirstChildByLocal("cSld")
	if bg := firstChild(cSld, "bg"); bg != nil {
		data, _ := xmlio.Serialize(bg)
		ss.BackgroundHash = hashutil.Sum(data)
	}

	ss.LayoutType = layoutType(pkg, target)

	var spTree *xmlnode.Node
	if cSld != nil {
		spTree = cSld.FirstChildByLocal("spTree")
	}
	if spTree != nil {
		z := 0
		for _, child := range spTree.Children {
			if child.Kind != xmlnode.Element {
				continue
			}
			shape := canonicalizeShape(pkg, target, child, z)
			if shape == nil {
				continue
			}
			ss.Shapes = append(ss.Shapes, shape)
			z++
			if shape.PlaceholderType == "title" || shape.PlaceholderType == "ctrTitle" {
				ss.Title = shape.Text
			}
		}
	}

	ss.NotesText = loadNotesText(pkg, target)

	var digs []hashutil.Digest
	digs = append(digs, ss.BackgroundHash, hashutil.SumString(ss.LayoutType))
	for _, sh := range ss.Shapes {
		digs = append(digs, sh.ContentHash)
	}
	ss.ContentHash = hashutil.Combine(digs...)

	return ss, nil
}

func firstChild(n *xmlnode.Node, local string) *xmlnode.Node {
	if n == nil {
		return nil
	}
	return n.FirstChildByLocal(local)
}

func layoutType(pkg *opc.Package, slideTarget string) string {
	for _, r := range pkg.GetRelationships(slideTarget) {
		if r.Type != slideLayoutRelType {
			continue
		}
		target := opc.Resolve(slideTarget, r.Target)
		root, ok, err := pkg.GetPartAsXML(target)
		if err != nil || !ok {
			return ""
		}
		typ, _ := root.Get("type")
		return typ
	}
	return ""
}

func loadNotesText(pkg *opc.Package, slideTarget string) string {
	for _, r := range pkg.GetRelationships(slideTarget) {
		if r.Type != notesSlideRelType {
			continue
		}
		target := opc.Resolve(slideTarget, r.Target)
		root, ok, err := pkg.GetPartAsXML(target)
		if err != nil || !ok {
			return ""
		}
		spTree := xmlnode.Find(root, func(n *xmlnode.Node) bool {
			return n.Kind == xmlnode.Element && n.Local() == "spTree"
		})
		if spTree == nil {
			return ""
		}
		var sb strings.Builder
		for _, sp := range spTree.ChildrenByLocal("sp") {
			if txBody := sp.FirstChildByLocal("txBody"); txBody != nil {
				sb.WriteString(textOf(txBody))
				sb.WriteString("\n")
			}
		}
		return strings.TrimSpace(sb.String())
	}
	return ""
}

// canonicalizeShape dispatches on the element tag (and, for p:graphicFrame,
// graphicData/@uri) to determine ShapeKind.
func canonicalizeShape(pkg *opc.Package, slideTarget string, n *xmlnode.Node, zOrder int) *ShapeSignature {
	switch n.Local() {
	case "sp":
		return canonicalizeAutoShapeOrTextBox(n, zOrder)
	case "pic":
		return canonicalizePicture(pkg, slideTarget, n, zOrder)
	case "graphicFrame":
		return canonicalizeGraphicFrame(pkg, slideTarget, n, zOrder)
	case "grpSp":
		return canonicalizeGroup(pkg, slideTarget, n, zOrder)
	case "cxnSp":
		return canonicalizeConnector(n, zOrder)
	default:
		return nil
	}
}

func nvPr(n *xmlnode.Node, nvLocal string) (id, name string, ph *xmlnode.Node) {
	nv := n.FirstChildByLocal(nvLocal)
	if nv == nil {
		return "", "", nil
	}
	cNvPr := nv.FirstChildByLocal("cNvPr")
	if cNvPr != nil {
		id, _ = cNvPr.Get("id")
		name, _ = cNvPr.Get("name")
	}
	if nvSpPr := nv.FirstChildByLocal("nvPr"); nvSpPr != nil {
		ph = nvSpPr.FirstChildByLocal("ph")
	}
	return id, name, ph
}

func geometry(spPr *xmlnode.Node) (x, y, cx, cy int64, rot int) {
	if spPr == nil {
		return
	}
	xfrm := spPr.FirstChildByLocal("xfrm")
	if xfrm == nil {
		return
	}
	if off := xfrm.FirstChildByLocal("off"); off != nil {
		x = int64Attr(off, "x")
		y = int64Attr(off, "y")
	}
	if ext := xfrm.FirstChildByLocal("ext"); ext != nil {
		cx = int64Attr(ext, "cx")
		cy = int64Attr(ext, "cy")
	}
	rot = int(int64Attr(xfrm, "rot"))
	return
}

func int64Attr(n *xmlnode.Node, local string) int64 {
	v, ok := n.Get(local)
	if !ok {
		return 0
	}
	i, _ := strconv.ParseInt(v, 10, 64)
	return i
}

func canonicalizeAutoShapeOrTextBox(n *xmlnode.Node, zOrder int) *ShapeSignature {
	id, name, ph := nvPr(n, "nvSpPr")
	x, y, cx, cy, rot := geometry(n.FirstChildByLocal("spPr"))

	kind := ShapeAutoShape
	var placeholderType string
	var placeholderIdx int
	if ph != nil {
		kind = ShapeTextBox
		placeholderType, _ = ph.Get("type")
		if idx, ok := ph.Get("idx"); ok {
			placeholderIdx, _ = strconv.Atoi(idx)
		}
	} else if isTextBoxFlag(n) {
		kind = ShapeTextBox
	}

	text := ""
	var fmtHash hashutil.Digest
	if txBody := n.FirstChildByLocal("txBody"); txBody != nil {
		text = textOf(txBody)
		fmtHash = formatFingerprint(txBody)
		if text != "" {
			kind = ShapeTextBox
		}
	}

	sh := &ShapeSignature{
		ID: id, Name: name, Kind: kind, ZOrder: zOrder,
		X: x, Y: y, CX: cx, CY: cy, Rotation: rot,
		PlaceholderType: placeholderType, PlaceholderIdx: placeholderIdx,
		Text: text, TextFormatHash: fmtHash,
	}
	sh.ContentHash = hashutil.Combine(hashutil.SumString(text), fmtHash, hashutil.Sum([]byte(fmt.Sprintf("%d:%d:%d:%d:%d", x, y, cx, cy, rot))))
	return sh
}

func isTextBoxFlag(sp *xmlnode.Node) bool {
	spPr := sp.FirstChildByLocal("spPr")
	if spPr == nil {
		return false
	}
	if v, ok := spPr.Get("txBox"); ok {
		return v == "1" || v == "true"
	}
	return false
}

func canonicalizePicture(pkg *opc.Package, slideTarget string, n *xmlnode.Node, zOrder int) *ShapeSignature {
	id, name, _ := nvPr(n, "nvPicPr")
	x, y, cx, cy, rot := geometry(n.FirstChildByLocal("spPr"))

	var imgHash hashutil.Digest
	var w, h int
	if blipFill := n.FirstChildByLocal("blipFill"); blipFill != nil {
		if blip := blipFill.FirstChildByLocal("blip"); blip != nil {
			if embed, ok := blip.GetNS(relN, "embed"); ok {
				for _, r := range pkg.GetRelationships(slideTarget) {
					if r.ID != embed {
						continue
					}
					target := opc.Resolve(slideTarget, r.Target)
					if data, ok := pkg.GetPart(target); ok {
						imgHash = hashutil.SumLarge(data)
						if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
							w, h = cfg.Width, cfg.Height
						}
					}
				}
			}
		}
	}

	sh := &ShapeSignature{
		ID: id, Name: name, Kind: ShapePicture, ZOrder: zOrder,
		X: x, Y: y, CX: cx, CY: cy, Rotation: rot,
		ImageHash: imgHash, ImageWidth: w, ImageHeight: h,
	}
	sh.ContentHash = hashutil.Combine(imgHash, hashutil.Sum([]byte(fmt.Sprintf("%dx%d", w, h))))
	return sh
}

func canonicalizeGraphicFrame(pkg *opc.Package, slideTarget string, n *xmlnode.Node, zOrder int) *ShapeSignature {
	id, name, _ := nvPr(n, "nvGraphicFramePr")
	x, y, cx, cy := frameGeometry(n)

	graphic := n.FirstChildByLocal("graphic")
	var graphicData *xmlnode.Node
	if graphic != nil {
		graphicData = graphic.FirstChildByLocal("graphicData")
	}
	uri := ""
	if graphicData != nil {
		uri, _ = graphicData.Get("uri")
	}

	sh := &ShapeSignature{ID: id, Name: name, ZOrder: zOrder, X: x, Y: y, CX: cx, CY: cy}

	switch {
	case strings.Contains(uri, "table"):
		sh.Kind = ShapeTable
		sh.TableHash = tableHash(graphicData)
		sh.ContentHash = sh.TableHash
	case strings.Contains(uri, "chart"):
		sh.Kind = ShapeChart
		sh.ChartHash = chartHash(pkg, slideTarget, graphicData)
		sh.ContentHash = sh.ChartHash
	case strings.Contains(uri, "diagram"):
		sh.Kind = ShapeSmartArt
		data, _ := xmlio.Serialize(graphicData)
		sh.ContentHash = hashutil.Sum(data)
	default:
		sh.Kind = ShapeOleObject
		sh.OleHash = oleHash(pkg, slideTarget, graphicData)
		sh.ContentHash = sh.OleHash
	}
	return sh
}

func frameGeometry(n *xmlnode.Node) (x, y, cx, cy int64) {
	xfrm := n.FirstChildByLocal("xfrm")
	if xfrm == nil {
		return
	}
	if off := xfrm.FirstChildByLocal("off"); off != nil {
		x, y = int64Attr(off, "x"), int64Attr(off, "y")
	}
	if ext := xfrm.FirstChildByLocal("ext"); ext != nil {
		cx, cy = int64Attr(ext, "cx"), int64Attr(ext, "cy")
	}
	return
}

// tableHash joins cell text row by row.
func tableHash(graphicData *xmlnode.Node) hashutil.Digest {
	if graphicData == nil {
		return hashutil.Digest{}
	}
	tbl := xmlnode.Find(graphicData, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "tbl"
	})
	if tbl == nil {
		return hashutil.Digest{}
	}
	var sb strings.Builder
	for _, tr := range tbl.ChildrenByLocal("tr") {
		var cells []string
		for _, tc := range tr.ChildrenByLocal("tc") {
			cells = append(cells, textOf(tc))
		}
		sb.WriteString(strings.Join(cells, "\t"))
		sb.WriteString("\n")
	}
	return hashutil.SumString(sb.String())
}

// chartHash hashes the referenced chart part's raw XML string.
func chartHash(pkg *opc.Package, slideTarget string, graphicData *xmlnode.Node) hashutil.Digest {
	if graphicData == nil {
		return hashutil.Digest{}
	}
	chartEl := xmlnode.Find(graphicData, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "chart"
	})
	if chartEl == nil {
		return hashutil.Digest{}
	}
	rid, ok := chartEl.GetNS(relN, "id")
	if !ok {
		return hashutil.Digest{}
	}
	for _, r := range pkg.GetRelationships(slideTarget) {
		if r.ID != rid {
			continue
		}
		target := opc.Resolve(slideTarget, r.Target)
		if data, ok := pkg.GetPart(target); ok {
			return hashutil.Sum(data)
		}
	}
	return hashutil.Digest{}
}

// oleHash hashes an embedded OLE compound-file object's directory listing
// (stream names and sizes), via github.com/richardlehane/mscfb, rather
// than the raw bytes — two copies of the same Office-embedded object
// often differ in padding/allocation table layout even when every stream
// is bit-identical.
func oleHash(pkg *opc.Package, slideTarget string, graphicData *xmlnode.Node) hashutil.Digest {
	if graphicData == nil {
		return hashutil.Digest{}
	}
	oleObj := xmlnode.Find(graphicData, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "oleObj"
	})
	if oleObj == nil {
		return hashutil.Digest{}
	}
	rid, ok := oleObj.GetNS(relN, "id")
	if !ok {
		return hashutil.Digest{}
	}
	for _, r := range pkg.GetRelationships(slideTarget) {
		if r.ID != rid {
			continue
		}
		target := opc.Resolve(slideTarget, r.Target)
		data, ok := pkg.GetPart(target)
		if !ok {
			return hashutil.Digest{}
		}
		doc, err := mscfb.New(bytes.NewReader(data))
		if err != nil {
			return hashutil.SumLarge(data)
		}
		var sb strings.Builder
		for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
			sb.WriteString(fmt.Sprintf("%s:%d\n", entry.Name, entry.Size))
		}
		return hashutil.SumString(sb.String())
	}
	return hashutil.Digest{}
}

func canonicalizeGroup(pkg *opc.Package, slideTarget string, n *xmlnode.Node, zOrder int) *ShapeSignature {
	id, name, _ := nvPr(n, "nvGrpSpPr")
	var digs []hashutil.Digest
	z := 0
	for _, child := range n.Children {
		if child.Kind != xmlnode.Element {
			continue
		}
		local := child.Local()
		if local == "nvGrpSpPr" || local == "grpSpPr" {
			continue
		}
		shape := canonicalizeShape(pkg, slideTarget, child, z)
		if shape != nil {
			digs = append(digs, shape.ContentHash)
			z++
		}
	}
	return &ShapeSignature{
		ID: id, Name: name, Kind: ShapeGroup, ZOrder: zOrder,
		ContentHash: hashutil.Combine(digs...),
	}
}

func canonicalizeConnector(n *xmlnode.Node, zOrder int) *ShapeSignature {
	id, name, _ := nvPr(n, "nvCxnSpPr")
	x, y, cx, cy, rot := geometry(n.FirstChildByLocal("spPr"))
	sh := &ShapeSignature{
		ID: id, Name: name, Kind: ShapeConnector, ZOrder: zOrder,
		X: x, Y: y, CX: cx, CY: cy, Rotation: rot,
	}
	sh.ContentHash = hashutil.Sum([]byte(fmt.Sprintf("%d:%d:%d:%d:%d", x, y, cx, cy, rot)))
	return sh
}

// textOf concatenates every a:t run in document order, the DrawingML
// analogue of xmlnode.Node.Text restricted to actual text runs (ignoring
// field codes and line-break markers' absent CharData).
func textOf(n *xmlnode.Node) string {
	var sb strings.Builder
	xmlnode.Walk(n, func(c *xmlnode.Node) bool {
		if c.Kind == xmlnode.Element && c.Local() == "t" {
			sb.WriteString(c.Text())
		}
		return true
	})
	return sb.String()
}

// formatFingerprint hashes every run/paragraph property set in a txBody,
// so text-only edits (caught by Text inequality) can be told apart from
// formatting-only edits (TextFormattingChanged).
func formatFingerprint(txBody *xmlnode.Node) hashutil.Digest {
	var parts []string
	for _, p := range txBody.ChildrenByLocal("p") {
		if pPr := p.FirstChildByLocal("pPr"); pPr != nil {
			data, _ := xmlio.Serialize(pPr)
			parts = append(parts, string(data))
		}
		for _, r := range p.ChildrenByLocal("r") {
			if rPr := r.FirstChildByLocal("rPr"); rPr != nil {
				data, _ := xmlio.Serialize(rPr)
				parts = append(parts, string(data))
			}
		}
	}
	sort.Strings(parts)
	return hashutil.SumString(strings.Join(parts, "|"))
}
