// Package xmlio serializes an xmlnode.Node tree back to OOXML part bytes.
// The tree model in pkg/xmlnode stays a pure data structure; this package
// is the one place that knows how to stream it out, mirroring the split
// adnsv-go-xl/xl/writer.go draws between its Workbook domain model and its
// github.com/adnsv/srw/xml streaming writer.
package xmlio

import (
	"bytes"
	"sort"

	srwxml "github.com/adnsv/srw/xml"

	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// xmlNS is the namespace URI of the predeclared "xml" prefix, which
// encoding/xml resolves "xml:space" and similar attributes to. It never
// needs an xmlns:xml declaration, so the writer emits such attributes
// with the literal "xml:" prefix.
const xmlNS = "http://www.w3.org/XML/1998/namespace"

// wellKnownPrefix maps every OOXML namespace URI the comparers read or
// construct to the prefix letter real Word/Excel/PowerPoint output uses,
// so a round-tripped or synthesized tree serializes back to the
// conventional "w:ins", "r:id", "a:off" form instead of the raw URI
// xmlnode.Node.Space actually stores. SpreadsheetML's main namespace maps
// to "" because Excel declares it as the default namespace on <worksheet>
// rather than prefixing every element.
var wellKnownPrefix = map[string]string{
	"http://schemas.openxmlformats.org/spreadsheetml/2006/main":            "",
	"http://schemas.openxmlformats.org/wordprocessingml/2006/main":         "w",
	"http://schemas.openxmlformats.org/officeDocument/2006/relationships":  "r",
	"http://schemas.openxmlformats.org/officeDocument/2006/math":           "m",
	"http://schemas.openxmlformats.org/presentationml/2006/main":           "p",
	"http://schemas.openxmlformats.org/drawingml/2006/main":                "a",
	"http://schemas.openxmlformats.org/drawingml/2006/chart":               "c",
	"http://schemas.openxmlformats.org/markup-compatibility/2006":          "mc",
	"http://schemas.openxmlformats.org/officeDocument/2006/sharedTypes":    "st",
	"http://schemas.openxmlformats.org/package/2006/content-types":        "",
	"http://schemas.openxmlformats.org/package/2006/relationships":        "",
}

// Serialize renders n (and its subtree) to a complete XML document with a
// stable UTF-8/XML-1.0 standalone declaration, preserving element order,
// attribute order and mixed content exactly as stored on the tree. Every
// namespace URI referenced anywhere in the subtree is collected up front
// and declared on the root element, matching how Office itself emits
// parts — a flat set of xmlns declarations on the outermost tag rather
// than re-declared per descendant. Namespace declarations parsed from the
// source are not written back; the root's set replaces them.
// xml:space="preserve" is written on the outermost element of each
// Node.PreserveSpace subtree that does not already carry it.
func Serialize(n *xmlnode.Node) ([]byte, error) {
	var buf bytes.Buffer
	w := srwxml.NewWriter(&buf, srwxml.WriterConfig{})
	w.XmlStandaloneDecl()
	prefixes := assignPrefixes(collectNamespaces(n))
	writeNode(w, n, prefixes, true, false)
	return buf.Bytes(), nil
}

func writeNode(w *srwxml.Writer, n *xmlnode.Node, prefixes map[string]string, isRoot, parentPreserve bool) {
	if n == nil {
		return
	}
	if n.Kind == xmlnode.Text {
		w.Write(n.CharData)
		return
	}

	w.OTag(srwxml.NameString(qualifiedName(n, prefixes)))
	if isRoot {
		for _, decl := range namespaceDecls(prefixes) {
			w.Attr(srwxml.NameString(decl.attr), decl.uri)
		}
	}
	hasSpace := false
	for _, a := range n.Attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns" && n.Name.Space != "") {
			continue
		}
		if a.Name.Space == xmlNS && a.Name.Local == "space" {
			hasSpace = true
		}
		w.Attr(srwxml.NameString(attrName(a, prefixes)), a.Value)
	}
	if n.PreserveSpace && !parentPreserve && !hasSpace {
		w.Attr(srwxml.NameString("xml:space"), "preserve")
	}
	for _, c := range n.Children {
		writeNode(w, c, prefixes, false, n.PreserveSpace)
	}
	w.CTag()
}

// collectNamespaces walks the whole subtree and returns every distinct
// non-empty element or attribute namespace URI, excluding the implicit
// "xml" namespace which never needs a declaration.
func collectNamespaces(n *xmlnode.Node) []string {
	seen := make(map[string]bool)
	xmlnode.Walk(n, func(c *xmlnode.Node) bool {
		if c.Kind == xmlnode.Element && c.Name.Space != "" {
			seen[c.Name.Space] = true
		}
		for _, a := range c.Attrs {
			if a.Name.Space != "" && a.Name.Space != xmlNS && a.Name.Space != "xmlns" {
				seen[a.Name.Space] = true
			}
		}
		return true
	})
	out := make([]string, 0, len(seen))
	for uri := range seen {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

// assignPrefixes resolves each namespace URI to the prefix it will be
// serialized under: the conventional OOXML letter from wellKnownPrefix
// when known, else a deterministic synthesized "nsN" in sorted URI order
// so output never depends on map iteration order.
func assignPrefixes(uris []string) map[string]string {
	out := make(map[string]string, len(uris))
	usedDefault := false
	next := 0
	for _, uri := range uris {
		if p, ok := wellKnownPrefix[uri]; ok {
			if p == "" {
				if usedDefault {
					// Two distinct "default" namespaces can't both go
					// unprefixed in one document; fall back to a
					// synthesized prefix for the second.
					out[uri] = synthesizedPrefix(&next)
					continue
				}
				usedDefault = true
			}
			out[uri] = p
			continue
		}
		out[uri] = synthesizedPrefix(&next)
	}
	return out
}

func synthesizedPrefix(next *int) string {
	p := "ns" + itoa(*next)
	*next++
	return p
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

type nsDecl struct {
	attr string
	uri  string
}

// namespaceDecls returns the xmlns / xmlns:prefix declarations for
// prefixes, sorted by URI so output is deterministic.
func namespaceDecls(prefixes map[string]string) []nsDecl {
	uris := make([]string, 0, len(prefixes))
	for uri := range prefixes {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	out := make([]nsDecl, 0, len(uris))
	for _, uri := range uris {
		p := prefixes[uri]
		attr := "xmlns"
		if p != "" {
			attr = "xmlns:" + p
		}
		out = append(out, nsDecl{attr: attr, uri: uri})
	}
	return out
}

// qualifiedName renders n's tag as "prefix:Local", resolving n.Space (a
// namespace URI) through prefixes. An element with no namespace — the
// pattern pkg/opc uses for content-types/relationships parts, which
// declare their namespace as the default via an explicit xmlns attribute
// instead — serializes unprefixed.
func qualifiedName(n *xmlnode.Node, prefixes map[string]string) string {
	if n.Name.Space == "" {
		return n.Name.Local
	}
	if p := prefixes[n.Name.Space]; p != "" {
		return p + ":" + n.Name.Local
	}
	return n.Name.Local
}

func attrName(a xmlnode.Attr, prefixes map[string]string) string {
	if a.Name.Space == "" {
		return a.Name.Local
	}
	if a.Name.Space == xmlNS {
		return "xml:" + a.Name.Local
	}
	if p := prefixes[a.Name.Space]; p != "" {
		return p + ":" + a.Name.Local
	}
	return a.Name.Local
}

// SortedKeys returns the keys of m in ascending order, for deterministic
// iteration over a map before emitting XML.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
