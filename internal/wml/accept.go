// Package wml implements the WordprocessingML comparer: accept-prior
// revisions, canonicalization, paragraph/row alignment, word-level diff,
// and output document construction with revision-id renumbering.
//
// The pipeline shape — accept, canonicalize, align, diff, render — is the
// same reader->core->serializer layering mmonterroca-docxgo/v2 uses for
// its own document assembly, generalized here from "build a document"
// to "compare two documents."
package wml

import "github.com/oxmlredline/compare/pkg/xmlnode"

// acceptPriorRevisions accepts every tracked change in a
// body/footnotes/endnotes tree so that existing revisions never confuse
// the diff. It rewrites a clone and returns it; the input is not mutated (xmlnode.Clone is used so callers can
// keep the original for other purposes).
func acceptPriorRevisions(root *xmlnode.Node) *xmlnode.Node {
	out := root.Clone()
	acceptInPlace(out)
	return out
}

// unwrapLocalNames are elements whose children are kept but whose wrapper
// is discarded — the revision is treated as already accepted.
var unwrapLocalNames = map[string]bool{
	"ins":    true,
	"moveTo": true,
}

// removeLocalNames are elements removed entirely, along with their
// subtree — these represent content that a prior reviewer rejected or
// metadata about a prior revision that must not leak into the diff.
var removeLocalNames = map[string]bool{
	"del":               true,
	"delText":           true,
	"delInstrText":      true,
	"moveFrom":          true,
	"pPrChange":         true,
	"rPrChange":         true,
	"tblPrChange":       true,
	"tblGridChange":     true,
	"tcPrChange":        true,
	"trPrChange":        true,
	"tblPrExChange":     true,
	"sectPrChange":      true,
	"numberingChange":   true,
	"cellIns":           true,
	"moveFromRangeStart": true,
	"moveFromRangeEnd":   true,
	"moveToRangeStart":   true,
	"moveToRangeEnd":     true,
}

// stripAttrExact are attribute local names removed from every element in
// the tree (w14:paraId, w14:textId); w:rsid* attributes are removed by
// prefix in stripRevisionAttrs.
var stripAttrExact = map[string]bool{
	"paraId": true,
	"textId": true,
}

func acceptInPlace(n *xmlnode.Node) {
	if n.Kind != xmlnode.Element {
		return
	}

	stripRevisionAttrs(n)

	var kept []*xmlnode.Node
	for _, c := range n.Children {
		if c.Kind != xmlnode.Element {
			kept = append(kept, c)
			continue
		}
		local := c.Local()

		if local == "customXml" && hasRangeMarkerAttr(c) {
			continue
		}
		if isRangeStartOrEnd(local) {
			continue
		}
		if local == "tr" && rowMarkedDeleted(c) {
			continue
		}
		if local == "f" && n.Space == mathNS && controlPropsContainDel(c) {
			continue
		}
		if removeLocalNames[local] {
			continue
		}
		if unwrapLocalNames[local] {
			acceptInPlace(c)
			kept = append(kept, c.Children...)
			continue
		}

		acceptInPlace(c)
		kept = append(kept, c)
	}
	n.Children = kept
}

const mathNS = "http://schemas.openxmlformats.org/officeDocument/2006/math"

func stripRevisionAttrs(n *xmlnode.Node) {
	var kept []xmlnode.Attr
	for _, a := range n.Attrs {
		local := a.Name.Local
		if stripAttrExact[local] {
			continue
		}
		if len(local) >= 4 && local[:4] == "rsid" {
			continue
		}
		kept = append(kept, a)
	}
	n.Attrs = kept
}

func isRangeStartOrEnd(local string) bool {
	switch local {
	case "customXmlInsRangeStart", "customXmlInsRangeEnd",
		"customXmlDelRangeStart", "customXmlDelRangeEnd",
		"customXmlMoveFromRangeStart", "customXmlMoveFromRangeEnd",
		"customXmlMoveToRangeStart", "customXmlMoveToRangeEnd":
		return true
	}
	return false
}

func hasRangeMarkerAttr(n *xmlnode.Node) bool {
	// customXml itself is ordinary content; only the *RangeStart/End
	// siblings are markers, already handled by isRangeStartOrEnd. This
	// helper exists for symmetry and always returns false, kept separate
	// from isRangeStartOrEnd so the spec's two bullet points stay visibly
	// distinct in the code.
	_ = n
	return false
}

func rowMarkedDeleted(tr *xmlnode.Node) bool {
	trPr := tr.FirstChildByLocal("trPr")
	if trPr == nil {
		return false
	}
	return trPr.FirstChildByLocal("del") != nil
}

func controlPropsContainDel(f *xmlnode.Node) bool {
	fPr := f.FirstChildByLocal("fPr")
	if fPr == nil {
		return false
	}
	return xmlnode.Find(fPr, func(c *xmlnode.Node) bool {
		return c.Kind == xmlnode.Element && c.Local() == "del"
	}) != nil
}
