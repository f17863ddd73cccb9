package wml

import (
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// revisionElementNames are every element fixUpRevisionIds renumbers.
var revisionElementNames = map[string]bool{
	"ins": true, "del": true,
	"pPrChange": true, "rPrChange": true, "tblPrChange": true,
	"tblGridChange": true, "tcPrChange": true, "trPrChange": true,
	"tblPrExChange": true, "sectPrChange": true,
	"cellIns": true, "cellDel": true, "cellMerge": true,
	"moveFrom": true, "moveTo": true,
	"customXmlInsRangeStart": true, "customXmlInsRangeEnd": true,
	"customXmlDelRangeStart": true, "customXmlDelRangeEnd": true,
	"customXmlMoveFromRangeStart": true, "customXmlMoveFromRangeEnd": true,
	"customXmlMoveToRangeStart": true, "customXmlMoveToRangeEnd": true,
	"numberingChange":    true,
	"moveFromRangeStart": true, "moveFromRangeEnd": true,
	"moveToRangeStart": true, "moveToRangeEnd": true,
}

// fixUpRevisionIds renumbers every revision-bearing element's w:id
// sequentially starting at 1, in document order, across every root
// passed in (main document body, footnotes, endnotes). A fresh allocator
// is used here regardless of any ids assigned during diff construction —
// the final numbering is the only one that reaches the saved output.
func fixUpRevisionIds(roots ...*xmlnode.Node) {
	alloc := opc.NewIDAllocator()
	for _, root := range roots {
		if root == nil {
			continue
		}
		xmlnode.Walk(root, func(n *xmlnode.Node) bool {
			if n.Kind == xmlnode.Element && revisionElementNames[n.Local()] {
				n.Set("", "id", uintToStr(alloc.Next()))
			}
			return true
		})
	}
}

// dropOrphanReferences scans root for r:id/r:embed attributes and
// removes any element whose referenced relationship id is not present in
// relIDs, preventing orphan references after images/headers/footers
// referenced only from deleted content are removed.
func dropOrphanReferences(root *xmlnode.Node, relIDs map[string]bool) {
	if root == nil {
		return
	}
	pruneOrphans(root, relIDs)
}

func pruneOrphans(n *xmlnode.Node, relIDs map[string]bool) {
	var kept []*xmlnode.Node
	for _, c := range n.Children {
		if c.Kind == xmlnode.Element {
			if ref, ok := relReference(c); ok && !relIDs[ref] {
				continue
			}
			pruneOrphans(c, relIDs)
		}
		kept = append(kept, c)
	}
	n.Children = kept
}

const relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

func relReference(n *xmlnode.Node) (string, bool) {
	if v, ok := n.GetNS(relNS, "id"); ok {
		return v, true
	}
	if v, ok := n.GetNS(relNS, "embed"); ok {
		return v, true
	}
	return "", false
}
