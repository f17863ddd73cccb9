package wml

import (
	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/settings"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// appendFormattingChangeIfAny is reached only when a matched paragraph's
// word-level diff found no insertions or deletions at all: the text is
// identical but the paragraph or one of its runs may still carry
// different formatting. This is the WML analogue of PML's
// TextFormattingChanged — a paragraph-level w:pPrChange and/or one
// w:rPrChange per reformatted run, with a single TextFormattingChanged
// record regardless of how many runs were touched.
func appendFormattingChangeIfAny(loc changeset.Location, left, right, out *xmlnode.Node, leftToks, rightToks []paraToken, alloc *opc.IDAllocator, st settings.Settings, cs *changeset.ChangeSet) {
	changed := wrapParagraphPropertyChange(left, right, out, alloc, st)
	if markChangedRunFormatting(out, leftToks, rightToks, alloc, st) {
		changed = true
	}
	if changed {
		cs.Add(changeset.Change{Kind: changeset.KindTextFormattingChanged, Location: loc})
	}
}

// wrapParagraphPropertyChange compares left's and right's w:pPr; if they
// differ, it wraps out's w:pPr in a w:pPrChange snapshotting left's.
func wrapParagraphPropertyChange(left, right, out *xmlnode.Node, alloc *opc.IDAllocator, st settings.Settings) bool {
	leftPPr := left.FirstChildByLocal("pPr")
	rightPPr := right.FirstChildByLocal("pPr")
	if formattingNodeHash(leftPPr) == formattingNodeHash(rightPPr) {
		return false
	}
	pPr := out.FirstChildByLocal("pPr")
	if pPr == nil {
		pPr = xmlnode.NewElement(wNS, "pPr")
		out.InsertChild(0, pPr)
	}
	pPr.AppendChild(propertyChangeElement("pPrChange", leftPPr, "pPr", alloc, st))
	return true
}

// markChangedRunFormatting walks the output paragraph's run children,
// which (since this is only reached when the whole paragraph diffed as
// one contiguous Equal run) line up positionally with leftToks/rightToks,
// and wraps the w:rPr of any run whose formatting differs in a
// w:rPrChange snapshotting the left side's rPr.
func markChangedRunFormatting(out *xmlnode.Node, leftToks, rightToks []paraToken, alloc *opc.IDAllocator, st settings.Settings) bool {
	changed := false
	runs := out.ChildrenByLocal("r")
	n := len(runs)
	if len(leftToks) < n {
		n = len(leftToks)
	}
	if len(rightToks) < n {
		n = len(rightToks)
	}
	for i := 0; i < n; i++ {
		lt, rt := leftToks[i], rightToks[i]
		if lt.Structural || rt.Structural {
			continue
		}
		var leftRPr, rightRPr *xmlnode.Node
		if lt.Run != nil {
			leftRPr = lt.Run.FirstChildByLocal("rPr")
		}
		if rt.Run != nil {
			rightRPr = rt.Run.FirstChildByLocal("rPr")
		}
		if formattingNodeHash(leftRPr) == formattingNodeHash(rightRPr) {
			continue
		}
		run := runs[i]
		rPr := run.FirstChildByLocal("rPr")
		if rPr == nil {
			rPr = xmlnode.NewElement(wNS, "rPr")
			run.InsertChild(0, rPr)
		}
		rPr.AppendChild(propertyChangeElement("rPrChange", leftRPr, "rPr", alloc, st))
		changed = true
	}
	return changed
}

// propertyChangeElement builds a w:<name> revision-tracking element
// (w:pPrChange or w:rPrChange) carrying the standard id/author/date
// attributes and a snapshot of old, the property element as it stood on
// the left side (an empty w:<snapshotLocal> if old is nil, meaning the
// property was absent on the left).
func propertyChangeElement(name string, old *xmlnode.Node, snapshotLocal string, alloc *opc.IDAllocator, st settings.Settings) *xmlnode.Node {
	change := xmlnode.NewElement(wNS, name)
	change.Set("", "id", uintToStr(alloc.Next()))
	change.Set("", "author", st.Author)
	change.Set("", "date", st.DateTime.Format(dateTimeLayout))
	if old != nil {
		change.AppendChild(old.Clone())
	} else {
		change.AppendChild(xmlnode.NewElement(wNS, snapshotLocal))
	}
	return change
}

// formattingNodeHash hashes a property element's serialized form, with a
// dedicated zero-value digest for a nil node so "absent" never collides
// with an empty-but-present element.
func formattingNodeHash(n *xmlnode.Node) hashutil.Digest {
	if n == nil {
		return hashutil.Digest{}
	}
	d := hashUnit(n)
	// hashUnit never returns the all-zero digest for real content (FNV-128
	// of any non-empty serialization is astronomically unlikely to be
	// zero), so reserving it for "absent" above is safe in practice.
	return d
}
