package wml

import (
	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/settings"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// buildOutput reconstructs the output body's children from an alignment
// by replacing the w:body children with the reconstructed sequence,
// recording Change entries as it goes. leftPkg and rightPkg let a
// ParaModified render resolve drawing/picture r:embed references against
// the part (document/footnotes/endnotes) the matched units actually came
// from.
func buildOutput(ops []ParaOp, leftPkg, rightPkg *opc.Package, st settings.Settings, alloc *opc.IDAllocator, cs *changeset.ChangeSet) []*xmlnode.Node {
	var out []*xmlnode.Node
	for idx, op := range ops {
		loc := changeset.Location{ParagraphIdx: idx}
		switch op.Status {
		case ParaEqual:
			out = append(out, op.Left.Node.Clone())

		case ParaModified:
			partURI := partURIForSource(op.Left.Source)
			leftRes := imageResolver{pkg: leftPkg, partURI: partURI}
			rightRes := imageResolver{pkg: rightPkg, partURI: partURI}
			var rendered *xmlnode.Node
			if op.Left.Kind == UnitTableRow {
				rendered = renderTableRowModification(loc, op.Left.Node, op.Right.Node, leftRes, rightRes, st, alloc, cs)
			} else {
				rendered = renderModification(loc, op.Left.Node, op.Right.Node, leftRes, rightRes, st, alloc, cs)
			}
			out = append(out, rendered)

		case ParaDeleted:
			out = append(out, wrapWholeParagraphDel(op.Left.Node, alloc, st))
			kind := changeset.KindParagraphDeleted
			if op.Left.Kind == UnitTableRow {
				kind = changeset.KindTableContentChanged
			}
			cs.Add(changeset.Change{Kind: kind, Location: loc, OldValue: op.Left.Node.Text()})

		case ParaInserted:
			out = append(out, wrapWholeParagraphIns(op.Right.Node, alloc, st))
			kind := changeset.KindParagraphInserted
			if op.Right.Kind == UnitTableRow {
				kind = changeset.KindTableContentChanged
			}
			cs.Add(changeset.Change{Kind: kind, Location: loc, NewValue: op.Right.Node.Text()})

		case ParaRowGroupDeleted:
			for _, u := range op.GroupLeft {
				out = append(out, wrapWholeParagraphDel(u.Node, alloc, st))
			}
			cs.Add(changeset.Change{Kind: changeset.KindRowDeleted, Location: loc, Count: op.GroupCount})

		case ParaRowGroupInserted:
			for _, u := range op.GroupRight {
				out = append(out, wrapWholeParagraphIns(u.Node, alloc, st))
			}
			cs.Add(changeset.Change{Kind: changeset.KindRowInserted, Location: loc, Count: op.GroupCount})
		}
	}
	return out
}

// wrapWholeParagraphIns/Del wrap every run in a paragraph (or table row's
// cell runs) in a single w:ins/w:del, used for pure insertions/deletions
// where no word-level pairing applies.
func wrapWholeParagraphIns(n *xmlnode.Node, alloc *opc.IDAllocator, st settings.Settings) *xmlnode.Node {
	out := n.Clone()
	wrapRunsInPlace(out, alloc, st, "ins")
	return out
}

func wrapWholeParagraphDel(n *xmlnode.Node, alloc *opc.IDAllocator, st settings.Settings) *xmlnode.Node {
	out := n.Clone()
	wrapRunsInPlace(out, alloc, st, "del")
	return out
}

func wrapRunsInPlace(n *xmlnode.Node, alloc *opc.IDAllocator, st settings.Settings, mode string) {
	if n.Local() == "tr" {
		for _, tc := range n.ChildrenByLocal("tc") {
			for _, p := range tc.ChildrenByLocal("p") {
				wrapParagraphRuns(p, alloc, st, mode)
			}
		}
		return
	}
	if n.Local() == "tc" {
		for _, p := range n.ChildrenByLocal("p") {
			wrapParagraphRuns(p, alloc, st, mode)
		}
		return
	}
	wrapParagraphRuns(n, alloc, st, mode)
}

// replaceTableCells splices newCells into tr's children in place of its
// existing w:tc children (preserving w:trPr and any other non-tc
// children in position); any newCells beyond the original tc count are
// appended, for the case where a deleted cell has no right-hand
// counterpart to take its place.
func replaceTableCells(tr *xmlnode.Node, newCells []*xmlnode.Node) {
	var rebuilt []*xmlnode.Node
	idx := 0
	for _, c := range tr.Children {
		if c.Kind == xmlnode.Element && c.Local() == "tc" {
			if idx < len(newCells) {
				rebuilt = append(rebuilt, newCells[idx])
				idx++
			}
			continue
		}
		rebuilt = append(rebuilt, c)
	}
	for ; idx < len(newCells); idx++ {
		rebuilt = append(rebuilt, newCells[idx])
	}
	tr.Children = rebuilt
}

// replaceCellParagraphs is replaceTableCells' analogue one level down:
// splices newParas into tc's children in place of its existing w:p
// children, preserving w:tcPr and appending any surplus.
func replaceCellParagraphs(tc *xmlnode.Node, newParas []*xmlnode.Node) {
	var rebuilt []*xmlnode.Node
	idx := 0
	for _, c := range tc.Children {
		if c.Kind == xmlnode.Element && c.Local() == "p" {
			if idx < len(newParas) {
				rebuilt = append(rebuilt, newParas[idx])
				idx++
			}
			continue
		}
		rebuilt = append(rebuilt, c)
	}
	for ; idx < len(newParas); idx++ {
		rebuilt = append(rebuilt, newParas[idx])
	}
	tc.Children = rebuilt
}

func wrapParagraphRuns(p *xmlnode.Node, alloc *opc.IDAllocator, st settings.Settings, mode string) {
	var rewritten []*xmlnode.Node
	for _, c := range p.Children {
		if c.Kind == xmlnode.Element && c.Local() == "r" {
			wrapper := xmlnode.NewElement(wNS, mode)
			wrapper.Set("", "id", uintToStr(alloc.Next()))
			wrapper.Set("", "author", st.Author)
			wrapper.Set("", "date", st.DateTime.Format(dateTimeLayout))
			if mode == "del" {
				wrapper.AppendChild(convertToDelText(c))
			} else {
				wrapper.AppendChild(c)
			}
			rewritten = append(rewritten, wrapper)
			continue
		}
		rewritten = append(rewritten, c)
	}
	p.Children = rewritten
}

// convertToDelText clones a run, converting every w:t to w:delText.
func convertToDelText(r *xmlnode.Node) *xmlnode.Node {
	out := r.Clone()
	for i, c := range out.Children {
		if c.Kind == xmlnode.Element && c.Local() == "t" {
			c.Name.Local = "delText"
			out.Children[i] = c
		}
	}
	return out
}
