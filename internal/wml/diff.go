package wml

import (
	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/lcs"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/settings"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// wordSegment is one aligned run of the word-level diff.
type wordSegment struct {
	Status lcs.Status
	Left   []paraToken
	Right  []paraToken
}

func wordDiff(left, right []paraToken) []wordSegment {
	leftKeys := make([]string, len(left))
	for i, t := range left {
		leftKeys[i] = t.Text
	}
	rightKeys := make([]string, len(right))
	for i, t := range right {
		rightKeys[i] = t.Text
	}
	segs := lcs.Align(leftKeys, rightKeys, lcs.Options[string]{})

	out := make([]wordSegment, len(segs))
	li, ri := 0, 0
	for i, s := range segs {
		ws := wordSegment{Status: s.Status}
		switch s.Status {
		case lcs.StatusEqual:
			ws.Left = left[li : li+len(s.Left)]
			ws.Right = right[ri : ri+len(s.Right)]
			li += len(s.Left)
			ri += len(s.Right)
		case lcs.StatusDeleted:
			ws.Left = left[li : li+len(s.Left)]
			li += len(s.Left)
		case lcs.StatusInserted:
			ws.Right = right[ri : ri+len(s.Right)]
			ri += len(s.Right)
		}
		out[i] = ws
	}
	return out
}

// renderModification builds the output paragraph node for a matched
// pair (left, right), rendering word-level revisions as w:ins/w:del runs
// and recording Change entries per the change-counting policy below.
// alloc supplies w:id values for revision elements (renumbered again in
// the final fixUpRevisionIds pass, so any monotonic source is fine
// here).
func renderModification(loc changeset.Location, left, right *xmlnode.Node, leftRes, rightRes imageResolver, st settings.Settings, alloc *opc.IDAllocator, cs *changeset.ChangeSet) *xmlnode.Node {
	leftToks := paragraphTokens(left, leftRes)
	rightToks := paragraphTokens(right, rightRes)
	segs := wordDiff(leftToks, rightToks)

	out := right.Clone()
	out.Children = nil
	if pPr := right.FirstChildByLocal("pPr"); pPr != nil {
		out.AppendChild(pPr.Clone())
	}

	sim := jaccardSimilarityTokens(leftToks, rightToks)
	bothKinds := hasBothKinds(segs)
	wholeReplacement := bothKinds && sim < 0.4
	structuralBridgeReplacement := bothKinds && onlyShortStructuralBetween(segs)

	// A paragraph with only insertions (no deletions at all), or only
	// deletions (no insertions at all), counts as a single revision
	// regardless of how many non-contiguous runs it is split across —
	// the same collapse whole-paragraph-replacement and the structural
	// bridge rule already apply when both kinds are present.
	collapseToOne := !bothKinds || wholeReplacement || structuralBridgeReplacement

	var runBuf []*xmlnode.Node
	recordedInsertion, recordedDeletion := false, false

	for _, seg := range segs {
		switch seg.Status {
		case lcs.StatusEqual:
			runBuf = append(runBuf, renderPlainTokens(seg.Right)...)
		case lcs.StatusDeleted:
			runBuf = append(runBuf, wrapDel(seg.Left, alloc, st))
			if !recordedDeletion || !collapseToOne {
				cs.Add(changeset.Change{Kind: changeset.KindTextChanged, Location: loc, OldValue: renderTokens(seg.Left)})
			}
			recordedDeletion = true
		case lcs.StatusInserted:
			runBuf = append(runBuf, wrapIns(seg.Right, alloc, st))
			if !recordedInsertion || !collapseToOne {
				cs.Add(changeset.Change{Kind: changeset.KindTextChanged, Location: loc, NewValue: renderTokens(seg.Right)})
			}
			recordedInsertion = true
		}
	}
	out.Children = append(out.Children, runBuf...)

	if !bothKinds && !recordedInsertion && !recordedDeletion {
		appendFormattingChangeIfAny(loc, left, right, out, leftToks, rightToks, alloc, st, cs)
	}
	return out
}

// renderTableRowModification rebuilds a matched table row cell by cell,
// with each cell contributing at most one insertion and at most one
// deletion. A w:tr's direct children are w:tc, never
// w:r/w:hyperlink/w:smartTag, so routing a modified row through
// renderModification directly would tokenize nothing on either side and
// silently drop every cell from the output.
func renderTableRowModification(loc changeset.Location, leftTr, rightTr *xmlnode.Node, leftRes, rightRes imageResolver, st settings.Settings, alloc *opc.IDAllocator, cs *changeset.ChangeSet) *xmlnode.Node {
	out := rightTr.Clone()

	leftCells := leftTr.ChildrenByLocal("tc")
	rightCells := rightTr.ChildrenByLocal("tc")

	n := len(leftCells)
	if len(rightCells) < n {
		n = len(rightCells)
	}

	var cells []*xmlnode.Node
	for i := 0; i < n; i++ {
		cells = append(cells, renderCellModification(loc, leftCells[i], rightCells[i], leftRes, rightRes, st, alloc, cs))
	}
	for i := n; i < len(leftCells); i++ {
		cells = append(cells, wrapWholeParagraphDel(leftCells[i], alloc, st))
		cs.Add(changeset.Change{Kind: changeset.KindTableContentChanged, Location: loc, OldValue: leftCells[i].Text()})
	}
	for i := n; i < len(rightCells); i++ {
		cells = append(cells, wrapWholeParagraphIns(rightCells[i], alloc, st))
		cs.Add(changeset.Change{Kind: changeset.KindTableContentChanged, Location: loc, NewValue: rightCells[i].Text()})
	}

	replaceTableCells(out, cells)
	return out
}

// renderCellModification diffs one matched pair of cells paragraph by
// paragraph, rendering word-level w:ins/w:del the same way a plain
// paragraph modification does, but collapsing the changeset entries down
// to at most one insertion and one deletion Change per cell rather than
// one per contiguous word run.
func renderCellModification(loc changeset.Location, leftTc, rightTc *xmlnode.Node, leftRes, rightRes imageResolver, st settings.Settings, alloc *opc.IDAllocator, cs *changeset.ChangeSet) *xmlnode.Node {
	out := rightTc.Clone()

	leftParas := leftTc.ChildrenByLocal("p")
	rightParas := rightTc.ChildrenByLocal("p")

	n := len(leftParas)
	if len(rightParas) < n {
		n = len(rightParas)
	}

	hasIns, hasDel := false, false
	var paras []*xmlnode.Node
	for i := 0; i < n; i++ {
		leftToks := paragraphTokens(leftParas[i], leftRes)
		rightToks := paragraphTokens(rightParas[i], rightRes)
		segs := wordDiff(leftToks, rightToks)

		p := rightParas[i].Clone()
		var runBuf []*xmlnode.Node
		for _, seg := range segs {
			switch seg.Status {
			case lcs.StatusEqual:
				runBuf = append(runBuf, renderPlainTokens(seg.Right)...)
			case lcs.StatusDeleted:
				runBuf = append(runBuf, wrapDel(seg.Left, alloc, st))
				hasDel = true
			case lcs.StatusInserted:
				runBuf = append(runBuf, wrapIns(seg.Right, alloc, st))
				hasIns = true
			}
		}
		p.Children = runBuf
		paras = append(paras, p)
	}
	for i := n; i < len(leftParas); i++ {
		paras = append(paras, wrapWholeParagraphDel(leftParas[i], alloc, st))
		hasDel = true
	}
	for i := n; i < len(rightParas); i++ {
		paras = append(paras, wrapWholeParagraphIns(rightParas[i], alloc, st))
		hasIns = true
	}

	replaceCellParagraphs(out, paras)

	if hasDel {
		cs.Add(changeset.Change{Kind: changeset.KindTableContentChanged, Location: loc, OldValue: leftTc.Text()})
	}
	if hasIns {
		cs.Add(changeset.Change{Kind: changeset.KindTableContentChanged, Location: loc, NewValue: rightTc.Text()})
	}
	return out
}

func hasBothKinds(segs []wordSegment) bool {
	hasDel, hasIns := false, false
	for _, s := range segs {
		if s.Status == lcs.StatusDeleted {
			hasDel = true
		}
		if s.Status == lcs.StatusInserted {
			hasIns = true
		}
	}
	return hasDel && hasIns
}

// onlyShortStructuralBetween reports whether every Equal run sitting
// between the first Deleted/Inserted run and the last one consists of a
// single short structural token (a footnote/endnote reference, drawing,
// or picture) bridging what is otherwise one contiguous replacement.
func onlyShortStructuralBetween(segs []wordSegment) bool {
	firstChange, lastChange := -1, -1
	for i, s := range segs {
		if s.Status != lcs.StatusEqual {
			if firstChange == -1 {
				firstChange = i
			}
			lastChange = i
		}
	}
	if firstChange == -1 || firstChange == lastChange {
		return false
	}
	for i := firstChange + 1; i < lastChange; i++ {
		s := segs[i]
		if s.Status != lcs.StatusEqual {
			continue
		}
		if len(s.Right) != 1 || !isShortStructuralText(s.Right[0].Text) {
			return false
		}
	}
	return true
}

func jaccardSimilarityTokens(a, b []paraToken) float64 {
	toA := make([]Token, len(a))
	for i, t := range a {
		toA[i] = t.Token
	}
	toB := make([]Token, len(b))
	for i, t := range b {
		toB[i] = t.Token
	}
	return jaccardSimilarity(toA, toB)
}

func renderTokens(toks []paraToken) string {
	plain := make([]Token, len(toks))
	for i, t := range toks {
		plain[i] = t.Token
	}
	if len(plain) > 0 {
		plain[0].LeadSpace = ""
	}
	return render(plain)
}

func renderPlainTokens(toks []paraToken) []*xmlnode.Node {
	var out []*xmlnode.Node
	for _, t := range toks {
		out = append(out, tokenToRun(t))
	}
	return out
}

func wrapDel(toks []paraToken, alloc *opc.IDAllocator, st settings.Settings) *xmlnode.Node {
	del := xmlnode.NewElement(wNS, "del")
	del.Set("", "id", uintToStr(alloc.Next()))
	del.Set("", "author", st.Author)
	del.Set("", "date", st.DateTime.Format(dateTimeLayout))
	for _, t := range toks {
		del.AppendChild(tokenToDelRun(t))
	}
	return del
}

func wrapIns(toks []paraToken, alloc *opc.IDAllocator, st settings.Settings) *xmlnode.Node {
	ins := xmlnode.NewElement(wNS, "ins")
	ins.Set("", "id", uintToStr(alloc.Next()))
	ins.Set("", "author", st.Author)
	ins.Set("", "date", st.DateTime.Format(dateTimeLayout))
	for _, t := range toks {
		ins.AppendChild(tokenToRun(t))
	}
	return ins
}

func tokenToRun(t paraToken) *xmlnode.Node {
	if t.Structural {
		r := xmlnode.NewElement(wNS, "r")
		r.AppendChild(t.Elem.Clone())
		return r
	}
	r := xmlnode.NewElement(wNS, "r")
	if t.Run != nil {
		if rPr := t.Run.FirstChildByLocal("rPr"); rPr != nil {
			r.AppendChild(rPr.Clone())
		}
	}
	txt := xmlnode.NewElement(wNS, "t")
	txt.PreserveSpace = true
	txt.AppendChild(xmlnode.NewText(t.LeadSpace + t.Text))
	r.AppendChild(txt)
	return r
}

func tokenToDelRun(t paraToken) *xmlnode.Node {
	if t.Structural {
		r := xmlnode.NewElement(wNS, "r")
		r.AppendChild(t.Elem.Clone())
		return r
	}
	r := xmlnode.NewElement(wNS, "r")
	if t.Run != nil {
		if rPr := t.Run.FirstChildByLocal("rPr"); rPr != nil {
			r.AppendChild(rPr.Clone())
		}
	}
	txt := xmlnode.NewElement(wNS, "delText")
	txt.PreserveSpace = true
	txt.AppendChild(xmlnode.NewText(t.LeadSpace + t.Text))
	r.AppendChild(txt)
	return r
}

const wNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
const dateTimeLayout = "2006-01-02T15:04:05Z"

func uintToStr(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
