package sml

import (
	"sort"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/cellref"
	"github.com/oxmlredline/compare/pkg/lcs"
	"github.com/oxmlredline/compare/pkg/settings"
)

// CellChange is one raw per-cell diff outcome, the unit grouping.go
// collapses into adjacent change-list entries. It is kept separate from
// changeset.Change because grouping needs the precise (row, col)
// coordinates before it collapses them into a CellRange.
type CellChange struct {
	Kind      changeset.Kind
	Sheet     string
	Row, Col  int
	Address   string
	OldValue  string
	NewValue  string
}

// Diff walks the matched sheet pairs and emits Change records into cs, in
// workbook order. It returns the raw per-cell changes too, since the
// markup renderer needs (row, col) coordinates grouping.go's CellRange
// strings discard.
func Diff(left, right *WorkbookSignature, st settings.Settings, cs *changeset.ChangeSet) []CellChange {
	ops := matchSheets(left, right, st)
	ops = sortSheetOpsByWorkbookOrder(ops, left, right)

	var allCellChanges []CellChange

	for _, op := range ops {
		switch op.Status {
		case SheetDeleted:
			cs.Add(changeset.Change{Kind: changeset.KindSheetDeleted, Name: op.LeftName, Location: changeset.Location{SheetName: op.LeftName}})
		case SheetInserted:
			cs.Add(changeset.Change{Kind: changeset.KindSheetInserted, Name: op.RightName, Location: changeset.Location{SheetName: op.RightName}})
		case SheetRenamed:
			if op.LeftName != op.RightName {
				cs.Add(changeset.Change{Kind: changeset.KindSheetRenamed, OldValue: op.LeftName, NewValue: op.RightName, Location: changeset.Location{SheetName: op.RightName}})
			}
			allCellChanges = append(allCellChanges, diffWorksheet(left.Worksheets[op.LeftName], right.Worksheets[op.RightName], st, cs)...)
		case SheetEqual:
			allCellChanges = append(allCellChanges, diffWorksheet(left.Worksheets[op.LeftName], right.Worksheets[op.RightName], st, cs)...)
		}
	}

	diffDefinedNames(left, right, cs)
	return allCellChanges
}

// sortSheetOpsByWorkbookOrder keeps matched/renamed/equal/deleted sheets
// in the left workbook's order, with pure insertions appended in the
// right workbook's order, so row-diff output is deterministic and in
// document order.
func sortSheetOpsByWorkbookOrder(ops []SheetOp, left, right *WorkbookSignature) []SheetOp {
	leftIndex := make(map[string]int, len(left.Sheets))
	for i, s := range left.Sheets {
		leftIndex[s.Name] = i
	}
	rightIndex := make(map[string]int, len(right.Sheets))
	for i, s := range right.Sheets {
		rightIndex[s.Name] = i
	}
	sort.SliceStable(ops, func(i, j int) bool {
		ki, kj := sortKey(ops[i], leftIndex), sortKey(ops[j], leftIndex)
		if ops[i].Status == SheetInserted {
			ki = len(left.Sheets) + rightIndex[ops[i].RightName]
		}
		if ops[j].Status == SheetInserted {
			kj = len(left.Sheets) + rightIndex[ops[j].RightName]
		}
		return ki < kj
	})
	return ops
}

func sortKey(op SheetOp, leftIndex map[string]int) int {
	if op.LeftName != "" {
		return leftIndex[op.LeftName]
	}
	return len(leftIndex)
}

// diffWorksheet runs row-LCS alignment (when enabled) followed by
// per-cell comparison on matched rows, or a direct cell-dictionary
// comparison when row alignment is disabled, plus the structural
// column-alignment, comment, validation, merge and hyperlink passes.
func diffWorksheet(left, right *WorksheetSignature, st settings.Settings, cs *changeset.ChangeSet) []CellChange {
	if left == nil || right == nil {
		return nil
	}
	var changes []CellChange

	if st.EnableRowAlignment {
		changes = append(changes, diffRowsAligned(left, right, st, cs)...)
	} else {
		changes = append(changes, diffCellDictionaries(left, right, st, cs)...)
	}

	if st.EnableColumnAlignment {
		diffColumnsAligned(left, right, cs)
	}

	diffComments(left, right, cs, st)
	diffDataValidations(left, right, cs, st)
	diffMergedRanges(left, right, cs, st)
	diffHyperlinks(left, right, cs, st)
	diffRowColumnSizing(left, right, cs, st)
	return changes
}

// diffRowColumnSizing surfaces the CompareRowColumnSizing facet, off by
// default since logical content takes priority over layout fidelity.
func diffRowColumnSizing(left, right *WorksheetSignature, cs *changeset.ChangeSet, st settings.Settings) {
	if !st.CompareRowColumnSizing {
		return
	}
	for row, rh := range right.RowHeights {
		if left.RowHeights[row] != rh {
			cs.Add(changeset.Change{Kind: changeset.KindFormatChanged, Location: changeset.Location{SheetName: right.Name, CellAddress: "Row" + itoa(row)}})
		}
	}
	for col, cw := range right.ColumnWidths {
		if left.ColumnWidths[col] != cw {
			cs.Add(changeset.Change{Kind: changeset.KindFormatChanged, Location: changeset.Location{SheetName: right.Name, CellAddress: "Col" + cellref.ColumnName(col)}})
		}
	}
}

func diffRowsAligned(left, right *WorksheetSignature, st settings.Settings, cs *changeset.ChangeSet) []CellChange {
	leftKeys := make([]string, len(left.Rows))
	for i, r := range left.Rows {
		leftKeys[i] = left.RowHash[r].String()
	}
	rightKeys := make([]string, len(right.Rows))
	for i, r := range right.Rows {
		rightKeys[i] = right.RowHash[r].String()
	}
	segs := lcs.Align(leftKeys, rightKeys, lcs.Options[string]{})

	var changes []CellChange
	li, ri := 0, 0
	for _, seg := range segs {
		switch seg.Status {
		case lcs.StatusEqual:
			n := len(seg.Left)
			for k := 0; k < n; k++ {
				changes = append(changes, diffRowCells(left, right, left.Rows[li+k], right.Rows[ri+k], st, cs)...)
			}
			li += n
			ri += n
		case lcs.StatusDeleted:
			n := len(seg.Left)
			for k := 0; k < n; k++ {
				row := left.Rows[li+k]
				cs.Add(changeset.Change{Kind: changeset.KindRowDeleted, Location: changeset.Location{SheetName: left.Name}, OldValue: itoa(row)})
			}
			li += n
		case lcs.StatusInserted:
			n := len(seg.Right)
			for k := 0; k < n; k++ {
				row := right.Rows[ri+k]
				cs.Add(changeset.Change{Kind: changeset.KindRowInserted, Location: changeset.Location{SheetName: right.Name}, NewValue: itoa(row)})
			}
			ri += n
		}
	}
	return changes
}

// diffColumnsAligned runs an LCS over the two worksheets' per-column
// content hashes to detect whole columns that were inserted or deleted,
// the column-level counterpart to diffRowsAligned. It only emits
// structural ColumnInserted/ColumnDeleted records for columns with no
// counterpart on the other side; cell-by-cell content differences within
// aligned columns are already covered by the row diff above.
func diffColumnsAligned(left, right *WorksheetSignature, cs *changeset.ChangeSet) {
	leftKeys := make([]string, len(left.Columns))
	for i, c := range left.Columns {
		leftKeys[i] = left.ColHash[c].String()
	}
	rightKeys := make([]string, len(right.Columns))
	for i, c := range right.Columns {
		rightKeys[i] = right.ColHash[c].String()
	}
	segs := lcs.Align(leftKeys, rightKeys, lcs.Options[string]{})

	li, ri := 0, 0
	for _, seg := range segs {
		switch seg.Status {
		case lcs.StatusEqual:
			li += len(seg.Left)
			ri += len(seg.Right)
		case lcs.StatusDeleted:
			n := len(seg.Left)
			for k := 0; k < n; k++ {
				col := left.Columns[li+k]
				cs.Add(changeset.Change{Kind: changeset.KindColumnDeleted, Location: changeset.Location{SheetName: left.Name}, OldValue: cellref.ColumnName(col)})
			}
			li += n
		case lcs.StatusInserted:
			n := len(seg.Right)
			for k := 0; k < n; k++ {
				col := right.Columns[ri+k]
				cs.Add(changeset.Change{Kind: changeset.KindColumnInserted, Location: changeset.Location{SheetName: right.Name}, NewValue: cellref.ColumnName(col)})
			}
			ri += n
		}
	}
}

// diffRowCells compares every populated cell in either of two matched
// rows, emitting CellAdded/CellDeleted/ValueChanged/FormulaChanged/
// FormatChanged per address.
func diffRowCells(left, right *WorksheetSignature, leftRow, rightRow int, st settings.Settings, cs *changeset.ChangeSet) []CellChange {
	cols := make(map[int]bool)
	for _, c := range left.Cells {
		if c.Row == leftRow {
			cols[c.Col] = true
		}
	}
	for _, c := range right.Cells {
		if c.Row == rightRow {
			cols[c.Col] = true
		}
	}
	colList := make([]int, 0, len(cols))
	for c := range cols {
		colList = append(colList, c)
	}
	sort.Ints(colList)

	var out []CellChange
	for _, col := range colList {
		lc := left.Cells[cellref.Address(leftRow, col)]
		rightAddr := cellref.Address(rightRow, col)
		rc := right.Cells[rightAddr]
		out = append(out, compareCells(right.Name, rightAddr, lc, rc, st, cs)...)
	}
	return out
}

func diffCellDictionaries(left, right *WorksheetSignature, st settings.Settings, cs *changeset.ChangeSet) []CellChange {
	addrs := make(map[string]bool, len(left.Cells)+len(right.Cells))
	for addr := range left.Cells {
		addrs[addr] = true
	}
	for addr := range right.Cells {
		addrs[addr] = true
	}
	var out []CellChange
	for _, addr := range sortedAddrKeys(addrs) {
		out = append(out, compareCells(right.Name, addr, left.Cells[addr], right.Cells[addr], st, cs)...)
	}
	return out
}

// compareCells applies the per-address cell comparison policy: equal
// content hashes mean no change (aside from formatting); otherwise value,
// formula and format are each compared independently and gated by their
// own settings flag.
func compareCells(sheet, addr string, lc, rc *CellSignature, st settings.Settings, cs *changeset.ChangeSet) []CellChange {
	loc := changeset.Location{SheetName: sheet, CellAddress: addr}
	switch {
	case lc == nil && rc == nil:
		return nil
	case lc == nil:
		cs.Add(changeset.Change{Kind: changeset.KindCellAdded, Location: loc, NewValue: rc.displayValue()})
		return []CellChange{{Kind: changeset.KindCellAdded, Sheet: sheet, Row: rc.Row, Col: rc.Col, Address: addr, NewValue: rc.displayValue()}}
	case rc == nil:
		cs.Add(changeset.Change{Kind: changeset.KindCellDeleted, Location: loc, OldValue: lc.displayValue()})
		return []CellChange{{Kind: changeset.KindCellDeleted, Sheet: sheet, Row: lc.Row, Col: lc.Col, Address: addr, OldValue: lc.displayValue()}}
	case lc.ContentHash == rc.ContentHash:
		return diffFormatOnly(sheet, addr, lc, rc, st, cs)
	}

	var out []CellChange
	if (lc.Type == CellTypePicture || rc.Type == CellTypePicture) && lc.ImageHash != rc.ImageHash {
		cs.Add(changeset.Change{Kind: changeset.KindImageReplaced, Location: loc})
		out = append(out, CellChange{Kind: changeset.KindImageReplaced, Sheet: sheet, Row: rc.Row, Col: rc.Col, Address: addr})
	}
	if st.CompareValues && lc.Value != rc.Value {
		cs.Add(changeset.Change{Kind: changeset.KindValueChanged, Location: loc, OldValue: lc.Value, NewValue: rc.Value})
		out = append(out, CellChange{Kind: changeset.KindValueChanged, Sheet: sheet, Row: rc.Row, Col: rc.Col, Address: addr, OldValue: lc.Value, NewValue: rc.Value})
	}
	if st.CompareFormulas && !formulasEqual(lc.Formula, rc.Formula) {
		cs.Add(changeset.Change{Kind: changeset.KindFormulaChanged, Location: loc, OldValue: lc.Formula, NewValue: rc.Formula})
		out = append(out, CellChange{Kind: changeset.KindFormulaChanged, Sheet: sheet, Row: rc.Row, Col: rc.Col, Address: addr, OldValue: lc.Formula, NewValue: rc.Formula})
	}
	out = append(out, diffFormatOnly(sheet, addr, lc, rc, st, cs)...)
	return out
}

func diffFormatOnly(sheet, addr string, lc, rc *CellSignature, st settings.Settings, cs *changeset.ChangeSet) []CellChange {
	if !st.CompareFormatting || lc.Format == rc.Format {
		return nil
	}
	loc := changeset.Location{SheetName: sheet, CellAddress: addr}
	cs.Add(changeset.Change{Kind: changeset.KindFormatChanged, Location: loc})
	return []CellChange{{Kind: changeset.KindFormatChanged, Sheet: sheet, Row: rc.Row, Col: rc.Col, Address: addr}}
}

func (c *CellSignature) displayValue() string {
	if c == nil {
		return ""
	}
	if c.Formula != "" {
		return c.Formula
	}
	return c.Value
}

func diffComments(left, right *WorksheetSignature, cs *changeset.ChangeSet, st settings.Settings) {
	if !st.CompareComments {
		return
	}
	addrs := unionKeys(left.Comments, right.Comments)
	for _, addr := range addrs {
		lv, lok := left.Comments[addr]
		rv, rok := right.Comments[addr]
		loc := changeset.Location{SheetName: right.Name, CellAddress: addr}
		switch {
		case !lok && rok:
			cs.Add(changeset.Change{Kind: changeset.KindCommentAdded, Location: loc, NewValue: rv})
		case lok && !rok:
			cs.Add(changeset.Change{Kind: changeset.KindCommentDeleted, Location: loc, OldValue: lv})
		case lv != rv:
			cs.Add(changeset.Change{Kind: changeset.KindCommentChanged, Location: loc, OldValue: lv, NewValue: rv})
		}
	}
}

func diffDataValidations(left, right *WorksheetSignature, cs *changeset.ChangeSet, st settings.Settings) {
	if !st.CompareDataValidations {
		return
	}
	leftSet := make(map[string]bool, len(left.DataValidations))
	for _, dv := range left.DataValidations {
		leftSet[dvKey(dv)] = true
	}
	rightSet := make(map[string]bool, len(right.DataValidations))
	for _, dv := range right.DataValidations {
		rightSet[dvKey(dv)] = true
	}
	for _, dv := range right.DataValidations {
		if !leftSet[dvKey(dv)] {
			cs.Add(changeset.Change{Kind: changeset.KindNamedRangeAdded, Location: changeset.Location{SheetName: right.Name, CellAddress: dv.Range}, Name: "dataValidation"})
		}
	}
	for _, dv := range left.DataValidations {
		if !rightSet[dvKey(dv)] {
			cs.Add(changeset.Change{Kind: changeset.KindNamedRangeDeleted, Location: changeset.Location{SheetName: right.Name, CellAddress: dv.Range}, Name: "dataValidation"})
		}
	}
}

func dvKey(dv DataValidation) string {
	return dv.Range + "|" + dv.Type + "|" + dv.Operator + "|" + dv.Formula1 + "|" + dv.Formula2
}

func diffMergedRanges(left, right *WorksheetSignature, cs *changeset.ChangeSet, st settings.Settings) {
	if !st.CompareMergedCells {
		return
	}
	leftSet := toSet(left.MergedRanges)
	rightSet := toSet(right.MergedRanges)
	for _, r := range right.MergedRanges {
		if !leftSet[r] {
			cs.Add(changeset.Change{Kind: changeset.KindMergedRangeAdded, Location: changeset.Location{SheetName: right.Name, CellAddress: r}})
		}
	}
	for _, r := range left.MergedRanges {
		if !rightSet[r] {
			cs.Add(changeset.Change{Kind: changeset.KindMergedRangeDeleted, Location: changeset.Location{SheetName: right.Name, CellAddress: r}})
		}
	}
}

func diffHyperlinks(left, right *WorksheetSignature, cs *changeset.ChangeSet, st settings.Settings) {
	if !st.CompareHyperlinks {
		return
	}
	addrs := unionKeys(left.Hyperlinks, right.Hyperlinks)
	for _, addr := range addrs {
		lv, lok := left.Hyperlinks[addr]
		rv, rok := right.Hyperlinks[addr]
		loc := changeset.Location{SheetName: right.Name, CellAddress: addr}
		switch {
		case !lok && rok:
			cs.Add(changeset.Change{Kind: changeset.KindHyperlinkAdded, Location: loc, NewValue: rv})
		case lok && !rok:
			cs.Add(changeset.Change{Kind: changeset.KindHyperlinkDeleted, Location: loc, OldValue: lv})
		case lv != rv:
			cs.Add(changeset.Change{Kind: changeset.KindHyperlinkChanged, Location: loc, OldValue: lv, NewValue: rv})
		}
	}
}

func diffDefinedNames(left, right *WorkbookSignature, cs *changeset.ChangeSet) {
	names := unionKeys(left.DefinedNames, right.DefinedNames)
	for _, name := range names {
		lv, lok := left.DefinedNames[name]
		rv, rok := right.DefinedNames[name]
		switch {
		case !lok && rok:
			cs.Add(changeset.Change{Kind: changeset.KindNamedRangeAdded, Name: name, NewValue: rv})
		case lok && !rok:
			cs.Add(changeset.Change{Kind: changeset.KindNamedRangeDeleted, Name: name, OldValue: lv})
		case lv != rv:
			cs.Add(changeset.Change{Kind: changeset.KindNamedRangeChanged, Name: name, OldValue: lv, NewValue: rv})
		}
	}
}

func unionKeys(a, b map[string]string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for k := range a {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}

func sortedAddrKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		_, ci, _ := cellref.Parse(out[i])
		_, cj, _ := cellref.Parse(out[j])
		return ci < cj
	})
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
