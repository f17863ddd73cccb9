package sml

import (
	"sort"
	"strconv"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/cellref"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/settings"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// styleRole names one of the four highlight fills markup.go appends to
// xl/styles.xml.
type styleRole int

const (
	roleAdded styleRole = iota
	roleValueChanged
	roleFormulaChanged
	roleFormatChanged
)

// Render clones right, highlights every changed cell with one of four new
// styles, attaches an authored comment describing the change, and
// appends a synthetic _DiffSummary worksheet.
func Render(right *opc.Package, rightSig *WorkbookSignature, cellChanges []CellChange, cs *changeset.ChangeSet, st settings.Settings) ([]byte, error) {
	out := right.Clone()

	styleIDs, err := appendHighlightStyles(out, st)
	if err != nil {
		return nil, err
	}

	byTarget := make(map[string][]CellChange)
	targetFor := make(map[string]string, len(rightSig.Sheets))
	for _, entry := range rightSig.Sheets {
		targetFor[entry.Name] = entry.Target
	}
	for _, c := range cellChanges {
		target := targetFor[c.Sheet]
		if target == "" {
			continue
		}
		byTarget[target] = append(byTarget[target], c)
	}

	for target, changes := range byTarget {
		if err := applyHighlights(out, target, changes, styleIDs); err != nil {
			return nil, err
		}
	}

	// AddSummarySlide names the PML settings field; SML reuses the same
	// "add a decorative summary artifact" toggle for its own
	// _DiffSummary worksheet rather than introducing an SML-only one.
	if st.AddSummarySlide {
		if err := appendDiffSummary(out, cs, cellChanges); err != nil {
			return nil, err
		}
	}

	return out.Save()
}

func appendHighlightStyles(pkg *opc.Package, st settings.Settings) (map[styleRole]string, error) {
	root, ok, err := pkg.GetPartAsXML(stylesPartURI)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rlerrors.New(rlerrors.MalformedPackage, "sml.Render", "missing %s", stylesPartURI)
	}

	fills := root.FirstChildByLocal("fills")
	if fills == nil {
		fills = xmlnode.NewElement(mainNS, "fills")
		root.InsertChild(0, fills)
	}
	baseFillCount := len(fills.ChildrenByLocal("fill"))

	colors := map[styleRole]string{
		roleAdded:          st.InsertedColor,
		roleValueChanged:   st.ModifiedColor,
		roleFormulaChanged: st.ModifiedColor,
		roleFormatChanged:  st.FormattingColor,
	}
	order := []styleRole{roleAdded, roleValueChanged, roleFormulaChanged, roleFormatChanged}
	fillIDs := make(map[styleRole]int, 4)
	for i, role := range order {
		fill := xmlnode.NewElement(mainNS, "fill")
		pattern := xmlnode.NewElement(mainNS, "patternFill")
		pattern.Set("", "patternType", "solid")
		fg := xmlnode.NewElement(mainNS, "fgColor")
		fg.Set("", "rgb", hexColorToARGB(colors[role]))
		pattern.AppendChild(fg)
		fill.AppendChild(pattern)
		fills.AppendChild(fill)
		fillIDs[role] = baseFillCount + i
	}
	fills.Set("", "count", strconv.Itoa(baseFillCount+len(order)))

	cellXfs := root.FirstChildByLocal("cellXfs")
	if cellXfs == nil {
		cellXfs = xmlnode.NewElement(mainNS, "cellXfs")
		root.AppendChild(cellXfs)
	}
	baseXfCount := len(cellXfs.ChildrenByLocal("xf"))
	styleIDs := make(map[styleRole]string, 4)
	for i, role := range order {
		xf := xmlnode.NewElement(mainNS, "xf")
		xf.Set("", "numFmtId", "0")
		xf.Set("", "fontId", "0")
		xf.Set("", "fillId", strconv.Itoa(fillIDs[role]))
		xf.Set("", "borderId", "0")
		xf.Set("", "applyFill", "1")
		cellXfs.AppendChild(xf)
		styleIDs[role] = strconv.Itoa(baseXfCount + i)
	}
	cellXfs.Set("", "count", strconv.Itoa(baseXfCount+len(order)))

	return styleIDs, pkg.SetPartXML(stylesPartURI, root, "")
}

func roleFor(kind changeset.Kind) styleRole {
	switch kind {
	case changeset.KindCellAdded:
		return roleAdded
	case changeset.KindFormulaChanged:
		return roleFormulaChanged
	case changeset.KindFormatChanged:
		return roleFormatChanged
	default:
		return roleValueChanged
	}
}

func applyHighlights(pkg *opc.Package, target string, changes []CellChange, styleIDs map[styleRole]string) error {
	root, ok, err := pkg.GetPartAsXML(target)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	sheetData := root.FirstChildByLocal("sheetData")
	if sheetData == nil {
		sheetData = xmlnode.NewElement(mainNS, "sheetData")
		root.InsertChild(0, sheetData)
	}

	commentEntries := make([]commentEntry, 0, len(changes))
	for _, c := range changes {
		row := findOrCreateRow(sheetData, c.Row)
		cell := findOrCreateCell(row, c.Address, c.Col)
		cell.Set("", "s", styleIDs[roleFor(c.Kind)])
		commentEntries = append(commentEntries, commentEntry{
			Address: c.Address,
			Text:    describeCellChange(c),
		})
	}

	if err := pkg.SetPartXML(target, root, ""); err != nil {
		return err
	}
	return writeComments(pkg, target, commentEntries)
}

func describeCellChange(c CellChange) string {
	switch c.Kind {
	case changeset.KindCellAdded:
		return "Added: " + c.NewValue
	case changeset.KindCellDeleted:
		return "Deleted: " + c.OldValue
	case changeset.KindFormulaChanged:
		return "Formula changed from " + c.OldValue + " to " + c.NewValue
	case changeset.KindFormatChanged:
		return "Formatting changed"
	case changeset.KindImageReplaced:
		return "Picture changed"
	default:
		return "Changed from " + c.OldValue + " to " + c.NewValue
	}
}

func findOrCreateRow(sheetData *xmlnode.Node, rowNum int) *xmlnode.Node {
	for _, row := range sheetData.ChildrenByLocal("row") {
		if r, _ := row.Get("r"); r == strconv.Itoa(rowNum) {
			return row
		}
	}
	row := xmlnode.NewElement(mainNS, "row")
	row.Set("", "r", strconv.Itoa(rowNum))
	insertSorted(sheetData, row, rowNum, func(n *xmlnode.Node) int {
		v, _ := n.Get("r")
		i, _ := strconv.Atoi(v)
		return i
	})
	return row
}

func findOrCreateCell(row *xmlnode.Node, addr string, col int) *xmlnode.Node {
	for _, c := range row.ChildrenByLocal("c") {
		if r, _ := c.Get("r"); r == addr {
			return c
		}
	}
	cell := xmlnode.NewElement(mainNS, "c")
	cell.Set("", "r", addr)
	insertSorted(row, cell, col, func(n *xmlnode.Node) int {
		_, c, _ := cellref.Parse(firstAttr(n, "r"))
		return c
	})
	return cell
}

func firstAttr(n *xmlnode.Node, local string) string {
	v, _ := n.Get(local)
	return v
}

// insertSorted inserts child into parent's children, keeping them ordered
// by key(child) ascending.
func insertSorted(parent *xmlnode.Node, child *xmlnode.Node, key int, keyOf func(*xmlnode.Node) int) {
	idx := len(parent.Children)
	for i, c := range parent.Children {
		if c.Kind != xmlnode.Element {
			continue
		}
		if keyOf(c) > key {
			idx = i
			break
		}
	}
	parent.InsertChild(idx, child)
}

type commentEntry struct {
	Address string
	Text    string
}

func writeComments(pkg *opc.Package, worksheetURI string, entries []commentEntry) error {
	if len(entries) == 0 {
		return nil
	}
	commentsURI := commentsURIFor(worksheetURI)

	root := xmlnode.NewElement(mainNS, "comments")
	authors := xmlnode.NewElement(mainNS, "authors")
	author := xmlnode.NewElement(mainNS, "author")
	author.AppendChild(xmlnode.NewText("redline"))
	authors.AppendChild(author)
	root.AppendChild(authors)

	list := xmlnode.NewElement(mainNS, "commentList")
	for _, e := range entries {
		comment := xmlnode.NewElement(mainNS, "comment")
		comment.Set("", "ref", e.Address)
		comment.Set("", "authorId", "0")
		text := xmlnode.NewElement(mainNS, "text")
		r := xmlnode.NewElement(mainNS, "r")
		t := xmlnode.NewElement(mainNS, "t")
		t.AppendChild(xmlnode.NewText(e.Text))
		r.AppendChild(t)
		text.AppendChild(r)
		comment.AppendChild(text)
		list.AppendChild(comment)
	}
	root.AppendChild(list)

	const commentsContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.comments+xml"
	if err := pkg.SetPartXML(commentsURI, root, commentsContentType); err != nil {
		return err
	}

	existing := false
	for _, r := range pkg.GetRelationships(worksheetURI) {
		if r.Type == commentsRelType {
			existing = true
		}
	}
	if !existing {
		pkg.AddRelationship(worksheetURI, commentsRelType, commentsURI, false)
	}
	return nil
}

func commentsURIFor(worksheetURI string) string {
	// "/xl/worksheets/sheet1.xml" -> "/xl/comments1.xml", mirroring the
	// sibling-numbering convention Excel itself uses for comment parts.
	n := 1
	end := len(worksheetURI)
	if end >= 4 && worksheetURI[end-4:] == ".xml" {
		end -= 4
	}
	for i := end - 1; i >= 0; i-- {
		if worksheetURI[i] >= '0' && worksheetURI[i] <= '9' {
			continue
		}
		numStr := worksheetURI[i+1 : end]
		if v, err := strconv.Atoi(numStr); err == nil {
			n = v
		}
		break
	}
	return "/xl/comments" + strconv.Itoa(n) + ".xml"
}

func hexColorToARGB(hex string) string {
	if len(hex) == 7 && hex[0] == '#' {
		return "FF" + hex[1:]
	}
	return "FF000000"
}

func appendDiffSummary(pkg *opc.Package, cs *changeset.ChangeSet, cellChanges []CellChange) error {
	wbRoot, ok, err := pkg.GetPartAsXML(workbookPartURI)
	if err != nil {
		return err
	}
	if !ok {
		return rlerrors.New(rlerrors.MalformedPackage, "sml.appendDiffSummary", "missing %s", workbookPartURI)
	}

	const summaryURI = "/xl/worksheets/_diffsummary.xml"
	sheetEl := buildSummarySheet(cs, cellChanges)
	if err := pkg.SetPartXML(summaryURI, sheetEl, worksheetContentType); err != nil {
		return err
	}

	rid := pkg.AddRelationship(workbookPartURI, worksheetRelType, summaryURI, false)

	sheetsEl := xmlnode.Find(wbRoot, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "sheets"
	})
	if sheetsEl == nil {
		sheetsEl = xmlnode.NewElement(mainNS, "sheets")
		wbRoot.AppendChild(sheetsEl)
	}
	maxSheetID := 0
	for _, sh := range sheetsEl.ChildrenByLocal("sheet") {
		if idS, ok := sh.Get("sheetId"); ok {
			if v, err := strconv.Atoi(idS); err == nil && v > maxSheetID {
				maxSheetID = v
			}
		}
	}
	newSheet := xmlnode.NewElement(mainNS, "sheet")
	newSheet.Set("", "name", "_DiffSummary")
	newSheet.Set("", "sheetId", strconv.Itoa(maxSheetID+1))
	newSheet.Set("http://schemas.openxmlformats.org/officeDocument/2006/relationships", "id", rid)
	sheetsEl.AppendChild(newSheet)

	return pkg.SetPartXML(workbookPartURI, wbRoot, "")
}

func buildSummarySheet(cs *changeset.ChangeSet, cellChanges []CellChange) *xmlnode.Node {
	root := xmlnode.NewElement(mainNS, "worksheet")
	sheetData := xmlnode.NewElement(mainNS, "sheetData")
	root.AppendChild(sheetData)

	rowNum := 1
	sheetData.AppendChild(summaryRow(rowNum, "Kind", "Sheet", "Cell", "Old Value", "New Value"))
	rowNum++

	counts := cs.CountByKind()
	var kinds []string
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		sheetData.AppendChild(summaryRow(rowNum, k, strconv.Itoa(counts[changeset.Kind(k)]), "", "", ""))
		rowNum++
	}
	rowNum++

	grouped := GroupChanges(cellChanges)
	for _, g := range grouped {
		sheetData.AppendChild(summaryRow(rowNum, string(g.Kind), g.Sheet, g.CellRange, g.OldValue, g.NewValue))
		rowNum++
	}

	return root
}

func summaryRow(rowNum int, values ...string) *xmlnode.Node {
	row := xmlnode.NewElement(mainNS, "row")
	row.Set("", "r", strconv.Itoa(rowNum))
	for i, v := range values {
		cell := xmlnode.NewElement(mainNS, "c")
		cell.Set("", "r", cellref.Address(rowNum, i+1))
		cell.Set("", "t", "inlineStr")
		is := xmlnode.NewElement(mainNS, "is")
		t := xmlnode.NewElement(mainNS, "t")
		t.AppendChild(xmlnode.NewText(v))
		is.AppendChild(t)
		cell.AppendChild(is)
		row.AppendChild(cell)
	}
	return row
}
