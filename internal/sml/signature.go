package sml

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

	"github.com/oxmlredline/compare/pkg/cellref"
	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// SheetEntry is one row of workbook.xml's sheet list: display name plus
// the relationship id that resolves to the worksheet part.
type SheetEntry struct {
	Name   string
	RID    string
	Target string
}

// WorkbookSignature is the canonical projection of one .xlsx package: the
// ordered sheet list, the resolved worksheet signatures keyed by name,
// and the workbook's defined names.
type WorkbookSignature struct {
	Sheets       []SheetEntry
	Worksheets   map[string]*WorksheetSignature
	DefinedNames map[string]string
}

// DataValidation mirrors one <dataValidation> entry; equality is by
// (Range, Type, Operator, Formula1, Formula2).
type DataValidation struct {
	Range     string
	Type      string
	Operator  string
	Formula1  string
	Formula2  string
}

// WorksheetSignature is one sheet's canonical content: cells keyed by A1
// address, per-row/per-column content hashes for row/column alignment,
// comments, data validations, merged ranges and hyperlinks.
type WorksheetSignature struct {
	Name  string
	Cells map[string]*CellSignature

	Rows    []int // populated row numbers, ascending
	Columns []int // populated column numbers, ascending

	RowHash map[int]hashutil.Digest
	ColHash map[int]hashutil.Digest

	Comments        map[string]string // address -> comment text
	DataValidations []DataValidation
	MergedRanges    []string // sorted "TopLeft:BottomRight" refs
	Hyperlinks      map[string]string // address -> target

	// RowHeights/ColumnWidths back the CompareRowColumnSizing facet;
	// empty unless the source row/col element carried an explicit size.
	RowHeights   map[int]float64
	ColumnWidths map[int]float64
}

// CellFormatSignature is a cell's fully resolved format, every style
// index expanded to its effective value.
type CellFormatSignature struct {
	NumberFormat string
	Bold         bool
	Italic       bool
	Underline    bool
	FontName     string
	FontSize     float64
	FontColor    string
	FillColor    string
	Border       string // combined "L:<style>|R:<style>|T:<style>|B:<style>"
	HAlign       string
	VAlign       string
}

// CellType extends ECMA-376's cell-type vocabulary with CellTypePicture
// (grounded on adnsv-go-xl/xl/cell.go's CellType enumeration): a cell
// that carries an embedded image diffs by image hash like a PML picture
// shape.
type CellType int

const (
	CellTypeNormal CellType = iota
	CellTypePicture
)

// CellSignature is one cell's canonical content: address, resolved value
// (shared strings already expanded), formula text, a content hash, and
// the resolved format.
type CellSignature struct {
	Address string
	Row     int
	Col     int

	Type        CellType
	Value       string
	Formula     string
	ImageHash   hashutil.Digest
	ContentHash hashutil.Digest
	Format      CellFormatSignature
}

// Canonicalize builds the WorkbookSignature for pkg: workbook.xml's sheet
// list, sharedStrings.xml expansion, styles.xml resolution, and
// per-worksheet cell/row/column/comment/validation/merge/hyperlink
// extraction.
func Canonicalize(pkg *opc.Package) (*WorkbookSignature, error) {
	wbRoot, ok, err := pkg.GetPartAsXML(workbookPartURI)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rlerrors.New(rlerrors.MalformedPackage, "sml.Canonicalize", "missing %s", workbookPartURI)
	}

	sst, err := loadSharedStrings(pkg)
	if err != nil {
		return nil, err
	}
	styles, err := loadStyles(pkg)
	if err != nil {
		return nil, err
	}

	wbRels := pkg.GetRelationships(workbookPartURI)
	relTarget := make(map[string]string, len(wbRels))
	for _, r := range wbRels {
		relTarget[r.ID] = opc.Resolve(workbookPartURI, r.Target)
	}

	sig := &WorkbookSignature{
		Worksheets:   make(map[string]*WorksheetSignature),
		DefinedNames: make(map[string]string),
	}

	sheetsEl := xmlnode.Find(wbRoot, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "sheets"
	})
	if sheetsEl != nil {
		for _, sh := range sheetsEl.ChildrenByLocal("sheet") {
			name, _ := sh.Get("name")
			rid, _ := sh.Get("id")
			entry := SheetEntry{Name: name, RID: rid, Target: relTarget[rid]}
			sig.Sheets = append(sig.Sheets, entry)
		}
	}

	if dn := xmlnode.Find(wbRoot, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "definedNames"
	}); dn != nil {
		for _, n := range dn.ChildrenByLocal("definedName") {
			name, _ := n.Get("name")
			sig.DefinedNames[name] = n.Text()
		}
	}

	for _, entry := range sig.Sheets {
		if entry.Target == "" {
			continue
		}
		wsSig, err := canonicalizeWorksheet(pkg, entry, sst, styles)
		if err != nil {
			return nil, err
		}
		sig.Worksheets[entry.Name] = wsSig
	}

	return sig, nil
}

func canonicalizeWorksheet(pkg *opc.Package, entry SheetEntry, sst []string, styles *styleTable) (*WorksheetSignature, error) {
	root, ok, err := pkg.GetPartAsXML(entry.Target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rlerrors.New(rlerrors.MalformedPackage, "sml.canonicalizeWorksheet", "missing worksheet part %s", entry.Target)
	}

	ws := &WorksheetSignature{
		Name:         entry.Name,
		Cells:        make(map[string]*CellSignature),
		RowHash:      make(map[int]hashutil.Digest),
		ColHash:      make(map[int]hashutil.Digest),
		Comments:     make(map[string]string),
		Hyperlinks:   make(map[string]string),
		RowHeights:   make(map[int]float64),
		ColumnWidths: make(map[int]float64),
	}

	if cols := root.FirstChildByLocal("cols"); cols != nil {
		for _, c := range cols.ChildrenByLocal("col") {
			minS, _ := c.Get("min")
			widthS, _ := c.Get("width")
			min, _ := strconv.Atoi(minS)
			width, _ := strconv.ParseFloat(widthS, 64)
			if min > 0 && width > 0 {
				ws.ColumnWidths[min] = width
			}
		}
	}

	if sheetData := root.FirstChildByLocal("sheetData"); sheetData != nil {
		for _, row := range sheetData.ChildrenByLocal("row") {
			rowNumS, _ := row.Get("r")
			rowNum, _ := strconv.Atoi(rowNumS)
			if heightS, ok := row.Get("ht"); ok {
				if h, err := strconv.ParseFloat(heightS, 64); err == nil {
					ws.RowHeights[rowNum] = h
				}
			}
			for _, c := range row.ChildrenByLocal("c") {
				cell, err := canonicalizeCell(c, rowNum, sst, styles)
				if err != nil {
					return nil, err
				}
				if cell == nil {
					continue
				}
				ws.Cells[cell.Address] = cell
			}
		}
	}

	if err := loadDrawingPictures(pkg, entry.Target, root, ws); err != nil {
		return nil, err
	}

	addrsByPosition := make([]string, 0, len(ws.Cells))
	for addr := range ws.Cells {
		addrsByPosition = append(addrsByPosition, addr)
	}
	sort.Slice(addrsByPosition, func(i, j int) bool {
		ci, cj := ws.Cells[addrsByPosition[i]], ws.Cells[addrsByPosition[j]]
		if ci.Row != cj.Row {
			return ci.Row < cj.Row
		}
		return ci.Col < cj.Col
	})

	rowsByIdx := make(map[int][]hashutil.Digest)
	colsByIdx := make(map[int][]hashutil.Digest)
	for _, addr := range addrsByPosition {
		cell := ws.Cells[addr]
		rowsByIdx[cell.Row] = append(rowsByIdx[cell.Row], cell.ContentHash)
		colsByIdx[cell.Col] = append(colsByIdx[cell.Col], cell.ContentHash)
	}

	for r, digs := range rowsByIdx {
		ws.Rows = append(ws.Rows, r)
		ws.RowHash[r] = hashutil.Combine(digs...)
	}
	for c, digs := range colsByIdx {
		ws.Columns = append(ws.Columns, c)
		ws.ColHash[c] = hashutil.Combine(digs...)
	}
	sort.Ints(ws.Rows)
	sort.Ints(ws.Columns)

	if mc := root.FirstChildByLocal("mergeCells"); mc != nil {
		for _, m := range mc.ChildrenByLocal("mergeCell") {
			if ref, ok := m.Get("ref"); ok {
				ws.MergedRanges = append(ws.MergedRanges, ref)
			}
		}
		sort.Strings(ws.MergedRanges)
	}

	if dvs := root.FirstChildByLocal("dataValidations"); dvs != nil {
		for _, dv := range dvs.ChildrenByLocal("dataValidation") {
			typ, _ := dv.Get("type")
			op, _ := dv.Get("operator")
			sqref, _ := dv.Get("sqref")
			var f1, f2 string
			if f := dv.FirstChildByLocal("formula1"); f != nil {
				f1 = f.Text()
			}
			if f := dv.FirstChildByLocal("formula2"); f != nil {
				f2 = f.Text()
			}
			ws.DataValidations = append(ws.DataValidations, DataValidation{
				Range: sqref, Type: typ, Operator: op, Formula1: f1, Formula2: f2,
			})
		}
	}

	if hls := root.FirstChildByLocal("hyperlinks"); hls != nil {
		rels := pkg.GetRelationships(entry.Target)
		relByID := make(map[string]string, len(rels))
		for _, r := range rels {
			relByID[r.ID] = r.Target
		}
		for _, hl := range hls.ChildrenByLocal("hyperlink") {
			ref, _ := hl.Get("ref")
			rid, hasRID := hl.GetNS("http://schemas.openxmlformats.org/officeDocument/2006/relationships", "id")
			target := relByID[rid]
			if !hasRID {
				target, _ = hl.Get("location")
			}
			ws.Hyperlinks[ref] = target
		}
	}

	if err := loadComments(pkg, entry.Target, ws); err != nil {
		return nil, err
	}

	return ws, nil
}

func canonicalizeCell(c *xmlnode.Node, rowNum int, sst []string, styles *styleTable) (*CellSignature, error) {
	addr, _ := c.Get("r")
	if addr == "" {
		return nil, nil
	}
	_, col, ok := cellref.Parse(addr)
	if !ok {
		return nil, nil
	}

	typ, _ := c.Get("t")
	styleIdxS, _ := c.Get("s")
	styleIdx, _ := strconv.Atoi(styleIdxS)

	cell := &CellSignature{
		Address: addr,
		Row:     rowNum,
		Col:     col,
		Format:  styles.resolve(styleIdx),
	}

	if f := c.FirstChildByLocal("f"); f != nil {
		cell.Formula = f.Text()
	}
	v := c.FirstChildByLocal("v")
	var rawValue string
	if v != nil {
		rawValue = v.Text()
	}

	switch typ {
	case "s":
		idx, _ := strconv.Atoi(rawValue)
		if idx >= 0 && idx < len(sst) {
			cell.Value = sst[idx]
		}
	case "str", "e", "b":
		cell.Value = rawValue
	case "inlineStr":
		if is := c.FirstChildByLocal("is"); is != nil {
			cell.Value = is.Text()
		}
	default:
		cell.Value = rawValue
	}

	payload := cell.Formula
	if payload == "" {
		payload = cell.Value
	}
	cell.ContentHash = hashutil.SumString(payload)
	return cell, nil
}

// loadDrawingPictures resolves a worksheet's <drawing r:id="..."> part and
// maps each anchored picture back to the cell its xdr:from anchor names
// (grounded on internal/pml's picture-anchor handling and adnsv-go-xl's
// CellTypePicture). A cell that already holds a value keeps it but gains
// CellTypePicture and an ImageHash folded into its ContentHash; a cell
// with no other content is created outright, since an anchored picture
// with an otherwise empty backing cell is common.
func loadDrawingPictures(pkg *opc.Package, worksheetURI string, root *xmlnode.Node, ws *WorksheetSignature) error {
	drawingEl := root.FirstChildByLocal("drawing")
	if drawingEl == nil {
		return nil
	}
	ridDrawing, ok := drawingEl.GetNS(relNS, "id")
	if !ok {
		return nil
	}

	var drawingTarget string
	for _, r := range pkg.GetRelationships(worksheetURI) {
		if r.ID == ridDrawing && !r.External {
			drawingTarget = opc.Resolve(worksheetURI, r.Target)
			break
		}
	}
	if drawingTarget == "" {
		return nil
	}

	drawingRoot, ok, err := pkg.GetPartAsXML(drawingTarget)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	embedTarget := make(map[string]string)
	for _, r := range pkg.GetRelationships(drawingTarget) {
		if !r.External {
			embedTarget[r.ID] = r.Target
		}
	}

	var anchors []*xmlnode.Node
	anchors = append(anchors, drawingRoot.ChildrenByLocal("twoCellAnchor")...)
	anchors = append(anchors, drawingRoot.ChildrenByLocal("oneCellAnchor")...)

	for _, anchor := range anchors {
		from := anchor.FirstChildByLocal("from")
		if from == nil {
			continue
		}
		colEl, rowEl := from.FirstChildByLocal("col"), from.FirstChildByLocal("row")
		if colEl == nil || rowEl == nil {
			continue
		}
		col0, _ := strconv.Atoi(colEl.Text())
		row0, _ := strconv.Atoi(rowEl.Text())

		blip := xmlnode.Find(anchor, func(n *xmlnode.Node) bool {
			return n.Kind == xmlnode.Element && n.Local() == "blip"
		})
		if blip == nil {
			continue
		}
		embedID, ok := blip.GetNS(relNS, "embed")
		if !ok {
			continue
		}
		target, ok := embedTarget[embedID]
		if !ok {
			continue
		}
		data, ok := pkg.GetPart(opc.Resolve(drawingTarget, target))
		if !ok {
			continue
		}

		imgHash := imageContentHash(data)
		addr := cellref.Address(row0+1, col0+1)
		if cell, ok := ws.Cells[addr]; ok {
			cell.Type = CellTypePicture
			cell.ImageHash = imgHash
			cell.ContentHash = hashutil.Combine(cell.ContentHash, imgHash)
			continue
		}
		ws.Cells[addr] = &CellSignature{
			Address:     addr,
			Row:         row0 + 1,
			Col:         col0 + 1,
			Type:        CellTypePicture,
			ImageHash:   imgHash,
			ContentHash: imgHash,
		}
	}
	return nil
}

// imageContentHash hashes an embedded image's bytes plus its decoded pixel
// dimensions, the same way internal/wml and internal/pml key drawing/
// picture equality off the binary rather than its container XML.
func imageContentHash(data []byte) hashutil.Digest {
	h := hashutil.SumLarge(data)
	dims := ""
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		dims = fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
	}
	return hashutil.Combine(h, hashutil.SumString(dims))
}

func loadComments(pkg *opc.Package, worksheetURI string, ws *WorksheetSignature) error {
	rels := pkg.GetRelationships(worksheetURI)
	for _, r := range rels {
		if r.Type != commentsRelType {
			continue
		}
		target := opc.Resolve(worksheetURI, r.Target)
		root, ok, err := pkg.GetPartAsXML(target)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		list := xmlnode.Find(root, func(n *xmlnode.Node) bool {
			return n.Kind == xmlnode.Element && n.Local() == "commentList"
		})
		if list == nil {
			continue
		}
		for _, cm := range list.ChildrenByLocal("comment") {
			ref, _ := cm.Get("ref")
			if text := cm.FirstChildByLocal("text"); text != nil {
				ws.Comments[ref] = text.Text()
			}
		}
	}
	return nil
}

// shared strings

func loadSharedStrings(pkg *opc.Package) ([]string, error) {
	root, ok, err := pkg.GetPartAsXML(sharedStringsPartURI)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var out []string
	for _, si := range root.ChildrenByLocal("si") {
		out = append(out, expandSI(si))
	}
	return out, nil
}

// expandSI concatenates an <si>'s rich-text <r> runs, or its single <t>.
func expandSI(si *xmlnode.Node) string {
	if runs := si.ChildrenByLocal("r"); len(runs) > 0 {
		var sb strings.Builder
		for _, r := range runs {
			if t := r.FirstChildByLocal("t"); t != nil {
				sb.WriteString(t.Text())
			}
		}
		return sb.String()
	}
	if t := si.FirstChildByLocal("t"); t != nil {
		return t.Text()
	}
	return ""
}
