package sml

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/pkg/opc"
)

const sheetContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="xml" ContentType="application/xml"/>
  <Default Extension="png" ContentType="image/png"/>
</Types>`

const workbookXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
          xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets>
    <sheet name="Sheet1" r:id="rId1"/>
  </sheets>
</workbook>`

// buildWorksheetFixture builds a minimal .xlsx package with a single
// worksheet, wiring the workbook -> worksheet relationship up front via
// AddRelationship so the returned rId can be baked into workbookXML
// before the package is ever opened.
func buildWorksheetFixture(t *testing.T, worksheetXML string) *opc.Package {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	ct, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(sheetContentTypes))
	require.NoError(t, err)

	wb, err := zw.Create("xl/workbook.xml")
	require.NoError(t, err)
	_, err = wb.Write([]byte(workbookXML))
	require.NoError(t, err)

	ws, err := zw.Create("xl/worksheets/sheet1.xml")
	require.NoError(t, err)
	_, err = ws.Write([]byte(worksheetXML))
	require.NoError(t, err)

	require.NoError(t, zw.Close())

	pkg, err := opc.Open(buf.Bytes())
	require.NoError(t, err)

	rid := pkg.AddRelationship(workbookPartURI, worksheetRelType, "worksheets/sheet1.xml", false)
	require.Equal(t, "rId1", rid, "workbookXML hardcodes r:id=\"rId1\" for the sheet entry")
	return pkg
}

// wireDrawing adds the worksheet -> drawing -> image relationship chain a
// real .xlsx anchors a picture through, and writes the drawing part and
// image bytes into pkg. It returns the drawing XML's own relationship id
// for the embedded image, for embedding into the caller's drawing body.
func wireDrawing(t *testing.T, pkg *opc.Package, imageBytes []byte) (drawingRID, embedRID string) {
	t.Helper()
	drawingRID = pkg.AddRelationship("/xl/worksheets/sheet1.xml", drawingRelType, "../drawings/drawing1.xml", false)
	require.Equal(t, "rId1", drawingRID)
	embedRID = pkg.AddRelationship("/xl/drawings/drawing1.xml", imageRelType, "../media/image1.png", false)
	require.Equal(t, "rId1", embedRID)
	pkg.SetPart("/xl/media/image1.png", imageBytes, "image/png")
	return drawingRID, embedRID
}

func drawingXML(embedRID string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<xdr:wsDr xmlns:xdr="http://schemas.openxmlformats.org/drawingml/2006/spreadsheetDrawing"
          xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
          xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <xdr:twoCellAnchor>
    <xdr:from><xdr:col>2</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>1</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:from>
    <xdr:to><xdr:col>3</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>2</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:to>
    <xdr:pic>
      <xdr:nvPicPr>
        <xdr:cNvPr id="2" name="Picture 1"/>
        <xdr:cNvPicPr/>
      </xdr:nvPicPr>
      <xdr:blipFill>
        <a:blip r:embed="` + embedRID + `"/>
      </xdr:blipFill>
      <xdr:spPr/>
    </xdr:pic>
    <xdr:clientData/>
  </xdr:twoCellAnchor>
</xdr:wsDr>`
}

func TestCanonicalizeWorksheet_AnchoredPictureOnEmptyCell(t *testing.T) {
	worksheetXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
           xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheetData/>
  <drawing r:id="rId1"/>
</worksheet>`

	pkg := buildWorksheetFixture(t, worksheetXML)
	_, embedRID := wireDrawing(t, pkg, []byte("image-bytes"))
	pkg.SetPart("/xl/drawings/drawing1.xml", []byte(drawingXML(embedRID)), "application/xml")

	sig, err := Canonicalize(pkg)
	require.NoError(t, err)

	ws := sig.Worksheets["Sheet1"]
	require.NotNil(t, ws)

	cell, ok := ws.Cells["C2"]
	require.True(t, ok, "the anchor's xdr:from col=2,row=1 (0-based) names cell C2")
	assert.Equal(t, CellTypePicture, cell.Type)
	assert.NotZero(t, cell.ImageHash)
	assert.Equal(t, cell.ImageHash, cell.ContentHash, "an otherwise-empty cell's ContentHash is exactly its image hash")
}

func TestCanonicalizeWorksheet_AnchoredPictureOnPopulatedCell(t *testing.T) {
	worksheetXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
           xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheetData>
    <row r="2"><c r="C2" t="str"><v>caption</v></c></row>
  </sheetData>
  <drawing r:id="rId1"/>
</worksheet>`

	pkg := buildWorksheetFixture(t, worksheetXML)
	_, embedRID := wireDrawing(t, pkg, []byte("image-bytes"))
	pkg.SetPart("/xl/drawings/drawing1.xml", []byte(drawingXML(embedRID)), "application/xml")

	sig, err := Canonicalize(pkg)
	require.NoError(t, err)

	cell := sig.Worksheets["Sheet1"].Cells["C2"]
	require.NotNil(t, cell)
	assert.Equal(t, "caption", cell.Value, "the cell's own value survives alongside the anchored picture")
	assert.Equal(t, CellTypePicture, cell.Type)
	assert.NotZero(t, cell.ImageHash)
	assert.NotEqual(t, cell.ImageHash, cell.ContentHash, "ContentHash folds the cell value hash together with the image hash")
}

func TestCanonicalizeWorksheet_RowHashIsDeterministicAcrossRuns(t *testing.T) {
	worksheetXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1">
      <c r="A1" t="str"><v>a</v></c>
      <c r="B1" t="str"><v>b</v></c>
      <c r="C1" t="str"><v>c</v></c>
      <c r="D1" t="str"><v>d</v></c>
    </row>
  </sheetData>
</worksheet>`

	var hashes []string
	for i := 0; i < 8; i++ {
		pkg := buildWorksheetFixture(t, worksheetXML)
		sig, err := Canonicalize(pkg)
		require.NoError(t, err)
		hashes = append(hashes, sig.Worksheets["Sheet1"].RowHash[1].String())
	}
	for i := 1; i < len(hashes); i++ {
		assert.Equal(t, hashes[0], hashes[i], "RowHash must not depend on Go map iteration order over cells")
	}
}

func TestCanonicalizeWorksheet_NoDrawingElementIsNoop(t *testing.T) {
	worksheetXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1" t="str"><v>plain</v></c></row>
  </sheetData>
</worksheet>`

	pkg := buildWorksheetFixture(t, worksheetXML)

	sig, err := Canonicalize(pkg)
	require.NoError(t, err)

	cell := sig.Worksheets["Sheet1"].Cells["A1"]
	require.NotNil(t, cell)
	assert.Equal(t, CellTypeNormal, cell.Type)
	assert.Zero(t, cell.ImageHash)
}
