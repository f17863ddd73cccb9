package wml

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/settings"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

const minimalContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

func buildDocxFixture(t *testing.T, documentXML string) *opc.Package {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	ct, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(minimalContentTypes))
	require.NoError(t, err)

	doc, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = doc.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, zw.Close())

	pkg, err := opc.Open(buf.Bytes())
	require.NoError(t, err)
	return pkg
}

func wrapDocument(bodyInner string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>` + bodyInner + `</w:body>
</w:document>`
}

// buildDocxFixtureWithFootnotes adds a word/footnotes.xml part alongside
// word/document.xml, with no word/_rels/footnotes.xml.rels part at all —
// so any r:id/r:embed reference inside footnotesXML is orphaned by
// construction, for exercising the per-part relationship-pruning pass.
func buildDocxFixtureWithFootnotes(t *testing.T, documentXML, footnotesXML string) *opc.Package {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	ct, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(minimalContentTypes))
	require.NoError(t, err)

	doc, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = doc.Write([]byte(documentXML))
	require.NoError(t, err)

	fn, err := zw.Create("word/footnotes.xml")
	require.NoError(t, err)
	_, err = fn.Write([]byte(footnotesXML))
	require.NoError(t, err)

	require.NoError(t, zw.Close())

	pkg, err := opc.Open(buf.Bytes())
	require.NoError(t, err)
	return pkg
}

const footnotesNSHeader = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

// TestCompare_SingleWordEdit is spec.md §8 end-to-end scenario 1.
func TestCompare_SingleWordEdit(t *testing.T) {
	left := buildDocxFixture(t, wrapDocument(`<w:p><w:r><w:t>The quick brown fox</w:t></w:r></w:p>`))
	right := buildDocxFixture(t, wrapDocument(`<w:p><w:r><w:t>The slow brown fox</w:t></w:r></w:p>`))

	data, cs, err := Compare(context.Background(), left, right, settings.Defaults())
	require.NoError(t, err)
	require.NotNil(t, data)

	require.Len(t, cs.Changes, 2)
	var oldVals, newVals []string
	for _, c := range cs.Changes {
		assert.Equal(t, changeset.KindTextChanged, c.Kind)
		if c.OldValue != "" {
			oldVals = append(oldVals, c.OldValue)
		}
		if c.NewValue != "" {
			newVals = append(newVals, c.NewValue)
		}
	}
	assert.Contains(t, oldVals, "quick")
	assert.Contains(t, newVals, "slow")

	out, err := opc.Open(data)
	require.NoError(t, err)
	outDoc, ok, err := out.GetPartAsXML(documentPartURI)
	require.NoError(t, err)
	require.True(t, ok)

	var ids []string
	xmlnode.Walk(outDoc, func(n *xmlnode.Node) bool {
		if n.Kind == xmlnode.Element && (n.Local() == "ins" || n.Local() == "del") {
			id, _ := n.Get("id")
			ids = append(ids, id)
		}
		return true
	})
	assert.ElementsMatch(t, []string{"1", "2"}, ids)
}

// TestCompare_TableRowDeleted is spec.md §8 end-to-end scenario 2.
func TestCompare_TableRowDeleted(t *testing.T) {
	row := func(text string) string {
		return `<w:tr><w:tc><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:tc></w:tr>`
	}
	table := func(rows ...string) string {
		out := `<w:tbl>`
		for _, r := range rows {
			out += r
		}
		return out + `</w:tbl>`
	}

	left := buildDocxFixture(t, wrapDocument(table(row("Row One"), row("Row Two"), row("Row Three"))))
	right := buildDocxFixture(t, wrapDocument(table(row("Row One"), row("Row Three"))))

	_, cs, err := Compare(context.Background(), left, right, settings.Defaults())
	require.NoError(t, err)

	require.Len(t, cs.Changes, 1)
	assert.Equal(t, "Row Two", cs.Changes[0].OldValue)
}

// TestCompare_TableRowModified_PreservesOtherCells guards the table-row
// modification path this review introduced: a matched (not purely
// deleted/inserted) row must still carry every cell through to the
// output, not just the cell whose text changed.
func TestCompare_TableRowModified_PreservesOtherCells(t *testing.T) {
	row := func(c1, c2 string) string {
		return `<w:tr>` +
			`<w:tc><w:p><w:r><w:t>` + c1 + `</w:t></w:r></w:p></w:tc>` +
			`<w:tc><w:p><w:r><w:t>` + c2 + `</w:t></w:r></w:p></w:tc>` +
			`</w:tr>`
	}
	table := func(rows ...string) string {
		out := `<w:tbl>`
		for _, r := range rows {
			out += r
		}
		return out + `</w:tbl>`
	}

	// Row 1 is unchanged so the table-alignment LCS treats row 2 (hash
	// differs because of the second row acting as an anchor) as the
	// modified window; row 2's first cell changes, second cell does not.
	left := buildDocxFixture(t, wrapDocument(table(row("Anchor", "Anchor"), row("Old Name", "Keep Me"))))
	right := buildDocxFixture(t, wrapDocument(table(row("Anchor", "Anchor"), row("New Name", "Keep Me"))))

	data, cs, err := Compare(context.Background(), left, right, settings.Defaults())
	require.NoError(t, err)

	out, err := opc.Open(data)
	require.NoError(t, err)
	outDoc, ok, err := out.GetPartAsXML(documentPartURI)
	require.NoError(t, err)
	require.True(t, ok)

	tbl := xmlnode.Find(outDoc, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "tbl"
	})
	require.NotNil(t, tbl)
	rows := tbl.ChildrenByLocal("tr")
	require.Len(t, rows, 2)

	secondRowText := rows[1].Text()
	assert.Contains(t, secondRowText, "Old Name")
	assert.Contains(t, secondRowText, "New Name")
	assert.Contains(t, secondRowText, "Keep Me", "the untouched second cell must survive in the output row")

	var sawTableChange bool
	for _, c := range cs.Changes {
		if c.Kind == changeset.KindTableContentChanged {
			sawTableChange = true
		}
	}
	assert.True(t, sawTableChange)
}

func TestCompare_Identity(t *testing.T) {
	pkg := buildDocxFixture(t, wrapDocument(`<w:p><w:r><w:t>Same paragraph, unchanged.</w:t></w:r></w:p>`))
	pkgCopy := buildDocxFixture(t, wrapDocument(`<w:p><w:r><w:t>Same paragraph, unchanged.</w:t></w:r></w:p>`))

	_, cs, err := Compare(context.Background(), pkg, pkgCopy, settings.Defaults())
	require.NoError(t, err)
	assert.True(t, cs.IsEmpty())
}

func TestCompare_Cancellation(t *testing.T) {
	pkg := buildDocxFixture(t, wrapDocument(`<w:p><w:r><w:t>Text.</w:t></w:r></w:p>`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Compare(ctx, pkg, pkg, settings.Defaults())
	require.Error(t, err)
}

// TestCompare_DropsOrphanReferencesInFootnotes guards the per-part fix:
// dropOrphanReferences must run against footnotes.xml's own relationship
// set, not only against document.xml's. The fixture's footnote carries
// an r:embed with no corresponding relationship at all (there is no
// word/_rels/footnotes.xml.rels part in the package), so the owning
// element must be pruned from the output footnotes part.
func TestCompare_DropsOrphanReferencesInFootnotes(t *testing.T) {
	docXML := wrapDocument(`<w:p><w:r><w:t>See note.</w:t></w:r><w:r><w:footnoteReference w:id="1"/></w:r></w:p>`)
	footnotesXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:footnotes ` + footnotesNSHeader + `>
  <w:footnote w:id="1">
    <w:p><w:r><w:drawing><w:embedRef r:embed="rId99"/></w:drawing></w:r></w:p>
  </w:footnote>
</w:footnotes>`

	left := buildDocxFixtureWithFootnotes(t, docXML, footnotesXML)
	right := buildDocxFixtureWithFootnotes(t, docXML, footnotesXML)

	data, _, err := Compare(context.Background(), left, right, settings.Defaults())
	require.NoError(t, err)

	out, err := opc.Open(data)
	require.NoError(t, err)
	outFootnotes, ok, err := out.GetPartAsXML(footnotesPartURI)
	require.NoError(t, err)
	require.True(t, ok)

	var sawEmbedRef bool
	xmlnode.Walk(outFootnotes, func(n *xmlnode.Node) bool {
		if n.Kind == xmlnode.Element && n.Local() == "embedRef" {
			sawEmbedRef = true
		}
		return true
	})
	assert.False(t, sawEmbedRef, "orphaned r:embed reference in footnotes.xml must be pruned")
}
