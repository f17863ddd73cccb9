// Package sml implements the SpreadsheetML comparer: canonicalization of
// a workbook's shared strings, styles and worksheets into a
// WorkbookSignature, three-pass sheet matching, row/column-LCS worksheet
// diffing with per-cell comparison, the highlight/comment/_DiffSummary
// markup renderer and the adjacent-cell change-list grouping pass.
//
// The package layout mirrors internal/wml: canonicalization, matching,
// diffing and markup each get their own file, with compare.go wiring the
// public Compare entry point the same way wml.Compare does.
package sml

const (
	mainNS = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"

	workbookPartURI      = "/xl/workbook.xml"
	sharedStringsPartURI = "/xl/sharedStrings.xml"
	stylesPartURI        = "/xl/styles.xml"

	worksheetRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet"
	commentsRelType  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	hyperlinkRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	drawingRelType   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/drawing"
	imageRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	worksheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
)
