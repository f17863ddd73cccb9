package sml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/settings"
)

func sheetWithRows(name string, rowContent ...string) *WorksheetSignature {
	ws := &WorksheetSignature{Name: name, RowHash: make(map[int]hashutil.Digest)}
	for i, content := range rowContent {
		row := i + 1
		ws.Rows = append(ws.Rows, row)
		ws.RowHash[row] = hashutil.SumString(content)
	}
	return ws
}

func TestMatchSheets_ExactNameWins(t *testing.T) {
	left := &WorkbookSignature{
		Sheets:     []SheetEntry{{Name: "Sheet1"}},
		Worksheets: map[string]*WorksheetSignature{"Sheet1": sheetWithRows("Sheet1", "a")},
	}
	right := &WorkbookSignature{
		Sheets:     []SheetEntry{{Name: "Sheet1"}},
		Worksheets: map[string]*WorksheetSignature{"Sheet1": sheetWithRows("Sheet1", "b")},
	}
	ops := matchSheets(left, right, settings.Defaults())
	require.Len(t, ops, 1)
	assert.Equal(t, SheetEqual, ops[0].Status)
}

func TestMatchSheets_RenameDetectedByContentHash(t *testing.T) {
	left := &WorkbookSignature{
		Sheets:     []SheetEntry{{Name: "Budget"}},
		Worksheets: map[string]*WorksheetSignature{"Budget": sheetWithRows("Budget", "x", "y")},
	}
	right := &WorkbookSignature{
		Sheets:     []SheetEntry{{Name: "Budget2024"}},
		Worksheets: map[string]*WorksheetSignature{"Budget2024": sheetWithRows("Budget2024", "x", "y")},
	}
	ops := matchSheets(left, right, settings.Defaults())
	require.Len(t, ops, 1)
	assert.Equal(t, SheetRenamed, ops[0].Status)
	assert.Equal(t, "Budget", ops[0].LeftName)
	assert.Equal(t, "Budget2024", ops[0].RightName)
}

func TestMatchSheets_DeletedAndInserted(t *testing.T) {
	left := &WorkbookSignature{
		Sheets:     []SheetEntry{{Name: "Old"}},
		Worksheets: map[string]*WorksheetSignature{"Old": sheetWithRows("Old", "a")},
	}
	right := &WorkbookSignature{
		Sheets:     []SheetEntry{{Name: "New"}},
		Worksheets: map[string]*WorksheetSignature{"New": sheetWithRows("New", "completely different")},
	}
	st := settings.Defaults()
	st.SheetRenameSimilarityThreshold = 0.99
	ops := matchSheets(left, right, st)
	require.Len(t, ops, 2)
	var statuses []SheetStatus
	for _, op := range ops {
		statuses = append(statuses, op.Status)
	}
	assert.Contains(t, statuses, SheetDeleted)
	assert.Contains(t, statuses, SheetInserted)
}
