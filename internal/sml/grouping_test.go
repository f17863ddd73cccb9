package sml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/changeset"
)

func TestGroupChanges_CollapsesConsecutiveRows(t *testing.T) {
	changes := []CellChange{
		{Kind: changeset.KindValueChanged, Sheet: "Sheet1", Row: 1, Col: 2, Address: "B1", OldValue: "1", NewValue: "2"},
		{Kind: changeset.KindValueChanged, Sheet: "Sheet1", Row: 2, Col: 2, Address: "B2", OldValue: "3", NewValue: "4"},
		{Kind: changeset.KindValueChanged, Sheet: "Sheet1", Row: 3, Col: 2, Address: "B3", OldValue: "5", NewValue: "6"},
	}
	grouped := GroupChanges(changes)
	require.Len(t, grouped, 1)
	assert.Equal(t, 3, grouped[0].Count)
	assert.Equal(t, "Col1:Col3", grouped[0].CellRange)
	assert.Equal(t, "1", grouped[0].OldValue)
	assert.Equal(t, "6", grouped[0].NewValue)
}

func TestGroupChanges_BreaksOnGapOrKindOrColumn(t *testing.T) {
	changes := []CellChange{
		{Kind: changeset.KindValueChanged, Sheet: "Sheet1", Row: 1, Col: 1, Address: "A1"},
		{Kind: changeset.KindValueChanged, Sheet: "Sheet1", Row: 3, Col: 1, Address: "A3"},
		{Kind: changeset.KindFormatChanged, Sheet: "Sheet1", Row: 3, Col: 1, Address: "A3"},
		{Kind: changeset.KindValueChanged, Sheet: "Sheet1", Row: 1, Col: 2, Address: "B1"},
	}
	grouped := GroupChanges(changes)
	require.Len(t, grouped, 4)
	for _, g := range grouped {
		assert.Equal(t, 1, g.Count)
	}
}

func TestGroupChanges_SingleCellRangeIsAddress(t *testing.T) {
	grouped := GroupChanges([]CellChange{
		{Kind: changeset.KindValueChanged, Sheet: "Sheet1", Row: 5, Col: 3, Address: "C5"},
	})
	require.Len(t, grouped, 1)
	assert.Equal(t, "C5", grouped[0].CellRange)
}
