package sml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/settings"
)

func cellSig(addr string, row, col int, value, formula string) *CellSignature {
	payload := formula
	if payload == "" {
		payload = value
	}
	return &CellSignature{
		Address:     addr,
		Row:         row,
		Col:         col,
		Value:       value,
		Formula:     formula,
		ContentHash: hashutil.SumString(payload),
	}
}

func TestCompareCells_ValueChanged(t *testing.T) {
	cs := &changeset.ChangeSet{}
	changes := compareCells("Sheet1", "A1", cellSig("A1", 1, 1, "10", ""), cellSig("A1", 1, 1, "20", ""), settings.Defaults(), cs)
	require.Len(t, changes, 1)
	assert.Equal(t, changeset.KindValueChanged, changes[0].Kind)
	assert.Equal(t, "10", changes[0].OldValue)
	assert.Equal(t, "20", changes[0].NewValue)
}

func TestCompareCells_FormulaChangedIgnoresWhitespace(t *testing.T) {
	cs := &changeset.ChangeSet{}
	changes := compareCells("Sheet1", "A1", cellSig("A1", 1, 1, "3", "=1+2"), cellSig("A1", 1, 1, "3", "=1 + 2"), settings.Defaults(), cs)
	assert.Empty(t, changes)
}

func TestCompareCells_AddedAndDeleted(t *testing.T) {
	cs := &changeset.ChangeSet{}
	added := compareCells("Sheet1", "A1", nil, cellSig("A1", 1, 1, "new", ""), settings.Defaults(), cs)
	require.Len(t, added, 1)
	assert.Equal(t, changeset.KindCellAdded, added[0].Kind)

	deleted := compareCells("Sheet1", "A1", cellSig("A1", 1, 1, "old", ""), nil, settings.Defaults(), cs)
	require.Len(t, deleted, 1)
	assert.Equal(t, changeset.KindCellDeleted, deleted[0].Kind)
}

func TestCompareCells_FormatOnlyWhenContentEqual(t *testing.T) {
	cs := &changeset.ChangeSet{}
	left := cellSig("A1", 1, 1, "same", "")
	right := cellSig("A1", 1, 1, "same", "")
	right.Format.Bold = true

	st := settings.Defaults()
	changes := compareCells("Sheet1", "A1", left, right, st, cs)
	require.Len(t, changes, 1)
	assert.Equal(t, changeset.KindFormatChanged, changes[0].Kind)
}

func TestCompareCells_FormulaComparisonDisabled(t *testing.T) {
	cs := &changeset.ChangeSet{}
	st := settings.Defaults()
	st.CompareFormulas = false
	changes := compareCells("Sheet1", "A1", cellSig("A1", 1, 1, "3", "=1+2"), cellSig("A1", 1, 1, "3", "=9+9"), st, cs)
	assert.Empty(t, changes)
}

func pictureCellSig(addr string, row, col int, imgHash hashutil.Digest) *CellSignature {
	return &CellSignature{
		Address:     addr,
		Row:         row,
		Col:         col,
		Type:        CellTypePicture,
		ImageHash:   imgHash,
		ContentHash: imgHash,
	}
}

func TestCompareCells_ImageReplaced(t *testing.T) {
	cs := &changeset.ChangeSet{}
	left := pictureCellSig("B2", 2, 2, hashutil.SumString("image-one"))
	right := pictureCellSig("B2", 2, 2, hashutil.SumString("image-two"))

	changes := compareCells("Sheet1", "B2", left, right, settings.Defaults(), cs)
	require.Len(t, changes, 1)
	assert.Equal(t, changeset.KindImageReplaced, changes[0].Kind)
}

func TestCompareCells_SameImageHashNoChange(t *testing.T) {
	cs := &changeset.ChangeSet{}
	h := hashutil.SumString("same-image")
	left := pictureCellSig("B2", 2, 2, h)
	right := pictureCellSig("B2", 2, 2, h)

	changes := compareCells("Sheet1", "B2", left, right, settings.Defaults(), cs)
	assert.Empty(t, changes, "identical ContentHash must short-circuit before reaching any comparison branch")
}
