package pml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/settings"
)

func TestDiffMatchedShape_MovedBeyondTolerance(t *testing.T) {
	cs := &changeset.ChangeSet{}
	st := settings.Defaults()
	st.PositionTolerance = 1000

	ls := shapeSig("Box", ShapeTextBox, 1000, 1000, 5000, 5000, "same")
	rs := shapeSig("Box", ShapeTextBox, 3000, 1000, 5000, 5000, "same")

	kinds := diffMatchedShape(ls, rs, 0, st, cs)
	require.Contains(t, kinds, changeset.KindShapeMoved)
	require.Len(t, cs.Changes, 1)
	assert.Equal(t, "1000,1000", cs.Changes[0].OldValue)
	assert.Equal(t, "3000,1000", cs.Changes[0].NewValue)
}

func TestDiffMatchedShape_WithinTolerance_NoChange(t *testing.T) {
	cs := &changeset.ChangeSet{}
	st := settings.Defaults() // default tolerance 0.1in = 91440 EMU

	ls := shapeSig("Box", ShapeTextBox, 1000, 1000, 5000, 5000, "same")
	rs := shapeSig("Box", ShapeTextBox, 3000, 1000, 5000, 5000, "same")

	kinds := diffMatchedShape(ls, rs, 0, st, cs)
	assert.Empty(t, kinds)
}

func TestDiffMatchedShape_TextChangedVsFormattingChanged(t *testing.T) {
	st := settings.Defaults()

	cs := &changeset.ChangeSet{}
	ls := shapeSig("Box", ShapeTextBox, 0, 0, 100, 100, "old text")
	rs := shapeSig("Box", ShapeTextBox, 0, 0, 100, 100, "new text")
	kinds := diffMatchedShape(ls, rs, 0, st, cs)
	assert.Contains(t, kinds, changeset.KindTextChanged)

	cs2 := &changeset.ChangeSet{}
	ls2 := shapeSig("Box", ShapeTextBox, 0, 0, 100, 100, "same text")
	rs2 := shapeSig("Box", ShapeTextBox, 0, 0, 100, 100, "same text")
	ls2.TextFormatHash = hashutil.SumString("a")
	rs2.TextFormatHash = hashutil.SumString("b")
	kinds2 := diffMatchedShape(ls2, rs2, 0, st, cs2)
	assert.Contains(t, kinds2, changeset.KindTextFormattingChanged)
}

func TestDiffMatchedShape_ImageReplaced(t *testing.T) {
	cs := &changeset.ChangeSet{}
	st := settings.Defaults()
	ls := shapeSig("Pic", ShapePicture, 0, 0, 100, 100, "")
	rs := shapeSig("Pic", ShapePicture, 0, 0, 100, 100, "")
	ls.ImageHash = hashutil.SumString("imgA")
	rs.ImageHash = hashutil.SumString("imgB")
	kinds := diffMatchedShape(ls, rs, 0, st, cs)
	assert.Contains(t, kinds, changeset.KindImageReplaced)
}

func TestDiff_SlideInsertedAndDeleted(t *testing.T) {
	cs := &changeset.ChangeSet{}
	st := settings.Defaults()
	left := presWithSlides("Keep", "Gone")
	right := presWithSlides("Keep", "New")

	Diff(left, right, st, cs)

	var sawDeleted, sawInserted bool
	for _, c := range cs.Changes {
		if c.Kind == changeset.KindSlideDeleted {
			sawDeleted = true
		}
		if c.Kind == changeset.KindSlideInserted {
			sawInserted = true
		}
	}
	assert.True(t, sawDeleted)
	assert.True(t, sawInserted)
}
