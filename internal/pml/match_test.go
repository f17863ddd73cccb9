package pml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/settings"
)

func presWithSlides(titles ...string) *PresentationSignature {
	p := &PresentationSignature{SlideSig: make(map[string]*SlideSignature)}
	for i, title := range titles {
		target := targetFor(i)
		p.Slides = append(p.Slides, SlideEntry{Target: target})
		p.SlideSig[target] = &SlideSignature{
			Target:      target,
			Title:       title,
			ContentHash: hashutil.SumString(title),
		}
	}
	return p
}

func targetFor(i int) string {
	return "/ppt/slides/slide" + string(rune('1'+i)) + ".xml"
}

func TestMatchSlides_ExactTitleMatch(t *testing.T) {
	left := presWithSlides("Intro", "Body", "Summary")
	right := presWithSlides("Intro", "Body", "Summary")
	ops := matchSlides(left, right, settings.Defaults())
	require.Len(t, ops, 3)
	for _, op := range ops {
		assert.Equal(t, SlideMatched, op.Status)
		assert.False(t, op.Moved)
	}
}

func TestMatchSlides_InsertionDoesNotFlagTrailingSlidesMoved(t *testing.T) {
	left := presWithSlides("S1", "S2", "S3")
	right := presWithSlides("S1", "Inserted", "S2", "S3")
	ops := matchSlides(left, right, settings.Defaults())

	var inserted, moved int
	for _, op := range ops {
		if op.Status == SlideInserted {
			inserted++
		}
		if op.Status == SlideMatched && op.Moved {
			moved++
		}
	}
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, moved, "index shift from an insertion must not be reported as a move")
}

func TestMatchSlides_ActualReorderIsFlaggedMoved(t *testing.T) {
	left := presWithSlides("S1", "S2", "S3")
	right := presWithSlides("S1", "S3", "S2")
	ops := matchSlides(left, right, settings.Defaults())

	movedTitles := map[int]bool{}
	for _, op := range ops {
		if op.Status == SlideMatched && op.Moved {
			movedTitles[op.LeftIndex] = true
		}
	}
	assert.NotEmpty(t, movedTitles, "a genuine swap must flag at least one slide as moved")
}

func TestMatchSlides_DeletedAndInserted(t *testing.T) {
	left := presWithSlides("Keep", "Gone")
	right := presWithSlides("Keep", "New")
	ops := matchSlides(left, right, settings.Defaults())

	var deleted, inserted int
	for _, op := range ops {
		switch op.Status {
		case SlideDeleted:
			deleted++
		case SlideInserted:
			inserted++
		}
	}
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, inserted)
}

func shapeSig(name string, kind ShapeKind, x, y, cx, cy int64, text string) *ShapeSignature {
	return &ShapeSignature{
		Name: name, Kind: kind, X: x, Y: y, CX: cx, CY: cy, Text: text,
		ContentHash: hashutil.SumString(name + text),
	}
}

func TestMatchShapes_NameAndTypeMatch(t *testing.T) {
	left := &SlideSignature{Shapes: []*ShapeSignature{shapeSig("Box1", ShapeTextBox, 0, 0, 100, 100, "hello")}}
	right := &SlideSignature{Shapes: []*ShapeSignature{shapeSig("Box1", ShapeTextBox, 0, 0, 100, 100, "hello world")}}
	ops := matchShapes(left, right, settings.Defaults())
	require.Len(t, ops, 1)
	assert.Equal(t, ShapeStatusMatched, ops[0].Status)
}

func TestMatchShapes_FuzzyFallbackOnPosition(t *testing.T) {
	left := &SlideSignature{Shapes: []*ShapeSignature{shapeSig("", ShapePicture, 0, 0, 100, 100, "")}}
	right := &SlideSignature{Shapes: []*ShapeSignature{shapeSig("", ShapePicture, 1000, 1000, 100, 100, "")}}
	left.Shapes[0].ImageHash = hashutil.SumString("same-image")
	right.Shapes[0].ImageHash = hashutil.SumString("same-image")

	st := settings.Defaults()
	ops := matchShapes(left, right, st)
	require.Len(t, ops, 1)
	assert.Equal(t, ShapeStatusMatched, ops[0].Status)
}

func TestMatchShapes_UnmatchedAreAddedAndDeleted(t *testing.T) {
	left := &SlideSignature{Shapes: []*ShapeSignature{shapeSig("OnlyLeft", ShapeAutoShape, 0, 0, 10, 10, "")}}
	right := &SlideSignature{Shapes: []*ShapeSignature{shapeSig("OnlyRight", ShapeAutoShape, 5000, 5000, 10, 10, "")}}
	ops := matchShapes(left, right, settings.Defaults())
	require.Len(t, ops, 2)
	statuses := map[ShapeMatchStatus]int{}
	for _, op := range ops {
		statuses[op.Status]++
	}
	assert.Equal(t, 1, statuses[ShapeStatusDeleted])
	assert.Equal(t, 1, statuses[ShapeStatusInserted])
}

func TestLongestIncreasingSubsequence(t *testing.T) {
	in := longestIncreasingSubsequence([]int{0, 1, 2})
	assert.Equal(t, []bool{true, true, true}, in)

	in2 := longestIncreasingSubsequence([]int{0, 2, 1})
	assert.True(t, in2[0])
	assert.False(t, in2[1] && in2[2])
}
