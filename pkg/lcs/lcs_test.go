package lcs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/pkg/lcs"
)

func TestAlign_IdentitySequencesAreAllEqual(t *testing.T) {
	seq := []int{1, 2, 3, 4, 5}
	segs := lcs.Align(seq, append([]int(nil), seq...), lcs.Options[int]{})
	require.Len(t, segs, 1)
	assert.Equal(t, lcs.StatusEqual, segs[0].Status)
	assert.Equal(t, seq, segs[0].Left)
	assert.Equal(t, seq, segs[0].Right)
}

func TestAlign_InsertInMiddle(t *testing.T) {
	left := []int{1, 2, 3}
	right := []int{1, 2, 99, 3}
	segs := lcs.Align(left, right, lcs.Options[int]{})

	var gotLeft, gotRight []int
	for _, s := range segs {
		gotLeft = append(gotLeft, s.Left...)
		gotRight = append(gotRight, s.Right...)
	}
	assert.Equal(t, left, gotLeft)
	assert.Equal(t, right, gotRight)

	// The classical LCS length here is 3 (1,2,3); the sum of all Equal
	// segment lengths must equal that, per spec.md's LCS-correctness
	// property.
	equalLen := 0
	for _, s := range segs {
		if s.Status == lcs.StatusEqual {
			equalLen += len(s.Left)
		}
	}
	assert.Equal(t, 3, equalLen)
}

func TestAlign_PureDeletionAndInsertion(t *testing.T) {
	segs := lcs.Align([]int{1, 2}, []int{3, 4}, lcs.Options[int]{})
	require.Len(t, segs, 2)
	assert.Equal(t, lcs.StatusDeleted, segs[0].Status)
	assert.Equal(t, lcs.StatusInserted, segs[1].Status)
}

func TestAlign_TieBreakPrefersEarliestIndices(t *testing.T) {
	// Two equal-length candidate matches of length 1 exist ("5" at two
	// positions on each side); the earliest-left, earliest-right pairing
	// must win deterministically, not merely "a" valid one.
	left := []int{5, 9, 5}
	right := []int{5, 8, 5}
	segs := lcs.Align(left, right, lcs.Options[int]{})
	require.NotEmpty(t, segs)
	assert.Equal(t, lcs.StatusEqual, segs[0].Status)
	assert.Equal(t, 0, segs[0].LeftIndex)
	assert.Equal(t, 0, segs[0].RightIndex)
}

func TestAlign_MinMatchLengthRejectsShortAnchors(t *testing.T) {
	left := []int{1, 2, 3}
	right := []int{9, 2, 8}
	segs := lcs.Align(left, right, lcs.Options[int]{MinMatchLength: 2})
	for _, s := range segs {
		assert.NotEqual(t, lcs.StatusEqual, s.Status, "a length-1 match should have been rejected")
	}
}

func TestAlign_ShouldSkipAsAnchorTrimsButDoesNotReject(t *testing.T) {
	// "0" marks a structural token that may not anchor a match but can
	// appear inside one.
	left := []int{0, 1, 2, 0}
	right := []int{0, 1, 2, 0}
	segs := lcs.Align(left, right, lcs.Options[int]{
		ShouldSkipAsAnchor: func(v int) bool { return v == 0 },
	})
	require.Len(t, segs, 5)
	assert.Equal(t, []int{1, 2}, segs[2].Left)
}

func TestAlign_DeterministicAcrossRuns(t *testing.T) {
	left := []int{4, 1, 2, 3, 7, 1, 2, 3, 9}
	right := []int{1, 2, 3, 5, 1, 2, 3}
	first := lcs.Align(left, right, lcs.Options[int]{})
	second := lcs.Align(left, right, lcs.Options[int]{})
	assert.Equal(t, first, second)
}
