// Package lcs implements the longest-common-subsequence alignment
// primitive shared by every matcher in the system: paragraph/table-row
// alignment in WML, row alignment in SML, and the fingerprint/fuzzy
// fallback passes in PML all reduce to "align two sequences of hashable
// items and tell me which runs are equal, deleted, or inserted."
//
// The algorithm is a recursive longest-common-*substring* search (not the
// classical O(n*m) dynamic-programming LCS table): find the single
// longest run of equal hashes common to both sides, recurse on the
// prefix and suffix around it, and stop recursing once a candidate run
// is too short or too small relative to the remaining slice to be worth
// treating as an anchor. This is the same divide-and-conquer shape
// other_examples' astdiff-diff.go uses for its own multi-pass symbol
// matcher (exact-match anchors first, fuzzy fallback for what's left),
// adapted here to a substring-anchor algorithm rather than astdiff's
// exact-key matching.
package lcs

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
)

// Hashable is any type whose identity for alignment purposes is a single
// comparable key — usually a content-hash digest, sometimes a plain
// integer id. constraints.Ordered is used (not just comparable) so the
// deterministic tie-break rules below can be expressed without a custom
// comparator.
type Hashable interface {
	constraints.Ordered
}

// Status tags one segment of the alignment result.
type Status int

const (
	// StatusEqual means the segment matched: n items from each side.
	StatusEqual Status = iota
	// StatusDeleted means these items exist only on the left.
	StatusDeleted
	// StatusInserted means these items exist only on the right.
	StatusInserted
)

// Segment is one correlated run in the alignment.
type Segment[T Hashable] struct {
	Status Status
	Left   []T // items from the left sequence, set for Equal and Deleted
	Right  []T // items from the right sequence, set for Equal and Inserted

	// LeftIndex/RightIndex are the starting indices of this segment in
	// the original left/right sequences, useful for callers that need to
	// map back to the original payload slice alongside the hash slice.
	LeftIndex  int
	RightIndex int
}

// Options tunes the alignment.
type Options[T Hashable] struct {
	// MinMatchLength: segments shorter than this are never treated as
	// anchors (they may still appear merged inside a larger accepted
	// match, never as their own accepted run).
	MinMatchLength int

	// DetailThreshold: a candidate match is accepted only if
	// length / max(len(left), len(right)) >= DetailThreshold. Zero
	// disables the ratio check.
	DetailThreshold float64

	// ShouldSkipAsAnchor, if set, reports whether an item must never by
	// itself anchor a match (e.g. a lone structural token), even though
	// it may appear inside a larger accepted match.
	ShouldSkipAsAnchor func(item T) bool
}

// Align computes the correlated segmentation of left and right,
// including the deterministic tie-break: among equal-length candidate
// matches, the one with the smallest left index wins; ties on left
// index are broken by the smallest right index.
func Align[T Hashable](left, right []T, opts Options[T]) []Segment[T] {
	segs := align(left, right, 0, 0, opts)
	return mergeAdjacent(segs)
}

func align[T Hashable](left, right []T, leftBase, rightBase int, opts Options[T]) []Segment[T] {
	if len(left) == 0 && len(right) == 0 {
		return nil
	}
	if len(left) == 0 {
		return []Segment[T]{{Status: StatusInserted, Right: right, LeftIndex: leftBase, RightIndex: rightBase}}
	}
	if len(right) == 0 {
		return []Segment[T]{{Status: StatusDeleted, Left: left, LeftIndex: leftBase, RightIndex: rightBase}}
	}

	li, ri, length, ok := longestMatch(left, right, opts)
	if !ok {
		return []Segment[T]{
			{Status: StatusDeleted, Left: left, LeftIndex: leftBase, RightIndex: rightBase},
			{Status: StatusInserted, Right: right, LeftIndex: leftBase, RightIndex: rightBase},
		}
	}

	var out []Segment[T]
	out = append(out, align(left[:li], right[:ri], leftBase, rightBase, opts)...)
	out = append(out, Segment[T]{
		Status:     StatusEqual,
		Left:       left[li : li+length],
		Right:      right[ri : ri+length],
		LeftIndex:  leftBase + li,
		RightIndex: rightBase + ri,
	})
	out = append(out, align(left[li+length:], right[ri+length:], leftBase+li+length, rightBase+ri+length, opts)...)
	return out
}

// longestMatch finds the longest run of equal items common to left and
// right, applying MinMatchLength, DetailThreshold and ShouldSkipAsAnchor.
// Ties are broken by smallest left index, then smallest right index.
func longestMatch[T Hashable](left, right []T, opts Options[T]) (li, ri, length int, ok bool) {
	// Index every right-side position by value for O(1) candidate
	// lookup; values map to a list of indices (kept in ascending order
	// since we iterate right in order below).
	rightIdx := make(map[T][]int, len(right))
	for j, v := range right {
		rightIdx[v] = append(rightIdx[v], j)
	}

	// Precompute the skip-anchor predicate once per distinct value rather
	// than once per occurrence; maps.Keys gives a stable snapshot of the
	// distinct right-hand values to evaluate against.
	var skipValue map[T]bool
	if opts.ShouldSkipAsAnchor != nil {
		skipValue = make(map[T]bool, len(rightIdx))
		for _, v := range maps.Keys(rightIdx) {
			skipValue[v] = opts.ShouldSkipAsAnchor(v)
		}
	}

	bestLen := 0
	bestLi, bestRi := -1, -1

	// prevRun[j] = length of the match ending at right index j-1 for the
	// previous left index, enabling an O(n*m)-worst-case but typically
	// much faster single pass (classic longest-common-substring DP
	// compressed to one row).
	prevRun := make(map[int]int)

	for i, lv := range left {
		curRun := make(map[int]int)
		for _, j := range rightIdx[lv] {
			runLen := 1
			if j > 0 {
				if pl, found := prevRun[j-1]; found {
					runLen = pl + 1
				}
			}
			curRun[j] = runLen

			startLi := i - runLen + 1
			startRi := j - runLen + 1
			if betterMatch(runLen, startLi, startRi, bestLen, bestLi, bestRi) {
				bestLen, bestLi, bestRi = runLen, startLi, startRi
			}
		}
		prevRun = curRun
	}

	if bestLen == 0 {
		return 0, 0, 0, false
	}

	// Trim skip-anchor items off both ends of the run; a run with nothing
	// left after trimming is rejected. An anchor may still *contain* skip
	// items in its interior.
	if skipValue != nil {
		for bestLen > 0 && skipValue[left[bestLi]] {
			bestLi++
			bestRi++
			bestLen--
		}
		for bestLen > 0 && skipValue[left[bestLi+bestLen-1]] {
			bestLen--
		}
	}

	if bestLen == 0 {
		return 0, 0, 0, false
	}
	if opts.MinMatchLength > 0 && bestLen < opts.MinMatchLength {
		return 0, 0, 0, false
	}
	if opts.DetailThreshold > 0 {
		maxLen := len(left)
		if len(right) > maxLen {
			maxLen = len(right)
		}
		if maxLen > 0 && float64(bestLen)/float64(maxLen) < opts.DetailThreshold {
			return 0, 0, 0, false
		}
	}
	return bestLi, bestRi, bestLen, true
}

// betterMatch applies the deterministic tie-break: longer always wins;
// among equal lengths, smaller left index wins; among equal left index,
// smaller right index wins.
func betterMatch(length, li, ri, bestLen, bestLi, bestRi int) bool {
	if length > bestLen {
		return true
	}
	if length < bestLen {
		return false
	}
	if li < bestLi {
		return true
	}
	if li > bestLi {
		return false
	}
	return ri < bestRi
}

// mergeAdjacent merges consecutive segments of identical status before
// returning the final alignment.
func mergeAdjacent[T Hashable](segs []Segment[T]) []Segment[T] {
	if len(segs) == 0 {
		return segs
	}
	out := make([]Segment[T], 0, len(segs))
	out = append(out, segs[0])
	for _, s := range segs[1:] {
		last := &out[len(out)-1]
		if last.Status == s.Status {
			last.Left = append(last.Left, s.Left...)
			last.Right = append(last.Right, s.Right...)
			continue
		}
		out = append(out, s)
	}
	return out
}

// LeftLength returns the combined left-side length of a segment sequence.
func LeftLength[T Hashable](segs []Segment[T]) int {
	n := 0
	for _, s := range segs {
		n += len(s.Left)
	}
	return n
}

// RightLength returns the combined right-side length of a segment
// sequence.
func RightLength[T Hashable](segs []Segment[T]) int {
	n := 0
	for _, s := range segs {
		n += len(s.Right)
	}
	return n
}
