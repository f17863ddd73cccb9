package pml

import (
	"sort"

	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/settings"
)

// SlideStatus tags one outcome of slide matching.
type SlideStatus int

const (
	SlideMatched SlideStatus = iota
	SlideDeleted
	SlideInserted
)

// SlideOp is one aligned outcome of matchSlides. Moved is computed
// separately, after every pair is known, from the pairs' relative order.
type SlideOp struct {
	Status                 SlideStatus
	LeftIndex, RightIndex  int
	LeftTarget, RightTarget string
	Moved                  bool
}

// matchSlides aligns two presentations' slide lists in descending-
// priority passes: (1) exact title match, (2) fingerprint match, (3)
// similarity-matrix greedy matching above SlideSimilarityThreshold when
// UseSlideAlignmentLCS is set, otherwise (4) positional fallback for
// whatever remains. Leftover left slides are deletions, leftover right
// slides are insertions.
func matchSlides(left, right *PresentationSignature, st settings.Settings) []SlideOp {
	leftSigs := slideSigs(left)
	rightSigs := slideSigs(right)

	leftRemaining := remainingSet(len(leftSigs))
	rightRemaining := remainingSet(len(rightSigs))

	var ops []SlideOp

	// Pass 1: exact title-text match.
	for li := range leftSigs {
		if !leftRemaining[li] || leftSigs[li].Title == "" {
			continue
		}
		for ri := range rightSigs {
			if !rightRemaining[ri] {
				continue
			}
			if rightSigs[ri].Title == leftSigs[li].Title {
				ops = append(ops, slideOp(left, right, li, ri))
				delete(leftRemaining, li)
				delete(rightRemaining, ri)
				break
			}
		}
	}

	// Pass 2: fingerprint match (title + z-order shape list hash).
	leftFP := make(map[int]hashutil.Digest, len(leftSigs))
	for li := range leftSigs {
		leftFP[li] = slideFingerprint(leftSigs[li])
	}
	rightFP := make(map[int]hashutil.Digest, len(rightSigs))
	for ri := range rightSigs {
		rightFP[ri] = slideFingerprint(rightSigs[ri])
	}
	for li := range leftSigs {
		if !leftRemaining[li] {
			continue
		}
		for ri := range rightSigs {
			if !rightRemaining[ri] {
				continue
			}
			if leftFP[li] == rightFP[ri] {
				ops = append(ops, slideOp(left, right, li, ri))
				delete(leftRemaining, li)
				delete(rightRemaining, ri)
				break
			}
		}
	}

	// Pass 3: similarity-matrix greedy matching.
	if st.UseSlideAlignmentLCS {
		for {
			bestLi, bestRi, bestScore := -1, -1, -1.0
			for li := range leftSigs {
				if !leftRemaining[li] {
					continue
				}
				for ri := range rightSigs {
					if !rightRemaining[ri] {
						continue
					}
					score := slideSimilarity(leftSigs[li], rightSigs[ri])
					if score > bestScore {
						bestScore, bestLi, bestRi = score, li, ri
					}
				}
			}
			if bestLi < 0 || bestScore < st.SlideSimilarityThreshold {
				break
			}
			ops = append(ops, slideOp(left, right, bestLi, bestRi))
			delete(leftRemaining, bestLi)
			delete(rightRemaining, bestRi)
		}
	}

	// Pass 4: positional fallback, pairing remaining slides in order; only
	// used when similarity matching is disabled.
	if !st.UseSlideAlignmentLCS {
		leftLeft := sortedKeys(leftRemaining)
		rightLeft := sortedKeys(rightRemaining)
		for i := 0; i < len(leftLeft) && i < len(rightLeft); i++ {
			li, ri := leftLeft[i], rightLeft[i]
			ops = append(ops, slideOp(left, right, li, ri))
			delete(leftRemaining, li)
			delete(rightRemaining, ri)
		}
	}

	for li := range leftSigs {
		if leftRemaining[li] {
			ops = append(ops, SlideOp{Status: SlideDeleted, LeftIndex: li, LeftTarget: left.Slides[li].Target})
		}
	}
	for ri := range rightSigs {
		if rightRemaining[ri] {
			ops = append(ops, SlideOp{Status: SlideInserted, RightIndex: ri, RightTarget: right.Slides[ri].Target})
		}
	}

	markMovedSlides(ops)
	return ops
}

func slideSigs(p *PresentationSignature) []*SlideSignature {
	out := make([]*SlideSignature, len(p.Slides))
	for i, s := range p.Slides {
		out[i] = p.SlideSig[s.Target]
	}
	return out
}

func slideOp(left, right *PresentationSignature, li, ri int) SlideOp {
	return SlideOp{
		Status:      SlideMatched,
		LeftIndex:   li,
		RightIndex:  ri,
		LeftTarget:  left.Slides[li].Target,
		RightTarget: right.Slides[ri].Target,
	}
}

func remainingSet(n int) map[int]bool {
	m := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		m[i] = true
	}
	return m
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// slideFingerprint hashes a slide's title plus its z-order-sorted
// "name:type:text" shape list.
func slideFingerprint(ss *SlideSignature) hashutil.Digest {
	if ss == nil {
		return hashutil.Digest{}
	}
	parts := []string{ss.Title}
	shapes := append([]*ShapeSignature(nil), ss.Shapes...)
	sort.SliceStable(shapes, func(i, j int) bool { return shapes[i].ZOrder < shapes[j].ZOrder })
	for _, sh := range shapes {
		parts = append(parts, sh.Name+":"+shapeKindName(sh.Kind)+":"+sh.Text)
	}
	joined := ""
	for i, p := range parts {
		if i > 0 {
			joined += "\x1f"
		}
		joined += p
	}
	return hashutil.SumString(joined)
}

func shapeKindName(k ShapeKind) string {
	switch k {
	case ShapeAutoShape:
		return "AutoShape"
	case ShapeTextBox:
		return "TextBox"
	case ShapePicture:
		return "Picture"
	case ShapeTable:
		return "Table"
	case ShapeChart:
		return "Chart"
	case ShapeSmartArt:
		return "SmartArt"
	case ShapeOleObject:
		return "OleObject"
	case ShapeGroup:
		return "Group"
	case ShapeConnector:
		return "Connector"
	default:
		return "Unknown"
	}
}

// slideSimilarity scores a candidate slide pair, normalized to [0,1], by
// a weighted formula: title text exact (3) or word-jaccard×2; equal
// contentHash (1); same shape count (1) or |Δ|≤2 (0.5); shape-type
// overlap ratio (1); shape-name overlap×2.
func slideSimilarity(ls, rs *SlideSignature) float64 {
	const maxScore = 3 + 1 + 1 + 1 + 2
	score := 0.0

	if ls.Title != "" && ls.Title == rs.Title {
		score += 3
	} else {
		score += 2 * wordJaccardSimilarity(ls.Title, rs.Title)
	}
	if ls.ContentHash == rs.ContentHash {
		score += 1
	}

	delta := len(ls.Shapes) - len(rs.Shapes)
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta == 0:
		score += 1
	case delta <= 2:
		score += 0.5
	}

	score += shapeTypeOverlapRatio(ls.Shapes, rs.Shapes)
	score += 2 * shapeNameOverlapRatio(ls.Shapes, rs.Shapes)

	return score / maxScore
}

func shapeTypeOverlapRatio(left, right []*ShapeSignature) float64 {
	leftCount := map[ShapeKind]int{}
	for _, sh := range left {
		leftCount[sh.Kind]++
	}
	rightCount := map[ShapeKind]int{}
	for _, sh := range right {
		rightCount[sh.Kind]++
	}
	overlap := 0
	total := len(left)
	if len(right) > total {
		total = len(right)
	}
	if total == 0 {
		return 1
	}
	for k, lc := range leftCount {
		rc := rightCount[k]
		if rc < lc {
			overlap += rc
		} else {
			overlap += lc
		}
	}
	return float64(overlap) / float64(total)
}

func shapeNameOverlapRatio(left, right []*ShapeSignature) float64 {
	leftNames := map[string]bool{}
	for _, sh := range left {
		if sh.Name != "" {
			leftNames[sh.Name] = true
		}
	}
	if len(leftNames) == 0 {
		return 0
	}
	matched := 0
	for _, sh := range right {
		if sh.Name != "" && leftNames[sh.Name] {
			matched++
		}
	}
	return float64(matched) / float64(len(leftNames))
}

// markMovedSlides flags matched pairs whose relative order was disturbed.
// Pairs are sorted by right index; the left indices of a longest strictly
// increasing subsequence of that ordering keep their relative position
// (a content-only index shift from insertions/deletions elsewhere must
// NOT be flagged) — every matched pair outside that subsequence is a
// genuine reorder and gets Moved set.
func markMovedSlides(ops []SlideOp) {
	var matched []int // indices into ops, in right-index order
	for i := range ops {
		if ops[i].Status == SlideMatched {
			matched = append(matched, i)
		}
	}
	sort.Slice(matched, func(a, b int) bool { return ops[matched[a]].RightIndex < ops[matched[b]].RightIndex })

	seq := make([]int, len(matched))
	for i, opIdx := range matched {
		seq[i] = ops[opIdx].LeftIndex
	}
	inLIS := longestIncreasingSubsequence(seq)

	for i, opIdx := range matched {
		if !inLIS[i] {
			ops[opIdx].Moved = true
		}
	}
}

// longestIncreasingSubsequence returns, for each index of seq, whether it
// belongs to a longest strictly increasing subsequence (patience-sorting
// construction with predecessor links; O(n log n)).
func longestIncreasingSubsequence(seq []int) []bool {
	n := len(seq)
	inLIS := make([]bool, n)
	if n == 0 {
		return inLIS
	}
	tails := make([]int, 0, n)   // tails[k] = index into seq of smallest tail of an increasing run of length k+1
	pred := make([]int, n)
	for i, v := range seq {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			pred[i] = tails[lo-1]
		} else {
			pred[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}
	if len(tails) == 0 {
		return inLIS
	}
	k := tails[len(tails)-1]
	for k >= 0 {
		inLIS[k] = true
		k = pred[k]
	}
	return inLIS
}
