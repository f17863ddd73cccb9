package pml

import "github.com/oxmlredline/compare/pkg/settings"

// ShapeMatchStatus tags one outcome of shape matching within a matched
// slide pair.
type ShapeMatchStatus int

const (
	ShapeStatusMatched ShapeMatchStatus = iota
	ShapeStatusDeleted
	ShapeStatusInserted
)

// ShapeOp is one aligned outcome of matchShapes.
type ShapeOp struct {
	Status    ShapeMatchStatus
	Left      *ShapeSignature
	Right     *ShapeSignature
	LeftIndex int
	RightIndex int
}

// matchShapes aligns two slides' shape lists in four descending-priority
// passes: (1) placeholder (type, idx) match, score 1.0; (2) name+type
// equal, 0.95; (3) name equal only, 0.80; (4) fuzzy scoring accepted
// above shapeSimilarityThreshold. Unmatched left shapes are deletions,
// unmatched right shapes are insertions.
func matchShapes(left, right *SlideSignature, st settings.Settings) []ShapeOp {
	if left == nil {
		left = &SlideSignature{}
	}
	if right == nil {
		right = &SlideSignature{}
	}
	leftRemaining := remainingSet(len(left.Shapes))
	rightRemaining := remainingSet(len(right.Shapes))

	var ops []ShapeOp

	// Pass 1: placeholder (type, idx) match.
	for li, ls := range left.Shapes {
		if !leftRemaining[li] || ls.PlaceholderType == "" {
			continue
		}
		for ri, rs := range right.Shapes {
			if !rightRemaining[ri] {
				continue
			}
			if rs.PlaceholderType == ls.PlaceholderType && rs.PlaceholderIdx == ls.PlaceholderIdx {
				ops = append(ops, ShapeOp{Status: ShapeStatusMatched, Left: ls, Right: rs, LeftIndex: li, RightIndex: ri})
				delete(leftRemaining, li)
				delete(rightRemaining, ri)
				break
			}
		}
	}

	// Pass 2: name + type equal.
	for li, ls := range left.Shapes {
		if !leftRemaining[li] || ls.Name == "" {
			continue
		}
		for ri, rs := range right.Shapes {
			if !rightRemaining[ri] {
				continue
			}
			if rs.Name == ls.Name && rs.Kind == ls.Kind {
				ops = append(ops, ShapeOp{Status: ShapeStatusMatched, Left: ls, Right: rs, LeftIndex: li, RightIndex: ri})
				delete(leftRemaining, li)
				delete(rightRemaining, ri)
				break
			}
		}
	}

	// Pass 3: name equal only.
	for li, ls := range left.Shapes {
		if !leftRemaining[li] || ls.Name == "" {
			continue
		}
		for ri, rs := range right.Shapes {
			if !rightRemaining[ri] {
				continue
			}
			if rs.Name == ls.Name {
				ops = append(ops, ShapeOp{Status: ShapeStatusMatched, Left: ls, Right: rs, LeftIndex: li, RightIndex: ri})
				delete(leftRemaining, li)
				delete(rightRemaining, ri)
				break
			}
		}
	}

	// Pass 4: fuzzy scoring, greedy best-pair-first.
	if st.EnableFuzzyShapeMatching {
		for {
			bestLi, bestRi, bestScore := -1, -1, -1.0
			for li := range left.Shapes {
				if !leftRemaining[li] {
					continue
				}
				for ri := range right.Shapes {
					if !rightRemaining[ri] {
						continue
					}
					score := shapeFuzzyScore(left.Shapes[li], right.Shapes[ri], st)
					if score > bestScore {
						bestScore, bestLi, bestRi = score, li, ri
					}
				}
			}
			if bestLi < 0 || bestScore < st.ShapeSimilarityThreshold {
				break
			}
			ops = append(ops, ShapeOp{Status: ShapeStatusMatched, Left: left.Shapes[bestLi], Right: right.Shapes[bestRi], LeftIndex: bestLi, RightIndex: bestRi})
			delete(leftRemaining, bestLi)
			delete(rightRemaining, bestRi)
		}
	}

	for li, ls := range left.Shapes {
		if leftRemaining[li] {
			ops = append(ops, ShapeOp{Status: ShapeStatusDeleted, Left: ls, LeftIndex: li, RightIndex: -1})
		}
	}
	for ri, rs := range right.Shapes {
		if rightRemaining[ri] {
			ops = append(ops, ShapeOp{Status: ShapeStatusInserted, Right: rs, LeftIndex: -1, RightIndex: ri})
		}
	}

	return ops
}

// shapeFuzzyScore is pass 4's fallback scorer: type must match
// (else 0); +0.2 baseline; +0.3 if both axes are within
// positionTolerance (or +0.1 within 5×); +0.5 if picture hashes or text
// bodies are equal, else +0.5×Levenshtein-normalized text similarity when
// either side carries text, else +0.5 if contentHash matches.
func shapeFuzzyScore(ls, rs *ShapeSignature, st settings.Settings) float64 {
	if ls.Kind != rs.Kind {
		return 0
	}
	score := 0.2

	dx, dy := absInt64(ls.X-rs.X), absInt64(ls.Y-rs.Y)
	tol := st.PositionTolerance
	switch {
	case dx <= tol && dy <= tol:
		score += 0.3
	case dx <= 5*tol && dy <= 5*tol:
		score += 0.1
	}

	switch {
	case ls.Kind == ShapePicture && rs.Kind == ShapePicture && ls.ImageHash == rs.ImageHash:
		score += 0.5
	case ls.Text != "" && ls.Text == rs.Text:
		score += 0.5
	case ls.Text != "" || rs.Text != "":
		score += 0.5 * levenshteinSimilarity(ls.Text, rs.Text)
	case ls.ContentHash == rs.ContentHash:
		score += 0.5
	}

	return score
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
