package wml

import (
	"github.com/oxmlredline/compare/pkg/lcs"
)

// ParaStatus tags one entry of a paragraph/row alignment.
type ParaStatus int

const (
	ParaEqual ParaStatus = iota
	ParaModified
	ParaDeleted
	ParaInserted
	ParaRowGroupDeleted
	ParaRowGroupInserted
)

// ParaOp is one aligned outcome from alignUnits.
type ParaOp struct {
	Status ParaStatus
	Left   *Unit
	Right  *Unit

	// GroupCount is set for ParaRowGroupDeleted/Inserted: the number of
	// extra table rows folded into this single grouped revision instead
	// of one revision per row.
	GroupCount int
	GroupLeft  []*Unit
	GroupRight []*Unit
}

// minPairSimilarity is the threshold for similarity-based paragraph
// pairing when a Deleted/Inserted segment pair has unequal length.
const minPairSimilarity = 0.2

// alignUnits aligns two unit sequences by hash-keyed LCS, then upgrades
// adjacent Deleted/Inserted runs into paired modifications.
func alignUnits(left, right []Unit) []ParaOp {
	leftKeys := make([]string, len(left))
	for i, u := range left {
		leftKeys[i] = u.Hash.String()
	}
	rightKeys := make([]string, len(right))
	for i, u := range right {
		rightKeys[i] = u.Hash.String()
	}

	segs := lcs.Align(leftKeys, rightKeys, lcs.Options[string]{})

	var ops []ParaOp
	li, ri := 0, 0
	for _, seg := range segs {
		switch seg.Status {
		case lcs.StatusEqual:
			n := len(seg.Left)
			for k := 0; k < n; k++ {
				ops = append(ops, ParaOp{Status: ParaEqual, Left: &left[li+k], Right: &right[ri+k]})
			}
			li += n
			ri += n

		case lcs.StatusDeleted:
			// Peek: a Deleted segment immediately followed by an Inserted
			// segment is treated as a paired modification window. The
			// lcs package already merges adjacent same-status runs, so a
			// Deleted segment is followed either by nothing, an Equal
			// segment, or (logically, in the alternating D/I case the
			// recursive aligner produces) an Inserted segment represented
			// as the *next* top-level segment in this same loop. We detect
			// that by looking ahead.
			delLeft := left[li : li+len(seg.Left)]
			li += len(seg.Left)
			ops = append(ops, handleDeletedRun(delLeft, &left, &right, &li, &ri)...)

		case lcs.StatusInserted:
			insRight := right[ri : ri+len(seg.Right)]
			ri += len(seg.Right)
			for k := range insRight {
				ops = append(ops, ParaOp{Status: ParaInserted, Right: &insRight[k]})
			}
		}
	}
	return pairModifications(ops)
}

// handleDeletedRun is invoked for a Deleted run; the caller has already
// advanced li past it. Since lcs.Align interleaves D/I pairs as distinct
// top-level segments rather than a single combined segment, the actual
// pairing-with-the-next-Inserted-run logic lives in pairModifications,
// which post-processes the full op list. Here we simply emit plain
// deletions; pairModifications upgrades adjacent Deleted+Inserted runs to
// ParaModified afterward.
func handleDeletedRun(delLeft []Unit, _ *[]Unit, _ *[]Unit, _ *int, _ *int) []ParaOp {
	ops := make([]ParaOp, len(delLeft))
	for k := range delLeft {
		ops[k] = ParaOp{Status: ParaDeleted, Left: &delLeft[k]}
	}
	return ops
}

// pairModifications post-processes an alignment, turning a contiguous run
// of ParaDeleted immediately followed by ParaInserted into modifications
// (equal length: positional pairing and recursion into word diff;
// unequal length: similarity-based pairing at >= 0.2 Jaccard, with
// leftovers remaining pure deletions/insertions). Table-row-only windows
// are grouped into a single insertion/deletion rather than one per row.
func pairModifications(ops []ParaOp) []ParaOp {
	var out []ParaOp
	i := 0
	for i < len(ops) {
		if ops[i].Status != ParaDeleted {
			out = append(out, ops[i])
			i++
			continue
		}
		j := i
		for j < len(ops) && ops[j].Status == ParaDeleted {
			j++
		}
		delRun := ops[i:j]
		k := j
		for k < len(ops) && ops[k].Status == ParaInserted {
			k++
		}
		insRun := ops[j:k]

		if len(insRun) == 0 {
			out = append(out, delRun...)
			i = j
			continue
		}

		out = append(out, pairDeletedInsertedRun(delRun, insRun)...)
		i = k
	}
	return out
}

func pairDeletedInsertedRun(delRun, insRun []ParaOp) []ParaOp {
	if allTableRows(delRun) && allTableRows(insRun) {
		return pairTableRowRun(delRun, insRun)
	}

	if len(delRun) == len(insRun) {
		out := make([]ParaOp, len(delRun))
		for i := range delRun {
			out[i] = ParaOp{Status: ParaModified, Left: delRun[i].Left, Right: insRun[i].Right}
		}
		return out
	}

	return similarityPair(delRun, insRun)
}

func allTableRows(ops []ParaOp) bool {
	for _, o := range ops {
		u := o.Left
		if u == nil {
			u = o.Right
		}
		if u == nil || u.Kind != UnitTableRow {
			return false
		}
	}
	return len(ops) > 0
}

// pairTableRowRun positionally pairs rows, grouping any excess rows on
// the longer side into a single grouped insertion/deletion revision.
func pairTableRowRun(delRun, insRun []ParaOp) []ParaOp {
	n := len(delRun)
	if len(insRun) < n {
		n = len(insRun)
	}
	var out []ParaOp
	for i := 0; i < n; i++ {
		out = append(out, ParaOp{Status: ParaModified, Left: delRun[i].Left, Right: insRun[i].Right})
	}
	if len(delRun) > n {
		extra := delRun[n:]
		group := ParaOp{Status: ParaRowGroupDeleted, GroupCount: len(extra)}
		for _, o := range extra {
			group.GroupLeft = append(group.GroupLeft, o.Left)
		}
		out = append(out, group)
	}
	if len(insRun) > n {
		extra := insRun[n:]
		group := ParaOp{Status: ParaRowGroupInserted, GroupCount: len(extra)}
		for _, o := range extra {
			group.GroupRight = append(group.GroupRight, o.Right)
		}
		out = append(out, group)
	}
	return out
}

// similarityPair performs best-pair matching at >= 0.2 Jaccard-like word
// overlap. Greedy best-first: repeatedly pick the highest-similarity
// remaining pair until none clears the threshold, then emit leftovers as
// pure deletions/insertions.
func similarityPair(delRun, insRun []ParaOp) []ParaOp {
	usedLeft := make([]bool, len(delRun))
	usedRight := make([]bool, len(insRun))

	type pair struct {
		li, ri int
		score  float64
	}
	var candidates []pair
	for li, d := range delRun {
		lt := tokenize(d.Left.Node.Text())
		for ri, ins := range insRun {
			rt := tokenize(ins.Right.Node.Text())
			score := jaccardSimilarity(lt, rt)
			if score >= minPairSimilarity {
				candidates = append(candidates, pair{li, ri, score})
			}
		}
	}
	// Stable selection by descending score, then by li, then ri for
	// determinism (no sort package needed for this bounded greedy pick —
	// a simple repeated-max scan keeps the tie-break explicit).
	var out []ParaOp
	for {
		bestIdx := -1
		for idx, c := range candidates {
			if usedLeft[c.li] || usedRight[c.ri] {
				continue
			}
			if bestIdx == -1 {
				bestIdx = idx
				continue
			}
			b := candidates[bestIdx]
			if c.score > b.score || (c.score == b.score && (c.li < b.li || (c.li == b.li && c.ri < b.ri))) {
				bestIdx = idx
			}
		}
		if bestIdx == -1 {
			break
		}
		c := candidates[bestIdx]
		usedLeft[c.li] = true
		usedRight[c.ri] = true
		out = append(out, ParaOp{Status: ParaModified, Left: delRun[c.li].Left, Right: insRun[c.ri].Right})
	}
	for li, used := range usedLeft {
		if !used {
			out = append(out, delRun[li])
		}
	}
	for ri, used := range usedRight {
		if !used {
			out = append(out, insRun[ri])
		}
	}
	return out
}
