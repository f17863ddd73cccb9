package sml

import (
	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/lcs"
	"github.com/oxmlredline/compare/pkg/settings"
)

// SheetStatus tags one outcome of sheet matching.
type SheetStatus int

const (
	SheetEqual SheetStatus = iota
	SheetRenamed
	SheetDeleted
	SheetInserted
)

// SheetOp is one aligned outcome of matchSheets.
type SheetOp struct {
	Status    SheetStatus
	LeftName  string
	RightName string
}

// matchSheets aligns two workbooks' sheet lists in three passes:
// (1) exact name match, (2) full content-hash match (renames),
// (3) fuzzy row-LCS similarity above SheetRenameSimilarityThreshold.
// Remaining left sheets are deletions, remaining right sheets insertions.
func matchSheets(left, right *WorkbookSignature, st settings.Settings) []SheetOp {
	leftRemaining := make(map[string]bool, len(left.Sheets))
	for _, s := range left.Sheets {
		leftRemaining[s.Name] = true
	}
	rightRemaining := make(map[string]bool, len(right.Sheets))
	for _, s := range right.Sheets {
		rightRemaining[s.Name] = true
	}

	var ops []SheetOp

	// Pass 1: exact name match.
	for _, ls := range left.Sheets {
		if !leftRemaining[ls.Name] {
			continue
		}
		if rightRemaining[ls.Name] {
			ops = append(ops, SheetOp{Status: SheetEqual, LeftName: ls.Name, RightName: ls.Name})
			delete(leftRemaining, ls.Name)
			delete(rightRemaining, ls.Name)
		}
	}

	// Pass 2: full content-hash match (rename detection).
	for _, ls := range left.Sheets {
		if !leftRemaining[ls.Name] {
			continue
		}
		lh := sheetContentHash(left.Worksheets[ls.Name])
		var best string
		for _, rs := range right.Sheets {
			if !rightRemaining[rs.Name] {
				continue
			}
			if sheetContentHash(right.Worksheets[rs.Name]) == lh {
				best = rs.Name
				break
			}
		}
		if best != "" {
			ops = append(ops, SheetOp{Status: SheetRenamed, LeftName: ls.Name, RightName: best})
			delete(leftRemaining, ls.Name)
			delete(rightRemaining, best)
		}
	}

	// Pass 3: fuzzy row-LCS similarity.
	for _, ls := range left.Sheets {
		if !leftRemaining[ls.Name] {
			continue
		}
		bestName := ""
		bestScore := 0.0
		for _, rs := range right.Sheets {
			if !rightRemaining[rs.Name] {
				continue
			}
			score := rowLCSSimilarity(left.Worksheets[ls.Name], right.Worksheets[rs.Name])
			if score > bestScore || (score == bestScore && bestName == "") {
				bestScore, bestName = score, rs.Name
			}
		}
		if bestName != "" && bestScore >= st.SheetRenameSimilarityThreshold {
			ops = append(ops, SheetOp{Status: SheetRenamed, LeftName: ls.Name, RightName: bestName})
			delete(leftRemaining, ls.Name)
			delete(rightRemaining, bestName)
		}
	}

	for _, ls := range left.Sheets {
		if leftRemaining[ls.Name] {
			ops = append(ops, SheetOp{Status: SheetDeleted, LeftName: ls.Name})
		}
	}
	for _, rs := range right.Sheets {
		if rightRemaining[rs.Name] {
			ops = append(ops, SheetOp{Status: SheetInserted, RightName: rs.Name})
		}
	}
	return ops
}

func sheetContentHash(ws *WorksheetSignature) hashutil.Digest {
	if ws == nil {
		return hashutil.Digest{}
	}
	var digs []hashutil.Digest
	for _, r := range ws.Rows {
		digs = append(digs, ws.RowHash[r])
	}
	return hashutil.Combine(digs...)
}

// rowLCSSimilarity scores two worksheets by the fraction of rows that
// align as Equal under row-hash LCS, normalized by the longer sheet's row
// count.
func rowLCSSimilarity(a, b *WorksheetSignature) float64 {
	if a == nil || b == nil {
		return 0
	}
	leftKeys := make([]string, len(a.Rows))
	for i, r := range a.Rows {
		leftKeys[i] = a.RowHash[r].String()
	}
	rightKeys := make([]string, len(b.Rows))
	for i, r := range b.Rows {
		rightKeys[i] = b.RowHash[r].String()
	}
	segs := lcs.Align(leftKeys, rightKeys, lcs.Options[string]{})
	equalLen := lcs.LeftLength(filterEqual(segs))
	maxLen := len(leftKeys)
	if len(rightKeys) > maxLen {
		maxLen = len(rightKeys)
	}
	if maxLen == 0 {
		return 1
	}
	return float64(equalLen) / float64(maxLen)
}

func filterEqual(segs []lcs.Segment[string]) []lcs.Segment[string] {
	var out []lcs.Segment[string]
	for _, s := range segs {
		if s.Status == lcs.StatusEqual {
			out = append(out, s)
		}
	}
	return out
}
