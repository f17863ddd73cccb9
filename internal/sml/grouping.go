package sml

import (
	"sort"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/cellref"
)

// GroupedChange is one change-list entry after adjacent-cell collapsing.
type GroupedChange struct {
	Kind      changeset.Kind
	Sheet     string
	Col       int
	CellRange string
	Count     int
	OldValue  string
	NewValue  string
}

// GroupChanges collapses adjacent cells in the same sheet and column,
// with the same change kind and consecutive row indices, into one
// change-list item. Collapsing never changes the multiset of per-cell
// changes — only their presentation (the grouping-monotonicity
// invariant).
func GroupChanges(changes []CellChange) []GroupedChange {
	byKey := make(map[string][]CellChange)
	var order []string
	for _, c := range changes {
		key := c.Sheet + "|" + string(c.Kind) + "|" + itoa(c.Col)
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], c)
	}

	var out []GroupedChange
	for _, key := range order {
		group := byKey[key]
		sort.Slice(group, func(i, j int) bool { return group[i].Row < group[j].Row })

		i := 0
		for i < len(group) {
			j := i + 1
			for j < len(group) && group[j].Row == group[j-1].Row+1 {
				j++
			}
			run := group[i:j]
			out = append(out, GroupedChange{
				Kind:      run[0].Kind,
				Sheet:     run[0].Sheet,
				Col:       run[0].Col,
				CellRange: rangeLabel(run[0].Col, run[0].Row, run[len(run)-1].Row),
				Count:     len(run),
				OldValue:  run[0].OldValue,
				NewValue:  run[len(run)-1].NewValue,
			})
			i = j
		}
	}
	return out
}

// rangeLabel formats the cellRange label as "Col<start>:Col<end>", where
// start/end are the collapsed run's first and last row numbers in the
// (fixed) column this group belongs to.
func rangeLabel(col, startRow, endRow int) string {
	if startRow == endRow {
		return cellref.Address(startRow, col)
	}
	return "Col" + itoa(startRow) + ":Col" + itoa(endRow)
}
