package wml

import (
	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// noteRenumberPlan resolves the footnote/endnote renumber policy: the
// newer (right-hand) side's notes keep their relative order and are
// renumbered first; notes that exist only on the left (i.e. were
// deleted) are appended afterward with fresh ids continuing the
// sequence, so no information is lost and no id collides.
type noteRenumberPlan struct {
	// order is the final note element sequence, in output order.
	order []*xmlnode.Node
	// remap maps "L<oldid>" / "R<oldid>" to the final renumbered id.
	remap map[string]string
}

func planNoteRenumber(leftNotes, rightNotes *xmlnode.Node, container string) noteRenumberPlan {
	plan := noteRenumberPlan{remap: make(map[string]string)}
	if rightNotes == nil && leftNotes == nil {
		return plan
	}

	rightByHash := map[hashutil.Digest]*xmlnode.Node{}
	if rightNotes != nil {
		for _, n := range rightNotes.ChildrenByLocal(container) {
			if isSeparatorNote(n) {
				continue
			}
			rightByHash[hashNote(n)] = n
		}
	}

	nextID := 1
	if rightNotes != nil {
		for _, n := range rightNotes.ChildrenByLocal(container) {
			if isSeparatorNote(n) {
				continue
			}
			oldID, _ := n.Get("id")
			newID := uintToStr(uint64(nextID))
			plan.remap["R"+oldID] = newID
			clone := n.Clone()
			clone.Set("", "id", newID)
			plan.order = append(plan.order, clone)
			nextID++
		}
	}

	if leftNotes != nil {
		for _, n := range leftNotes.ChildrenByLocal(container) {
			if isSeparatorNote(n) {
				continue
			}
			if _, survives := rightByHash[hashNote(n)]; survives {
				continue
			}
			oldID, _ := n.Get("id")
			newID := uintToStr(uint64(nextID))
			plan.remap["L"+oldID] = newID
			clone := n.Clone()
			clone.Set("", "id", newID)
			plan.order = append(plan.order, clone)
			nextID++
		}
	}
	return plan
}

func hashNote(n *xmlnode.Node) hashutil.Digest {
	return hashutil.SumString(n.Text())
}

// rewriteNoteReferences walks body (already-built output) and rewrites
// every footnoteReference/endnoteReference id attribute per plan.remap,
// preferring the right-hand mapping (a reference surviving from the
// newer document) and falling back to the left-hand mapping (a reference
// that only ever pointed at left-only content, e.g. inside a deleted
// paragraph kept for del markup).
func rewriteNoteReferences(body *xmlnode.Node, local string, plan noteRenumberPlan) {
	xmlnode.Walk(body, func(n *xmlnode.Node) bool {
		if n.Kind != xmlnode.Element || n.Local() != local {
			return true
		}
		oldID, ok := n.Get("id")
		if !ok {
			return true
		}
		if newID, found := plan.remap["R"+oldID]; found {
			n.Set("", "id", newID)
		} else if newID, found := plan.remap["L"+oldID]; found {
			n.Set("", "id", newID)
		}
		return true
	})
}
