package wml

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oxmlredline/compare/pkg/xmlnode"
)

func newRef(local, attr, value string) *xmlnode.Node {
	n := xmlnode.NewElement(wNS, local)
	n.Set(relNS, attr, value)
	return n
}

func TestDropOrphanReferences_RemovesUnknownIDs(t *testing.T) {
	root := xmlnode.NewElement(wNS, "body")
	keep := newRef("hyperlink", "id", "rId1")
	drop := newRef("blip", "embed", "rId99")
	root.Children = []*xmlnode.Node{keep, drop}

	dropOrphanReferences(root, map[string]bool{"rId1": true})

	assert.Len(t, root.Children, 1)
	assert.Equal(t, "hyperlink", root.Children[0].Local())
}

func TestDropOrphanReferences_RemovesNestedOrphan(t *testing.T) {
	root := xmlnode.NewElement(wNS, "p")
	run := xmlnode.NewElement(wNS, "r")
	drawing := xmlnode.NewElement(wNS, "drawing")
	drawing.Children = []*xmlnode.Node{newRef("blip", "embed", "rId7")}
	run.Children = []*xmlnode.Node{drawing}
	root.Children = []*xmlnode.Node{run}

	dropOrphanReferences(root, map[string]bool{})

	require := assert.New(t)
	require.Len(root.Children, 1)
	require.Len(root.Children[0].Children, 1)
	require.Empty(root.Children[0].Children[0].Children, "the orphaned blip must be pruned out of drawing")
}

func TestDropOrphanReferences_NilRootIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		dropOrphanReferences(nil, map[string]bool{})
	})
}

func TestRelReference_PrefersIDOverEmbed(t *testing.T) {
	n := xmlnode.NewElement(wNS, "hyperlink")
	n.Set(relNS, "id", "rId1")
	n.Set(relNS, "embed", "rId2")

	v, ok := relReference(n)
	assert.True(t, ok)
	assert.Equal(t, "rId1", v)
}

func TestRelReference_NoReference(t *testing.T) {
	n := xmlnode.NewElement(wNS, "t")
	_, ok := relReference(n)
	assert.False(t, ok)
}

// TestFixUpRevisionIds_ContiguousAcrossRoots exercises the invariant that
// revision ids are unique and form a contiguous range starting at 1
// across every root passed together (document, footnotes, endnotes).
func TestFixUpRevisionIds_ContiguousAcrossRoots(t *testing.T) {
	doc := xmlnode.NewElement(wNS, "body")
	ins1 := xmlnode.NewElement(wNS, "ins")
	ins1.Set("", "id", "999")
	del1 := xmlnode.NewElement(wNS, "del")
	del1.Set("", "id", "5")
	doc.Children = []*xmlnode.Node{ins1, del1}

	footnotes := xmlnode.NewElement(wNS, "footnotes")
	ins2 := xmlnode.NewElement(wNS, "ins")
	ins2.Set("", "id", "1")
	footnotes.Children = []*xmlnode.Node{ins2}

	fixUpRevisionIds(doc, footnotes, nil)

	var ids []string
	for _, root := range []*xmlnode.Node{doc, footnotes} {
		xmlnode.Walk(root, func(n *xmlnode.Node) bool {
			if n.Kind == xmlnode.Element && revisionElementNames[n.Local()] {
				id, _ := n.Get("id")
				ids = append(ids, id)
			}
			return true
		})
	}
	assert.ElementsMatch(t, []string{"1", "2", "3"}, ids)
}

func TestFixUpRevisionIds_NilRootsSkipped(t *testing.T) {
	assert.NotPanics(t, func() {
		fixUpRevisionIds(nil, nil, nil)
	})
}
