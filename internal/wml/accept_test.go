package wml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/settings"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

func TestAcceptPriorRevisions_UnwrapsInsAndDropsDel(t *testing.T) {
	p := xmlnode.NewElement(wNS, "p")
	ins := xmlnode.NewElement(wNS, "ins")
	insRun := xmlnode.NewElement(wNS, "r")
	ins.Children = []*xmlnode.Node{insRun}
	del := xmlnode.NewElement(wNS, "del")
	delRun := xmlnode.NewElement(wNS, "r")
	del.Children = []*xmlnode.Node{delRun}
	p.Children = []*xmlnode.Node{ins, del}

	out := acceptPriorRevisions(p)

	require.Len(t, out.Children, 1, "ins should unwrap to its bare run, del should disappear entirely")
	assert.Equal(t, "r", out.Children[0].Local())
}

func TestAcceptPriorRevisions_StripsRsidAttrs(t *testing.T) {
	p := xmlnode.NewElement(wNS, "p")
	p.Set("", "rsidR", "00AB1234")
	p.Set("", "paraId", "1A2B3C4D")
	p.Set("", "keepMe", "yes")

	out := acceptPriorRevisions(p)

	_, hasRsid := out.Get("rsidR")
	_, hasParaID := out.Get("paraId")
	v, hasKeep := out.Get("keepMe")
	assert.False(t, hasRsid)
	assert.False(t, hasParaID)
	assert.True(t, hasKeep)
	assert.Equal(t, "yes", v)
}

func TestAcceptPriorRevisions_DropsRowMarkedDeleted(t *testing.T) {
	tbl := xmlnode.NewElement(wNS, "tbl")
	keptRow := xmlnode.NewElement(wNS, "tr")
	deletedRow := xmlnode.NewElement(wNS, "tr")
	trPr := xmlnode.NewElement(wNS, "trPr")
	trPr.Children = []*xmlnode.Node{xmlnode.NewElement(wNS, "del")}
	deletedRow.Children = []*xmlnode.Node{trPr}
	tbl.Children = []*xmlnode.Node{keptRow, deletedRow}

	out := acceptPriorRevisions(tbl)

	require.Len(t, out.Children, 1, "the row marked deleted via trPr/del must not survive acceptance")
	assert.Empty(t, out.Children[0].Children, "the surviving row had no trPr/del of its own")
}

func TestAcceptPriorRevisions_DoesNotMutateInput(t *testing.T) {
	p := xmlnode.NewElement(wNS, "p")
	p.Children = []*xmlnode.Node{xmlnode.NewElement(wNS, "del")}

	_ = acceptPriorRevisions(p)

	assert.Len(t, p.Children, 1, "the original tree must be untouched")
}

// TestCompare_AcceptRoundTrip is the accept/reject round-trip property
// from spec.md §8: comparing the accepted output of Compare(A, B) against
// B again should record no further changes.
func TestCompare_AcceptRoundTrip(t *testing.T) {
	left := buildDocxFixture(t, wrapDocument(`<w:p><w:r><w:t>The quick brown fox</w:t></w:r></w:p>`))
	right := buildDocxFixture(t, wrapDocument(`<w:p><w:r><w:t>The slow brown fox</w:t></w:r></w:p>`))

	data, _, err := Compare(context.Background(), left, right, settings.Defaults())
	require.NoError(t, err)

	merged, err := opc.Open(data)
	require.NoError(t, err)

	_, cs, err := Compare(context.Background(), merged, right, settings.Defaults())
	require.NoError(t, err)
	assert.True(t, cs.IsEmpty(), "accepting the rendered revisions and comparing again against the newer side must yield no changes")
}
