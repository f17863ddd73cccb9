package wml

import (
	"github.com/oxmlredline/compare/internal/xmlio"
	"github.com/oxmlredline/compare/pkg/hashutil"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// UnitKind tags a comparison unit collected by canonicalize.
type UnitKind int

const (
	UnitParagraph UnitKind = iota
	UnitTableRow
)

// Unit is one comparison unit: a top-level paragraph or table row,
// collected in document order from the body, then each non-separator
// footnote, then each non-separator endnote.
type Unit struct {
	Kind UnitKind
	Node *xmlnode.Node
	Hash hashutil.Digest

	// Source distinguishes which part this unit came from, for revision
	// renumbering and footnote/endnote-specific handling downstream.
	Source SourceKind
	// SourceID is the footnote/endnote id when Source != SourceBody.
	SourceID string
}

type SourceKind int

const (
	SourceBody SourceKind = iota
	SourceFootnote
	SourceEndnote
)

// canonicalize collects the ordered unit sequence for one document: the
// document body part, plus every non-separator footnote and endnote.
func canonicalize(pkg *opc.Package, bodyXML, footnotesXML, endnotesXML *xmlnode.Node) []Unit {
	var units []Unit

	if bodyXML != nil {
		bodyEl := xmlnode.Find(bodyXML, func(n *xmlnode.Node) bool {
			return n.Kind == xmlnode.Element && n.Local() == "body"
		})
		if bodyEl != nil {
			units = append(units, collectUnits(bodyEl, SourceBody, "")...)
		}
	}
	if footnotesXML != nil {
		for _, fn := range footnotesXML.ChildrenByLocal("footnote") {
			if isSeparatorNote(fn) {
				continue
			}
			id, _ := fn.Get("id")
			units = append(units, collectUnits(fn, SourceFootnote, id)...)
		}
	}
	if endnotesXML != nil {
		for _, en := range endnotesXML.ChildrenByLocal("endnote") {
			if isSeparatorNote(en) {
				continue
			}
			id, _ := en.Get("id")
			units = append(units, collectUnits(en, SourceEndnote, id)...)
		}
	}
	return units
}

func isSeparatorNote(n *xmlnode.Node) bool {
	t, ok := n.Get("type")
	return ok && (t == "separator" || t == "continuationSeparator")
}

// collectUnits walks direct children of container looking for top-level
// w:p and w:tbl>w:tr units. Paragraphs nested inside a w:txbxContent are
// excluded (collected only when we recurse into a textbox's own
// w:txbxContent call stack, which we never do for the top-level pass),
// and AlternateContent prefers Fallback over Choice.
func collectUnits(container *xmlnode.Node, src SourceKind, srcID string) []Unit {
	var units []Unit
	for _, c := range container.Children {
		if c.Kind != xmlnode.Element {
			continue
		}
		switch c.Local() {
		case "p":
			resolved := resolveAlternateContent(c)
			units = append(units, Unit{
				Kind:   UnitParagraph,
				Node:   resolved,
				Hash:   hashUnit(resolved),
				Source: src, SourceID: srcID,
			})
		case "tbl":
			for _, row := range c.ChildrenByLocal("tr") {
				resolved := resolveAlternateContent(row)
				units = append(units, Unit{
					Kind:   UnitTableRow,
					Node:   resolved,
					Hash:   hashUnit(resolved),
					Source: src, SourceID: srcID,
				})
			}
		case "sdt":
			if content := c.FirstChildByLocal("sdtContent"); content != nil {
				units = append(units, collectUnits(content, src, srcID)...)
			}
		}
	}
	return units
}

// resolveAlternateContent returns a copy of n with every mc:AlternateContent
// descendant replaced by its Fallback child (or Choice if no Fallback is
// present) — deliberately non-standard relative to how OOXML producers
// are meant to be read (a reader should normally prefer the first
// recognized mc:Choice), but preserved verbatim as a known source
// behavior rather than "fixed".
func resolveAlternateContent(n *xmlnode.Node) *xmlnode.Node {
	clone := n.Clone()
	replaceAlternateContent(clone)
	return clone
}

func replaceAlternateContent(n *xmlnode.Node) {
	var rebuilt []*xmlnode.Node
	for _, c := range n.Children {
		if c.Kind == xmlnode.Element && c.Local() == "AlternateContent" {
			replacement := preferredAlternate(c)
			if replacement != nil {
				replaceAlternateContent(replacement)
				rebuilt = append(rebuilt, replacement.Children...)
			}
			continue
		}
		replaceAlternateContent(c)
		rebuilt = append(rebuilt, c)
	}
	n.Children = rebuilt
}

func preferredAlternate(ac *xmlnode.Node) *xmlnode.Node {
	if fb := ac.FirstChildByLocal("Fallback"); fb != nil {
		return fb
	}
	return ac.FirstChildByLocal("Choice")
}

// hashUnit hashes the unit's full serialized content (not just its text),
// so that a formatting-only change still yields a distinct content hash —
// the LCS pass below then pairs it with its prior revision as a
// modification. The word-level diff in renderModification then finds no
// text insertions or deletions and hands off to
// appendFormattingChangeIfAny, which records a run- or paragraph-level
// formatting-only revision instead.
func hashUnit(n *xmlnode.Node) hashutil.Digest {
	if data, err := xmlio.Serialize(n); err == nil {
		return hashutil.Sum(data)
	}
	return hashutil.SumString(n.Text())
}
