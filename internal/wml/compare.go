package wml

import (
	"context"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/settings"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

const (
	documentPartURI  = "/word/document.xml"
	footnotesPartURI = "/word/footnotes.xml"
	endnotesPartURI  = "/word/endnotes.xml"
)

// Compare compares two .docx packages and returns the rendered output
// package bytes plus the structured change set. ctx is checked once,
// after both documents are canonicalized and before alignment; it is not
// checked during alignment, diffing or rendering.
func Compare(ctx context.Context, left, right *opc.Package, st settings.Settings) ([]byte, *changeset.ChangeSet, error) {
	if err := st.Validate(); err != nil {
		return nil, nil, err
	}

	leftDoc, err := loadPartXML(left, documentPartURI)
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "wml.Compare")
	}
	rightDoc, err := loadPartXML(right, documentPartURI)
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "wml.Compare")
	}

	leftFootnotes, _ := loadPartXML(left, footnotesPartURI)
	rightFootnotes, _ := loadPartXML(right, footnotesPartURI)
	leftEndnotes, _ := loadPartXML(left, endnotesPartURI)
	rightEndnotes, _ := loadPartXML(right, endnotesPartURI)

	acceptedLeft := acceptPriorRevisions(leftDoc)
	acceptedRight := acceptPriorRevisions(rightDoc)
	var acceptedLeftFN, acceptedRightFN, acceptedLeftEN, acceptedRightEN *xmlnode.Node
	if leftFootnotes != nil {
		acceptedLeftFN = acceptPriorRevisions(leftFootnotes)
	}
	if rightFootnotes != nil {
		acceptedRightFN = acceptPriorRevisions(rightFootnotes)
	}
	if leftEndnotes != nil {
		acceptedLeftEN = acceptPriorRevisions(leftEndnotes)
	}
	if rightEndnotes != nil {
		acceptedRightEN = acceptPriorRevisions(rightEndnotes)
	}

	leftUnits := canonicalize(left, acceptedLeft, acceptedLeftFN, acceptedLeftEN)
	rightUnits := canonicalize(right, acceptedRight, acceptedRightFN, acceptedRightEN)

	if err := ctx.Err(); err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.Cancelled, "wml.Compare")
	}

	ops := alignUnits(leftUnits, rightUnits)

	cs := &changeset.ChangeSet{}
	alloc := opc.NewIDAllocator()
	bodyChildren := buildOutput(ops, left, right, st, alloc, cs)

	outPkg := right.Clone()
	outDocRoot := rightDoc.Clone()
	bodyEl := xmlnode.Find(outDocRoot, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "body"
	})
	if bodyEl == nil {
		return nil, nil, rlerrors.New(rlerrors.MalformedPackage, "wml.Compare", "no w:body element in document.xml")
	}

	sectPr := bodyEl.FirstChildByLocal("sectPr")
	bodyEl.Children = bodyChildren
	if sectPr != nil {
		bodyEl.AppendChild(sectPr)
	}

	footnotePlan := planNoteRenumber(acceptedLeftFN, acceptedRightFN, "footnote")
	endnotePlan := planNoteRenumber(acceptedLeftEN, acceptedRightEN, "endnote")
	rewriteNoteReferences(outDocRoot, "footnoteReference", footnotePlan)
	rewriteNoteReferences(outDocRoot, "endnoteReference", endnotePlan)

	var outFootnotes, outEndnotes *xmlnode.Node
	if rightFootnotes != nil || leftFootnotes != nil {
		outFootnotes = rightFootnotes.Clone()
		outFootnotes.Children = nil
		for _, n := range footnotePlan.order {
			outFootnotes.AppendChild(n)
		}
	}
	if rightEndnotes != nil || leftEndnotes != nil {
		outEndnotes = rightEndnotes.Clone()
		outEndnotes.Children = nil
		for _, n := range endnotePlan.order {
			outEndnotes.AppendChild(n)
		}
	}

	fixUpRevisionIds(outDocRoot, outFootnotes, outEndnotes)

	dropOrphanReferences(outDocRoot, relationshipIDSet(outPkg, documentPartURI))
	if outFootnotes != nil {
		dropOrphanReferences(outFootnotes, relationshipIDSet(outPkg, footnotesPartURI))
	}
	if outEndnotes != nil {
		dropOrphanReferences(outEndnotes, relationshipIDSet(outPkg, endnotesPartURI))
	}

	if err := writeBackParts(outPkg, outDocRoot, outFootnotes, outEndnotes); err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.Internal, "wml.Compare")
	}

	data, err := outPkg.Save()
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.Internal, "wml.Compare")
	}
	return data, cs, nil
}

func loadPartXML(pkg *opc.Package, uri string) (*xmlnode.Node, error) {
	n, ok, err := pkg.GetPartAsXML(uri)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return n, nil
}

// partURIForSource maps a unit's originating part back to its URI, so
// drawing/picture equality (structuralToken) can resolve r:embed against
// the relationships owned by the correct part rather than always the
// main document.
func partURIForSource(src SourceKind) string {
	switch src {
	case SourceFootnote:
		return footnotesPartURI
	case SourceEndnote:
		return endnotesPartURI
	default:
		return documentPartURI
	}
}

func relationshipIDSet(pkg *opc.Package, ownerURI string) map[string]bool {
	out := make(map[string]bool)
	for _, r := range pkg.GetRelationships(ownerURI) {
		out[r.ID] = true
	}
	return out
}

const (
	documentContentType  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	footnotesContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.footnotes+xml"
	endnotesContentType  = "application/vnd.openxmlformats-officedocument.wordprocessingml.endnotes+xml"
)

func writeBackParts(pkg *opc.Package, doc, footnotes, endnotes *xmlnode.Node) error {
	if err := pkg.SetPartXML(documentPartURI, doc, documentContentType); err != nil {
		return err
	}
	if footnotes != nil {
		if err := pkg.SetPartXML(footnotesPartURI, footnotes, footnotesContentType); err != nil {
			return err
		}
	}
	if endnotes != nil {
		if err := pkg.SetPartXML(endnotesPartURI, endnotes, endnotesContentType); err != nil {
			return err
		}
	}
	return nil
}
