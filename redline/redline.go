// Package redline is the public surface of the comparer: one entry point
// per OOXML document kind, plus Compare, which detects the kind and
// dispatches to the matching one; each is a pure function from two
// package byte slices and a settings value to a rendered output package
// plus a structured change set.
package redline

import (
	"context"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/internal/pml"
	"github.com/oxmlredline/compare/internal/sml"
	"github.com/oxmlredline/compare/internal/wml"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/settings"
)

// DocumentKind identifies which OOXML comparer a package pair needs.
type DocumentKind int

const (
	KindUnknown DocumentKind = iota
	KindWordprocessing
	KindSpreadsheet
	KindPresentation
)

const (
	wordMainPart         = "/word/document.xml"
	workbookMainPart     = "/xl/workbook.xml"
	presentationMainPart = "/ppt/presentation.xml"
)

// CompareWordDocuments compares two .docx packages and returns the
// redlined output package plus the structured change set.
func CompareWordDocuments(ctx context.Context, a, b []byte, st settings.Settings) ([]byte, *changeset.ChangeSet, error) {
	left, right, err := openPair(a, b)
	if err != nil {
		return nil, nil, err
	}
	return wml.Compare(ctx, left, right, st)
}

// CompareSpreadsheets compares two .xlsx packages and returns the
// redlined output package plus the structured change set.
func CompareSpreadsheets(ctx context.Context, a, b []byte, st settings.Settings) ([]byte, *changeset.ChangeSet, error) {
	left, right, err := openPair(a, b)
	if err != nil {
		return nil, nil, err
	}
	return sml.Compare(ctx, left, right, st)
}

// ComparePresentations compares two .pptx packages and returns the
// redlined output package plus the structured change set.
func ComparePresentations(ctx context.Context, a, b []byte, st settings.Settings) ([]byte, *changeset.ChangeSet, error) {
	left, right, err := openPair(a, b)
	if err != nil {
		return nil, nil, err
	}
	return pml.Compare(ctx, left, right, st)
}

// Compare detects the document kind from the left package (the two
// inputs are assumed to be of the same kind) and dispatches to the
// matching comparer. Callers who already know the kind should call the
// specific CompareWordDocuments/CompareSpreadsheets/ComparePresentations
// entry point directly instead.
func Compare(ctx context.Context, a, b []byte, st settings.Settings) ([]byte, *changeset.ChangeSet, error) {
	left, right, err := openPair(a, b)
	if err != nil {
		return nil, nil, err
	}
	switch DetectKind(left) {
	case KindWordprocessing:
		return wml.Compare(ctx, left, right, st)
	case KindSpreadsheet:
		return sml.Compare(ctx, left, right, st)
	case KindPresentation:
		return pml.Compare(ctx, left, right, st)
	default:
		return nil, nil, rlerrors.New(rlerrors.UnsupportedContent, "redline.Compare", "package contains none of %s, %s, %s", wordMainPart, workbookMainPart, presentationMainPart)
	}
}

// DetectKind inspects a package's part list to decide which of the three
// OOXML document kinds it is, by checking for each format's main part.
func DetectKind(pkg *opc.Package) DocumentKind {
	if _, ok := pkg.GetPart(wordMainPart); ok {
		return KindWordprocessing
	}
	if _, ok := pkg.GetPart(workbookMainPart); ok {
		return KindSpreadsheet
	}
	if _, ok := pkg.GetPart(presentationMainPart); ok {
		return KindPresentation
	}
	return KindUnknown
}

func openPair(a, b []byte) (*opc.Package, *opc.Package, error) {
	left, err := opc.Open(a)
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "redline.Open")
	}
	right, err := opc.Open(b)
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "redline.Open")
	}
	return left, right, nil
}
