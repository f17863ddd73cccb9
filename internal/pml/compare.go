package pml

import (
	"context"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/settings"
)

// Compare compares two .pptx packages and returns the rendered output
// package bytes plus the structured change set.
func Compare(ctx context.Context, left, right *opc.Package, st settings.Settings) ([]byte, *changeset.ChangeSet, error) {
	if err := st.Validate(); err != nil {
		return nil, nil, err
	}

	leftSig, err := Canonicalize(left)
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "pml.Compare")
	}
	rightSig, err := Canonicalize(right)
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "pml.Compare")
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.Cancelled, "pml.Compare")
	}

	cs := &changeset.ChangeSet{}
	shapeChanges := Diff(leftSig, rightSig, st, cs)

	data, err := Render(right, rightSig, shapeChanges, cs, st)
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.Internal, "pml.Compare")
	}
	return data, cs, nil
}
