package sml

import (
	"context"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/settings"
)

// Compare compares two .xlsx packages and returns the rendered output
// package bytes plus the structured change set. ctx is checked once
// canonicalization finishes so a long comparison can still be cancelled
// before the (typically far more expensive) diff and markup passes run,
// mirroring wml.Compare's cancellation point.
func Compare(ctx context.Context, left, right *opc.Package, st settings.Settings) ([]byte, *changeset.ChangeSet, error) {
	if err := st.Validate(); err != nil {
		return nil, nil, err
	}

	leftSig, err := Canonicalize(left)
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "sml.Compare")
	}
	rightSig, err := Canonicalize(right)
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "sml.Compare")
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.Cancelled, "sml.Compare")
	}

	cs := &changeset.ChangeSet{}
	cellChanges := Diff(leftSig, rightSig, st, cs)

	data, err := Render(right, rightSig, cellChanges, cs, st)
	if err != nil {
		return nil, nil, rlerrors.Wrap(err, rlerrors.Internal, "sml.Compare")
	}
	return data, cs, nil
}
