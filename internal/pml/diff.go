package pml

import (
	"fmt"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/settings"
)

// ShapeChange records one matched-shape outcome that markup.go overlays;
// Kinds records every changeset.Change emitted for this shape pair so the
// renderer can label the overlay without re-deriving what changed.
type ShapeChange struct {
	SlideIndex int
	Left       *ShapeSignature
	Right      *ShapeSignature
	Kinds      []changeset.Kind
}

// Diff compares two canonicalized presentations, appending every change
// to cs in slide-then-shape document order, and returns the per-shape
// changes markup.go needs to place overlays.
func Diff(left, right *PresentationSignature, st settings.Settings, cs *changeset.ChangeSet) []ShapeChange {
	if st.CompareSlideStructure && (left.SlideWidth != right.SlideWidth || left.SlideHeight != right.SlideHeight) {
		cs.Add(changeset.Change{
			Kind:     changeset.KindSlideSizeChanged,
			OldValue: fmt.Sprintf("%dx%d", left.SlideWidth, left.SlideHeight),
			NewValue: fmt.Sprintf("%dx%d", right.SlideWidth, right.SlideHeight),
		})
	}

	ops := matchSlides(left, right, st)

	var shapeChanges []ShapeChange
	for _, op := range ops {
		switch op.Status {
		case SlideDeleted:
			cs.Add(changeset.Change{
				Kind:     changeset.KindSlideDeleted,
				Location: changeset.Location{SlideIndex: op.LeftIndex},
			})
		case SlideInserted:
			cs.Add(changeset.Change{
				Kind:     changeset.KindSlideInserted,
				Location: changeset.Location{SlideIndex: op.RightIndex},
			})
		case SlideMatched:
			if op.Moved {
				cs.Add(changeset.Change{
					Kind:     changeset.KindSlideMoved,
					Location: changeset.Location{SlideIndex: op.RightIndex},
					OldValue: fmt.Sprintf("%d", op.LeftIndex),
					NewValue: fmt.Sprintf("%d", op.RightIndex),
				})
			}
			shapeChanges = append(shapeChanges, diffSlide(left.SlideSig[op.LeftTarget], right.SlideSig[op.RightTarget], op.RightIndex, st, cs)...)
		}
	}
	return shapeChanges
}

func diffSlide(left, right *SlideSignature, slideIndex int, st settings.Settings, cs *changeset.ChangeSet) []ShapeChange {
	if left == nil || right == nil {
		return nil
	}

	if st.CompareSlideStructure && left.LayoutType != right.LayoutType {
		cs.Add(changeset.Change{
			Kind:     changeset.KindSlideLayoutChanged,
			Location: changeset.Location{SlideIndex: slideIndex},
			OldValue: left.LayoutType,
			NewValue: right.LayoutType,
		})
	}
	if st.CompareSlideStructure && left.BackgroundHash != right.BackgroundHash {
		cs.Add(changeset.Change{
			Kind:     changeset.KindSlideBackgroundChanged,
			Location: changeset.Location{SlideIndex: slideIndex},
		})
	}
	if st.CompareNotes && left.NotesText != right.NotesText {
		cs.Add(changeset.Change{
			Kind:     changeset.KindSlideNotesChanged,
			Location: changeset.Location{SlideIndex: slideIndex},
			OldValue: left.NotesText,
			NewValue: right.NotesText,
		})
	}

	if !st.CompareShapeStructure {
		return nil
	}

	var out []ShapeChange
	for _, op := range matchShapes(left, right, st) {
		switch op.Status {
		case ShapeStatusDeleted:
			loc := changeset.Location{SlideIndex: slideIndex, ShapeID: op.Left.ID}
			cs.Add(changeset.Change{Kind: changeset.KindShapeDeleted, Location: loc, Name: op.Left.Name})
			out = append(out, ShapeChange{SlideIndex: slideIndex, Left: op.Left, Kinds: []changeset.Kind{changeset.KindShapeDeleted}})
		case ShapeStatusInserted:
			loc := changeset.Location{SlideIndex: slideIndex, ShapeID: op.Right.ID}
			cs.Add(changeset.Change{Kind: changeset.KindShapeAdded, Location: loc, Name: op.Right.Name})
			out = append(out, ShapeChange{SlideIndex: slideIndex, Right: op.Right, Kinds: []changeset.Kind{changeset.KindShapeAdded}})
		case ShapeStatusMatched:
			if kinds := diffMatchedShape(op.Left, op.Right, slideIndex, st, cs); len(kinds) > 0 {
				out = append(out, ShapeChange{SlideIndex: slideIndex, Left: op.Left, Right: op.Right, Kinds: kinds})
			}
		}
	}
	return out
}

// diffMatchedShape compares one matched shape pair's geometry, z-order,
// text, and picture/table/chart content, and returns every Kind it
// appended, for markup.go's label.
func diffMatchedShape(ls, rs *ShapeSignature, slideIndex int, st settings.Settings, cs *changeset.ChangeSet) []changeset.Kind {
	loc := changeset.Location{SlideIndex: slideIndex, ShapeID: rs.ID}
	var kinds []changeset.Kind
	add := func(c changeset.Change) {
		c.Location = loc
		cs.Add(c)
		kinds = append(kinds, c.Kind)
	}

	if st.CompareShapeTransforms {
		tol := st.PositionTolerance
		if absInt64(ls.X-rs.X) > tol || absInt64(ls.Y-rs.Y) > tol {
			add(changeset.Change{
				Kind:     changeset.KindShapeMoved,
				Name:     rs.Name,
				OldValue: fmt.Sprintf("%d,%d", ls.X, ls.Y),
				NewValue: fmt.Sprintf("%d,%d", rs.X, rs.Y),
			})
		}
		if absInt64(ls.CX-rs.CX) > tol || absInt64(ls.CY-rs.CY) > tol {
			add(changeset.Change{
				Kind:     changeset.KindShapeResized,
				Name:     rs.Name,
				OldValue: fmt.Sprintf("%dx%d", ls.CX, ls.CY),
				NewValue: fmt.Sprintf("%dx%d", rs.CX, rs.CY),
			})
		}
		if ls.Rotation != rs.Rotation {
			add(changeset.Change{
				Kind:     changeset.KindShapeRotated,
				Name:     rs.Name,
				OldValue: fmt.Sprintf("%d", ls.Rotation),
				NewValue: fmt.Sprintf("%d", rs.Rotation),
			})
		}
		if ls.ZOrder != rs.ZOrder {
			add(changeset.Change{
				Kind:     changeset.KindShapeZOrderChanged,
				Name:     rs.Name,
				OldValue: fmt.Sprintf("%d", ls.ZOrder),
				NewValue: fmt.Sprintf("%d", rs.ZOrder),
			})
		}
	}

	switch rs.Kind {
	case ShapeTextBox, ShapeAutoShape:
		if st.CompareTextContent && ls.Text != rs.Text {
			add(changeset.Change{Kind: changeset.KindTextChanged, Name: rs.Name, OldValue: ls.Text, NewValue: rs.Text})
		} else if st.CompareTextFormatting && ls.TextFormatHash != rs.TextFormatHash {
			add(changeset.Change{Kind: changeset.KindTextFormattingChanged, Name: rs.Name})
		}
	case ShapePicture:
		if st.CompareImageContent && ls.ImageHash != rs.ImageHash {
			add(changeset.Change{Kind: changeset.KindImageReplaced, Name: rs.Name})
		}
	case ShapeTable:
		if st.CompareTables && ls.TableHash != rs.TableHash {
			add(changeset.Change{Kind: changeset.KindTableContentChanged, Name: rs.Name})
		}
	case ShapeChart:
		if st.CompareCharts && ls.ChartHash != rs.ChartHash {
			add(changeset.Change{Kind: changeset.KindChartDataChanged, Name: rs.Name})
		}
	}

	return kinds
}
