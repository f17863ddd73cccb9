// Package settings defines the comparer settings surface: every
// recognized option, its documented default, and the validation step
// that must run before any comparison work begins (an InvalidSetting
// error is fatal and observed before any comparison work starts).
//
// The shape — a plain struct of named, documented fields with a single
// Validate method — follows mmonterroca-docxgo's options.go convention of
// a validated options value object, generalized from a document-builder's
// option set to a comparer's.
package settings

import (
	"time"

	"github.com/oxmlredline/compare/pkg/emu"
	"github.com/oxmlredline/compare/pkg/rlerrors"
)

// Settings holds every tunable recognized by any of the three comparers.
// A zero-value Settings is invalid (Author and DateTime need filling in,
// in practice via Defaults()); call Defaults() to get the documented
// defaults, then override individual fields.
type Settings struct {
	// --- WML ---

	// Author is the revision author recorded on WML output.
	Author string
	// DateTime is the revision timestamp recorded on WML output.
	DateTime time.Time
	// DetailThreshold is validated to lie in [0,1] but is not passed to
	// the LCS engine by any comparer, so it does not affect alignment.
	DetailThreshold float64

	// --- SML ---

	CompareValues       bool
	CompareFormulas      bool
	CompareFormatting    bool
	CompareComments      bool
	CompareDataValidations bool
	CompareMergedCells   bool
	CompareHyperlinks    bool
	EnableRowAlignment   bool
	EnableColumnAlignment bool
	SheetRenameSimilarityThreshold float64

	// CompareRowColumnSizing is an SML facet that is off by default,
	// since logical content takes priority over layout fidelity.
	CompareRowColumnSizing bool

	// --- PML ---

	CompareSlideStructure  bool
	CompareShapeStructure  bool
	CompareTextContent     bool
	CompareTextFormatting  bool
	CompareShapeTransforms bool
	CompareImageContent    bool
	CompareCharts          bool
	CompareTables          bool

	CompareNotes       bool
	CompareTransitions bool
	CompareShapeStyles bool

	EnableFuzzyShapeMatching bool
	UseSlideAlignmentLCS     bool
	SlideSimilarityThreshold float64
	ShapeSimilarityThreshold float64

	// PositionTolerance is in EMUs; default 0.1 inch.
	PositionTolerance int64

	AddSummarySlide    bool
	AddNotesAnnotations bool

	InsertedColor    string
	DeletedColor     string
	ModifiedColor    string
	MovedColor       string
	FormattingColor  string
}

// Defaults returns the recognized settings table with every documented
// default applied.
func Defaults() Settings {
	return Settings{
		Author:          "redline",
		DateTime:        time.Now().UTC(),
		DetailThreshold: 0,

		CompareValues:          true,
		CompareFormulas:        true,
		CompareFormatting:      true,
		CompareComments:        true,
		CompareDataValidations: true,
		CompareMergedCells:     true,
		CompareHyperlinks:      true,
		EnableRowAlignment:     true,
		EnableColumnAlignment:  true,
		SheetRenameSimilarityThreshold: 0.5,
		CompareRowColumnSizing: false,

		CompareSlideStructure:  true,
		CompareShapeStructure:  true,
		CompareTextContent:     true,
		CompareTextFormatting:  true,
		CompareShapeTransforms: true,
		CompareImageContent:    true,
		CompareCharts:          true,
		CompareTables:          true,

		CompareNotes:       false,
		CompareTransitions: false,
		CompareShapeStyles: false,

		EnableFuzzyShapeMatching: true,
		UseSlideAlignmentLCS:     true,
		SlideSimilarityThreshold: 0.4,
		ShapeSimilarityThreshold: 0.7,
		PositionTolerance:        emu.DefaultPositionTolerance,

		AddSummarySlide:     true,
		AddNotesAnnotations: true,

		InsertedColor:   "#C6EFCE",
		DeletedColor:    "#FFC7CE",
		ModifiedColor:   "#FFEB9C",
		MovedColor:      "#BDD7EE",
		FormattingColor: "#E4DFEC",
	}
}

// Validate checks every numeric threshold and tolerance, returning an
// rlerrors.InvalidSetting error describing the first problem found, or
// nil if the settings are well-formed. This check must run — and fail
// fast — before any comparison work begins.
func (s Settings) Validate() error {
	if err := checkUnit("DetailThreshold", s.DetailThreshold); err != nil {
		return err
	}
	if err := checkUnit("SheetRenameSimilarityThreshold", s.SheetRenameSimilarityThreshold); err != nil {
		return err
	}
	if err := checkUnit("SlideSimilarityThreshold", s.SlideSimilarityThreshold); err != nil {
		return err
	}
	if err := checkUnit("ShapeSimilarityThreshold", s.ShapeSimilarityThreshold); err != nil {
		return err
	}
	if s.PositionTolerance < 0 {
		return rlerrors.New(rlerrors.InvalidSetting, "settings.Validate", "PositionTolerance must not be negative, got %d", s.PositionTolerance)
	}
	if s.Author == "" {
		return rlerrors.New(rlerrors.InvalidSetting, "settings.Validate", "Author must not be empty")
	}
	return nil
}

func checkUnit(name string, v float64) error {
	if v < 0 || v > 1 {
		return rlerrors.New(rlerrors.InvalidSetting, "settings.Validate", "%s must be in [0,1], got %v", name, v)
	}
	return nil
}
