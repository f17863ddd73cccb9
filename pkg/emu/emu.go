// Package emu converts between the measurement units OOXML uses for
// geometry: English Metric Units (PresentationML positions/sizes),
// twips (WordprocessingML page/paragraph measurements), and points
// (font sizes). The constants mirror mmonterroca-docxgo's
// pkg/constants package and Vantagics-GoPPT's measurement.go.
package emu

const (
	// PerInch is the number of EMUs in one inch.
	PerInch = 914400

	// PerPoint is the number of EMUs in one point (1/72 inch).
	PerPoint = PerInch / 72

	// PerTwip is the number of EMUs in one twip (1/1440 inch).
	PerTwip = PerInch / 1440

	// TwipsPerInch is the number of twips in one inch.
	TwipsPerInch = 1440

	// TwipsPerPoint is the number of twips in one point.
	TwipsPerPoint = 20
)

// FromTwips converts a twip measurement to EMUs.
func FromTwips(twips int64) int64 { return twips * PerTwip }

// ToTwips converts an EMU measurement to twips, truncating.
func ToTwips(v int64) int64 { return v / PerTwip }

// FromPoints converts a point measurement to EMUs.
func FromPoints(points float64) int64 { return int64(points * PerPoint) }

// ToPoints converts an EMU measurement to points.
func ToPoints(v int64) float64 { return float64(v) / PerPoint }

// FromInches converts inches to EMUs.
func FromInches(inches float64) int64 { return int64(inches * PerInch) }

// ToInches converts EMUs to inches.
func ToInches(v int64) float64 { return float64(v) / PerInch }

// DefaultPositionTolerance is the default PML settings.PositionTolerance:
// 0.1 inch, expressed in EMUs.
const DefaultPositionTolerance = PerInch / 10
