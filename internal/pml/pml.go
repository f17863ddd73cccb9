// Package pml implements the PresentationML comparer: canonicalization of
// slides and shapes, four-pass slide matching, four-pass shape matching,
// diffing of matched shapes, and overlay-based markup — grounded on
// Vantagics-GoPPT/VantageDataChat-GoPPT's shape/presentation model, the
// PML-shaped teacher retrieved alongside mmonterroca-docxgo, generalized
// from a presentation *builder* to a presentation *comparer*.
package pml

const (
	aNS  = "http://schemas.openxmlformats.org/drawingml/2006/main"
	pNS  = "http://schemas.openxmlformats.org/presentationml/2006/main"
	relN = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	presentationPartURI = "/ppt/presentation.xml"

	slideRelType       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	slideLayoutRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	notesSlideRelType  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	imageRelType       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	chartRelType       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart"

	slideContentType      = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	notesSlideContentType = "application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"
)
