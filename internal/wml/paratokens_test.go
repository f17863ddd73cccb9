package wml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/pkg/xmlnode"
)

const drawingMLNS = "http://schemas.openxmlformats.org/drawingml/2006/main"

func blipDrawing(embedID string) *xmlnode.Node {
	drawing := xmlnode.NewElement(wNS, "drawing")
	blip := xmlnode.NewElement(drawingMLNS, "blip")
	blip.Set(relNS, "embed", embedID)
	drawing.AppendChild(blip)
	return drawing
}

func TestStructuralToken_ResolvesImageBytesOverXMLShape(t *testing.T) {
	pkg := buildDocxFixture(t, wrapDocument(`<w:p/>`))
	imageType := "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	relA := pkg.AddRelationship(documentPartURI, imageType, "media/image1.png", false)
	pkg.SetPart("/word/media/image1.png", []byte("same-bytes"), "image/png")
	relB := pkg.AddRelationship(documentPartURI, imageType, "media/image2.png", false)
	pkg.SetPart("/word/media/image2.png", []byte("same-bytes"), "image/png")

	res := imageResolver{pkg: pkg, partURI: documentPartURI}

	// Two drawing elements with different XML (different relationship id,
	// different decorativeTag attribute) but the identical underlying image
	// bytes must hash equal.
	drawingA := blipDrawing(relA)
	drawingA.Set("", "decorativeTag", "left-version")
	drawingB := blipDrawing(relB)
	drawingB.Set("", "decorativeTag", "right-version")

	tokA := structuralToken("DRAWING", drawingA, nil, res)
	tokB := structuralToken("DRAWING", drawingB, nil, res)
	assert.Equal(t, tokA.Text, tokB.Text, "identical image bytes behind different drawing XML must produce the same token")
}

func TestStructuralToken_DifferentImageBytesDiffer(t *testing.T) {
	pkg := buildDocxFixture(t, wrapDocument(`<w:p/>`))
	imageType := "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	relA := pkg.AddRelationship(documentPartURI, imageType, "media/image1.png", false)
	pkg.SetPart("/word/media/image1.png", []byte("bytes-one"), "image/png")
	relB := pkg.AddRelationship(documentPartURI, imageType, "media/image2.png", false)
	pkg.SetPart("/word/media/image2.png", []byte("bytes-two"), "image/png")

	res := imageResolver{pkg: pkg, partURI: documentPartURI}

	tokA := structuralToken("DRAWING", blipDrawing(relA), nil, res)
	tokB := structuralToken("DRAWING", blipDrawing(relB), nil, res)
	assert.NotEqual(t, tokA.Text, tokB.Text)
}

func TestStructuralToken_FallsBackToXMLHashWhenUnresolvable(t *testing.T) {
	pkg := buildDocxFixture(t, wrapDocument(`<w:p/>`))
	res := imageResolver{pkg: pkg, partURI: documentPartURI}

	// No relationship named "rIdMissing" exists, so this must fall back
	// to hashing the drawing XML rather than panicking or hashing empty.
	drawing := blipDrawing("rIdMissing")
	tok := structuralToken("DRAWING", drawing, nil, res)
	assert.Contains(t, tok.Text, "DRAWING_")
	assert.NotEmpty(t, tok.Text)
}

func TestFindEmbedID_LegacyVMLImageData(t *testing.T) {
	pict := xmlnode.NewElement(wNS, "pict")
	shape := xmlnode.NewElement(wNS, "shape")
	imagedata := xmlnode.NewElement(wNS, "imagedata")
	imagedata.Set(relNS, "id", "rId5")
	shape.AppendChild(imagedata)
	pict.AppendChild(shape)

	id, ok := findEmbedID(pict)
	require.True(t, ok)
	assert.Equal(t, "rId5", id)
}

func TestFindEmbedID_NoReference(t *testing.T) {
	drawing := xmlnode.NewElement(wNS, "drawing")
	_, ok := findEmbedID(drawing)
	assert.False(t, ok)
}

func TestImageResolver_ZeroValueMisses(t *testing.T) {
	var res imageResolver
	_, ok := res.resolve("rId1")
	assert.False(t, ok)
}
