package redline

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxmlredline/compare/pkg/opc"
)

const minimalContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="xml" ContentType="application/xml"/>
</Types>`

func buildFixturePackage(t *testing.T, mainPart string) *opc.Package {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	ct, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(minimalContentTypes))
	require.NoError(t, err)

	if mainPart != "" {
		f, err := zw.Create(mainPart[1:])
		require.NoError(t, err)
		_, err = f.Write([]byte("<root/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	pkg, err := opc.Open(buf.Bytes())
	require.NoError(t, err)
	return pkg
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindWordprocessing, DetectKind(buildFixturePackage(t, wordMainPart)))
	assert.Equal(t, KindSpreadsheet, DetectKind(buildFixturePackage(t, workbookMainPart)))
	assert.Equal(t, KindPresentation, DetectKind(buildFixturePackage(t, presentationMainPart)))
	assert.Equal(t, KindUnknown, DetectKind(buildFixturePackage(t, "")))
}
