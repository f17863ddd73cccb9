package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/redline"
)

func TestKindName(t *testing.T) {
	assert.Equal(t, "wordprocessing", kindName(redline.KindWordprocessing))
	assert.Equal(t, "spreadsheet", kindName(redline.KindSpreadsheet))
	assert.Equal(t, "presentation", kindName(redline.KindPresentation))
	assert.Equal(t, "unknown", kindName(redline.KindUnknown))
}

func TestRunUnknownCommand(t *testing.T) {
	assert.Equal(t, exitInvalidInput, run([]string{"bogus"}))
	assert.Equal(t, exitInvalidInput, run(nil))
}

func TestRunMissingFile(t *testing.T) {
	assert.Equal(t, exitInvalidInput, run([]string{"info", "/nonexistent/path.pptx"}))
}

func TestPrintChangeSummaryEmpty(t *testing.T) {
	cs := &changeset.ChangeSet{}
	assert.True(t, cs.IsEmpty())
	printChangeSummary(cs)
}
