package pml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordJaccardSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, wordJaccardSimilarity("Quarterly Results", "quarterly results"))
	assert.Equal(t, 0.0, wordJaccardSimilarity("Alpha", "Beta"))
	assert.InDelta(t, 0.5, wordJaccardSimilarity("Alpha Beta", "Beta Gamma"), 0.001)
	assert.Equal(t, 1.0, wordJaccardSimilarity("", ""))
}

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, levenshteinSimilarity("same text", "same text"))
	assert.Equal(t, 1.0, levenshteinSimilarity("", ""))
	assert.InDelta(t, 0.8, levenshteinSimilarity("hello", "hallo"), 0.01)
	assert.Less(t, levenshteinSimilarity("completely different", "nothing alike at all"), 0.5)
}
