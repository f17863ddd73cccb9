package wml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_RenderRoundTrip(t *testing.T) {
	cases := []string{
		"The quick brown fox",
		"12,34",
		"Test.",
		"  leading and trailing  ",
		"",
		"word-with-hyphen",
		"multiple   spaces   between",
		"\ttab\nseparated\n",
	}
	for _, c := range cases {
		toks := tokenize(c)
		assert.Equal(t, c, render(toks), "round trip for %q", c)
	}
}

func TestTokenize_SplitsWordAndPunctuation(t *testing.T) {
	toks := tokenize("12,34")
	var texts []string
	for _, tk := range toks {
		texts = append(texts, tk.Text)
	}
	assert.Equal(t, []string{"12", ",", "34"}, texts)
}

func TestTokenize_PreservesLeadingSpace(t *testing.T) {
	toks := tokenize("a  b")
	assert.Len(t, toks, 2)
	assert.Equal(t, "a", toks[0].Text)
	assert.Equal(t, "", toks[0].LeadSpace)
	assert.Equal(t, "b", toks[1].Text)
	assert.Equal(t, "  ", toks[1].LeadSpace)
}

func TestJaccardSimilarity_IdenticalIsOne(t *testing.T) {
	a := tokenize("the quick brown fox")
	b := tokenize("the quick brown fox")
	assert.Equal(t, 1.0, jaccardSimilarity(a, b))
}

func TestJaccardSimilarity_DisjointIsZero(t *testing.T) {
	a := tokenize("alpha beta")
	b := tokenize("gamma delta")
	assert.Equal(t, 0.0, jaccardSimilarity(a, b))
}

func TestJaccardSimilarity_EmptyBothIsOne(t *testing.T) {
	assert.Equal(t, 1.0, jaccardSimilarity(nil, nil))
}

func TestJaccardSimilarity_PartialOverlap(t *testing.T) {
	a := tokenize("the quick brown fox")
	b := tokenize("the slow brown fox")
	// shared: the, brown, fox (3); union: the, quick, brown, fox, slow (5)
	assert.InDelta(t, 3.0/5.0, jaccardSimilarity(a, b), 0.0001)
}
