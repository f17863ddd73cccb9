package sml

import (
	"strings"

	"github.com/xuri/efp"
)

// formulasEqual compares two formulas for tokenized equality rather than
// raw text equality: "=A1+B1" and "=A1 + B1" parse to the same token
// stream and so are not spuriously flagged as FormulaChanged. Parsing is
// done with github.com/xuri/efp, the Excel Formula Parser retrieved
// alongside Beakyn-excelize.
func formulasEqual(a, b string) bool {
	if a == b {
		return true
	}
	ta := formulaTokens(a)
	tb := formulaTokens(b)
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		if ta[i] != tb[i] {
			return false
		}
	}
	return true
}

// formulaTokens parses a formula string into its significant token
// values, with pure-whitespace tokens dropped so spacing differences
// never affect equality. A range written with spaces around its colon
// ("A1 : A5") parses into separate tokens, which are rejoined so it
// matches the unspaced form.
func formulaTokens(formula string) []string {
	formula = strings.TrimPrefix(strings.TrimSpace(formula), "=")
	if formula == "" {
		return nil
	}
	ps := efp.ExcelParser()
	toks := ps.Parse(formula)
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		v := strings.TrimSpace(t.TValue)
		if v == "" {
			continue
		}
		if n := len(out); n > 0 && (strings.HasPrefix(v, ":") || strings.HasSuffix(out[n-1], ":")) {
			out[n-1] += v
			continue
		}
		out = append(out, v)
	}
	return out
}
