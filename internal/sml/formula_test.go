package sml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormulasEqual(t *testing.T) {
	cases := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"identical", "=A1+B1", "=A1+B1", true},
		{"whitespace insensitive", "=A1+B1", "=A1 + B1", true},
		{"leading equals optional", "A1+B1", "=A1+B1", true},
		{"different operator", "=A1+B1", "=A1-B1", false},
		{"different reference", "=A1+B1", "=A2+B1", false},
		{"function call spacing", "=SUM(A1:A5)", "=SUM( A1 : A5 )", true},
		{"both empty", "", "", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.equal, formulasEqual(c.a, c.b))
		})
	}
}
