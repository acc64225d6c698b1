package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuotes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`ООО «Ромашка»`, `ООО "Ромашка"`},
		{"ООО ‘Ромашка’", `ООО "Ромашка"`},
		{"ООО `Ромашка'", `ООО "Ромашка"`},
		{"<ООО> “Ромашка”", `"ООО" "Ромашка"`},
		{"no quotes", "no quotes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQuotes(tt.in), tt.in)
	}
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, `ООО "Ромашка"`, CollapseSpaces(`  ООО   "Ромашка" `))
}

func TestStripCarriageToken(t *testing.T) {
	assert.Equal(t, "ООО Ромашка", StripCarriageToken("ООО_x000D_ Ромашка"))
}

func TestPrepareSentence(t *testing.T) {
	assert.Equal(t, `ООО "Ромашка"`, PrepareSentence("ООО_x000D_  «Ромашка» "))
}

func TestDigitRuns(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"ИНН 7816734305, ОГРН 1147847332628", []string{"7816734305", "1147847332628"}},
		{"no digits here", nil},
		{"781118914402", []string{"781118914402"}},
		{"a1b22c", []string{"1", "22"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DigitRuns(tt.in), tt.in)
	}
}
