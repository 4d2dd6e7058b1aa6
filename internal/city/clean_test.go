package city

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name        string
		description string
		match       Match
		want        string
	}{
		{
			name:        "trailing segment",
			description: "BY COFFEEBAR, MINSK",
			match:       Match{Fragment: "MINSK"},
			want:        "COFFEEBAR",
		},
		{
			name:        "marker and separators",
			description: "кафе, г. Минск, ул. Ленина",
			match:       Match{Fragment: "Минск", Marker: "г."},
			want:        "кафе, ул. Ленина",
		},
		{
			name:        "every occurrence",
			description: "MINSK Minsk minsk shop",
			match:       Match{Fragment: "Minsk"},
			want:        "shop",
		},
		{
			name:        "whole words only",
			description: "MINSKAVTO, MINSK",
			match:       Match{Fragment: "MINSK"},
			want:        "MINSKAVTO",
		},
		{
			name:        "multi word fragment",
			description: "Dinner St. Petersburg center",
			match:       Match{Fragment: "St. Petersburg"},
			want:        "Dinner center",
		},
		{
			name:        "boilerplate is case sensitive",
			description: "Paid by card POS MINSK BY",
			match:       Match{Fragment: "MINSK"},
			want:        "Paid by card",
		},
		{
			name:        "nothing left",
			description: "г. Минск",
			match:       Match{Fragment: "Минск", Marker: "г."},
			want:        "",
		},
		{
			name:        "no words",
			description: " ,, ",
			match:       Match{Fragment: "Минск"},
			want:        "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.description, tt.match))
		})
	}
}

func TestUppercaseTailMatcher(t *testing.T) {
	m := UppercaseTailMatcher()

	match, ok := m.Match("CAFE MINSK BY 1234")
	assert.True(t, ok)
	assert.Equal(t, "MINSK", match.Fragment)
	assert.Equal(t, "CAFE MINSK BY 1234"[match.Start:match.End], "MINSK")

	_, ok = m.Match("Coffee 12")
	assert.False(t, ok)
	_, ok = m.Match("CAFE OK")
	assert.False(t, ok)

	match, ok = m.Match("ОПЛАТА ГОМЕЛЬ")
	assert.True(t, ok)
	assert.Equal(t, "ГОМЕЛЬ", match.Fragment)
}

func TestRegexMatcher(t *testing.T) {
	_, err := NewRegexMatcher(`(`, 1, 0)
	assert.Error(t, err)
	_, err = NewRegexMatcher(`abc`, 1, 0)
	assert.Error(t, err)

	match, ok := prefixMarkerMatcher.Match("Оплата г.Минск")
	assert.True(t, ok)
	assert.Equal(t, "Минск", match.Fragment)
	assert.Equal(t, "г.", match.Marker)

	_, ok = prefixMarkerMatcher.Match("Магазин Гомель")
	assert.False(t, ok)

	_, ok = prefixMarkerMatcher.Match("счет от 03.2024 г. Покупка")
	assert.False(t, ok)

	match, ok = MustRegexMatcher(`(\p{Lu}+)`, 1, 0).NotAfter(`X\s*$`).Match("X AAA BBB")
	assert.True(t, ok)
	assert.Equal(t, "X", match.Fragment)
	match, ok = MustRegexMatcher(`\s(\p{Lu}+)`, 1, 0).NotAfter(`^X\s*$`).Match("X AAA BBB")
	assert.True(t, ok)
	assert.Equal(t, "BBB", match.Fragment)

	match, ok = countryCityMatcher.Match("SHOP MINSK BLR")
	assert.True(t, ok)
	assert.Equal(t, "MINSK", match.Fragment)

	_, ok = countryCityMatcher.Match("paid by")
	assert.False(t, ok)

	match, ok = suffixCommaMatcher.Match("a, b, Saint Petersburg.")
	assert.True(t, ok)
	assert.Equal(t, "Saint Petersburg", match.Fragment)
}
