package city

import (
	"strings"

	"github.com/Veraticus/tally/internal/textnorm"
)

// boilerplate holds statement tokens that carry no description value once a
// city is known. They are matched case-sensitively so ordinary words such as
// "by" survive.
var boilerplate = map[string]struct{}{
	"BY": {}, "BLR": {}, "RB": {}, "РБ": {},
	"RUS": {}, "RU": {}, "RF": {}, "РФ": {},
	"POS": {}, "ATM": {},
}

func isBoilerplate(word string) bool {
	_, ok := boilerplate[word]
	return ok
}

// Clean removes every whole-word occurrence of the matched fragment from
// description along with the marker in front of it and boilerplate tokens.
// The remaining words keep the separator that followed them.
func Clean(description string, m Match) string {
	spans := textnorm.Words(description)
	if len(spans) == 0 {
		return ""
	}

	words := make([]string, len(spans))
	for i, sp := range spans {
		words[i] = textnorm.Fold(description[sp.Start:sp.End])
	}
	fragment := foldedWords(m.Fragment)
	marker := foldedWords(m.Marker)

	removed := make([]bool, len(spans))
	for i := 0; i+len(fragment) <= len(words) && len(fragment) > 0; i++ {
		if !equalWords(words[i:i+len(fragment)], fragment) {
			continue
		}
		for j := i; j < i+len(fragment); j++ {
			removed[j] = true
		}
		if n := len(marker); n > 0 && i >= n && equalWords(words[i-n:i], marker) {
			for j := i - n; j < i; j++ {
				removed[j] = true
			}
		}
		i += len(fragment) - 1
	}
	for i, sp := range spans {
		if isBoilerplate(description[sp.Start:sp.End]) {
			removed[i] = true
		}
	}

	var b strings.Builder
	last := -1
	for i, sp := range spans {
		if removed[i] {
			continue
		}
		if last >= 0 {
			b.WriteString(separator(description, spans, last))
		}
		b.WriteString(description[sp.Start:sp.End])
		last = i
	}
	return strings.Trim(strings.Join(strings.Fields(b.String()), " "), " ,;:/-")
}

// separator returns the text between word i and the word after it, or a
// space when that text is empty.
func separator(description string, spans []textnorm.Span, i int) string {
	end := len(description)
	if i+1 < len(spans) {
		end = spans[i+1].Start
	}
	sep := description[spans[i].End:end]
	if strings.TrimSpace(sep) == "" {
		return " "
	}
	return sep
}

func foldedWords(s string) []string {
	spans := textnorm.Words(s)
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = textnorm.Fold(s[sp.Start:sp.End])
	}
	return out
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
