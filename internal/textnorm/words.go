package textnorm

import "unicode/utf8"

// Span is the byte range of a word in its source string.
type Span struct {
	Start int
	End   int
}

// Words returns the spans of the words in s in order. A word is a run of
// letters, digits and marks; a hyphen between two word runes joins them.
func Words(s string) []Span {
	var (
		spans []Span
		start = -1
	)
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if r == '-' && start >= 0 {
			next, _ := utf8.DecodeRuneInString(s[i+1:])
			if i+1 < len(s) && isWordRune(next) {
				continue
			}
		}
		if start >= 0 {
			spans = append(spans, Span{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{Start: start, End: len(s)})
	}
	return spans
}

// WordKey folds the words of s and joins them with single spaces, so that
// "St.Petersburg" and "st  petersburg" share a key.
func WordKey(s string) string {
	spans := Words(s)
	if len(spans) == 0 {
		return ""
	}
	key := make([]byte, 0, len(s))
	for i, sp := range spans {
		if i > 0 {
			key = append(key, ' ')
		}
		key = append(key, Fold(s[sp.Start:sp.End])...)
	}
	return string(key)
}
