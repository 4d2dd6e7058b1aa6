// Package city extracts the city a transaction happened in from free-text
// expense descriptions using ordered, confidence-weighted patterns.
package city

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Veraticus/tally/internal/synonym"
	"github.com/Veraticus/tally/internal/textnorm"
)

// Match is the fragment a matcher found in a description.
type Match struct {
	// Fragment is the raw candidate text as it appears in the description.
	Fragment string
	// Marker is the text that introduced the fragment, such as "г.". It is
	// stripped together with the fragment on cleanup.
	Marker string
	Start  int
	End    int
}

// Matcher finds at most one candidate fragment in a description.
type Matcher interface {
	Match(description string) (Match, bool)
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(description string) (Match, bool)

// Match calls f.
func (f MatcherFunc) Match(description string) (Match, bool) {
	return f(description)
}

// Pattern is a named extraction rule.
type Pattern struct {
	Matcher     Matcher
	ID          string
	Label       string
	Description string
	Confidence  float64 // Base confidence when the pattern matches (0.0-1.0)
}

// RegexMatcher extracts a capture group from the first regex match.
type RegexMatcher struct {
	re          *regexp.Regexp
	notAfter    *regexp.Regexp
	group       int
	markerGroup int
}

// NewRegexMatcher compiles expr. group selects the capture holding the city;
// markerGroup selects an optional marker capture and is ignored when zero.
func NewRegexMatcher(expr string, group, markerGroup int) (*RegexMatcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", expr, err)
	}
	if group < 1 || group > re.NumSubexp() || markerGroup > re.NumSubexp() {
		return nil, fmt.Errorf("pattern %q has %d groups, cannot use group %d", expr, re.NumSubexp(), group)
	}
	return &RegexMatcher{re: re, group: group, markerGroup: markerGroup}, nil
}

// MustRegexMatcher is like NewRegexMatcher but panics on error. It is meant
// for package-level pattern tables.
func MustRegexMatcher(expr string, group, markerGroup int) *RegexMatcher {
	m, err := NewRegexMatcher(expr, group, markerGroup)
	if err != nil {
		panic(err)
	}
	return m
}

// NotAfter makes the matcher skip a match when the text before it (before
// the marker, when there is one) matches expr. It returns m and panics on an
// invalid expr.
func (m *RegexMatcher) NotAfter(expr string) *RegexMatcher {
	m.notAfter = regexp.MustCompile(expr)
	return m
}

// Match implements Matcher.
func (m *RegexMatcher) Match(description string) (Match, bool) {
	for _, loc := range m.re.FindAllStringSubmatchIndex(description, -1) {
		if loc[2*m.group] < 0 {
			continue
		}
		if m.notAfter != nil && m.notAfter.MatchString(description[:m.startOf(loc)]) {
			continue
		}
		return m.build(description, loc), true
	}
	return Match{}, false
}

func (m *RegexMatcher) startOf(loc []int) int {
	if m.markerGroup > 0 && loc[2*m.markerGroup] >= 0 {
		return loc[2*m.markerGroup]
	}
	return loc[2*m.group]
}

func (m *RegexMatcher) build(description string, loc []int) Match {
	match := Match{
		Start:    loc[2*m.group],
		End:      loc[2*m.group+1],
		Fragment: description[loc[2*m.group]:loc[2*m.group+1]],
	}
	if m.markerGroup > 0 && loc[2*m.markerGroup] >= 0 {
		match.Marker = strings.TrimSpace(description[loc[2*m.markerGroup]:loc[2*m.markerGroup+1]])
	}
	return match
}

// maxCityWords bounds the phrase length KnownCityMatcher tries.
const maxCityWords = 3

// KnownCityMatcher returns a matcher that finds the leftmost word or phrase of
// up to three words that the registry knows. Longer phrases win at the same
// position.
func KnownCityMatcher(registry *synonym.Registry) Matcher {
	return MatcherFunc(func(description string) (Match, bool) {
		if registry == nil {
			return Match{}, false
		}
		spans := textnorm.Words(description)
		for i := range spans {
			for n := min(maxCityWords, len(spans)-i); n > 0; n-- {
				frag := description[spans[i].Start:spans[i+n-1].End]
				if _, ok := resolve(registry, frag); ok {
					return Match{Fragment: frag, Start: spans[i].Start, End: spans[i+n-1].End}, true
				}
			}
		}
		return Match{}, false
	})
}

// UppercaseTailMatcher returns a matcher for the last word of a statement line
// when that word is alphabetic, all upper case and at least three letters
// long. Boilerplate codes and numbers at the tail are skipped.
func UppercaseTailMatcher() Matcher {
	return MatcherFunc(func(description string) (Match, bool) {
		spans := textnorm.Words(description)
		for i := len(spans) - 1; i >= 0; i-- {
			word := description[spans[i].Start:spans[i].End]
			if isBoilerplate(word) || hasDigit(word) {
				continue
			}
			if !isUpperWord(word) {
				return Match{}, false
			}
			return Match{Fragment: word, Start: spans[i].Start, End: spans[i].End}, true
		}
		return Match{}, false
	})
}

func isUpperWord(word string) bool {
	letters := 0
	for _, r := range word {
		switch {
		case r == '-':
		case unicode.IsLetter(r) && !unicode.IsLower(r):
			letters++
		default:
			return false
		}
	}
	return letters >= 3
}

func hasDigit(word string) bool {
	return strings.IndexFunc(word, unicode.IsDigit) >= 0
}

// resolve looks a fragment up as written first, then by its word key.
func resolve(registry *synonym.Registry, fragment string) (synonym.Entity, bool) {
	if entity, ok := registry.Resolve(fragment); ok {
		return entity, true
	}
	return registry.Resolve(textnorm.WordKey(fragment))
}
