package city

import "github.com/Veraticus/tally/internal/synonym"

// Pattern IDs of the default set, usable as PatternWeights keys.
const (
	PatternPrefixMarker = "city-prefix-marker"
	PatternCountryCity  = "country-city"
	PatternSuffixComma  = "city-suffix-comma"
	PatternKnownCity    = "known-city-word"
	PatternUpperTail    = "uppercase-tail"
)

// cityWord matches one city word, hyphenated parts included.
const cityWord = `\p{L}[\p{L}\p{M}]*(?:-\p{L}[\p{L}\p{M}]*)*`

var (
	// "12.05.2023 г." is a year, not a city marker.
	prefixMarkerMatcher = MustRegexMatcher(
		`(?i)(?:^|[^\p{L}\p{N}])((?:город|gorod|г|g)(?:\.\s*|\s+))(`+cityWord+`)`, 2, 1).
		NotAfter(`\p{N}\s*$`)
	countryCityMatcher = MustRegexMatcher(
		`(`+cityWord+`)[\s,]+(?:BY|BLR|RB|РБ|RUS|RU|RF|РФ)[^\p{L}\p{N}]*$`, 1, 0)
	suffixCommaMatcher = MustRegexMatcher(
		`,\s*(`+cityWord+`(?:\s+`+cityWord+`){0,2})[\s.]*$`, 1, 0)
)

// DefaultPatterns returns the built-in patterns in priority order. registry
// backs the known-city-word pattern.
func DefaultPatterns(registry *synonym.Registry) []Pattern {
	return []Pattern{
		{
			ID:          PatternPrefixMarker,
			Label:       "City marker",
			Description: `City introduced by a marker: "г. Минск", "город Минск", "g. Minsk"`,
			Matcher:     prefixMarkerMatcher,
			Confidence:  0.9,
		},
		{
			ID:          PatternCountryCity,
			Label:       "City before country code",
			Description: `City right before a trailing country code: "... MINSK BY", "... MINSK BLR"`,
			Matcher:     countryCityMatcher,
			Confidence:  0.7,
		},
		{
			ID:          PatternSuffixComma,
			Label:       "Trailing comma segment",
			Description: `Last comma-separated segment when it is letters only: "..., MINSK"`,
			Matcher:     suffixCommaMatcher,
			Confidence:  0.6,
		},
		{
			ID:          PatternKnownCity,
			Label:       "Known city",
			Description: "Any word or phrase that is a known city or city alias",
			Matcher:     KnownCityMatcher(registry),
			Confidence:  0.5,
		},
		{
			ID:          PatternUpperTail,
			Label:       "Upper-case tail",
			Description: "Last all-caps word of a statement line",
			Matcher:     UppercaseTailMatcher(),
			Confidence:  0.3,
		},
	}
}
