package city

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/synonym"
	"github.com/Veraticus/tally/internal/textnorm"
)

func testRegistry(t *testing.T) *synonym.Registry {
	t.Helper()
	seed, err := synonym.DefaultSeed()
	require.NoError(t, err)
	return seed.CityRegistry()
}

func TestExtract_CoffeebarScenario(t *testing.T) {
	registry := synonym.NewRegistry()
	registry.AddCanonical("Минск")
	registry.Register("Минск", "Minsk")
	extractor := NewDefaultExtractor(registry)

	opts := Options{SynonymBoost: 0.2, CleanResult: true}
	res := extractor.Extract("BY COFFEEBAR, MINSK", opts)

	assert.Equal(t, "Минск", res.City)
	assert.Equal(t, "Минск", res.DisplayCity)
	assert.Equal(t, "Minsk", res.MatchedSynonym)
	assert.Equal(t, PatternSuffixComma, res.PatternID)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.InDelta(t, 0.6, res.BaseConfidence, 1e-9)
	assert.InDelta(t, 1.0, res.AppliedWeight, 1e-9)
	assert.True(t, res.SynonymApplied)
	assert.True(t, res.KnownCity)
	assert.True(t, res.Cleaned)
	assert.Equal(t, "COFFEEBAR", res.CleanDescription)
	assert.True(t, res.Recognized(0.6))

	res = extractor.Extract("BY COFFEEBAR, MINSK", DefaultOptions())
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}

func TestExtract_DefaultPatterns(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))

	tests := []struct {
		name        string
		description string
		city        string
		display     string
		patternID   string
		synonym     string
		clean       string
		confidence  float64
		known       bool
		recognized  bool
	}{
		{
			name:        "prefix marker",
			description: "Оплата г. Минск кафе",
			city:        "Минск",
			display:     "Минск",
			patternID:   PatternPrefixMarker,
			clean:       "Оплата кафе",
			confidence:  1.0,
			known:       true,
			recognized:  true,
		},
		{
			name:        "prefix word marker",
			description: "Магазин город Брест",
			city:        "Брест",
			display:     "Брест",
			patternID:   PatternPrefixMarker,
			clean:       "Магазин",
			confidence:  1.0,
			known:       true,
			recognized:  true,
		},
		{
			name:        "country code",
			description: "EVROOPT MAGAZIN 12 GRODNO BY",
			city:        "Гродно",
			display:     "Гродно",
			patternID:   PatternCountryCity,
			synonym:     "Grodno",
			clean:       "EVROOPT MAGAZIN 12",
			confidence:  1.0,
			known:       true,
			recognized:  true,
		},
		{
			name:        "unknown city after comma",
			description: "SHOP, NESVIZH",
			city:        "NESVIZH",
			display:     "Nesvizh",
			patternID:   PatternSuffixComma,
			clean:       "SHOP",
			confidence:  0.6,
			recognized:  true,
		},
		{
			name:        "multi word alias",
			description: "Dinner Saint Petersburg center",
			city:        "Санкт-Петербург",
			display:     "Санкт-Петербург",
			patternID:   PatternKnownCity,
			synonym:     "Saint Petersburg",
			clean:       "Dinner center",
			confidence:  0.8,
			known:       true,
			recognized:  true,
		},
		{
			name:        "uppercase tail is low confidence",
			description: "AZS 24 N12 1234567 LUKOIL",
			city:        "LUKOIL",
			display:     "Lukoil",
			patternID:   PatternUpperTail,
			clean:       "AZS 24 N12 1234567",
			confidence:  0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extractor.Extract(tt.description, DefaultOptions())
			assert.Equal(t, tt.city, res.City)
			assert.Equal(t, tt.display, res.DisplayCity)
			assert.Equal(t, tt.patternID, res.PatternID)
			assert.Equal(t, tt.synonym, res.MatchedSynonym)
			assert.Equal(t, tt.clean, res.CleanDescription)
			assert.InDelta(t, tt.confidence, res.Confidence, 1e-9)
			assert.Equal(t, tt.known, res.KnownCity)
			assert.Equal(t, tt.recognized, res.Recognized(0.6))
		})
	}
}

func TestExtract_NoCity(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))

	for _, description := range []string{"", "   ", "Оплата услуг такси", "coffee 12"} {
		res := extractor.Extract(description, DefaultOptions())
		assert.Equal(t, Result{}, res, description)
		assert.False(t, res.Recognized(0))
	}
}

func TestExtract_YearMarkerIsNotACity(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))

	res := extractor.Extract("12.05.2023 г. Оплата такси", DefaultOptions())
	assert.Equal(t, Result{}, res)

	res = extractor.Extract("Оплата 12.05.2023 г., г. Минск", DefaultOptions())
	assert.Equal(t, "Минск", res.City)
	assert.Equal(t, PatternPrefixMarker, res.PatternID)
	assert.True(t, res.Recognized(DefaultOptions().MinConfidence))

	// A known city after a year is still found by the registry pattern.
	res = extractor.Extract("с 01.05.2023 г. Минск", DefaultOptions())
	assert.Equal(t, "Минск", res.City)
	assert.Equal(t, PatternKnownCity, res.PatternID)
}

func TestExtract_CleanDisabled(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))
	opts := DefaultOptions()
	opts.CleanResult = false

	res := extractor.Extract("BY COFFEEBAR, MINSK", opts)
	assert.Equal(t, "Минск", res.City)
	assert.False(t, res.Cleaned)
	assert.Empty(t, res.CleanDescription)
}

func TestExtract_EmptyRemainderIsCleaned(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))

	res := extractor.Extract("г. Минск", DefaultOptions())
	assert.Equal(t, "Минск", res.City)
	assert.True(t, res.Cleaned)
	assert.Empty(t, res.CleanDescription)
}

func TestExtract_Determinism(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))
	descriptions := []string{
		"BY COFFEEBAR, MINSK",
		"EVROOPT MAGAZIN 12 GRODNO BY",
		"AZS 24 N12 1234567 LUKOIL",
		"Dinner Saint Petersburg center",
	}

	for _, d := range descriptions {
		first := extractor.Extract(d, DefaultOptions())
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, extractor.Extract(d, DefaultOptions()), d)
		}
	}
}

func TestExtract_WeightsDisableAndClamp(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))

	for _, w := range []float64{0, -1} {
		opts := Options{
			SynonymBoost:   0.2,
			PatternWeights: map[string]float64{PatternSuffixComma: w},
		}
		res := extractor.Extract("BY COFFEEBAR, MINSK", opts)
		assert.Equal(t, PatternKnownCity, res.PatternID)
		assert.InDelta(t, 0.7, res.Confidence, 1e-9)

		for _, c := range extractor.Candidates("BY COFFEEBAR, MINSK", opts) {
			assert.NotEqual(t, PatternSuffixComma, c.PatternID)
		}
	}
}

func TestExtract_WeightMonotonicity(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))
	const description = "BY COFFEEBAR, MINSK"

	baseline := extractor.Extract(description, DefaultOptions())
	require.Equal(t, PatternSuffixComma, baseline.PatternID)

	prevScore := -1.0
	for _, w := range []float64{0.25, 0.5, 1, 2, 3, 4} {
		opts := DefaultOptions()
		opts.PatternWeights = map[string]float64{PatternUpperTail: w}

		var tail *Candidate
		candidates := extractor.Candidates(description, opts)
		for i := range candidates {
			if candidates[i].PatternID == PatternUpperTail {
				tail = &candidates[i]
			}
		}
		require.NotNil(t, tail)
		assert.GreaterOrEqual(t, tail.Score, prevScore)
		prevScore = tail.Score

		res := extractor.Extract(description, opts)
		if res.PatternID != baseline.PatternID {
			assert.Equal(t, PatternUpperTail, res.PatternID)
			assert.Greater(t, tail.Score, baselineScore(extractor, description, opts))
		}
	}

	opts := DefaultOptions()
	opts.PatternWeights = map[string]float64{PatternUpperTail: 4}
	assert.Equal(t, PatternUpperTail, extractor.Extract(description, opts).PatternID)
	assert.InDelta(t, 1.0, extractor.Extract(description, opts).Confidence, 1e-9)
}

func baselineScore(e *Extractor, description string, opts Options) float64 {
	for _, c := range e.Candidates(description, opts) {
		if c.PatternID == PatternSuffixComma {
			return c.Score
		}
	}
	return 0
}

func TestExtract_BoostAdditivity(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))
	descriptions := []string{
		"BY COFFEEBAR, MINSK",
		"Оплата г. Минск кафе",
		"EVROOPT MAGAZIN 12 GRODNO BY",
		"AZS 24 N12 1234567 LUKOIL",
	}

	for _, d := range descriptions {
		for _, w := range []float64{0.5, 1, 2} {
			opts := Options{PatternWeights: map[string]float64{
				PatternPrefixMarker: w, PatternCountryCity: w, PatternSuffixComma: w,
				PatternKnownCity: w, PatternUpperTail: w,
			}}
			res := extractor.Extract(d, opts)
			require.NotEmpty(t, res.City, d)
			assert.Equal(t, clamp01(res.BaseConfidence*res.AppliedWeight), res.Confidence, d)
		}
	}
}

func TestExtract_BoostsAreClamped(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))

	res := extractor.Extract("BY COFFEEBAR, MINSK", Options{SynonymBoost: -5, KnownCityBoost: -5})
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)

	res = extractor.Extract("BY COFFEEBAR, MINSK", Options{SynonymBoost: 5})
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
}

func TestExtract_IdempotentCleanup(t *testing.T) {
	extractor := NewDefaultExtractor(testRegistry(t))
	descriptions := []string{
		"BY COFFEEBAR, MINSK",
		"г. Минск, кафе Минск",
		"Taxi MINSK BY",
		"Оплата услуг, Гродно",
	}

	for _, d := range descriptions {
		first := extractor.Extract(d, DefaultOptions())
		require.True(t, first.Cleaned, d)
		folded := textnorm.Fold(first.Fragment)
		assert.False(t, textnorm.ContainsWord(textnorm.Fold(first.CleanDescription), folded), d)

		second := extractor.Extract(first.CleanDescription, DefaultOptions())
		if second.City != "" {
			assert.NotEqual(t, folded, textnorm.Fold(second.Fragment), d)
		}
		assert.Equal(t, first.CleanDescription, Clean(first.CleanDescription, Match{Fragment: first.Fragment}), d)
	}
}

func TestExtract_PanickingMatcherIsNoMatch(t *testing.T) {
	registry := testRegistry(t)
	patterns := append([]Pattern{{
		ID:         "broken",
		Matcher:    MatcherFunc(func(string) (Match, bool) { panic("boom") }),
		Confidence: 1,
	}}, DefaultPatterns(registry)...)

	extractor, err := NewExtractor(registry, patterns)
	require.NoError(t, err)

	res := extractor.Extract("BY COFFEEBAR, MINSK", DefaultOptions())
	assert.Equal(t, PatternSuffixComma, res.PatternID)
}

func TestExtract_TieKeepsEarlierPattern(t *testing.T) {
	fixed := func(fragment string) Matcher {
		return MatcherFunc(func(d string) (Match, bool) {
			return Match{Fragment: fragment}, true
		})
	}
	extractor, err := NewExtractor(nil, []Pattern{
		{ID: "first", Matcher: fixed("Alpha"), Confidence: 0.5},
		{ID: "second", Matcher: fixed("Beta"), Confidence: 0.5},
		{ID: "third", Matcher: fixed("Gamma"), Confidence: 0.4},
	})
	require.NoError(t, err)

	assert.Equal(t, "first", extractor.Extract("x", Options{}).PatternID)

	res := extractor.Extract("x", Options{PatternWeights: map[string]float64{"third": 1.5}})
	assert.Equal(t, "third", res.PatternID)
}

func TestNewExtractor_Validation(t *testing.T) {
	m := MatcherFunc(func(string) (Match, bool) { return Match{}, false })

	_, err := NewExtractor(nil, []Pattern{{ID: "a", Matcher: m}, {ID: "a", Matcher: m}})
	assert.Error(t, err)

	_, err = NewExtractor(nil, []Pattern{{ID: "", Matcher: m}})
	assert.Error(t, err)

	_, err = NewExtractor(nil, []Pattern{{ID: "a"}})
	assert.Error(t, err)
}
