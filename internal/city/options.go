package city

import "math"

// Options tunes a single extraction call.
type Options struct {
	// PatternWeights multiplies a pattern's base confidence. Missing IDs
	// weigh 1, negative weights are treated as 0 and 0 disables the pattern.
	PatternWeights map[string]float64
	// SynonymBoost is added when the candidate resolved through an alias.
	SynonymBoost float64
	// KnownCityBoost is added when the candidate resolved to any registry entry.
	KnownCityBoost float64
	// MinConfidence is advisory; see Result.Recognized.
	MinConfidence float64
	// CleanResult strips the matched city from the description.
	CleanResult bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		SynonymBoost:   0.2,
		KnownCityBoost: 0.1,
		MinConfidence:  0.6,
		CleanResult:    true,
	}
}

// Weight returns the effective weight of a pattern.
func (o Options) Weight(patternID string) float64 {
	w, ok := o.PatternWeights[patternID]
	if !ok {
		return 1
	}
	if w < 0 || math.IsNaN(w) {
		return 0
	}
	return w
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
