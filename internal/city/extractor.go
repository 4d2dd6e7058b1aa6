package city

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/synonym"
	"github.com/Veraticus/tally/internal/textnorm"
)

// Result is the outcome of an extraction. The zero value means no city.
type Result struct {
	// City is the canonical city name, or the candidate text when the
	// registry does not know it.
	City string
	// DisplayCity is City as registered for known cities and title-cased
	// otherwise.
	DisplayCity string
	// Fragment is the description text the winning pattern matched.
	Fragment string
	// CleanDescription is the description without the city. Cleaned tells an
	// intentionally empty remainder apart from cleanup not running.
	CleanDescription string
	PatternID        string
	// MatchedSynonym is the alias that resolved to City, if any.
	MatchedSynonym string
	Confidence     float64
	BaseConfidence float64
	AppliedWeight  float64
	Cleaned        bool
	SynonymApplied bool
	KnownCity      bool
}

// Recognized reports whether a city was found with at least minConfidence.
func (r Result) Recognized(minConfidence float64) bool {
	return r.City != "" && r.Confidence >= minConfidence
}

// Extractor runs an ordered pattern set against descriptions.
type Extractor struct {
	registry *synonym.Registry
	patterns []Pattern
}

// NewExtractor creates an extractor. Pattern order is tie-break priority and
// IDs must be unique. registry may be nil.
func NewExtractor(registry *synonym.Registry, patterns []Pattern) (*Extractor, error) {
	seen := make(map[string]struct{}, len(patterns))
	for _, p := range patterns {
		if p.ID == "" {
			return nil, fmt.Errorf("pattern %q: empty id", p.Label)
		}
		if p.Matcher == nil {
			return nil, fmt.Errorf("pattern %s: nil matcher", p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate pattern id %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	return &Extractor{
		registry: registry,
		patterns: append([]Pattern(nil), patterns...),
	}, nil
}

// NewDefaultExtractor creates an extractor over DefaultPatterns.
func NewDefaultExtractor(registry *synonym.Registry) *Extractor {
	// Default pattern IDs are unique and their matchers are non-nil.
	e, _ := NewExtractor(registry, DefaultPatterns(registry))
	return e
}

// Patterns returns a copy of the extractor's patterns in priority order.
func (e *Extractor) Patterns() []Pattern {
	return append([]Pattern(nil), e.patterns...)
}

// Candidate is one pattern's scored proposal.
type Candidate struct {
	Match          Match
	PatternID      string
	City           string
	MatchedSynonym string
	Base           float64
	Weight         float64
	Score          float64 // unclamped
	SynonymApplied bool
	KnownCity      bool
}

// Candidates returns every enabled pattern's proposal in pattern order.
func (e *Extractor) Candidates(description string, opts Options) []Candidate {
	if strings.TrimSpace(description) == "" {
		return nil
	}

	synonymBoost := clamp01(opts.SynonymBoost)
	knownBoost := clamp01(opts.KnownCityBoost)

	var out []Candidate
	for _, p := range e.patterns {
		weight := opts.Weight(p.ID)
		if weight == 0 {
			continue
		}
		m, ok := safeMatch(p.Matcher, description)
		if !ok {
			continue
		}
		fragment := strings.Join(strings.Fields(m.Fragment), " ")
		if fragment == "" || isBoilerplate(fragment) {
			continue
		}

		c := Candidate{
			Match:     m,
			PatternID: p.ID,
			City:      fragment,
			Base:      clamp01(p.Confidence),
			Weight:    weight,
		}
		c.Score = c.Base * c.Weight
		if e.registry != nil {
			if entity, found := resolve(e.registry, fragment); found {
				c.City = entity.CanonicalID
				c.KnownCity = true
				if entity.ViaAlias {
					c.MatchedSynonym = entity.Alias
					c.SynonymApplied = true
					c.Score += synonymBoost
				}
				c.Score += knownBoost
			}
		}
		out = append(out, c)
	}
	return out
}

// Extract resolves the city of description. It never fails; a description
// without a city yields the zero Result.
func (e *Extractor) Extract(description string, opts Options) Result {
	candidates := e.Candidates(description, opts)
	if len(candidates) == 0 {
		return Result{}
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		// Earlier patterns keep ties.
		if candidates[i].Score > candidates[best].Score {
			best = i
		}
	}
	w := candidates[best]

	res := Result{
		City:           w.City,
		DisplayCity:    w.City,
		Fragment:       w.Match.Fragment,
		PatternID:      w.PatternID,
		MatchedSynonym: w.MatchedSynonym,
		Confidence:     clamp01(w.Score),
		BaseConfidence: w.Base,
		AppliedWeight:  w.Weight,
		SynonymApplied: w.SynonymApplied,
		KnownCity:      w.KnownCity,
	}
	if !w.KnownCity {
		res.DisplayCity = textnorm.Display(w.City)
	}
	if opts.CleanResult {
		res.CleanDescription = Clean(description, w.Match)
		res.Cleaned = true
	}
	return res
}

// safeMatch treats a panicking matcher as no match.
func safeMatch(m Matcher, description string) (match Match, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			match, ok = Match{}, false
		}
	}()
	return m.Match(description)
}
