package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/tally/internal/category"
	"github.com/Veraticus/tally/internal/city"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/synonym"
)

// Snapshot is the read-only resolution data for one user: the seed layered
// with the user's synonyms, and the user's keywords.
type Snapshot struct {
	Cities    *synonym.Registry
	Keywords  *synonym.Registry
	Index     *category.Index
	Extractor *city.Extractor
}

// Snapshot loads userID's keywords and synonyms.
func (e *Engine) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	cities := e.seedCities.Clone()
	keywordAliases := e.seedKeywords.Clone()

	if err := e.layerSynonyms(ctx, userID, model.SynonymCity, cities); err != nil {
		return nil, err
	}
	if err := e.layerSynonyms(ctx, userID, model.SynonymKeyword, keywordAliases); err != nil {
		return nil, err
	}

	keywords, err := e.storage.GetKeywords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords: %w", err)
	}

	extractor, err := city.NewExtractor(cities, e.config.Patterns(cities))
	if err != nil {
		return nil, fmt.Errorf("invalid city patterns: %w", err)
	}

	return &Snapshot{
		Cities:    cities,
		Keywords:  keywordAliases,
		Index:     category.NewIndex(keywords, keywordAliases, e.config.MatchMode),
		Extractor: extractor,
	}, nil
}

func (e *Engine) layerSynonyms(ctx context.Context, userID string, kind model.SynonymKind, reg *synonym.Registry) error {
	synonyms, err := e.storage.GetSynonyms(ctx, userID, kind)
	if err != nil {
		return fmt.Errorf("failed to load %s synonyms: %w", kind, err)
	}
	for _, syn := range synonyms {
		displaced, err := reg.Register(syn.CanonicalID, syn.Alias)
		if err != nil {
			// Rows stored before the alias became a canonical name are skipped.
			e.logger.WithError(err).Warn("ignoring synonym",
				logging.F("kind", string(kind)),
				logging.F("alias", syn.Alias))
			continue
		}
		if displaced != "" {
			e.logger.Debug("synonym rebinds alias",
				logging.F("kind", string(kind)),
				logging.F("alias", syn.Alias),
				logging.F("from", displaced),
				logging.F("to", syn.CanonicalID))
		}
	}
	return nil
}
