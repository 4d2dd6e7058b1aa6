package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/synonym"
	"github.com/Veraticus/tally/internal/textnorm"
)

// AddSynonym stores a user alias. A city alias pointing at a known city or
// one of its spellings is stored under the canonical name; a keyword alias
// points at the folded keyword. displaced is the canonical the alias resolved
// to before, if it was rebound.
func (e *Engine) AddSynonym(ctx context.Context, userID string, kind model.SynonymKind, alias, canonical string) (syn *model.Synonym, displaced string, err error) {
	if !kind.IsValid() {
		return nil, "", fmt.Errorf("unknown synonym kind %q", kind)
	}
	alias = strings.Join(strings.Fields(alias), " ")
	canonical = strings.Join(strings.Fields(canonical), " ")
	if alias == "" || canonical == "" {
		return nil, "", errors.New("alias and canonical are required")
	}

	snap, err := e.Snapshot(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	reg := snap.Cities
	if kind == model.SynonymKeyword {
		reg = snap.Keywords
		canonical = textnorm.Fold(canonical)
	}
	if ent, ok := reg.Resolve(canonical); ok {
		canonical = ent.CanonicalID
	}
	if ent, ok := reg.Resolve(alias); ok && textnorm.Fold(ent.CanonicalID) != textnorm.Fold(canonical) {
		if !ent.ViaAlias {
			return nil, "", fmt.Errorf("%w: %q is %s", synonym.ErrAliasIsCanonical, alias, ent.CanonicalID)
		}
		displaced = ent.CanonicalID
	}

	syn = &model.Synonym{
		UserID:      userID,
		Kind:        kind,
		Alias:       alias,
		CanonicalID: canonical,
		Source:      model.SourceManual,
		CreatedAt:   e.now(),
	}
	if err := e.storage.SaveSynonym(ctx, syn); err != nil {
		return nil, "", fmt.Errorf("failed to save synonym: %w", err)
	}

	fields := []logging.Field{
		logging.F(logging.FieldUser, userID),
		logging.F("kind", string(kind)),
		logging.F("alias", alias),
		logging.F("canonical", canonical),
	}
	if displaced != "" {
		e.logger.Warn("alias rebound", append(fields, logging.F("from", displaced))...)
	} else {
		e.logger.Info("alias added", fields...)
	}
	return syn, displaced, nil
}
