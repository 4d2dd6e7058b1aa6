package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/textnorm"
)

// SaveSynonym stores a user alias. Saving an alias the user already has for
// the same kind rebinds it to the new canonical entity.
func (s *SQLiteStorage) SaveSynonym(ctx context.Context, syn *model.Synonym) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSynonym(syn); err != nil {
		return err
	}
	return s.saveSynonymTx(ctx, s.db, syn)
}

func (s *SQLiteStorage) saveSynonymTx(ctx context.Context, q queryable, syn *model.Synonym) error {
	if syn.CreatedAt.IsZero() {
		syn.CreatedAt = time.Now()
	}
	syn.CreatedAt = syn.CreatedAt.UTC()
	if syn.Source == "" {
		syn.Source = model.SourceManual
	}
	syn.Alias = strings.TrimSpace(syn.Alias)
	syn.CanonicalID = strings.TrimSpace(syn.CanonicalID)

	_, err := q.ExecContext(ctx, `
		INSERT INTO synonyms (user_id, kind, alias, alias_key, canonical_id, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, kind, alias_key) DO UPDATE SET
			alias = excluded.alias,
			canonical_id = excluded.canonical_id,
			source = excluded.source,
			created_at = excluded.created_at
	`, syn.UserID, syn.Kind, syn.Alias, textnorm.Fold(syn.Alias), syn.CanonicalID, syn.Source, syn.CreatedAt)
	if err != nil {
		return classifyError("failed to save synonym", err)
	}

	return q.QueryRowContext(ctx, `
		SELECT id FROM synonyms WHERE user_id = ? AND kind = ? AND alias_key = ?`,
		syn.UserID, syn.Kind, textnorm.Fold(syn.Alias)).Scan(&syn.ID)
}

// GetSynonyms returns the user's aliases of one kind in creation order, so
// later records override earlier ones when layered onto a registry.
func (s *SQLiteStorage) GetSynonyms(ctx context.Context, userID string, kind model.SynonymKind) ([]model.Synonym, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSynonym, kind)
	}
	return s.getSynonymsTx(ctx, s.db, userID, kind)
}

func (s *SQLiteStorage) getSynonymsTx(ctx context.Context, q queryable, userID string, kind model.SynonymKind) ([]model.Synonym, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, kind, alias, canonical_id, source, created_at
		FROM synonyms
		WHERE user_id = ? AND kind = ?
		ORDER BY created_at, id`, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query synonyms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var synonyms []model.Synonym
	for rows.Next() {
		var syn model.Synonym
		if err := rows.Scan(&syn.ID, &syn.UserID, &syn.Kind, &syn.Alias, &syn.CanonicalID, &syn.Source, &syn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan synonym: %w", err)
		}
		synonyms = append(synonyms, syn)
	}
	return synonyms, rows.Err()
}

// DeleteSynonym removes a user alias.
func (s *SQLiteStorage) DeleteSynonym(ctx context.Context, userID string, kind model.SynonymKind, alias string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(alias, "alias"); err != nil {
		return err
	}
	return s.deleteSynonymTx(ctx, s.db, userID, kind, alias)
}

func (s *SQLiteStorage) deleteSynonymTx(ctx context.Context, q queryable, userID string, kind model.SynonymKind, alias string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM synonyms WHERE user_id = ? AND kind = ? AND alias_key = ?`,
		userID, kind, textnorm.Fold(alias))
	if err != nil {
		return classifyError("failed to delete synonym", err)
	}
	return requireAffected(result, fmt.Sprintf("synonym %q", alias))
}
