package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/textnorm"
)

// RecordTerm upserts an unrecognized term. A new term is stored with
// frequency 1 and FirstSeen = LastSeen; a known one has its frequency
// incremented and LastSeen refreshed. term is updated with the stored row.
func (s *SQLiteStorage) RecordTerm(ctx context.Context, term *model.UnrecognizedTerm) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTerm(term); err != nil {
		return err
	}
	return s.recordTermTx(ctx, s.db, term)
}

func (s *SQLiteStorage) recordTermTx(ctx context.Context, q queryable, term *model.UnrecognizedTerm) error {
	if term.Source == "" {
		term.Source = model.SourceManual
	}
	seen := term.LastSeen.UTC()
	folded := textnorm.Fold(term.Term)

	_, err := q.ExecContext(ctx, `
		INSERT INTO unrecognized_terms (id, user_id, term, frequency, first_seen, last_seen, source)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(user_id, term) DO UPDATE SET
			frequency = frequency + 1,
			last_seen = excluded.last_seen
	`, term.ID, term.UserID, folded, seen, seen, term.Source)
	if err != nil {
		return classifyError("failed to record term", err)
	}

	stored, err := s.getTermTx(ctx, q, term.UserID, folded)
	if err != nil {
		return err
	}
	*term = *stored
	return nil
}

// GetTerm returns one of the user's unrecognized terms.
func (s *SQLiteStorage) GetTerm(ctx context.Context, userID, term string) (*model.UnrecognizedTerm, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(term, "term"); err != nil {
		return nil, err
	}
	return s.getTermTx(ctx, s.db, userID, term)
}

const termColumns = `id, user_id, term, frequency, first_seen, last_seen, source`

func scanTerm(scan func(dest ...any) error) (*model.UnrecognizedTerm, error) {
	var t model.UnrecognizedTerm
	if err := scan(&t.ID, &t.UserID, &t.Term, &t.Frequency, &t.FirstSeen, &t.LastSeen, &t.Source); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStorage) getTermTx(ctx context.Context, q queryable, userID, term string) (*model.UnrecognizedTerm, error) {
	row := q.QueryRowContext(ctx, `SELECT `+termColumns+` FROM unrecognized_terms WHERE user_id = ? AND term = ?`,
		userID, textnorm.Fold(term))
	t, err := scanTerm(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("term %q: %w", term, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get term: %w", err)
	}
	return t, nil
}

// GetTerms returns the user's unrecognized terms, most frequent first and
// then most recently seen.
func (s *SQLiteStorage) GetTerms(ctx context.Context, userID string) ([]model.UnrecognizedTerm, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return s.getTermsTx(ctx, s.db, userID)
}

func (s *SQLiteStorage) getTermsTx(ctx context.Context, q queryable, userID string) ([]model.UnrecognizedTerm, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+termColumns+`
		FROM unrecognized_terms
		WHERE user_id = ?
		ORDER BY frequency DESC, last_seen DESC, term`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var terms []model.UnrecognizedTerm
	for rows.Next() {
		t, err := scanTerm(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, *t)
	}
	return terms, rows.Err()
}

// DeleteTerm removes one of the user's unrecognized terms.
func (s *SQLiteStorage) DeleteTerm(ctx context.Context, userID, term string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(term, "term"); err != nil {
		return err
	}
	return s.deleteTermTx(ctx, s.db, userID, term)
}

func (s *SQLiteStorage) deleteTermTx(ctx context.Context, q queryable, userID, term string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM unrecognized_terms WHERE user_id = ? AND term = ?`,
		userID, textnorm.Fold(term))
	if err != nil {
		return classifyError("failed to delete term", err)
	}
	return requireAffected(result, fmt.Sprintf("term %q", term))
}
