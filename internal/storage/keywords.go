package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/textnorm"
)

// CreateKeyword stores a category keyword. The keyword is folded before it is
// stored; an existing keyword for the user yields common.ErrDuplicateEntry.
func (s *SQLiteStorage) CreateKeyword(ctx context.Context, kw *model.CategoryKeyword) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateKeyword(kw); err != nil {
		return err
	}
	return s.createKeywordTx(ctx, s.db, kw)
}

func (s *SQLiteStorage) createKeywordTx(ctx context.Context, q queryable, kw *model.CategoryKeyword) error {
	if _, err := s.getCategoryTx(ctx, q, `WHERE user_id = ? AND id = ?`, kw.UserID, kw.CategoryID); err != nil {
		return fmt.Errorf("keyword %q: %w", kw.Keyword, err)
	}

	kw.Keyword = textnorm.Fold(kw.Keyword)
	if kw.CreatedAt.IsZero() {
		kw.CreatedAt = time.Now()
	}
	kw.CreatedAt = kw.CreatedAt.UTC()

	result, err := q.ExecContext(ctx, `
		INSERT INTO category_keywords (user_id, keyword, category_id, created_at)
		VALUES (?, ?, ?, ?)`, kw.UserID, kw.Keyword, kw.CategoryID, kw.CreatedAt)
	if err != nil {
		return classifyError("failed to create keyword", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get keyword ID: %w", err)
	}
	kw.ID = id

	s.logger.Debug("created keyword",
		logging.F(logging.FieldKeyword, kw.Keyword),
		logging.F(logging.FieldCategoryID, kw.CategoryID))
	return nil
}

// GetKeyword returns the user's keyword, looked up in folded form.
func (s *SQLiteStorage) GetKeyword(ctx context.Context, userID, keyword string) (*model.CategoryKeyword, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(keyword, "keyword"); err != nil {
		return nil, err
	}
	return s.getKeywordTx(ctx, s.db, userID, keyword)
}

func (s *SQLiteStorage) getKeywordTx(ctx context.Context, q queryable, userID, keyword string) (*model.CategoryKeyword, error) {
	var kw model.CategoryKeyword
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, keyword, category_id, created_at
		FROM category_keywords
		WHERE user_id = ? AND keyword = ?`, userID, textnorm.Fold(keyword)).Scan(
		&kw.ID, &kw.UserID, &kw.Keyword, &kw.CategoryID, &kw.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("keyword %q: %w", keyword, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get keyword: %w", err)
	}
	return &kw, nil
}

// GetKeywords returns the user's keywords, most recently created first.
func (s *SQLiteStorage) GetKeywords(ctx context.Context, userID string) ([]model.CategoryKeyword, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return s.getKeywordsTx(ctx, s.db, userID)
}

func (s *SQLiteStorage) getKeywordsTx(ctx context.Context, q queryable, userID string) ([]model.CategoryKeyword, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, keyword, category_id, created_at
		FROM category_keywords
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keywords []model.CategoryKeyword
	for rows.Next() {
		var kw model.CategoryKeyword
		if err := rows.Scan(&kw.ID, &kw.UserID, &kw.Keyword, &kw.CategoryID, &kw.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// DeleteKeyword removes the user's keyword.
func (s *SQLiteStorage) DeleteKeyword(ctx context.Context, userID, keyword string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(keyword, "keyword"); err != nil {
		return err
	}
	return s.deleteKeywordTx(ctx, s.db, userID, keyword)
}

func (s *SQLiteStorage) deleteKeywordTx(ctx context.Context, q queryable, userID, keyword string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM category_keywords WHERE user_id = ? AND keyword = ?`,
		userID, textnorm.Fold(keyword))
	if err != nil {
		return classifyError("failed to delete keyword", err)
	}
	return requireAffected(result, fmt.Sprintf("keyword %q", keyword))
}

// requireAffected returns common.ErrNotFound when result touched no rows.
func requireAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}
