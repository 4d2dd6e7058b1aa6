package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/model"
)

// GetCategories returns the user's categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context, userID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return s.getCategoriesTx(ctx, s.db, userID)
}

func (s *SQLiteStorage) getCategoriesTx(ctx context.Context, q queryable, userID string) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, name, created_at
		FROM categories
		WHERE user_id = ?
		ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	s.logger.Debug("retrieved categories", logging.F(logging.FieldUser, userID), logging.F(logging.FieldCount, len(categories)))
	return categories, nil
}

// GetCategoryByID returns one of the user's categories.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, userID string, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateCategoryID(id); err != nil {
		return nil, err
	}
	return s.getCategoryTx(ctx, s.db, `WHERE user_id = ? AND id = ?`, userID, id)
}

// GetCategoryByName returns one of the user's categories by exact name.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, userID, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getCategoryTx(ctx, s.db, `WHERE user_id = ? AND name = ?`, userID, strings.TrimSpace(name))
}

func (s *SQLiteStorage) getCategoryTx(ctx context.Context, q queryable, where string, args ...any) (*model.Category, error) {
	var cat model.Category
	err := q.QueryRowContext(ctx, `SELECT id, user_id, name, created_at FROM categories `+where, args...).Scan(
		&cat.ID, &cat.UserID, &cat.Name, &cat.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &cat, nil
}

// CreateCategory creates a new category. An existing category with the same
// name is returned unchanged.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, userID, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.createCategoryTx(ctx, s.db, userID, strings.TrimSpace(name))
}

func (s *SQLiteStorage) createCategoryTx(ctx context.Context, q queryable, userID, name string) (*model.Category, error) {
	existing, err := s.getCategoryTx(ctx, q, `WHERE user_id = ? AND name = ?`, userID, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}

	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		INSERT INTO categories (user_id, name, created_at)
		VALUES (?, ?, ?)`, userID, name, now)
	if err != nil {
		return nil, classifyError("failed to create category", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	s.logger.Info("created new category", logging.F("name", name), logging.F(logging.FieldCategoryID, id))
	return &model.Category{ID: id, UserID: userID, Name: name, CreatedAt: now}, nil
}
