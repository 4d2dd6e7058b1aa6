package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// SaveExpense inserts or replaces an expense.
func (s *SQLiteStorage) SaveExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}
	return s.saveExpenseTx(ctx, s.db, expense)
}

func (s *SQLiteStorage) saveExpenseTx(ctx context.Context, q queryable, e *model.Expense) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Source == "" {
		e.Source = model.SourceManual
	}

	matched, err := encodeKeywords(e.MatchedKeywords)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO expenses (
			id, user_id, description, amount, date, city, city_confidence, city_recognized,
			category_id, status, auto_categorized, matched_keywords, source, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			amount = excluded.amount,
			date = excluded.date,
			city = excluded.city,
			city_confidence = excluded.city_confidence,
			city_recognized = excluded.city_recognized,
			category_id = excluded.category_id,
			status = excluded.status,
			auto_categorized = excluded.auto_categorized,
			matched_keywords = excluded.matched_keywords,
			source = excluded.source
	`,
		e.ID, e.UserID, e.Description, e.Amount, e.Date.UTC(), e.City, e.CityConfidence, e.CityRecognized,
		nullableCategory(e.CategoryID), e.Status, e.AutoCategorized, matched, e.Source, e.CreatedAt.UTC(),
	)
	if err != nil {
		return classifyError("failed to save expense", err)
	}

	s.logger.Debug("saved expense",
		logging.F(logging.FieldExpenseID, e.ID),
		logging.F(logging.FieldStatus, string(e.Status)))
	return nil
}

// GetExpense returns one of the user's expenses.
func (s *SQLiteStorage) GetExpense(ctx context.Context, userID, id string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getExpenseTx(ctx, s.db, userID, id)
}

const expenseColumns = `id, user_id, description, amount, date, city, city_confidence, city_recognized,
	category_id, status, auto_categorized, matched_keywords, source, created_at`

func scanExpense(scan func(dest ...any) error) (*model.Expense, error) {
	var (
		e          model.Expense
		categoryID sql.NullInt64
		matched    string
	)
	if err := scan(
		&e.ID, &e.UserID, &e.Description, &e.Amount, &e.Date, &e.City, &e.CityConfidence, &e.CityRecognized,
		&categoryID, &e.Status, &e.AutoCategorized, &matched, &e.Source, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		e.CategoryID = categoryID.Int64
	}
	keywords, err := decodeKeywords(matched)
	if err != nil {
		return nil, err
	}
	e.MatchedKeywords = keywords
	return &e, nil
}

func (s *SQLiteStorage) getExpenseTx(ctx context.Context, q queryable, userID, id string) (*model.Expense, error) {
	row := q.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? AND id = ?`, userID, id)
	e, err := scanExpense(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// GetExpenses returns expenses matching filter, newest first.
func (s *SQLiteStorage) GetExpenses(ctx context.Context, filter service.ExpenseFilter) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(filter.UserID, "userID"); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.EndDate, *filter.StartDate)
	}
	return s.getExpensesTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) getExpensesTx(ctx context.Context, q queryable, filter service.ExpenseFilter) ([]model.Expense, error) {
	conditions := []string{"user_id = ?"}
	args := []any{filter.UserID}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.WithoutCity {
		conditions = append(conditions, "city_recognized = 0")
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.EndDate.UTC())
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY date DESC, created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var expenses []model.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// CategorizeExpense binds an uncategorized expense to a category as an
// automatic categorization. Status, category and matched keywords change in
// one statement, and only while the row is still uncategorized; the result
// reports whether the row was updated.
func (s *SQLiteStorage) CategorizeExpense(ctx context.Context, userID, id string, categoryID int64, matched []string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}
	if err := validateCategoryID(categoryID); err != nil {
		return false, err
	}
	return s.categorizeExpenseTx(ctx, s.db, userID, id, categoryID, matched)
}

func (s *SQLiteStorage) categorizeExpenseTx(ctx context.Context, q queryable, userID, id string, categoryID int64, matched []string) (bool, error) {
	encoded, err := encodeKeywords(matched)
	if err != nil {
		return false, err
	}

	result, err := q.ExecContext(ctx, `
		UPDATE expenses
		SET status = ?, category_id = ?, auto_categorized = 1, matched_keywords = ?
		WHERE user_id = ? AND id = ? AND status = ?`,
		model.StatusCategorized, categoryID, encoded, userID, id, model.StatusUncategorized)
	if err != nil {
		return false, classifyError("failed to categorize expense", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// SetExpenseCity records a city on an expense that has no recognized city
// yet; the result reports whether the row was updated.
func (s *SQLiteStorage) SetExpenseCity(ctx context.Context, userID, id, city string, confidence float64) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}
	if err := validateString(city, "city"); err != nil {
		return false, err
	}
	return s.setExpenseCityTx(ctx, s.db, userID, id, city, confidence)
}

func (s *SQLiteStorage) setExpenseCityTx(ctx context.Context, q queryable, userID, id, city string, confidence float64) (bool, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE expenses
		SET city = ?, city_confidence = ?, city_recognized = 1
		WHERE user_id = ? AND id = ? AND city_recognized = 0`,
		city, confidence, userID, id)
	if err != nil {
		return false, classifyError("failed to set expense city", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func nullableCategory(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func encodeKeywords(keywords []string) (string, error) {
	if len(keywords) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return "", fmt.Errorf("failed to encode matched keywords: %w", err)
	}
	return string(data), nil
}

func decodeKeywords(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var keywords []string
	if err := json.Unmarshal([]byte(data), &keywords); err != nil {
		return nil, fmt.Errorf("failed to decode matched keywords: %w", err)
	}
	return keywords, nil
}
