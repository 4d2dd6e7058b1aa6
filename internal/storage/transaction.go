package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	return nil, fmt.Errorf("nested transactions are not supported")
}

func (t *sqliteTransaction) Close() error {
	return fmt.Errorf("cannot close storage from within a transaction")
}

func (t *sqliteTransaction) CreateCategory(ctx context.Context, userID, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.createCategoryTx(ctx, t.tx, userID, name)
}

func (t *sqliteTransaction) GetCategories(ctx context.Context, userID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCategoriesTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) GetCategoryByID(ctx context.Context, userID string, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCategoryTx(ctx, t.tx, `WHERE user_id = ? AND id = ?`, userID, id)
}

func (t *sqliteTransaction) GetCategoryByName(ctx context.Context, userID, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCategoryTx(ctx, t.tx, `WHERE user_id = ? AND name = ?`, userID, name)
}

func (t *sqliteTransaction) CreateKeyword(ctx context.Context, kw *model.CategoryKeyword) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateKeyword(kw); err != nil {
		return err
	}
	return t.storage.createKeywordTx(ctx, t.tx, kw)
}

func (t *sqliteTransaction) GetKeyword(ctx context.Context, userID, keyword string) (*model.CategoryKeyword, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getKeywordTx(ctx, t.tx, userID, keyword)
}

func (t *sqliteTransaction) GetKeywords(ctx context.Context, userID string) ([]model.CategoryKeyword, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getKeywordsTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) DeleteKeyword(ctx context.Context, userID, keyword string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.deleteKeywordTx(ctx, t.tx, userID, keyword)
}

func (t *sqliteTransaction) SaveSynonym(ctx context.Context, syn *model.Synonym) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSynonym(syn); err != nil {
		return err
	}
	return t.storage.saveSynonymTx(ctx, t.tx, syn)
}

func (t *sqliteTransaction) GetSynonyms(ctx context.Context, userID string, kind model.SynonymKind) ([]model.Synonym, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getSynonymsTx(ctx, t.tx, userID, kind)
}

func (t *sqliteTransaction) DeleteSynonym(ctx context.Context, userID string, kind model.SynonymKind, alias string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.deleteSynonymTx(ctx, t.tx, userID, kind, alias)
}

func (t *sqliteTransaction) RecordTerm(ctx context.Context, term *model.UnrecognizedTerm) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTerm(term); err != nil {
		return err
	}
	return t.storage.recordTermTx(ctx, t.tx, term)
}

func (t *sqliteTransaction) GetTerm(ctx context.Context, userID, term string) (*model.UnrecognizedTerm, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getTermTx(ctx, t.tx, userID, term)
}

func (t *sqliteTransaction) GetTerms(ctx context.Context, userID string) ([]model.UnrecognizedTerm, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getTermsTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) DeleteTerm(ctx context.Context, userID, term string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.deleteTermTx(ctx, t.tx, userID, term)
}

func (t *sqliteTransaction) SaveExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}
	return t.storage.saveExpenseTx(ctx, t.tx, expense)
}

func (t *sqliteTransaction) GetExpense(ctx context.Context, userID, id string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getExpenseTx(ctx, t.tx, userID, id)
}

func (t *sqliteTransaction) GetExpenses(ctx context.Context, filter service.ExpenseFilter) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getExpensesTx(ctx, t.tx, filter)
}

func (t *sqliteTransaction) CategorizeExpense(ctx context.Context, userID, id string, categoryID int64, matched []string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateCategoryID(categoryID); err != nil {
		return false, err
	}
	return t.storage.categorizeExpenseTx(ctx, t.tx, userID, id, categoryID, matched)
}

func (t *sqliteTransaction) SetExpenseCity(ctx context.Context, userID, id, city string, confidence float64) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	return t.storage.setExpenseCityTx(ctx, t.tx, userID, id, city, confidence)
}
