// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// ExpenseFilter defines filtering options for expense queries.
type ExpenseFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	UserID    string
	Status    model.ExpenseStatus // empty matches every status
	Limit     int
	Offset    int
	// WithoutCity restricts the result to expenses without a recognized city.
	WithoutCity bool
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Category operations
	CreateCategory(ctx context.Context, userID, name string) (*model.Category, error)
	GetCategories(ctx context.Context, userID string) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, userID string, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, userID, name string) (*model.Category, error)

	// Keyword operations
	CreateKeyword(ctx context.Context, keyword *model.CategoryKeyword) error
	GetKeyword(ctx context.Context, userID, keyword string) (*model.CategoryKeyword, error)
	GetKeywords(ctx context.Context, userID string) ([]model.CategoryKeyword, error)
	DeleteKeyword(ctx context.Context, userID, keyword string) error

	// Synonym operations
	SaveSynonym(ctx context.Context, synonym *model.Synonym) error
	GetSynonyms(ctx context.Context, userID string, kind model.SynonymKind) ([]model.Synonym, error)
	DeleteSynonym(ctx context.Context, userID string, kind model.SynonymKind, alias string) error

	// Unrecognized term operations
	RecordTerm(ctx context.Context, term *model.UnrecognizedTerm) error
	GetTerm(ctx context.Context, userID, term string) (*model.UnrecognizedTerm, error)
	GetTerms(ctx context.Context, userID string) ([]model.UnrecognizedTerm, error)
	DeleteTerm(ctx context.Context, userID, term string) error

	// Expense operations
	SaveExpense(ctx context.Context, expense *model.Expense) error
	GetExpense(ctx context.Context, userID, id string) (*model.Expense, error)
	GetExpenses(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error)
	CategorizeExpense(ctx context.Context, userID, id string, categoryID int64, matched []string) (bool, error)
	SetExpenseCity(ctx context.Context, userID, id, city string, confidence float64) (bool, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
