// Package testutil provides shared test fixtures backed by an in-memory
// SQLite database.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/storage"
)

// DefaultUser is the user every fixture is created for.
const DefaultUser = "test-user"

// BaseTime is the fixed instant fixtures are stamped with.
var BaseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	Categories map[string]int64
	UserID     string
	seq        atomic.Int64
}

// SetupTestDB creates a new migrated in-memory database and creates the
// named categories for DefaultUser. The database is closed on test cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, "Transport", "Food")
//	id := db.MustCategory("Transport")
func SetupTestDB(t *testing.T, categoryNames ...string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{
		Storage:    store,
		Categories: make(map[string]int64, len(categoryNames)),
		UserID:     DefaultUser,
		t:          t,
	}
	for _, name := range categoryNames {
		cat, err := store.CreateCategory(ctx, db.UserID, name)
		if err != nil {
			t.Fatalf("failed to seed category %q: %v", name, err)
		}
		db.Categories[name] = cat.ID
	}
	return db
}

// MustCategory returns the ID of a seeded category or fails the test.
func (db *TestDB) MustCategory(name string) int64 {
	db.t.Helper()
	id, ok := db.Categories[name]
	if !ok {
		db.t.Fatalf("category %q not found in test data", name)
	}
	return id
}

// AddKeyword binds keyword to a seeded category. Successive keywords get
// increasing creation times so the latest call is the most recent keyword.
func (db *TestDB) AddKeyword(keyword, categoryName string) model.CategoryKeyword {
	db.t.Helper()
	kw := model.CategoryKeyword{
		UserID:     db.UserID,
		Keyword:    keyword,
		CategoryID: db.MustCategory(categoryName),
		CreatedAt:  db.next(),
	}
	if err := db.Storage.CreateKeyword(context.Background(), &kw); err != nil {
		db.t.Fatalf("failed to create keyword %q: %v", keyword, err)
	}
	return kw
}

// AddExpense stores an uncategorized expense with the given description.
func (db *TestDB) AddExpense(description string) model.Expense {
	db.t.Helper()
	n := db.seq.Add(1)
	e := model.Expense{
		ID:          fmt.Sprintf("exp-%03d", n),
		UserID:      db.UserID,
		Description: description,
		Amount:      decimal.NewFromInt(n),
		Date:        BaseTime,
		CreatedAt:   BaseTime.Add(time.Duration(n) * time.Second),
		Status:      model.StatusUncategorized,
		Source:      model.SourceManual,
	}
	if err := db.Storage.SaveExpense(context.Background(), &e); err != nil {
		db.t.Fatalf("failed to save expense %q: %v", description, err)
	}
	return e
}

// MustExpense reloads a stored expense or fails the test.
func (db *TestDB) MustExpense(id string) *model.Expense {
	db.t.Helper()
	e, err := db.Storage.GetExpense(context.Background(), db.UserID, id)
	if err != nil {
		db.t.Fatalf("failed to load expense %q: %v", id, err)
	}
	return e
}

// WithTransaction executes the given function within a database transaction.
// The transaction is always rolled back after the function completes.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

func (db *TestDB) next() time.Time {
	return BaseTime.Add(time.Duration(db.seq.Add(1)) * time.Minute)
}
