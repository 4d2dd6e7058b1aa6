package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/tally/internal/logging"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Categories and keywords",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					UNIQUE(user_id, name)
				)`,
				`CREATE TABLE IF NOT EXISTS category_keywords (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id TEXT NOT NULL,
					keyword TEXT NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					created_at DATETIME NOT NULL,
					UNIQUE(user_id, keyword)
				)`,
				`CREATE INDEX idx_category_keywords_category ON category_keywords(category_id)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Synonyms and unrecognized terms",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS synonyms (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id TEXT NOT NULL,
					kind TEXT NOT NULL CHECK (kind IN ('city', 'keyword')),
					alias TEXT NOT NULL,
					alias_key TEXT NOT NULL,
					canonical_id TEXT NOT NULL,
					source TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					UNIQUE(user_id, kind, alias_key)
				)`,
				`CREATE TABLE IF NOT EXISTS unrecognized_terms (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					term TEXT NOT NULL,
					frequency INTEGER NOT NULL DEFAULT 1,
					first_seen DATETIME NOT NULL,
					last_seen DATETIME NOT NULL,
					source TEXT NOT NULL,
					UNIQUE(user_id, term)
				)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Expenses",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS expenses (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					description TEXT NOT NULL,
					amount TEXT NOT NULL,
					date DATETIME NOT NULL,
					city TEXT NOT NULL DEFAULT '',
					city_confidence REAL NOT NULL DEFAULT 0,
					city_recognized INTEGER NOT NULL DEFAULT 0,
					category_id INTEGER REFERENCES categories(id),
					status TEXT NOT NULL CHECK (status IN ('uncategorized', 'categorized')),
					auto_categorized INTEGER NOT NULL DEFAULT 0,
					matched_keywords TEXT NOT NULL DEFAULT '[]',
					source TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					CHECK ((status = 'categorized') = (category_id IS NOT NULL))
				)`,
				`CREATE INDEX idx_expenses_user_status ON expenses(user_id, status)`,
				`CREATE INDEX idx_expenses_date ON expenses(date)`,
			})
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		s.logger.Info("Applied migration",
			logging.F(logging.FieldVersion, migration.Version),
			logging.F("description", migration.Description))
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
