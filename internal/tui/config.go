// Package tui implements the interactive review queue for unrecognized terms.
package tui

import (
	"context"
	"time"

	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/model"
)

// Reviewer is the subset of the ledger service the review queue drives.
type Reviewer interface {
	List(ctx context.Context, userID string) ([]model.UnrecognizedTerm, error)
	AssignCategory(ctx context.Context, userID, term string, categoryID int64) (ledger.AssignResult, error)
	AssignCity(ctx context.Context, userID, term, city string) (ledger.CityAssignResult, error)
	Discard(ctx context.Context, userID, term string) error
}

// CategoryLister loads the categories offered for assignment.
type CategoryLister interface {
	GetCategories(ctx context.Context, userID string) ([]model.Category, error)
}

// Config holds the review queue configuration.
type Config struct {
	Reviewer   Reviewer
	Categories CategoryLister
	Theme      Theme
	UserID     string
	// Timeout bounds each storage call made from the queue.
	Timeout time.Duration
	Width   int
	Height  int
}

// DefaultConfig returns a config with the default theme and timeout.
func DefaultConfig() Config {
	return Config{
		Theme:   DefaultTheme(),
		Timeout: 30 * time.Second,
		Width:   100,
		Height:  30,
	}
}
