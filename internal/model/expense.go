// Package model defines the core data structures for the tally application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus tracks whether an expense has a category.
type ExpenseStatus string

const (
	// StatusUncategorized marks an expense waiting for a category.
	StatusUncategorized ExpenseStatus = "uncategorized"
	// StatusCategorized marks an expense bound to a category.
	StatusCategorized ExpenseStatus = "categorized"
)

// Expense is a single logged expense together with what the resolvers found.
type Expense struct {
	Date            time.Time
	CreatedAt       time.Time
	Amount          decimal.Decimal
	ID              string
	UserID          string
	Description     string
	City            string
	Status          ExpenseStatus
	Source          Source
	MatchedKeywords []string
	CityConfidence  float64
	CategoryID      int64
	CityRecognized  bool
	AutoCategorized bool
}

// Categorize binds the expense to a category, keeping status and category in step.
func (e *Expense) Categorize(categoryID int64, matched []string, auto bool) {
	if categoryID == 0 {
		e.Uncategorize()
		return
	}
	e.CategoryID = categoryID
	e.Status = StatusCategorized
	e.AutoCategorized = auto
	e.MatchedKeywords = append([]string(nil), matched...)
}

// Uncategorize clears the category binding.
func (e *Expense) Uncategorize() {
	e.CategoryID = 0
	e.Status = StatusUncategorized
	e.AutoCategorized = false
	e.MatchedKeywords = nil
}

// IsConsistent reports whether status and category agree.
func (e *Expense) IsConsistent() bool {
	if e.Status == StatusCategorized {
		return e.CategoryID != 0
	}
	return e.Status == StatusUncategorized && e.CategoryID == 0
}
