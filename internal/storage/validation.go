package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidDateRange  = errors.New("start date must be before end date")
	ErrInvalidStatus     = errors.New("invalid expense status")
	ErrInvalidExpense    = errors.New("invalid expense")
	ErrInvalidKeyword    = errors.New("invalid keyword")
	ErrInvalidSynonym    = errors.New("invalid synonym")
	ErrInvalidTerm       = errors.New("invalid term")
	ErrInvalidCategoryID = errors.New("invalid category id")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateCategoryID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCategoryID, id)
	}
	return nil
}

func validateKeyword(kw *model.CategoryKeyword) error {
	if kw == nil {
		return fmt.Errorf("%w: keyword", ErrNilParameter)
	}
	if strings.TrimSpace(kw.UserID) == "" {
		return fmt.Errorf("%w: missing user", ErrInvalidKeyword)
	}
	if strings.TrimSpace(kw.Keyword) == "" {
		return fmt.Errorf("%w: missing keyword", ErrInvalidKeyword)
	}
	if kw.CategoryID <= 0 {
		return fmt.Errorf("%w: missing category", ErrInvalidKeyword)
	}
	return nil
}

func validateSynonym(syn *model.Synonym) error {
	if syn == nil {
		return fmt.Errorf("%w: synonym", ErrNilParameter)
	}
	if strings.TrimSpace(syn.UserID) == "" {
		return fmt.Errorf("%w: missing user", ErrInvalidSynonym)
	}
	if !syn.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSynonym, syn.Kind)
	}
	if strings.TrimSpace(syn.Alias) == "" || strings.TrimSpace(syn.CanonicalID) == "" {
		return fmt.Errorf("%w: alias and canonical are required", ErrInvalidSynonym)
	}
	return nil
}

func validateTerm(term *model.UnrecognizedTerm) error {
	if term == nil {
		return fmt.Errorf("%w: term", ErrNilParameter)
	}
	if strings.TrimSpace(term.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTerm)
	}
	if strings.TrimSpace(term.UserID) == "" {
		return fmt.Errorf("%w: missing user", ErrInvalidTerm)
	}
	if strings.TrimSpace(term.Term) == "" {
		return fmt.Errorf("%w: missing term", ErrInvalidTerm)
	}
	if term.LastSeen.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidTerm)
	}
	return nil
}

func validateExpense(e *model.Expense) error {
	if e == nil {
		return fmt.Errorf("%w: expense", ErrNilParameter)
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidExpense)
	}
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: missing user", ErrInvalidExpense)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidExpense)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidExpense)
	}
	switch e.Status {
	case model.StatusUncategorized, model.StatusCategorized:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, e.Status)
	}
	if !e.IsConsistent() {
		return fmt.Errorf("%w: status %s does not agree with category %d", ErrInvalidExpense, e.Status, e.CategoryID)
	}
	if e.CityConfidence < 0 || e.CityConfidence > 1 {
		return fmt.Errorf("%w: city confidence must be between 0 and 1", ErrInvalidExpense)
	}
	return nil
}
