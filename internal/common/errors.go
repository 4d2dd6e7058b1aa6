// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrDatabaseBusy   = errors.New("database busy")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user. Hint,
// when set, names the command that resolves the problem.
type UserError struct {
	Err         error
	UserMessage string
	Hint        string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// NewUserErrorWithHint creates a user-friendly error carrying a follow-up
// command.
func NewUserErrorWithHint(userMessage, hint string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Hint:        hint,
		Err:         err,
	}
}

// HintFor returns the hint of the first UserError in err's chain.
func HintFor(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Hint
	}
	return ""
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseBusy) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	// SQLite reports lock contention only through its message text once the
	// error has been wrapped by database/sql.
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
