package ledger

import (
	"errors"
	"fmt"
)

// Stage names the step of an assignment that failed.
type Stage string

const (
	// StageKeyword means the keyword could not be created. Nothing changed.
	StageKeyword Stage = "keyword"
	// StageSynonym means the city alias could not be saved. Nothing changed.
	StageSynonym Stage = "synonym"
	// StageLedger means the binding exists but the term is still in the ledger.
	StageLedger Stage = "ledger"
	// StageSweep means the binding exists but stored expenses were not all
	// reclassified.
	StageSweep Stage = "sweep"
)

// Assignment errors.
var (
	ErrEmptyTerm       = errors.New("term cannot be empty")
	ErrEmptyCity       = errors.New("city cannot be empty")
	ErrKeywordConflict = errors.New("keyword already belongs to another category")
)

// AssignError reports a failed assignment and how far it got.
type AssignError struct {
	Err   error
	Term  string
	Stage Stage
	// KeywordCreated reports whether the keyword or city alias is persisted.
	// When true the sweep can be retried on its own.
	KeywordCreated bool
	// Updated counts the expenses a failed sweep changed before stopping.
	Updated int
}

func (e *AssignError) Error() string {
	return fmt.Sprintf("assign %q failed at %s stage: %v", e.Term, e.Stage, e.Err)
}

func (e *AssignError) Unwrap() error {
	return e.Err
}

// CanRetrySweep reports whether RetrySweep can finish the assignment.
func (e *AssignError) CanRetrySweep() bool {
	return e.KeywordCreated && (e.Stage == StageLedger || e.Stage == StageSweep)
}
