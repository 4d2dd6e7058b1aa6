package tui

import "github.com/Veraticus/tally/internal/model"

// Data loading messages.
type termsLoadedMsg struct {
	err   error
	terms []model.UnrecognizedTerm
}

type categoriesLoadedMsg struct {
	err        error
	categories []model.Category
}

// actionKind identifies what happened to a reviewed term.
type actionKind int

const (
	actionCategory actionKind = iota
	actionCity
	actionDiscard
)

// actionDoneMsg reports the outcome of an assignment or discard.
type actionDoneMsg struct {
	err     error
	term    string
	target  string
	kind    actionKind
	updated int
}
