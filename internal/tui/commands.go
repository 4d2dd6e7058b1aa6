package tui

import (
	"context"
	"errors"

	"github.com/Veraticus/tally/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

var errNotConfigured = errors.New("review queue is not configured")

func (m Model) callContext() (context.Context, context.CancelFunc) {
	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if m.config.Timeout > 0 {
		return context.WithTimeout(ctx, m.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// loadTerms loads the pending terms, most frequent first.
func (m Model) loadTerms() tea.Cmd {
	return func() tea.Msg {
		if m.config.Reviewer == nil {
			return termsLoadedMsg{err: errNotConfigured}
		}
		ctx, cancel := m.callContext()
		defer cancel()

		terms, err := m.config.Reviewer.List(ctx, m.config.UserID)
		return termsLoadedMsg{terms: terms, err: err}
	}
}

// loadCategories loads the categories offered for assignment.
func (m Model) loadCategories() tea.Cmd {
	return func() tea.Msg {
		if m.config.Categories == nil {
			return categoriesLoadedMsg{err: errNotConfigured}
		}
		ctx, cancel := m.callContext()
		defer cancel()

		categories, err := m.config.Categories.GetCategories(ctx, m.config.UserID)
		return categoriesLoadedMsg{categories: categories, err: err}
	}
}

func (m Model) assignCategory(term string, category model.Category) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()

		res, err := m.config.Reviewer.AssignCategory(ctx, m.config.UserID, term, category.ID)
		return actionDoneMsg{
			kind:    actionCategory,
			term:    term,
			target:  category.Name,
			updated: res.RecategorizedCount,
			err:     err,
		}
	}
}

func (m Model) assignCity(term, city string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()

		res, err := m.config.Reviewer.AssignCity(ctx, m.config.UserID, term, city)
		target := city
		if res.City != "" {
			target = res.City
		}
		return actionDoneMsg{
			kind:    actionCity,
			term:    term,
			target:  target,
			updated: res.UpdatedCount,
			err:     err,
		}
	}
}

func (m Model) discard(term string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()

		err := m.config.Reviewer.Discard(ctx, m.config.UserID, term)
		return actionDoneMsg{kind: actionDiscard, term: term, err: err}
	}
}
