package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the review queue and blocks until the user quits or ctx is
// canceled. It returns the session counters. Start cfg from DefaultConfig.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) (Stats, error) {
	if cfg.Reviewer == nil {
		return Stats{}, errors.New("reviewer is required")
	}
	if cfg.Categories == nil {
		return Stats{}, errors.New("category lister is required")
	}

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	program := tea.NewProgram(newModel(ctx, cfg), opts...)

	final, err := program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return Stats{}, fmt.Errorf("review queue failed: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Stats(), nil
	}
	return Stats{}, nil
}
