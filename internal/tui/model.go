package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/model"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// State represents what the queue is waiting for.
type State int

// Queue states.
const (
	StateList State = iota
	StateCategory
	StateCity
)

// Stats counts what happened during a review session.
type Stats struct {
	Categorized   int
	Cities        int
	Discarded     int
	Skipped       int
	Recategorized int
	Failed        int
}

// Model holds the review queue state.
type Model struct {
	ctx         context.Context
	lastError   error
	config      Config
	theme       Theme
	keymap      KeyMap
	help        help.Model
	cityInput   textinput.Model
	status      string
	terms       []model.UnrecognizedTerm
	categories  []model.Category
	stats       Stats
	cursor      int
	categoryIdx int
	state       State
	width       int
	height      int
	busy        bool
	termsReady  bool
	quitting    bool
}

// newModel creates a queue model. ctx bounds every call the model makes.
func newModel(ctx context.Context, cfg Config) Model {
	input := textinput.New()
	input.Placeholder = "city name"
	input.CharLimit = 64

	return Model{
		ctx:       ctx,
		config:    cfg,
		theme:     cfg.Theme,
		keymap:    DefaultKeyMap(),
		help:      help.New(),
		cityInput: input,
		width:     cfg.Width,
		height:    cfg.Height,
	}
}

// Init loads the queue and the category list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadTerms(), m.loadCategories())
}

// Stats returns the session counters.
func (m Model) Stats() Stats {
	return m.stats
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case termsLoadedMsg:
		m.termsReady = true
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.terms = msg.terms
		m.clampCursor()
		return m, nil

	case categoriesLoadedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.categories = msg.categories
		return m, nil

	case actionDoneMsg:
		m.busy = false
		m.handleActionDone(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.state {
		case StateCategory:
			return m.updateCategory(msg)
		case StateCity:
			return m.updateCity(msg)
		default:
			return m.updateList(msg)
		}
	}

	if m.state == StateCity {
		var cmd tea.Cmd
		m.cityInput, cmd = m.cityInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.terms)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keymap.Refresh):
		return m, m.loadTerms()
	}

	term, ok := m.current()
	if !ok || m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Assign):
		if len(m.categories) == 0 {
			m.status = "No categories yet. Add one with: tally categories add <name>"
			return m, nil
		}
		m.state = StateCategory
		m.categoryIdx = 0
	case key.Matches(msg, m.keymap.City):
		m.state = StateCity
		m.cityInput.SetValue("")
		cmd := m.cityInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keymap.Skip):
		m.stats.Skipped++
		m.status = fmt.Sprintf("Skipped %q", term.Term)
		m.skip()
	case key.Matches(msg, m.keymap.Discard):
		m.busy = true
		return m, m.discard(term.Term)
	}
	return m, nil
}

func (m Model) updateCategory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Back):
		m.state = StateList
		return m, nil
	case key.Matches(msg, m.keymap.Up):
		if m.categoryIdx > 0 {
			m.categoryIdx--
		}
		return m, nil
	case key.Matches(msg, m.keymap.Down):
		if m.categoryIdx < len(m.categories)-1 {
			m.categoryIdx++
		}
		return m, nil
	case msg.String() == "enter":
		return m.chooseCategory(m.categoryIdx)
	}

	// 1-9 pick a category directly.
	if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		idx := int(s[0] - '1')
		if idx < len(m.categories) {
			return m.chooseCategory(idx)
		}
	}
	return m, nil
}

func (m Model) chooseCategory(idx int) (tea.Model, tea.Cmd) {
	term, ok := m.current()
	if !ok || idx < 0 || idx >= len(m.categories) {
		m.state = StateList
		return m, nil
	}
	m.state = StateList
	m.busy = true
	return m, m.assignCategory(term.Term, m.categories[idx])
}

func (m Model) updateCity(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = StateList
		m.cityInput.Blur()
		return m, nil
	case "enter":
		city := strings.TrimSpace(m.cityInput.Value())
		if city == "" {
			m.status = "City name is empty"
			return m, nil
		}
		term, ok := m.current()
		m.state = StateList
		m.cityInput.Blur()
		if !ok {
			return m, nil
		}
		m.busy = true
		return m, m.assignCity(term.Term, city)
	}

	var cmd tea.Cmd
	m.cityInput, cmd = m.cityInput.Update(msg)
	return m, cmd
}

func (m *Model) handleActionDone(msg actionDoneMsg) {
	if msg.err != nil {
		m.stats.Failed++
		m.lastError = msg.err
		var assignErr *ledger.AssignError
		if errors.As(msg.err, &assignErr) && assignErr.CanRetrySweep() {
			m.status = fmt.Sprintf("Keyword %q was saved but the sweep failed. Retry with: tally terms retry %s", msg.term, msg.term)
		} else {
			m.status = fmt.Sprintf("Failed to update %q", msg.term)
		}
		return
	}

	m.lastError = nil
	switch msg.kind {
	case actionCategory:
		m.stats.Categorized++
		m.stats.Recategorized += msg.updated
		m.status = fmt.Sprintf("%q → %s (%d expenses recategorized)", msg.term, msg.target, msg.updated)
	case actionCity:
		m.stats.Cities++
		m.status = fmt.Sprintf("%q → %s (%d expenses updated)", msg.term, msg.target, msg.updated)
	case actionDiscard:
		m.stats.Discarded++
		m.status = fmt.Sprintf("Discarded %q", msg.term)
	}
	m.remove(msg.term)
}

func (m Model) current() (model.UnrecognizedTerm, bool) {
	if m.cursor < 0 || m.cursor >= len(m.terms) {
		return model.UnrecognizedTerm{}, false
	}
	return m.terms[m.cursor], true
}

// skip moves the current term to the end of the queue.
func (m *Model) skip() {
	if len(m.terms) < 2 {
		return
	}
	term := m.terms[m.cursor]
	m.terms = append(append(m.terms[:m.cursor:m.cursor], m.terms[m.cursor+1:]...), term)
	m.clampCursor()
}

func (m *Model) remove(term string) {
	for i, t := range m.terms {
		if t.Term == term {
			m.terms = append(m.terms[:i:i], m.terms[i+1:]...)
			break
		}
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.terms) {
		m.cursor = len(m.terms) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
