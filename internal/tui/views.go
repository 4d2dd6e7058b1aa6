package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const dateLayout = "2006-01-02"

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.termsReady {
		return m.theme.Muted.Render("Loading unrecognized terms...")
	}

	sections := []string{
		m.theme.Title.Render(fmt.Sprintf("Unrecognized terms (%d)", len(m.terms))),
		m.renderTerms(),
	}

	switch m.state {
	case StateCategory:
		sections = append(sections, m.renderCategories())
	case StateCity:
		sections = append(sections, m.theme.Box.Render("City for "+m.currentTerm()+"\n"+m.cityInput.View()))
	}

	sections = append(sections, m.renderStatus(), m.help.View(m.keymap))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) currentTerm() string {
	term, ok := m.current()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%q", term.Term)
}

// renderTerms shows a window of the queue around the cursor.
func (m Model) renderTerms() string {
	if len(m.terms) == 0 {
		return m.theme.Success.Render("Nothing left to review.")
	}

	rows := max(m.height-10, 5)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.terms))

	var b strings.Builder
	for i := start; i < end; i++ {
		t := m.terms[i]
		line := fmt.Sprintf("%-24s %4d×  last seen %s  (%s)",
			t.Term, t.Frequency, t.LastSeen.Format(dateLayout), t.Source)
		if i == m.cursor {
			b.WriteString(m.theme.Selected.Render("> " + line))
		} else {
			b.WriteString(m.theme.Normal.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if end < len(m.terms) {
		b.WriteString(m.theme.Muted.Render(fmt.Sprintf("  … %d more", len(m.terms)-end)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCategories() string {
	var b strings.Builder
	b.WriteString("Category for " + m.currentTerm() + "\n")
	for i, c := range m.categories {
		prefix := "  "
		if i < 9 {
			prefix = fmt.Sprintf("%d ", i+1)
		}
		line := prefix + c.Name
		if i == m.categoryIdx {
			b.WriteString(m.theme.Selected.Render(line))
		} else {
			b.WriteString(m.theme.Normal.Render(line))
		}
		b.WriteString("\n")
	}
	return m.theme.Box.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderStatus() string {
	counts := m.theme.Muted.Render(fmt.Sprintf(
		"categorized %d · cities %d · discarded %d · skipped %d · recategorized %d",
		m.stats.Categorized, m.stats.Cities, m.stats.Discarded, m.stats.Skipped, m.stats.Recategorized))

	switch {
	case m.busy:
		return m.theme.Muted.Render("Working...") + "\n" + counts
	case m.lastError != nil:
		return m.theme.Error.Render(m.status+": "+m.lastError.Error()) + "\n" + counts
	case m.status != "":
		return m.theme.Success.Render(m.status) + "\n" + counts
	}
	return counts
}
