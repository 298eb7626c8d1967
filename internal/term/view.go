package term

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"quoterm/internal/config"
)

type styles struct {
	title   lipgloss.Style
	subtle  lipgloss.Style
	info    lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	success lipgloss.Style
	status  lipgloss.Style
	overlay lipgloss.Style
}

func newStyles(theme config.ThemeConfig) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(theme.Highlight)),
		subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Subtle)),
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Info)),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Warning)),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Error)),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Success)),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Subtle)).
			Padding(0, 1),
		overlay: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(theme.Subtle)).
			Padding(0, 1),
	}
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 {
		return "starting..."
	}

	var b strings.Builder

	b.WriteString(m.styles.title.Render("quoterm"))
	b.WriteString(m.styles.subtle.Render(" " + m.session.Version))
	b.WriteString("\n\n")

	wrapWidth := m.width - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	for _, msg := range m.messages {
		b.WriteString(wordwrap.String(m.renderMessage(msg), wrapWidth))
		b.WriteString("\n")
	}

	if m.showLog && len(m.logLines) > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.overlay.Render(m.renderLogTail()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusBar())

	return b.String()
}

func (m model) renderMessage(msg message) string {
	var line string
	switch msg.kind {
	case KindWarning:
		line = m.styles.warning.Render("⚠️ " + msg.text)
	case KindError:
		line = m.styles.err.Render("❌ " + msg.text)
	case KindSuccess:
		line = m.styles.success.Render("✅ " + msg.text)
	default:
		line = m.styles.info.Render("ℹ️ " + msg.text)
	}
	if msg.detail != nil {
		line += "\n" + m.styles.subtle.Render("   └ "+msg.detail.Error())
	}
	return line
}

func (m model) renderLogTail() string {
	lines := m.logLines
	if len(lines) > 10 {
		lines = lines[len(lines)-10:]
	}
	trimmed := make([]string, len(lines))
	for i, line := range lines {
		trimmed[i] = runewidth.Truncate(strings.TrimRight(line, "\n"), m.width-6, "…")
	}
	return strings.Join(trimmed, "\n")
}

func (m model) statusBar() string {
	text := fmt.Sprintf("session %s • %s • %dx%d", m.session.ID, m.session.Env, m.width, m.height)
	return m.styles.status.Render(runewidth.Truncate(text, m.width-2, "…"))
}
