package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// renderMain renders the full UI.
func (m Model) renderMain() string {
	styles := m.theme.Styles()

	panel := styles.Panel
	if m.focus == focusTrace {
		panel = styles.FocusedPanel
	}

	rows := []string{
		m.renderHeader(),
		m.input.View(),
		m.renderStatus(),
		panel.Width(m.width - 2).Render(m.trace.View()),
	}
	if m.showLogs {
		rows = append(rows, m.renderLogs())
	}
	rows = append(rows, m.renderFooter())
	return strings.Join(rows, "\n")
}

// renderFooter shows the last save result, else the short key help.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.notice != "" {
		style := styles.MutedText
		if m.noticeErr {
			style = styles.DangerText
		}
		return style.Render(truncateMiddle(m.notice, m.width))
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

var helpSectionTitles = []string{"Input", "Trace", "Actions", "General"}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)

	groups := m.keys.FullHelp()
	for i, group := range groups {
		if i < len(helpSectionTitles) {
			b.WriteString(styles.AccentText.Bold(true).Render(helpSectionTitles[i]))
			b.WriteString("\n")
		}
		for _, binding := range group {
			writeBinding(&b, keyStyle, styles.Text, binding)
		}
		if i < len(groups)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(40)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

func writeBinding(b *strings.Builder, keyStyle, descStyle lipgloss.Style, binding key.Binding) {
	h := binding.Help()
	if h.Key == "" {
		return
	}
	b.WriteString(keyStyle.Render(h.Key))
	b.WriteString(descStyle.Render(h.Desc))
	b.WriteString("\n")
}
