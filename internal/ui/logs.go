package ui

import (
	"github.com/five82/flowbit/internal/logtail"
)

// logtailRead is swapped in tests.
var logtailRead = logtail.Read

// renderLogs renders the log pane showing the tail of the flowbit log.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	title := styles.FaintText.Render("log " + truncateMiddle(m.logPath, m.width-10))
	return styles.Panel.Width(m.width - 2).Render(title + "\n" + m.logs.View())
}
