package ui

import (
	"github.com/five82/flowbit/internal/state"
)

// renderStatus renders the status line: one of processing, success or
// error, styled by the snapshot class.
func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	text := snap.Text
	if m.submitting && snap.Phase == state.PhaseIdle {
		text = state.TextSubmitting
	}
	line := styles.StatusStyle(snap.Class).Render(text)
	if snap.Class == state.ClassProcessing || m.submitting {
		line = m.spinner.View() + " " + line
	}
	return line
}
