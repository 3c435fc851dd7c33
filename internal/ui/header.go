package ui

import (
	"fmt"
	"time"

	"github.com/five82/flowbit/internal/state"
)

// renderHeader renders the top bar: logo, server, process and freshness.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{
		bg.Render("flowbit", styles.Logo),
		bg.Render(truncateMiddle(m.serverURL, 40), styles.MutedText),
	}

	snap := m.snapshot
	if snap.ProcessID != "" {
		parts = append(parts,
			bg.Render("id", styles.FaintText)+bg.Spaces(1)+bg.Render(truncateMiddle(snap.ProcessID, 24), styles.AccentText))
	}
	if snap.Phase != state.PhaseIdle {
		parts = append(parts, bg.Render(snap.Phase.String(), styles.Text))
	}
	if snap.Polls > 0 {
		parts = append(parts, bg.Render(pollLabel(snap.Polls), styles.MutedText))
	}
	if !snap.LastUpdated.IsZero() {
		parts = append(parts, bg.Render("updated "+humanizeDuration(time.Since(snap.LastUpdated)), styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func pollLabel(n int) string {
	if n == 1 {
		return "1 poll"
	}
	return fmt.Sprintf("%d polls", n)
}
