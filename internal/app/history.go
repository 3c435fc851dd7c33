package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/five82/flowbit/internal/flowbit"
)

const historyTimeLayout = "2006-01-02 15:04:05"

// PrintHistory writes the service's job history to w as a table.
func PrintHistory(ctx context.Context, w io.Writer, svc flowbit.Service) error {
	entries, err := svc.FetchHistory(ctx)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No processed files yet.")
		return err
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ProcessID.String(),
			e.InputType,
			e.Status,
			stamp(e.CreatedAt, e.ParsedCreatedAt()),
			stamp(e.UpdatedAt, e.ParsedUpdatedAt()),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PROCESS ID", "TYPE", "STATUS", "CREATED", "UPDATED").
		Rows(rows...)
	_, err = fmt.Fprintln(w, t.Render())
	return err
}

// stamp prefers the parsed time and falls back to the server's text.
func stamp(raw string, parsed time.Time) string {
	if parsed.IsZero() {
		return raw
	}
	return parsed.Format(historyTimeLayout)
}
