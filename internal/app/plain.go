package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/flowbit/internal/flowbit"
	"github.com/five82/flowbit/internal/state"
	"github.com/five82/flowbit/internal/trace"
)

const plainRefresh = 100 * time.Millisecond

var plainStyles = map[state.Class]lipgloss.Style{
	state.ClassProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("#dbc074")),
	state.ClassSuccess:    lipgloss.NewStyle().Foreground(lipgloss.Color("#81b29a")).Bold(true),
	state.ClassError:      lipgloss.NewStyle().Foreground(lipgloss.Color("#c94f6d")).Bold(true),
}

// RunPlain submits req and writes one line per status change to w, then the
// final trace. It returns an error unless the job completed. When outPath is
// set the final trace is saved there.
func RunPlain(ctx context.Context, w io.Writer, ctrl *Controller, store *state.Store, req flowbit.SubmitRequest, outPath string) error {
	var last uint64
	emit := func(snap state.Snapshot) {
		if snap.Version == last {
			return
		}
		last = snap.Version
		fmt.Fprintln(w, renderPlainStatus(snap))
	}

	if err := ctrl.Submit(ctx, req); err != nil {
		emit(store.Snapshot())
		return err
	}

	accepted := store.Snapshot()
	lastText := accepted.Text
	emit(accepted)

	ticker := time.NewTicker(plainRefresh)
	defer ticker.Stop()
	for ctrl.Active() {
		snap := store.Snapshot()
		if snap.Text != lastText {
			lastText = snap.Text
			emit(snap)
		}
		select {
		case <-ctx.Done():
			ctrl.Stop()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if err := ctrl.Wait(ctx); err != nil {
		return err
	}

	final := store.Snapshot()
	if final.Text != lastText {
		emit(final)
	}
	if final.Trace != "" {
		fmt.Fprintln(w, final.Trace)
	}
	if outPath != "" && len(final.RawTrace) > 0 {
		if err := trace.Save(outPath, final.RawTrace); err != nil {
			return fmt.Errorf("save trace: %w", err)
		}
		log.Printf("trace saved to %s", outPath)
	}
	if final.Phase != state.PhaseCompleted {
		return fmt.Errorf("process %s: %s", final.ProcessID, final.Text)
	}
	return nil
}

func renderPlainStatus(snap state.Snapshot) string {
	style, ok := plainStyles[snap.Class]
	if !ok {
		return snap.Text
	}
	return style.Render(snap.Text)
}
