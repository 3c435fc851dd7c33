package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/flowbit/internal/config"
	"github.com/five82/flowbit/internal/flowbit"
	"github.com/five82/flowbit/internal/prefs"
	"github.com/five82/flowbit/internal/state"
	"github.com/five82/flowbit/internal/ui"
)

// Options configure the flowbit application.
type Options struct {
	ConfigPath  string
	PrefsPath   string // empty uses default ~/.config/flowbit/prefs.toml
	ServerURL   string // overrides config and environment
	PollMillis  int    // overrides config and environment; zero keeps them
	File        string // file to submit; optional in the TUI
	ProcessType string // optional server-side type override
	OutPath     string // plain mode: save the final trace here
	Plain       bool
	History     bool

	Stdout io.Writer
}

// Run loads configuration and runs the selected mode until it finishes or
// the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(opts.ServerURL); v != "" {
		cfg.ServerURL = v
	}
	if opts.PollMillis > 0 {
		cfg.PollInterval = time.Duration(opts.PollMillis) * time.Millisecond
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logFile := setupLogging(cfg.LogFile)
	if logFile != nil {
		defer func() { _ = logFile.Close() }()
	}

	client, err := flowbit.NewClient(cfg.ServerURL, flowbit.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return fmt.Errorf("init flowbit client: %w", err)
	}
	log.Printf("flowbit starting against %s (poll every %v)", client.BaseURL(), cfg.PollInterval)

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	if opts.History {
		return PrintHistory(ctx, stdout, client)
	}

	store := &state.Store{}
	ctrl := NewController(ctx, client, store, ControllerOptions{
		Interval:        cfg.PollInterval,
		MaxPollDuration: cfg.MaxPollDuration,
		RetryLimit:      cfg.RetryLimit,
	})
	defer ctrl.Close()

	req := flowbit.SubmitRequest{Path: opts.File, ProcessType: opts.ProcessType}

	if opts.Plain {
		return RunPlain(ctx, stdout, ctrl, store, req, opts.OutPath)
	}

	userPrefs := prefs.Load(opts.PrefsPath)
	return ui.Run(ui.Options{
		Context:     ctx,
		Controller:  ctrl,
		Store:       store,
		ServerURL:   client.BaseURL(),
		LogPath:     cfg.LogFile,
		ThemeName:   userPrefs.Theme,
		PrefsPath:   opts.PrefsPath,
		InitialFile: initialFile(opts.File, userPrefs.LastDir),
		ProcessType: opts.ProcessType,
	})
}

// setupLogging routes the standard logger into path so log output never
// draws over the terminal UI. Failures disable logging.
func setupLogging(path string) *os.File {
	if strings.TrimSpace(path) == "" {
		log.SetOutput(io.Discard)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.SetOutput(io.Discard)
		return nil
	}
	f, err := tea.LogToFile(path, "flowbit")
	if err != nil {
		log.SetOutput(io.Discard)
		return nil
	}
	return f
}

// initialFile pre-fills the path input: the file given on the command line,
// else the directory of the last submission.
func initialFile(file, lastDir string) string {
	if strings.TrimSpace(file) != "" {
		return file
	}
	if strings.TrimSpace(lastDir) == "" {
		return ""
	}
	return strings.TrimSuffix(lastDir, string(filepath.Separator)) + string(filepath.Separator)
}
