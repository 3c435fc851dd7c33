package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/flowbit/internal/flowbit"
	"github.com/five82/flowbit/internal/prefs"
	"github.com/five82/flowbit/internal/state"
	"github.com/five82/flowbit/internal/trace"
)

// Submitter starts an upload-and-poll cycle. *app.Controller implements it.
type Submitter interface {
	Submit(ctx context.Context, req flowbit.SubmitRequest) error
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	Controller  Submitter
	Store       *state.Store
	ServerURL   string
	LogPath     string
	ThemeName   string
	PrefsPath   string
	InitialFile string
	ProcessType string
	RefreshTick time.Duration // how often the store is re-read; default 200ms
}

type focusArea int

const (
	focusInput focusArea = iota
	focusTrace
)

const (
	defaultRefreshTick = 200 * time.Millisecond
	logPaneLines       = 200
	logPaneHeight      = 8
)

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx         context.Context
	submitter   Submitter
	store       *state.Store
	serverURL   string
	logPath     string
	prefsPath   string
	processType string
	refreshTick time.Duration
	home        string

	// UI state
	keys     keyMap
	help     help.Model
	theme    Theme
	width    int
	height   int
	ready    bool
	focus    focusArea
	showHelp bool
	showLogs bool

	// Components
	input   textinput.Model
	spinner spinner.Model
	trace   viewport.Model
	logs    viewport.Model

	// Data state
	snapshot   state.Snapshot
	submitting bool
	notice     string // last save result, shown in the footer
	noticeErr  bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	refresh := opts.RefreshTick
	if refresh <= 0 {
		refresh = defaultRefreshTick
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	home, _ := os.UserHomeDir()

	input := textinput.New()
	input.Prompt = "file › "
	input.Placeholder = "path to a pdf, json or eml file"
	input.SetValue(opts.InitialFile)
	input.CursorEnd()
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))

	m := Model{
		ctx:         ctx,
		submitter:   opts.Controller,
		store:       opts.Store,
		serverURL:   opts.ServerURL,
		logPath:     opts.LogPath,
		prefsPath:   prefsPath,
		processType: opts.ProcessType,
		refreshTick: refresh,
		home:        home,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		theme:       GetTheme(themeName),
		focus:       focusInput,
		input:       input,
		spinner:     sp,
	}
	if opts.Store != nil {
		m.snapshot = opts.Store.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.spinner.Tick,
		tickCmd(m.refreshTick),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.trace = viewport.New(0, 0)
			m.logs = viewport.New(0, 0)
		}
		m.ready = true
		m.layout()
		m.updateTraceViewport(true)
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		snap := state.Snapshot(msg)
		if snap.Version == m.snapshot.Version && m.ready {
			return m, nil
		}
		traceChanged := snap.Trace != m.snapshot.Trace
		m.snapshot = snap
		m.updateTraceViewport(traceChanged)
		return m, nil

	case submitDoneMsg:
		m.submitting = false
		var cmds []tea.Cmd
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		if msg.err == nil && msg.path != "" {
			cmds = append(cmds, rememberDirCmd(m.prefsPath, filepath.Dir(msg.path)))
		}
		return m, tea.Batch(cmds...)

	case savedMsg:
		if msg.err != nil {
			m.notice = "save failed: " + msg.err.Error()
			m.noticeErr = true
		} else {
			m.notice = "trace saved to " + msg.path
			m.noticeErr = false
		}
		return m, nil

	case logLinesMsg:
		if m.ready {
			m.logs.SetContent(strings.Join(msg.lines, "\n"))
			m.logs.GotoBottom()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Focus):
		m.toggleFocus()
		return m, nil
	case key.Matches(msg, m.keys.Submit) && m.focus == focusInput:
		return m.submit()
	}

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m.handleTraceKey(msg)
}

// handleTraceKey processes keys while the trace pane has focus.
func (m Model) handleTraceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.QuitTrace):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		name := m.theme.Name
		_ = prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name })
	case key.Matches(msg, m.keys.SaveTrace):
		return m, saveTraceCmd(m.snapshot)
	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
		m.layout()
		if m.showLogs {
			return m, readLogsCmd(m.logPath)
		}
	case key.Matches(msg, m.keys.Up):
		m.trace.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.trace.ScrollDown(1)
	case key.Matches(msg, m.keys.Top):
		m.trace.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.trace.GotoBottom()
	case key.Matches(msg, m.keys.PageUp):
		m.trace.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.trace.PageDown()
	}
	return m, nil
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusTrace
		m.input.Blur()
		return
	}
	m.focus = focusInput
	m.input.Focus()
}

// submit hands the typed path to the controller. The request runs in a
// command so the UI keeps rendering while the upload is in flight.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.submitter == nil || m.submitting {
		return m, nil
	}
	path := expandHome(m.input.Value(), m.home)
	req := flowbit.SubmitRequest{Path: path, ProcessType: m.processType}
	m.submitting = strings.TrimSpace(path) != ""
	m.notice = ""
	return m, submitCmd(m.ctx, m.submitter, req)
}

// handleTick re-reads the store and, when shown, the log file.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.showLogs {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	cmds = append(cmds, tickCmd(m.refreshTick))
	return m, tea.Batch(cmds...)
}

// layout sizes the viewports from the window size.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	// header, input, status, footer, and the trace panel border
	chrome := 4 + 2
	if m.showLogs {
		chrome += logPaneHeight + 3 // title line
	}
	h := m.height - chrome
	if h < 1 {
		h = 1
	}
	w := m.width - 4
	if w < 1 {
		w = 1
	}
	m.trace.Width = w
	m.trace.Height = h
	m.logs.Width = w
	m.logs.Height = logPaneHeight
	m.input.Width = m.width - len([]rune(m.input.Prompt)) - 2
	m.help.Width = m.width
}

func (m *Model) updateTraceViewport(reset bool) {
	if !m.ready {
		return
	}
	content := m.snapshot.Trace
	if content == "" {
		content = m.theme.Styles().FaintText.Render("No trace yet.")
	}
	m.trace.SetContent(content)
	if reset {
		m.trace.GotoTop()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type submitDoneMsg struct {
	path string
	err  error
}

type savedMsg struct {
	path string
	err  error
}

type logLinesMsg struct {
	lines []string
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func submitCmd(ctx context.Context, s Submitter, req flowbit.SubmitRequest) tea.Cmd {
	return func() tea.Msg {
		err := s.Submit(ctx, req)
		return submitDoneMsg{path: req.Path, err: err}
	}
}

func saveTraceCmd(snap state.Snapshot) tea.Cmd {
	raw := snap.RawTrace
	id := snap.ProcessID
	return func() tea.Msg {
		path := trace.DefaultName(id)
		return savedMsg{path: path, err: trace.Save(path, raw)}
	}
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtailRead(path, logPaneLines)
		if err != nil {
			lines = []string{"log unavailable: " + err.Error()}
		}
		return logLinesMsg{lines: lines}
	}
}

func rememberDirCmd(prefsPath, dir string) tea.Cmd {
	return func() tea.Msg {
		_ = prefs.Update(prefsPath, func(p *prefs.Prefs) { p.LastDir = dir })
		return nil
	}
}

// Run starts the Bubble Tea program. Submits still in flight when it
// returns see their context cancelled.
func Run(opts Options) error {
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	opts.Context = ctx

	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && parent.Err() != nil {
		return nil
	}
	return err
}
