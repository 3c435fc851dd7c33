package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/flowbit/internal/flowbit"
	"github.com/five82/flowbit/internal/trace"
)

// Phase is the controller lifecycle position shown to the user.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhasePolling
	PhaseCompleted
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhasePolling:
		return "polling"
	case PhaseCompleted:
		return "completed"
	case PhaseErrored:
		return "errored"
	default:
		return "idle"
	}
}

// Terminal reports whether the phase ends a cycle.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseErrored
}

// Class selects the visual style of the status line.
type Class string

const (
	ClassNone       Class = ""
	ClassProcessing Class = "processing"
	ClassSuccess    Class = "success"
	ClassError      Class = "error"
)

// Status line texts.
const (
	TextSubmitting  = "Processing..."
	TextNoSelection = "Select a file to process"
	TextNoFile      = "Please select a file"
)

// Snapshot represents the latest display state.
type Snapshot struct {
	Phase       Phase
	Class       Class
	Text        string
	ProcessID   string
	Trace       string // pretty-printed payload
	RawTrace    []byte // payload as received
	Polls       int    // successful status responses in this cycle
	LastUpdated time.Time
	LastError   error
	Version     uint64 // incremented on every change
}

// Store coordinates concurrent access to the display state. The zero
// value is ready to use and shows the idle state.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Reset starts a new cycle: status shows TextSubmitting and the trace is cleared.
func (s *Store) Reset() {
	s.mutate(func(snap *Snapshot) {
		*snap = Snapshot{
			Phase:   PhaseSubmitting,
			Class:   ClassProcessing,
			Text:    TextSubmitting,
			Version: snap.Version,
		}
	})
}

// ShowProcessing records the accepted process id.
func (s *Store) ShowProcessing(id string) {
	s.mutate(func(snap *Snapshot) {
		snap.Phase = PhasePolling
		snap.Class = ClassProcessing
		snap.ProcessID = id
		snap.Text = fmt.Sprintf("Processing started. Process ID: %s", id)
	})
}

// UpdateTrace replaces the trace with raw. The status line is unchanged.
func (s *Store) UpdateTrace(raw []byte) {
	s.mutate(func(snap *Snapshot) {
		snap.RawTrace = append([]byte(nil), raw...)
		snap.Trace = trace.Format(raw)
		snap.Polls++
	})
}

// ShowTerminal renders the final job status. "completed" uses the success
// style, every other status the error style.
func (s *Store) ShowTerminal(status string) {
	s.mutate(func(snap *Snapshot) {
		if status == "completed" {
			snap.Phase = PhaseCompleted
			snap.Class = ClassSuccess
		} else {
			snap.Phase = PhaseErrored
			snap.Class = ClassError
		}
		snap.Text = "Processing " + status
	})
}

// ShowError replaces the status line with err. The trace is kept.
func (s *Store) ShowError(err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	if errors.Is(err, flowbit.ErrNoFile) {
		msg = TextNoFile
	}
	s.mutate(func(snap *Snapshot) {
		snap.Phase = PhaseErrored
		snap.Class = ClassError
		snap.Text = "Error: " + msg
		snap.LastError = err
	})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if snap.RawTrace != nil {
		snap.RawTrace = append([]byte(nil), s.snapshot.RawTrace...)
	}
	if snap.Text == "" && snap.Phase == PhaseIdle {
		snap.Text = TextNoSelection
	}
	return snap
}

func (s *Store) mutate(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.snapshot)
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.Version++
}
