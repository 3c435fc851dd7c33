package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/flowbit/internal/flowbit"
	"github.com/five82/flowbit/internal/state"
)

const testInterval = 10 * time.Millisecond

// fakeService scripts the processing service. Status answers are consumed
// per process id; the last answer repeats once the script runs out.
type fakeService struct {
	mu       sync.Mutex
	submit   func(flowbit.SubmitRequest) (flowbit.SubmitResponse, error)
	statuses map[flowbit.ProcessID][]statusAnswer
	calls    map[flowbit.ProcessID]int
	submits  int
	history  []flowbit.HistoryEntry
}

type statusAnswer struct {
	body string
	err  error
}

func newFakeService() *fakeService {
	return &fakeService{
		statuses: make(map[flowbit.ProcessID][]statusAnswer),
		calls:    make(map[flowbit.ProcessID]int),
	}
}

func (f *fakeService) accept(id string) *fakeService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submit = func(flowbit.SubmitRequest) (flowbit.SubmitResponse, error) {
		return flowbit.SubmitResponse{Status: "processing", ProcessID: flowbit.ProcessID(id)}, nil
	}
	return f
}

func (f *fakeService) script(id string, answers ...statusAnswer) *fakeService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[flowbit.ProcessID(id)] = answers
	return f
}

func (f *fakeService) Submit(_ context.Context, req flowbit.SubmitRequest) (flowbit.SubmitResponse, error) {
	f.mu.Lock()
	f.submits++
	submit := f.submit
	f.mu.Unlock()
	return submit(req)
}

func (f *fakeService) FetchStatus(_ context.Context, id flowbit.ProcessID) (flowbit.StatusPayload, error) {
	f.mu.Lock()
	n := f.calls[id]
	f.calls[id] = n + 1
	answers := f.statuses[id]
	f.mu.Unlock()

	if len(answers) == 0 {
		return flowbit.StatusPayload{}, &flowbit.StatusError{Path: "/status/" + id.String(), Code: 404}
	}
	if n >= len(answers) {
		n = len(answers) - 1
	}
	a := answers[n]
	if a.err != nil {
		return flowbit.StatusPayload{}, a.err
	}
	var payload flowbit.StatusPayload
	if err := json.Unmarshal([]byte(a.body), &payload); err != nil {
		return flowbit.StatusPayload{}, &flowbit.DecodeError{Path: "/status/" + id.String(), Err: err}
	}
	return payload, nil
}

func (f *fakeService) FetchHistory(context.Context) ([]flowbit.HistoryEntry, error) {
	return f.history, nil
}

func (f *fakeService) statusCalls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[flowbit.ProcessID(id)]
}

func (f *fakeService) submitCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

func ok(body string) statusAnswer { return statusAnswer{body: body} }

func newTestController(t *testing.T, svc flowbit.Service, opts ControllerOptions) (*Controller, *state.Store) {
	t.Helper()
	if opts.Interval == 0 {
		opts.Interval = testInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	store := &state.Store{}
	ctrl := NewController(ctx, svc, store, opts)
	t.Cleanup(func() {
		ctrl.Stop()
		cancel()
	})
	return ctrl, store
}

func waitDone(t *testing.T, ctrl *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ctrl.Wait(ctx))
	require.False(t, ctrl.Active())
}

func fileRequest() flowbit.SubmitRequest {
	return flowbit.SubmitRequest{Name: "mail.eml", Content: strings.NewReader("From: a@b.c")}
}

func TestSubmit_NoFileShowsErrorWithoutRequest(t *testing.T) {
	svc := newFakeService().accept("abc123")
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	err := ctrl.Submit(context.Background(), flowbit.SubmitRequest{Path: "  "})
	require.ErrorIs(t, err, flowbit.ErrNoFile)

	assert.Equal(t, 0, svc.submitCalls())
	snap := store.Snapshot()
	assert.Equal(t, "Error: Please select a file", snap.Text)
	assert.Equal(t, state.ClassError, snap.Class)
	assert.False(t, ctrl.Active())
}

func TestSubmit_PollsUntilCompleted(t *testing.T) {
	svc := newFakeService().accept("abc123").script("abc123",
		ok(`{"status":"processing","process_id":"abc123"}`),
		ok(`{"status":"classified","process_id":"abc123"}`),
		ok(`{"status":"completed","process_id":"abc123","actions_triggered":["crm"]}`),
	)
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	assert.Equal(t, "Processing started. Process ID: abc123", store.Snapshot().Text)

	waitDone(t, ctrl)

	snap := store.Snapshot()
	assert.Equal(t, state.PhaseCompleted, snap.Phase)
	assert.Equal(t, state.ClassSuccess, snap.Class)
	assert.Equal(t, "Processing completed", snap.Text)
	assert.Equal(t, 3, snap.Polls)
	assert.Contains(t, snap.Trace, "\"actions_triggered\": [\n    \"crm\"\n  ]")

	calls := svc.statusCalls("abc123")
	time.Sleep(5 * testInterval)
	assert.Equal(t, calls, svc.statusCalls("abc123"), "polling continued after completion")
}

func TestSubmit_TerminalErrorStatus(t *testing.T) {
	svc := newFakeService().accept("p1").script("p1",
		ok(`{"status":"error","error":"Classification failed"}`),
	)
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	waitDone(t, ctrl)

	snap := store.Snapshot()
	assert.Equal(t, state.PhaseErrored, snap.Phase)
	assert.Equal(t, state.ClassError, snap.Class)
	assert.Equal(t, "Processing error", snap.Text)
	assert.Contains(t, snap.Trace, "Classification failed")
}

func TestPoll_HTTPErrorStopsPolling(t *testing.T) {
	svc := newFakeService().accept("gone") // no script: every poll answers 404
	ctrl, store := newTestController(t, svc, ControllerOptions{RetryLimit: 3})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	waitDone(t, ctrl)

	snap := store.Snapshot()
	assert.Equal(t, state.PhaseErrored, snap.Phase)
	assert.Contains(t, snap.Text, "404")
	assert.Equal(t, 1, svc.statusCalls("gone"), "4xx must not be retried")
}

func TestSubmit_HTTPErrorDoesNotPoll(t *testing.T) {
	svc := newFakeService()
	svc.submit = func(flowbit.SubmitRequest) (flowbit.SubmitResponse, error) {
		return flowbit.SubmitResponse{}, &flowbit.StatusError{Path: "/process", Code: 500}
	}
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	err := ctrl.Submit(context.Background(), fileRequest())
	require.Error(t, err)
	assert.False(t, ctrl.Active())
	assert.Equal(t, "Error: api /process returned status 500", store.Snapshot().Text)
}

func TestSubmit_UnexpectedInitialStatusIsAnError(t *testing.T) {
	svc := newFakeService()
	svc.submit = func(flowbit.SubmitRequest) (flowbit.SubmitResponse, error) {
		return flowbit.SubmitResponse{Status: "queued", ProcessID: "x"}, nil
	}
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	err := ctrl.Submit(context.Background(), fileRequest())
	require.ErrorIs(t, err, flowbit.ErrUnexpectedStatus)
	assert.False(t, ctrl.Active())
	assert.Equal(t, state.PhaseErrored, store.Snapshot().Phase)
	assert.Equal(t, 0, svc.statusCalls("x"))
}

func TestSubmit_NewSubmissionCancelsPreviousPoll(t *testing.T) {
	svc := newFakeService().
		script("old", ok(`{"status":"processing"}`)).
		script("new", ok(`{"status":"processing"}`), ok(`{"status":"completed"}`))
	svc.accept("old")
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	require.Eventually(t, func() bool { return svc.statusCalls("old") >= 2 }, time.Second, testInterval)

	svc.accept("new")
	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	oldCalls := svc.statusCalls("old")

	waitDone(t, ctrl)
	time.Sleep(5 * testInterval)

	assert.Equal(t, oldCalls, svc.statusCalls("old"), "old process polled after resubmit")
	snap := store.Snapshot()
	assert.Equal(t, "new", snap.ProcessID)
	assert.Equal(t, state.PhaseCompleted, snap.Phase)
}

func TestPoll_RepeatedProcessingKeepsLabel(t *testing.T) {
	svc := newFakeService().accept("abc123").script("abc123",
		ok(`{"status":"processing","step":1}`),
		ok(`{"status":"processing","step":2}`),
		ok(`{"status":"processing","step":3}`),
	)
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	require.Eventually(t, func() bool { return store.Snapshot().Polls >= 4 }, time.Second, testInterval)

	snap := store.Snapshot()
	assert.Equal(t, "Processing started. Process ID: abc123", snap.Text)
	assert.Equal(t, state.PhasePolling, snap.Phase)
	assert.Contains(t, snap.Trace, `"step": 3`)
	assert.True(t, ctrl.Active())

	ctrl.Stop()
	assert.False(t, ctrl.Active())
}

func TestPoll_RetriesTransientFailures(t *testing.T) {
	svc := newFakeService().accept("r").script("r",
		statusAnswer{err: &flowbit.StatusError{Path: "/status/r", Code: 503}},
		ok(`{"status":"completed"}`),
	)
	ctrl, store := newTestController(t, svc, ControllerOptions{RetryLimit: 2})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	waitDone(t, ctrl)

	assert.Equal(t, state.PhaseCompleted, store.Snapshot().Phase)
	assert.Equal(t, 2, svc.statusCalls("r"))
}

func TestPoll_WithoutRetryLimitFailsFast(t *testing.T) {
	svc := newFakeService().accept("r").script("r",
		statusAnswer{err: &flowbit.StatusError{Path: "/status/r", Code: 503}},
		ok(`{"status":"completed"}`),
	)
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	waitDone(t, ctrl)

	snap := store.Snapshot()
	assert.Equal(t, state.PhaseErrored, snap.Phase)
	assert.Contains(t, snap.Text, "503")
}

func TestPoll_MaxPollDuration(t *testing.T) {
	svc := newFakeService().accept("slow").script("slow", ok(`{"status":"processing"}`))
	ctrl, store := newTestController(t, svc, ControllerOptions{MaxPollDuration: 3 * testInterval})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	waitDone(t, ctrl)

	snap := store.Snapshot()
	assert.Equal(t, state.PhaseErrored, snap.Phase)
	assert.Contains(t, snap.Text, ErrPollTimeout.Error())
	assert.NotEmpty(t, snap.Trace)
}

func TestPoll_DecodeErrorStops(t *testing.T) {
	svc := newFakeService().accept("d").script("d", ok(`{"process_id":"d"}`))
	ctrl, store := newTestController(t, svc, ControllerOptions{RetryLimit: 5})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	waitDone(t, ctrl)

	var decodeErr *flowbit.DecodeError
	require.True(t, errors.As(store.Snapshot().LastError, &decodeErr))
	assert.Equal(t, 1, svc.statusCalls("d"))
}

func TestSubmit_NoFileKeepsActivePoll(t *testing.T) {
	svc := newFakeService().accept("abc123").script("abc123", ok(`{"status":"processing"}`))
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	require.Eventually(t, func() bool { return svc.statusCalls("abc123") >= 2 }, time.Second, testInterval)

	err := ctrl.Submit(context.Background(), flowbit.SubmitRequest{})
	require.ErrorIs(t, err, flowbit.ErrNoFile)
	assert.Equal(t, "Error: Please select a file", store.Snapshot().Text)

	calls := svc.statusCalls("abc123")
	require.Eventually(t, func() bool { return svc.statusCalls("abc123") > calls+1 }, time.Second, testInterval)
	assert.True(t, ctrl.Active())
	assert.Equal(t, 1, svc.submitCalls())
}

func TestPoll_TerminalStatusMatchesExactly(t *testing.T) {
	svc := newFakeService().accept("u").script("u", ok(`{"status":"COMPLETED"}`))
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	require.Eventually(t, func() bool { return store.Snapshot().Polls >= 3 }, time.Second, testInterval)

	assert.True(t, ctrl.Active())
	assert.Equal(t, state.PhasePolling, store.Snapshot().Phase)
}

func TestPoll_UnexpectedFieldTypesKeepPayload(t *testing.T) {
	svc := newFakeService().accept("p").script("p",
		ok(`{"status":"completed","process_id":true,"error":{"code":5},"created_at":1700000000}`),
	)
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	require.NoError(t, ctrl.Submit(context.Background(), fileRequest()))
	waitDone(t, ctrl)

	snap := store.Snapshot()
	assert.Equal(t, state.PhaseCompleted, snap.Phase)
	assert.Equal(t, "Processing completed", snap.Text)
	assert.Contains(t, snap.Trace, `"code": 5`)
	assert.Contains(t, snap.Trace, `"created_at": 1700000000`)
}

func TestClose_InFlightSubmitDoesNotStartPolling(t *testing.T) {
	release := make(chan struct{})
	svc := newFakeService().script("late", ok(`{"status":"processing"}`))
	svc.submit = func(flowbit.SubmitRequest) (flowbit.SubmitResponse, error) {
		<-release
		return flowbit.SubmitResponse{Status: "processing", ProcessID: "late"}, nil
	}
	ctrl, _ := newTestController(t, svc, ControllerOptions{})

	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Submit(context.Background(), fileRequest()) }()
	require.Eventually(t, func() bool { return svc.submitCalls() == 1 }, time.Second, testInterval)

	ctrl.Close()
	close(release)
	require.NoError(t, <-errCh)

	time.Sleep(5 * testInterval)
	assert.False(t, ctrl.Active())
	assert.Equal(t, 0, svc.statusCalls("late"))
}

func TestRunPlain_PrintsStatusChangesAndTrace(t *testing.T) {
	svc := newFakeService().accept("abc123").script("abc123",
		ok(`{"status":"processing"}`),
		ok(`{"status":"completed","agent_output":{"total":42}}`),
	)
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	var out bytes.Buffer
	err := RunPlain(context.Background(), &out, ctrl, store, fileRequest(), "")
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Processing started. Process ID: abc123")
	assert.Contains(t, text, "Processing completed")
	assert.Contains(t, text, `"total": 42`)
	assert.Less(t, strings.Index(text, "Processing started"), strings.Index(text, "Processing completed"))
}

func TestRunPlain_FailedJobReturnsError(t *testing.T) {
	svc := newFakeService().accept("bad").script("bad", ok(`{"status":"error","error":"boom"}`))
	ctrl, store := newTestController(t, svc, ControllerOptions{})

	var out bytes.Buffer
	err := RunPlain(context.Background(), &out, ctrl, store, fileRequest(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Processing error")
	assert.Contains(t, out.String(), `"error": "boom"`)
}

func TestPrintHistory(t *testing.T) {
	svc := newFakeService()
	svc.history = []flowbit.HistoryEntry{
		{ProcessID: "a1", InputType: "pdf", Status: "completed", CreatedAt: "2025-06-01T10:00:00"},
		{ProcessID: "b2", InputType: "email", Status: "error", CreatedAt: "not a time"},
	}

	var out bytes.Buffer
	require.NoError(t, PrintHistory(context.Background(), &out, svc))
	text := out.String()
	for _, want := range []string{"PROCESS ID", "a1", "pdf", "2025-06-01 10:00:00", "b2", "not a time"} {
		assert.Contains(t, text, want)
	}

	svc.history = nil
	out.Reset()
	require.NoError(t, PrintHistory(context.Background(), &out, svc))
	assert.Contains(t, out.String(), "No processed files yet.")
}
