package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/five82/flowbit/internal/flowbit"
	"github.com/five82/flowbit/internal/state"
)

// ErrPollTimeout is shown when MaxPollDuration elapses before a terminal status.
var ErrPollTimeout = errors.New("polling timed out")

// ControllerOptions tune the poll loop.
type ControllerOptions struct {
	Interval        time.Duration // zero uses defaultPollInterval
	MaxPollDuration time.Duration // zero polls until a terminal status
	RetryLimit      int           // transient failures retried per tick
}

// Controller drives one upload-and-poll cycle at a time and reports every
// change through the store. It owns the only poll loop: starting a new
// cycle cancels the previous loop and waits for it to exit.
type Controller struct {
	client flowbit.Service
	store  *state.Store
	opts   ControllerOptions
	parent context.Context

	submitMu sync.Mutex // serializes Submit

	mu     sync.Mutex // guards cancel, done and closed
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewController builds a controller whose poll loops live at most as long as ctx.
func NewController(ctx context.Context, client flowbit.Service, store *state.Store, opts ControllerOptions) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	if opts.RetryLimit < 0 {
		opts.RetryLimit = 0
	}
	return &Controller{
		client: client,
		store:  store,
		opts:   opts,
		parent: ctx,
	}
}

// Submit uploads the file described by req and, once the service accepts
// it, starts polling its status. Without a file it only shows the input
// error: no request is sent and an active poll loop keeps running.
func (c *Controller) Submit(ctx context.Context, req flowbit.SubmitRequest) error {
	if req.Content == nil && strings.TrimSpace(req.Path) == "" {
		c.store.ShowError(flowbit.ErrNoFile)
		return flowbit.ErrNoFile
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	c.Stop()
	c.store.Reset()

	log.Printf("submitting %s", req.FileName())
	resp, err := c.client.Submit(ctx, req)
	if err != nil {
		log.Printf("submit failed: %v", err)
		c.store.ShowError(err)
		return err
	}
	if resp.Status != flowbit.StatusProcessing {
		err := fmt.Errorf("%w %q", flowbit.ErrUnexpectedStatus, resp.Status)
		log.Printf("submit rejected: %v", err)
		c.store.ShowError(err)
		return err
	}
	if strings.TrimSpace(resp.ProcessID.String()) == "" {
		err := fmt.Errorf("submit response has no process_id")
		c.store.ShowError(err)
		return err
	}

	log.Printf("process %s accepted", resp.ProcessID)
	c.store.ShowProcessing(resp.ProcessID.String())
	c.StartPolling(resp.ProcessID)
	return nil
}

// StartPolling cancels any active loop and polls id every interval until
// the job reaches a terminal status or a request fails.
func (c *Controller) StartPolling(id flowbit.ProcessID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	if c.closed {
		log.Printf("controller closed, not polling %s", id)
		return
	}

	ctx, cancel := context.WithCancel(c.parent)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go func() {
		defer close(done)
		defer cancel()
		c.poll(ctx, id)
	}()
}

// Stop cancels the active poll loop, if any, and waits for it to exit.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Close stops the active poll loop and makes every later StartPolling a
// no-op, so a Submit still in flight cannot start a loop after shutdown.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
}

// Active reports whether a poll loop is running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Wait blocks until the active poll loop exits or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
