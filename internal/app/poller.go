package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/five82/flowbit/internal/flowbit"
)

const (
	defaultPollInterval = time.Second
	maxBackoff          = 30 * time.Second
)

// poll runs one cycle. Ticks never overlap: the next request is issued on
// the first tick after the previous one finished.
func (c *Controller) poll(ctx context.Context, id flowbit.ProcessID) {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	var deadline time.Time
	if c.opts.MaxPollDuration > 0 {
		deadline = time.Now().Add(c.opts.MaxPollDuration)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		payload, err := c.fetchStatus(ctx, id)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("status poll for %s failed: %v", id, err)
			c.store.ShowError(err)
			return
		}

		c.store.UpdateTrace(payload.Raw)
		if payload.Terminal() {
			log.Printf("process %s finished: %s", id, payload.Status)
			c.store.ShowTerminal(payload.Status)
			return
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			err := fmt.Errorf("%w after %v", ErrPollTimeout, c.opts.MaxPollDuration)
			log.Printf("process %s: %v", id, err)
			c.store.ShowError(err)
			return
		}
	}
}

// fetchStatus issues one status request, retrying transient failures up to
// RetryLimit times with exponential backoff.
func (c *Controller) fetchStatus(ctx context.Context, id flowbit.ProcessID) (flowbit.StatusPayload, error) {
	failures := 0
	for {
		payload, err := c.client.FetchStatus(ctx, id)
		if err == nil || ctx.Err() != nil || failures >= c.opts.RetryLimit || !flowbit.IsRetryable(err) {
			return payload, err
		}

		wait := calculateBackoff(failures, c.opts.Interval)
		failures++
		log.Printf("status poll for %s failed (retry %d/%d in %v): %v", id, failures, c.opts.RetryLimit, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return flowbit.StatusPayload{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// calculateBackoff returns base doubled once per failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
