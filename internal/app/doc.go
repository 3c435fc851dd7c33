// Package app wires flowbit together and owns the upload-and-poll cycle.
//
// # Components
//
//   - Run: loads config, sets up file logging, builds the HTTP client and
//     starts one of three modes (TUI, plain, history)
//   - Controller: submits a file to POST /process, then polls
//     GET /status/{id} until the job completes or fails
//   - RunPlain: line-oriented renderer for scripts and CI
//   - PrintHistory: table of past jobs from GET /history
//
// # Poll Cycle
//
// A cycle starts with Submit. The status line moves through:
//
//	Processing...                        request in flight
//	Processing started. Process ID: <id> accepted, polling
//	Processing completed                 terminal, success style
//	Processing error                     terminal, error style
//	Error: <message>                     any failure
//
// Each successful poll replaces the trace with the returned payload, even
// when the status is terminal. A failed poll ends the cycle and keeps the
// last trace on screen.
//
// # Cancellation
//
// The controller keeps at most one poll goroutine. Submit and StartPolling
// cancel the previous goroutine and wait for it to exit before starting a
// new one, so a stale tick can never write into the store. Polls inside a
// cycle are sequential: a slow response delays the next tick instead of
// overlapping it.
//
// Submitting without a file only shows "Error: Please select a file"; an
// active cycle keeps polling.
//
// # Retries
//
// By default the first poll failure ends the cycle. With retry_limit set,
// network errors and 5xx/429 answers are retried with exponential backoff
// (interval doubled per failure, capped at 30s). max_poll_duration_ms ends
// a cycle that never reaches a terminal status.
package app
