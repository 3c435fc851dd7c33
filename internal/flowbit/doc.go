// Package flowbit provides an HTTP client for the FlowBit processing service.
//
// # Overview
//
// The service accepts a file, classifies and processes it in the background,
// and exposes the job state through a status endpoint. This package covers
// the three endpoints flowbit uses:
//
//   - POST /process: multipart upload, field "file", optional process_type query
//   - GET /status/{process_id}: current job state plus diagnostic fields
//   - GET /history: summaries of past jobs
//
// # Client Usage
//
//	client, err := flowbit.NewClient("127.0.0.1:8000")
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//
//	resp, err := client.Submit(ctx, flowbit.SubmitRequest{Path: "invoice.pdf"})
//	if err != nil {
//		log.Printf("submit failed: %v", err)
//	}
//
//	payload, err := client.FetchStatus(ctx, resp.ProcessID)
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: flowbit/0.1
//   - Carry a fresh X-Request-ID so server logs can be correlated
//
// # Error Handling
//
// Failures map onto a small taxonomy:
//
//   - ErrNoFile: nothing to upload, no request was sent
//   - *StatusError: the server answered outside the 2xx range
//   - *DecodeError: the body was not JSON or had no status field
//   - network errors, reported as "execute request: ..."
//
// IsRetryable separates transient failures (network, 5xx, 429) from final ones.
//
// # Status Payloads
//
// StatusPayload interprets only the status field. The whole body is kept in
// Raw so callers can display it verbatim. The original server also reports
// intermediate states such as "classified" and "processed"; IsTerminal
// treats only "completed" and "error" as final.
package flowbit
