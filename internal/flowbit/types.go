package flowbit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Job statuses reported by the processing service. The server may emit
// intermediate values (classified, processed) which are treated like
// StatusProcessing.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "error"
)

// IsTerminal reports whether polling should stop for status. Matching is
// exact: "COMPLETED" keeps polling like any other unknown status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// ProcessID identifies one server-side job. The server may send it as a
// JSON string or number; both decode to the same textual form.
type ProcessID string

// UnmarshalJSON accepts strings and numbers.
func (p *ProcessID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ProcessID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("process_id must be a string or number: %w", err)
	}
	*p = ProcessID(n.String())
	return nil
}

func (p ProcessID) String() string { return string(p) }

// SubmitResponse mirrors the payload returned by POST /process.
type SubmitResponse struct {
	Status    string    `json:"status"`
	ProcessID ProcessID `json:"process_id"`
	Message   string    `json:"message"`
}

// StatusPayload is one answer of GET /status/{id}. Only Status is
// interpreted; Raw keeps the full body for the trace. The other fields are
// best effort and stay empty when the server sends an unexpected type.
type StatusPayload struct {
	Status    string
	ProcessID ProcessID
	Error     string
	CreatedAt string
	UpdatedAt string
	Raw       json.RawMessage
}

// UnmarshalJSON requires a string status and keeps the verbatim body.
func (s *StatusPayload) UnmarshalJSON(data []byte) error {
	var known struct {
		Status    *string         `json:"status"`
		ProcessID json.RawMessage `json:"process_id"`
		Error     json.RawMessage `json:"error"`
		CreatedAt json.RawMessage `json:"created_at"`
		UpdatedAt json.RawMessage `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	if known.Status == nil {
		return errors.New("missing status field")
	}
	*s = StatusPayload{
		Status:    *known.Status,
		ProcessID: ProcessID(looseString(known.ProcessID)),
		Error:     looseString(known.Error),
		CreatedAt: looseString(known.CreatedAt),
		UpdatedAt: looseString(known.UpdatedAt),
		Raw:       append(json.RawMessage(nil), data...),
	}
	return nil
}

// Terminal reports whether the payload ends the poll cycle.
func (s StatusPayload) Terminal() bool {
	return IsTerminal(s.Status)
}

// looseString returns raw as text when it is a JSON string or number and
// "" for anything else.
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch {
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// HistoryResponse mirrors GET /history.
type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}

// HistoryEntry summarizes one past job.
type HistoryEntry struct {
	ProcessID ProcessID `json:"process_id"`
	InputType string    `json:"input_type"`
	Status    string    `json:"status"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (h HistoryEntry) ParsedCreatedAt() time.Time {
	return parseTime(h.CreatedAt)
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (h HistoryEntry) ParsedUpdatedAt() time.Time {
	return parseTime(h.UpdatedAt)
}

// The server emits Python isoformat() strings, which omit the zone when
// the datetime is naive.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
