package flowbit

import (
	"encoding/json"
	"testing"
	"time"
)

func TestProcessID_AcceptsStringAndNumber(t *testing.T) {
	cases := []struct {
		in   string
		want ProcessID
	}{
		{`{"process_id":"abc123"}`, "abc123"},
		{`{"process_id":17}`, "17"},
		{`{"process_id":null}`, ""},
	}
	for _, tc := range cases {
		var resp SubmitResponse
		if err := json.Unmarshal([]byte(tc.in), &resp); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", tc.in, err)
		}
		if resp.ProcessID != tc.want {
			t.Fatalf("Unmarshal(%s) ProcessID = %q, want %q", tc.in, resp.ProcessID, tc.want)
		}
	}

	var resp SubmitResponse
	if err := json.Unmarshal([]byte(`{"process_id":[1]}`), &resp); err == nil {
		t.Fatalf("Unmarshal array process_id returned nil error, want error")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []string{StatusCompleted, StatusFailed} {
		if !IsTerminal(status) {
			t.Fatalf("IsTerminal(%q) = false, want true", status)
		}
	}
	for _, status := range []string{"processing", "classified", "processed", "", "COMPLETED", " error "} {
		if IsTerminal(status) {
			t.Fatalf("IsTerminal(%q) = true, want false", status)
		}
	}
}

func TestStatusPayload_KeepsRawBody(t *testing.T) {
	body := `{"status":"error","error":"Classification failed","updated_at":"2025-06-01T10:11:12.123456"}`
	var payload StatusPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if string(payload.Raw) != body {
		t.Fatalf("Raw = %s, want %s", payload.Raw, body)
	}
	if payload.Error != "Classification failed" {
		t.Fatalf("Error = %q, want Classification failed", payload.Error)
	}
	got := parseTime(payload.UpdatedAt)
	if got.Year() != 2025 || got.Month() != time.June || got.Second() != 12 {
		t.Fatalf("parsed updated_at = %v, want 2025-06-01 10:11:12", got)
	}
}

func TestParseTime_InvalidIsZero(t *testing.T) {
	if !parseTime("yesterday").IsZero() {
		t.Fatalf("parseTime should return zero time for invalid input")
	}
	if parseTime("2025-12-13T10:11:12Z").IsZero() {
		t.Fatalf("parseTime should parse RFC3339")
	}
}

func TestStatusPayload_ToleratesUnexpectedFieldTypes(t *testing.T) {
	cases := []struct {
		body    string
		wantID  ProcessID
		wantErr string
		created string
	}{
		{`{"status":"completed","error":{"code":5}}`, "", "", ""},
		{`{"status":"completed","created_at":1700000000}`, "", "", "1700000000"},
		{`{"status":"completed","process_id":true}`, "", "", ""},
		{`{"status":"error","process_id":7,"error":"boom","created_at":["x"]}`, "7", "boom", ""},
	}
	for _, tc := range cases {
		var payload StatusPayload
		if err := json.Unmarshal([]byte(tc.body), &payload); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", tc.body, err)
		}
		if payload.ProcessID != tc.wantID || payload.Error != tc.wantErr || payload.CreatedAt != tc.created {
			t.Fatalf("Unmarshal(%s) = %#v", tc.body, payload)
		}
		if string(payload.Raw) != tc.body {
			t.Fatalf("Raw = %s, want %s", payload.Raw, tc.body)
		}
		if !payload.Terminal() {
			t.Fatalf("Unmarshal(%s) should be terminal", tc.body)
		}
	}
}

func TestStatusPayload_RequiresStringStatus(t *testing.T) {
	for _, body := range []string{`{"process_id":"x"}`, `{"status":3}`} {
		var payload StatusPayload
		if err := json.Unmarshal([]byte(body), &payload); err == nil {
			t.Fatalf("Unmarshal(%s) returned nil error, want error", body)
		}
	}
}
