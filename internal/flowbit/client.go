package flowbit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service defines the processing-service calls used by the controller.
// It is implemented by *Client and can be replaced in tests.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error)
	FetchStatus(ctx context.Context, id ProcessID) (StatusPayload, error)
	FetchHistory(ctx context.Context) ([]HistoryEntry, error)
}

// Ensure Client implements Service at compile time.
var _ Service = (*Client)(nil)

// Client talks to the processing service HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultServerURL      = "127.0.0.1:8000"
	defaultUserAgent      = "flowbit/0.1"
	defaultRequestTimeout = 30 * time.Second

	uploadField = "file"
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient builds a Client for serverURL, which may omit the scheme.
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultRequestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized server address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SubmitRequest describes one upload. Either Path or Content must be set;
// when both are, Content wins and Path only supplies the file name.
type SubmitRequest struct {
	Path        string
	Name        string
	Content     io.Reader
	ProcessType string
}

// FileName returns the name sent in the multipart body.
func (r SubmitRequest) FileName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	if strings.TrimSpace(r.Path) == "" {
		return "upload"
	}
	return filepath.Base(r.Path)
}

// Submit uploads a file to /process.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	if c == nil {
		return SubmitResponse{}, fmt.Errorf("client is nil")
	}
	content := req.Content
	if content == nil {
		if strings.TrimSpace(req.Path) == "" {
			return SubmitResponse{}, ErrNoFile
		}
		file, err := os.Open(req.Path)
		if err != nil {
			return SubmitResponse{}, fmt.Errorf("open upload: %w", err)
		}
		defer func() { _ = file.Close() }()
		content = file
	}

	body, contentType, err := encodeUpload(req.FileName(), content)
	if err != nil {
		return SubmitResponse{}, err
	}

	values := url.Values{}
	if pt := strings.TrimSpace(req.ProcessType); pt != "" {
		values.Set("process_type", pt)
	}
	rel := &url.URL{Path: "/process", RawQuery: values.Encode()}

	var payload SubmitResponse
	if err := c.doURL(ctx, http.MethodPost, rel, body, contentType, &payload); err != nil {
		return SubmitResponse{}, err
	}
	return payload, nil
}

// FetchStatus retrieves the current status payload of a job.
func (c *Client) FetchStatus(ctx context.Context, id ProcessID) (StatusPayload, error) {
	if c == nil {
		return StatusPayload{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id.String()) == "" {
		return StatusPayload{}, fmt.Errorf("process id required")
	}
	rel := &url.URL{Path: "/status/" + url.PathEscape(id.String())}
	var payload StatusPayload
	if err := c.doURL(ctx, http.MethodGet, rel, nil, "", &payload); err != nil {
		return StatusPayload{}, err
	}
	return payload, nil
}

// FetchHistory retrieves the server's list of past jobs.
func (c *Client) FetchHistory(ctx context.Context) ([]HistoryEntry, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload HistoryResponse
	if err := c.doURL(ctx, http.MethodGet, &url.URL{Path: "/history"}, nil, "", &payload); err != nil {
		return nil, err
	}
	return payload.History, nil
}

func encodeUpload(name string, content io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(uploadField, name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body io.Reader, contentType string, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &requestError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Path: rel.Path, Code: resp.StatusCode}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &DecodeError{Path: rel.Path, Err: err}
	}
	return nil
}

func parseBaseURL(serverURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serverURL)
	if trimmed == "" {
		trimmed = defaultServerURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", serverURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server url %q: missing host", serverURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
