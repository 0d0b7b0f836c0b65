package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"papermind-backend/internal/shared/metrics"
	"papermind-backend/internal/shared/telemetry"
)

const (
	defaultTimeout = 10 * time.Minute
	maxErrorBody   = 4 << 10
)

// Client talks to the processing service over JSON/HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithTimeout bounds every call. Processing a paper is slow, so the default
// is generous.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type processRequest struct {
	Title   string `json:"title"`
	PaperID string `json:"paper_id"`
}

type processResponse struct {
	PaperID string `json:"paper_id"`
	Message string `json:"message"`
}

type askRequest struct {
	PaperID  string `json:"paper_id"`
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type releaseRequest struct {
	PaperID string `json:"paper_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Process submits a paper for extraction and indexing and blocks until the
// service responds.
func (c *Client) Process(ctx context.Context, sub Submission) (Result, error) {
	start := time.Now()
	var out processResponse
	err := c.do(ctx, "process", http.MethodPost, "/process-paper", processRequest{
		Title:   sub.Title,
		PaperID: sub.PaperID,
	}, &out)
	elapsed := time.Since(start)
	metrics.ObserveProcessingDurationMs(float64(elapsed.Milliseconds()))
	if err != nil {
		return Result{}, err
	}

	ref := strings.TrimSpace(out.PaperID)
	if ref == "" {
		ref = sub.PaperID
	}
	telemetry.Info("processing.process.complete", map[string]any{
		"paper_id":    sub.PaperID,
		"reference":   ref,
		"duration_ms": elapsed.Milliseconds(),
	})
	return Result{Reference: ref, Message: out.Message}, nil
}

// Answer asks a question against the content indexed under reference.
func (c *Client) Answer(ctx context.Context, reference, question string) (string, error) {
	start := time.Now()
	var out askResponse
	err := c.do(ctx, "answer", http.MethodPost, "/ask", askRequest{
		PaperID:  reference,
		Question: question,
	}, &out)
	metrics.ObserveAnswerDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(out.Answer)
	if answer == "" {
		return "", &Error{Op: "answer", Message: "empty answer"}
	}
	return answer, nil
}

// Release drops the indexed content for reference.
func (c *Client) Release(ctx context.Context, reference string) error {
	return c.do(ctx, "release", http.MethodPost, "/delete-paper", releaseRequest{PaperID: reference}, nil)
}

// Status reports what the processing service currently holds.
func (c *Client) Status(ctx context.Context) (CollectionInfo, error) {
	var info CollectionInfo
	if err := c.do(ctx, "status", http.MethodGet, "/debug/collection-info", nil, &info); err != nil {
		return CollectionInfo{}, err
	}
	return info, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Err: err}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return &Error{Op: op, Message: "request timeout", Err: err}
		}
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func errorMessage(raw []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && strings.TrimSpace(parsed.Error) != "" {
		return strings.TrimSpace(parsed.Error)
	}
	return strings.TrimSpace(string(raw))
}
