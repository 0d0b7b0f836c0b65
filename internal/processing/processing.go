package processing

import (
	"context"
	"errors"
	"fmt"
)

// Gateway is the boundary to the external extraction and answering service.
type Gateway interface {
	Process(ctx context.Context, sub Submission) (Result, error)
	Answer(ctx context.Context, reference, question string) (string, error)
	Release(ctx context.Context, reference string) error
	Status(ctx context.Context) (CollectionInfo, error)
}

// Submission identifies a paper to be processed.
type Submission struct {
	PaperID string
	Title   string
}

// Result is what processing hands back: the reference under which the
// paper's content was indexed.
type Result struct {
	Reference string
	Message   string
}

// CollectionInfo summarizes the processing service's index.
type CollectionInfo struct {
	TotalChunks int      `json:"total_chunks"`
	PaperIDs    []string `json:"paper_ids_found,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// ErrNotConfigured is returned by the placeholder gateway.
var ErrNotConfigured = errors.New("processing service not configured")

// Error is a failed call to the processing service.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("processing %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("processing %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("processing %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("processing %s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Placeholder stands in when no processing URL is configured.
type Placeholder struct{}

func (Placeholder) Process(ctx context.Context, sub Submission) (Result, error) {
	return Result{}, ErrNotConfigured
}

func (Placeholder) Answer(ctx context.Context, reference, question string) (string, error) {
	return "", ErrNotConfigured
}

func (Placeholder) Release(ctx context.Context, reference string) error {
	return ErrNotConfigured
}

func (Placeholder) Status(ctx context.Context) (CollectionInfo, error) {
	return CollectionInfo{}, ErrNotConfigured
}

// New returns an HTTP client for baseURL, or the placeholder when it is empty.
func New(baseURL string, opts ...Option) Gateway {
	if baseURL == "" {
		return Placeholder{}
	}
	return NewClient(baseURL, opts...)
}

var (
	_ Gateway = Placeholder{}
	_ Gateway = (*Client)(nil)
)
