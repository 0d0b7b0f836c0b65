package health

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"papermind-backend/internal/processing"
	"papermind-backend/internal/shared/storage/db"
)

const (
	StateUp       = "up"
	StateDown     = "down"
	StateDisabled = "disabled"
)

const checkTimeout = 2 * time.Second

// Service encapsulates health-related checks.
type Service struct {
	DB      *sql.DB
	Gateway processing.Gateway
}

// NewService constructs a new health service. A nil database means the
// in-memory repositories are in use.
func NewService(database *sql.DB, gateway processing.Gateway) *Service {
	return &Service{DB: database, Gateway: gateway}
}

// Report is the readiness view of each dependency.
type Report struct {
	Database   string `json:"database"`
	Processing string `json:"processing"`
	Chunks     *int   `json:"chunks,omitempty"`
}

// Ready reports true only when every configured dependency answers.
func (r Report) Ready() bool {
	return r.Database != StateDown && r.Processing != StateDown
}

// Status returns a simple liveness payload.
func (s *Service) Status() map[string]bool {
	return map[string]bool{"ok": true}
}

// Check probes the database and the processing service.
func (s *Service) Check(ctx context.Context) Report {
	report := Report{Database: StateDisabled, Processing: StateDisabled}

	if s.DB != nil {
		report.Database = StateUp
		if err := db.Ping(ctx, s.DB, checkTimeout); err != nil {
			report.Database = StateDown
		}
	}

	if s.Gateway != nil {
		ctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()
		info, err := s.Gateway.Status(ctx)
		switch {
		case errors.Is(err, processing.ErrNotConfigured):
		case err != nil:
			report.Processing = StateDown
		default:
			report.Processing = StateUp
			chunks := info.TotalChunks
			report.Chunks = &chunks
		}
	}
	return report
}
