package queries

import (
	"context"

	"papermind-backend/internal/shared/storage/db"
)

// Ledger is the append-only history of exchanges.
type Ledger interface {
	Append(ctx context.Context, exchange Exchange) error
	// History returns userID's exchanges for paperID, newest first.
	History(ctx context.Context, paperID, userID string) ([]Exchange, error)
	// DeleteByPaper removes every exchange for paperID. When q is non-nil the
	// delete runs on it.
	DeleteByPaper(ctx context.Context, q db.DBTX, paperID string) error
}
