package queries

import (
	"context"
	"sort"
	"sync"

	"papermind-backend/internal/shared/storage/db"
)

type MemoryLedger struct {
	mu        sync.RWMutex
	exchanges []Exchange
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Append(ctx context.Context, exchange Exchange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exchanges = append(l.exchanges, exchange)
	return nil
}

func (l *MemoryLedger) History(ctx context.Context, paperID, userID string) ([]Exchange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	out := make([]Exchange, 0)
	for i := len(l.exchanges) - 1; i >= 0; i-- {
		e := l.exchanges[i]
		if e.PaperID == paperID && e.UserID == userID {
			out = append(out, e)
		}
	}
	l.mu.RUnlock()
	// Reverse insertion order breaks ties between equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AskedAt.After(out[j].AskedAt)
	})
	return out, nil
}

func (l *MemoryLedger) DeleteByPaper(ctx context.Context, _ db.DBTX, paperID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.exchanges[:0]
	for _, e := range l.exchanges {
		if e.PaperID != paperID {
			kept = append(kept, e)
		}
	}
	l.exchanges = kept
	return nil
}
