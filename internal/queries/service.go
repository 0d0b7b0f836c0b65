package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"papermind-backend/internal/papers"
	"papermind-backend/internal/processing"
	"papermind-backend/internal/shared/metrics"
	"papermind-backend/internal/shared/telemetry"
)

// PaperLookup resolves a paper by id without an ownership check.
type PaperLookup interface {
	Get(ctx context.Context, paperID string) (papers.Paper, error)
}

// Orchestrator answers questions against processed papers and records each
// answered exchange.
type Orchestrator struct {
	Papers  PaperLookup
	Gateway processing.Gateway
	Ledger  Ledger
	Now     func() time.Time
}

// Ask answers question for paperID on behalf of userID. Nothing is recorded
// unless an answer came back.
func (o *Orchestrator) Ask(ctx context.Context, userID, paperID, question string) (Exchange, error) {
	paperID = strings.TrimSpace(paperID)
	question = strings.TrimSpace(question)
	if paperID == "" || question == "" {
		return Exchange{}, fmt.Errorf("%w: paperId and question are required", ErrInvalidInput)
	}

	paper, err := o.Papers.Get(ctx, paperID)
	if err != nil {
		if errors.Is(err, papers.ErrNotFound) {
			return Exchange{}, ErrPaperNotFound
		}
		return Exchange{}, err
	}

	answer, err := o.Gateway.Answer(ctx, paper.ProcessingReference, question)
	if err != nil {
		metrics.IncQuestionFailed()
		telemetry.Warn("query.answer.failed", map[string]any{
			"paper_id": paperID,
			"user_id":  userID,
			"error":    err,
		})
		return Exchange{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	exchange := Exchange{
		ID:       uuid.NewString(),
		UserID:   userID,
		PaperID:  paper.ID,
		Question: question,
		Answer:   answer,
		AskedAt:  o.now(),
	}
	if err := o.Ledger.Append(ctx, exchange); err != nil {
		return Exchange{}, err
	}
	metrics.IncQuestionAnswered()
	return exchange, nil
}

// History returns userID's exchanges for paperID, newest first.
func (o *Orchestrator) History(ctx context.Context, userID, paperID string) ([]Exchange, error) {
	if strings.TrimSpace(paperID) == "" {
		return nil, fmt.Errorf("%w: paperId is required", ErrInvalidInput)
	}
	return o.Ledger.History(ctx, paperID, userID)
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now().UTC()
}
