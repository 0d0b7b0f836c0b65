package queries

import (
	"errors"
	"time"
)

// Exchange is one answered question. Immutable once recorded.
type Exchange struct {
	ID       string
	UserID   string
	PaperID  string
	Question string
	Answer   string
	AskedAt  time.Time
}

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrPaperNotFound = errors.New("paper not found")
	ErrQueryFailed   = errors.New("query failed")
)

// ExchangeResponse is the outward-facing representation of an exchange.
type ExchangeResponse struct {
	ID       string    `json:"id"`
	PaperID  string    `json:"paperId"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"askedAt"`
}

func toResponses(exchanges []Exchange) []ExchangeResponse {
	out := make([]ExchangeResponse, 0, len(exchanges))
	for _, e := range exchanges {
		out = append(out, ExchangeResponse{
			ID:       e.ID,
			PaperID:  e.PaperID,
			Question: e.Question,
			Answer:   e.Answer,
			AskedAt:  e.AskedAt,
		})
	}
	return out
}
