package queries

import (
	"context"
	"database/sql"
	"fmt"

	"papermind-backend/internal/shared/storage/db"
)

// paperConstraint is the default name Postgres gives the paper_id reference.
const paperConstraint = "user_queries_paper_id_fkey"

type PGLedger struct {
	DB *sql.DB
}

func (l *PGLedger) Append(ctx context.Context, exchange Exchange) error {
	const query = `
INSERT INTO user_queries (id, user_id, paper_id, question, answer, asked_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := l.DB.ExecContext(ctx, query,
		exchange.ID,
		exchange.UserID,
		exchange.PaperID,
		exchange.Question,
		exchange.Answer,
		exchange.AskedAt,
	)
	if err != nil {
		// The paper was removed while the question was in flight.
		if name, ok := db.ForeignKeyViolation(err); ok && name == paperConstraint {
			return ErrPaperNotFound
		}
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

func (l *PGLedger) History(ctx context.Context, paperID, userID string) ([]Exchange, error) {
	const query = `
SELECT id, user_id, paper_id, question, answer, asked_at
FROM user_queries
WHERE paper_id = $1 AND user_id = $2
ORDER BY asked_at DESC, id DESC`
	rows, err := l.DB.QueryContext(ctx, query, paperID, userID)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	out := make([]Exchange, 0)
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.ID, &e.UserID, &e.PaperID, &e.Question, &e.Answer, &e.AskedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return out, nil
}

func (l *PGLedger) DeleteByPaper(ctx context.Context, q db.DBTX, paperID string) error {
	if q == nil {
		q = l.DB
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM user_queries WHERE paper_id = $1`, paperID); err != nil {
		return fmt.Errorf("delete exchanges: %w", err)
	}
	return nil
}
