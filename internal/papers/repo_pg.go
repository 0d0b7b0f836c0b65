package papers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"papermind-backend/internal/shared/storage/db"
)

const (
	titleConstraint      = "research_papers_title_key"
	ownerTitleConstraint = "research_papers_owner_title_key"
)

type PGRepo struct {
	DB *sql.DB
}

const paperColumns = `id, COALESCE(name, ''), title, processing_reference, uploaded_by, uploaded_at, COALESCE(adopted_from, '')`

func (r *PGRepo) Create(ctx context.Context, paper Paper) error {
	const query = `
INSERT INTO research_papers (id, name, title, processing_reference, uploaded_by, uploaded_at, adopted_from)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		paper.ID,
		nullString(paper.Name),
		paper.Title,
		paper.ProcessingReference,
		paper.UploadedBy,
		paper.UploadedAt,
		nullString(paper.AdoptedFrom),
	)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok {
			switch constraint {
			case titleConstraint:
				return ErrDuplicateTitle
			case ownerTitleConstraint:
				return ErrAlreadyAdopted
			}
		}
		return fmt.Errorf("insert paper: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, paperID string) (Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM research_papers WHERE id = $1`
	return scanPaper(r.DB.QueryRowContext(ctx, query, paperID))
}

func (r *PGRepo) FindByOwnerTitle(ctx context.Context, ownerID, title string) (Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM research_papers WHERE uploaded_by = $1 AND title = $2`
	return scanPaper(r.DB.QueryRowContext(ctx, query, ownerID, title))
}

func (r *PGRepo) TitleExists(ctx context.Context, title string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM research_papers WHERE title = $1)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, title).Scan(&exists); err != nil {
		return false, fmt.Errorf("check title: %w", err)
	}
	return exists, nil
}

func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM research_papers WHERE uploaded_by = $1 ORDER BY uploaded_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	out := make([]Paper, 0)
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	return out, nil
}

func (r *PGRepo) ListAll(ctx context.Context) ([]Listing, error) {
	const query = `
SELECT rp.id, COALESCE(rp.name, ''), rp.title, rp.processing_reference, rp.uploaded_by,
       rp.uploaded_at, COALESCE(rp.adopted_from, ''), u.username
FROM research_papers rp
JOIN users u ON rp.uploaded_by = u.id
ORDER BY rp.uploaded_at DESC, rp.id DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all papers: %w", err)
	}
	defer rows.Close()

	out := make([]Listing, 0)
	for rows.Next() {
		var l Listing
		if err := rows.Scan(
			&l.ID,
			&l.Name,
			&l.Title,
			&l.ProcessingReference,
			&l.UploadedBy,
			&l.UploadedAt,
			&l.AdoptedFrom,
			&l.Username,
		); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list all papers: %w", err)
	}
	return out, nil
}

func (r *PGRepo) CountByReference(ctx context.Context, reference string) (int, error) {
	const query = `SELECT COUNT(*) FROM research_papers WHERE processing_reference = $1`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, reference).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reference: %w", err)
	}
	return n, nil
}

// Delete removes the paper's exchanges and then the paper in one transaction.
func (r *PGRepo) Delete(ctx context.Context, paperID string, purge ExchangePurger) error {
	return db.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		if purge != nil {
			if err := purge.DeleteByPaper(ctx, tx, paperID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM research_papers WHERE id = $1`, paperID)
		if err != nil {
			return fmt.Errorf("delete paper: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete paper: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (Paper, error) {
	var p Paper
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Title,
		&p.ProcessingReference,
		&p.UploadedBy,
		&p.UploadedAt,
		&p.AdoptedFrom,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Paper{}, ErrNotFound
		}
		return Paper{}, fmt.Errorf("scan paper: %w", err)
	}
	return p, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
