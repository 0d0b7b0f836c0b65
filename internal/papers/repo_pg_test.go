package papers

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"papermind-backend/internal/shared/storage/db"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &PGRepo{DB: conn}, mock
}

func TestPGRepoCreateMapsConstraints(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{titleConstraint, ErrDuplicateTitle},
		{ownerTitleConstraint, ErrAlreadyAdopted},
	}
	for _, tc := range cases {
		t.Run(tc.constraint, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			paper := Paper{
				ID:                  "p-1",
				Title:               "Attention",
				ProcessingReference: "idx-1",
				UploadedBy:          "u-1",
				UploadedAt:          time.Now().UTC(),
			}
			mock.ExpectExec("INSERT INTO research_papers").
				WithArgs(paper.ID, nil, paper.Title, paper.ProcessingReference, paper.UploadedBy, paper.UploadedAt, nil).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tc.constraint})

			require.ErrorIs(t, repo.Create(context.Background(), paper), tc.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPGRepoListByOwnerOrdersNewestFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	newer := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "name", "title", "processing_reference", "uploaded_by", "uploaded_at", "adopted_from"}).
		AddRow("p-2", "", "B", "idx-2", "u-1", newer, "p-9").
		AddRow("p-1", "Vaswani", "A", "idx-1", "u-1", older, "")
	mock.ExpectQuery("FROM research_papers WHERE uploaded_by = \\$1 ORDER BY uploaded_at DESC").
		WithArgs("u-1").
		WillReturnRows(rows)

	papers, err := repo.ListByOwner(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, papers, 2)
	require.Equal(t, "p-2", papers[0].ID)
	require.Equal(t, "p-9", papers[0].AdoptedFrom)
	require.True(t, papers[1].Registered())
	require.NoError(t, mock.ExpectationsWereMet())
}

type txPurger struct{}

func (txPurger) DeleteByPaper(ctx context.Context, q db.DBTX, paperID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM user_queries WHERE paper_id = $1`, paperID)
	return err
}

func TestPGRepoDeletePurgesExchangesInTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_queries").WithArgs("p-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM research_papers").WithArgs("p-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "p-1", txPurger{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoDeleteMissingRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_queries").WithArgs("p-x").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM research_papers").WithArgs("p-x").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	require.ErrorIs(t, repo.Delete(context.Background(), "p-x", txPurger{}), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
