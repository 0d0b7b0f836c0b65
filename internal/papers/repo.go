package papers

import (
	"context"

	"papermind-backend/internal/shared/storage/db"
)

// Repo persists papers. Create returns ErrDuplicateTitle when a registered
// row with the title exists and ErrAlreadyAdopted when the uploader already
// holds a row with the title.
type Repo interface {
	Create(ctx context.Context, paper Paper) error
	GetByID(ctx context.Context, paperID string) (Paper, error)
	FindByOwnerTitle(ctx context.Context, ownerID, title string) (Paper, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Paper, error)
	ListAll(ctx context.Context) ([]Listing, error)
	CountByReference(ctx context.Context, reference string) (int, error)
	Delete(ctx context.Context, paperID string, purge ExchangePurger) error
}

// ExchangePurger deletes the exchanges recorded against a paper. q is the
// removal transaction when the repository runs one, nil otherwise.
type ExchangePurger interface {
	DeleteByPaper(ctx context.Context, q db.DBTX, paperID string) error
}
