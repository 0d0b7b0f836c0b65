package papers

import (
	"context"
	"sort"
	"sync"
)

// UsernameLookup resolves uploader usernames for ListAll.
type UsernameLookup func(ctx context.Context, userID string) (string, error)

type MemoryRepo struct {
	mu        sync.RWMutex
	papers    map[string]Paper
	usernames UsernameLookup
}

func NewMemoryRepo(usernames UsernameLookup) *MemoryRepo {
	return &MemoryRepo{
		papers:    make(map[string]Paper),
		usernames: usernames,
	}
}

// Create checks both uniqueness rules and inserts under one lock.
func (r *MemoryRepo) Create(ctx context.Context, paper Paper) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.papers {
		if existing.Title != paper.Title {
			continue
		}
		if paper.Registered() && existing.Registered() {
			return ErrDuplicateTitle
		}
		if existing.UploadedBy == paper.UploadedBy {
			return ErrAlreadyAdopted
		}
	}
	r.papers[paper.ID] = paper
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, paperID string) (Paper, error) {
	if err := ctx.Err(); err != nil {
		return Paper{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	paper, ok := r.papers[paperID]
	if !ok {
		return Paper{}, ErrNotFound
	}
	return paper, nil
}

func (r *MemoryRepo) FindByOwnerTitle(ctx context.Context, ownerID, title string) (Paper, error) {
	if err := ctx.Err(); err != nil {
		return Paper{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, paper := range r.papers {
		if paper.UploadedBy == ownerID && paper.Title == title {
			return paper, nil
		}
	}
	return Paper{}, ErrNotFound
}

func (r *MemoryRepo) TitleExists(ctx context.Context, title string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, paper := range r.papers {
		if paper.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Paper, 0)
	for _, paper := range r.papers {
		if paper.UploadedBy == ownerID {
			out = append(out, paper)
		}
	}
	r.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryRepo) ListAll(ctx context.Context) ([]Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	all := make([]Paper, 0, len(r.papers))
	for _, paper := range r.papers {
		all = append(all, paper)
	}
	r.mu.RUnlock()
	sortNewestFirst(all)

	out := make([]Listing, 0, len(all))
	for _, paper := range all {
		listing := Listing{Paper: paper}
		if r.usernames != nil {
			name, err := r.usernames(ctx, paper.UploadedBy)
			if err != nil {
				// Inner join semantics: rows without a user are skipped.
				continue
			}
			listing.Username = name
		}
		out = append(out, listing)
	}
	return out, nil
}

func (r *MemoryRepo) CountByReference(ctx context.Context, reference string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, paper := range r.papers {
		if paper.ProcessingReference == reference {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, paperID string, purge ExchangePurger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.papers[paperID]; !ok {
		return ErrNotFound
	}
	if purge != nil {
		if err := purge.DeleteByPaper(ctx, nil, paperID); err != nil {
			return err
		}
	}
	delete(r.papers, paperID)
	return nil
}

func sortNewestFirst(papers []Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		if papers[i].UploadedAt.Equal(papers[j].UploadedAt) {
			return papers[i].ID > papers[j].ID
		}
		return papers[i].UploadedAt.After(papers[j].UploadedAt)
	})
}
