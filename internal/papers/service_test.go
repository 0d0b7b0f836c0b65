package papers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"papermind-backend/internal/processing"
	"papermind-backend/internal/shared/storage/db"
)

type fakeGateway struct {
	mu         sync.Mutex
	processErr error
	releaseErr error
	processed  []processing.Submission
	released   []string
	delay      time.Duration
}

func (g *fakeGateway) Process(ctx context.Context, sub processing.Submission) (processing.Result, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.processed = append(g.processed, sub)
	if g.processErr != nil {
		return processing.Result{}, g.processErr
	}
	return processing.Result{Reference: "idx-" + sub.PaperID, Message: "processed"}, nil
}

func (g *fakeGateway) Answer(ctx context.Context, reference, question string) (string, error) {
	return "", errors.New("not used")
}

func (g *fakeGateway) Release(ctx context.Context, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released = append(g.released, reference)
	return g.releaseErr
}

func (g *fakeGateway) Status(ctx context.Context) (processing.CollectionInfo, error) {
	return processing.CollectionInfo{}, nil
}

type recordingPurger struct {
	purged []string
}

func (p *recordingPurger) DeleteByPaper(ctx context.Context, q db.DBTX, paperID string) error {
	p.purged = append(p.purged, paperID)
	return nil
}

func newTestService(gw *fakeGateway) (*Service, *MemoryRepo, *recordingPurger) {
	repo := NewMemoryRepo(func(ctx context.Context, userID string) (string, error) {
		return "name-" + userID, nil
	})
	purger := &recordingPurger{}
	var tick atomic.Int64
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &Service{
		Repo:      repo,
		Gateway:   gw,
		Exchanges: purger,
		Now: func() time.Time {
			return base.Add(time.Duration(tick.Add(1)) * time.Second)
		},
	}
	return svc, repo, purger
}

func TestRegisterPersistsAfterProcessing(t *testing.T) {
	gw := &fakeGateway{}
	svc, _, _ := newTestService(gw)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "u1", "Vaswani", "  Attention  ")
	require.NoError(t, err)
	require.Equal(t, "Attention", reg.Paper.Title)
	require.Equal(t, "processed", reg.Message)
	require.Equal(t, "idx-"+reg.Paper.ID, reg.Paper.ProcessingReference)
	require.Len(t, gw.processed, 1)
	require.Equal(t, reg.Paper.ID, gw.processed[0].PaperID)

	mine, err := svc.ListMine(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestRegisterRejectsEmptyTitle(t *testing.T) {
	gw := &fakeGateway{}
	svc, _, _ := newTestService(gw)

	_, err := svc.Register(context.Background(), "u1", "", "   ")
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Empty(t, gw.processed)
}

func TestRegisterDuplicateSkipsProcessing(t *testing.T) {
	gw := &fakeGateway{}
	svc, _, _ := newTestService(gw)
	ctx := context.Background()

	_, err := svc.Register(ctx, "u1", "", "Attention")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "u2", "", "Attention")
	require.ErrorIs(t, err, ErrDuplicateTitle)
	require.Len(t, gw.processed, 1)
}

func TestRegisterProcessingFailureLeavesNoRow(t *testing.T) {
	gw := &fakeGateway{processErr: &processing.Error{Op: "process", StatusCode: 400, Message: "Failed to extract text from PDF."}}
	svc, _, _ := newTestService(gw)
	ctx := context.Background()

	_, err := svc.Register(ctx, "u1", "", "Broken")
	require.ErrorIs(t, err, ErrProcessingFailed)

	var perr *processing.Error
	require.ErrorAs(t, err, &perr)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	gw.processErr = nil
	_, err = svc.Register(ctx, "u1", "", "Broken")
	require.NoError(t, err)
}

// failingCreateRepo fails every insert with a storage error.
type failingCreateRepo struct {
	*MemoryRepo
	err error
}

func (r failingCreateRepo) Create(ctx context.Context, paper Paper) error {
	return r.err
}

func TestRegisterInsertFailureReleasesIndex(t *testing.T) {
	gw := &fakeGateway{}
	svc, repo, _ := newTestService(gw)
	insertErr := errors.New("insert paper: connection reset")
	svc.Repo = failingCreateRepo{MemoryRepo: repo, err: insertErr}
	ctx := context.Background()

	_, err := svc.Register(ctx, "u1", "", "Attention")
	require.ErrorIs(t, err, insertErr)
	require.NotErrorIs(t, err, ErrDuplicateTitle)

	require.Len(t, gw.processed, 1)
	require.Equal(t, []string{"idx-" + gw.processed[0].PaperID}, gw.released)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestConcurrentRegistrationKeepsOneRow(t *testing.T) {
	gw := &fakeGateway{delay: 10 * time.Millisecond}
	svc, _, _ := newTestService(gw)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		dupes     atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Register(ctx, "user-"+string(rune('a'+i)), "", "Same Title")
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrDuplicateTitle):
				dupes.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), succeeded.Load())
	require.Equal(t, int32(workers-1), dupes.Load())

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	// Losers that reached processing release their orphaned index.
	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.Equal(t, len(gw.processed)-1, len(gw.released))
}

func TestAdoptExisting(t *testing.T) {
	gw := &fakeGateway{}
	svc, _, _ := newTestService(gw)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "u1", "Vaswani", "Attention")
	require.NoError(t, err)

	adopted, err := svc.AdoptExisting(ctx, reg.Paper.ID, "u2")
	require.NoError(t, err)
	require.Equal(t, reg.Paper.ProcessingReference, adopted.ProcessingReference)
	require.Equal(t, reg.Paper.ID, adopted.AdoptedFrom)
	require.Equal(t, "Vaswani", adopted.Name)

	_, err = svc.AdoptExisting(ctx, reg.Paper.ID, "u2")
	require.ErrorIs(t, err, ErrAlreadyAdopted)

	// Owner of the title gets no second row.
	_, err = svc.AdoptExisting(ctx, reg.Paper.ID, "u1")
	require.ErrorIs(t, err, ErrAlreadyAdopted)

	// Adopting from an adopted row points at the registered origin.
	third, err := svc.AdoptExisting(ctx, adopted.ID, "u3")
	require.NoError(t, err)
	require.Equal(t, reg.Paper.ID, third.AdoptedFrom)

	_, err = svc.AdoptExisting(ctx, "missing", "u2")
	require.ErrorIs(t, err, ErrNotFound)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "name-u3", all[0].Username)
}

func TestGetOwnedHidesOtherUsersPapers(t *testing.T) {
	svc, _, _ := newTestService(&fakeGateway{})
	ctx := context.Background()

	reg, err := svc.Register(ctx, "u1", "", "Attention")
	require.NoError(t, err)

	_, err = svc.GetOwned(ctx, reg.Paper.ID, "u2")
	require.ErrorIs(t, err, ErrNotFound)

	paper, err := svc.GetOwned(ctx, reg.Paper.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, reg.Paper.ID, paper.ID)
}

func TestRemoveReleasesOnlyUnsharedReference(t *testing.T) {
	gw := &fakeGateway{}
	svc, _, purger := newTestService(gw)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "u1", "", "Attention")
	require.NoError(t, err)
	adopted, err := svc.AdoptExisting(ctx, reg.Paper.ID, "u2")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Remove(ctx, reg.Paper.ID, "u2"), ErrNotFound)

	require.NoError(t, svc.Remove(ctx, reg.Paper.ID, "u1"))
	require.Empty(t, gw.released)
	require.Equal(t, []string{reg.Paper.ID}, purger.purged)

	require.NoError(t, svc.Remove(ctx, adopted.ID, "u2"))
	require.Equal(t, []string{reg.Paper.ProcessingReference}, gw.released)

	_, err = svc.Get(ctx, adopted.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveSurvivesReleaseFailure(t *testing.T) {
	gw := &fakeGateway{releaseErr: errors.New("flask down")}
	svc, _, _ := newTestService(gw)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "u1", "", "Attention")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, reg.Paper.ID, "u1"))
	_, err = svc.Get(ctx, reg.Paper.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
