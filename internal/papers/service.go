package papers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"papermind-backend/internal/processing"
	"papermind-backend/internal/shared/metrics"
	"papermind-backend/internal/shared/telemetry"
)

// Service is the paper registry. Registration calls the processing gateway
// first and persists only on success.
type Service struct {
	Repo      Repo
	Gateway   processing.Gateway
	Exchanges ExchangePurger
	Now       func() time.Time
}

// Registration is the outcome of a successful Register.
type Registration struct {
	Paper   Paper
	Message string
}

// Register processes a new paper and records it for uploaderID.
func (s *Service) Register(ctx context.Context, uploaderID, name, title string) (Registration, error) {
	title = strings.TrimSpace(title)
	name = strings.TrimSpace(name)
	if title == "" {
		return Registration{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if uploaderID == "" {
		return Registration{}, fmt.Errorf("%w: uploader is required", ErrInvalidInput)
	}

	exists, err := s.Repo.TitleExists(ctx, title)
	if err != nil {
		return Registration{}, err
	}
	if exists {
		metrics.IncPaperDuplicate()
		return Registration{}, ErrDuplicateTitle
	}

	paperID := uuid.NewString()
	result, err := s.Gateway.Process(ctx, processing.Submission{PaperID: paperID, Title: title})
	if err != nil {
		metrics.IncPaperProcessingFailed()
		telemetry.Warn("paper.process.failed", map[string]any{
			"paper_id": paperID,
			"user_id":  uploaderID,
			"error":    err,
		})
		return Registration{}, fmt.Errorf("%w: %w", ErrProcessingFailed, err)
	}

	paper := Paper{
		ID:                  paperID,
		Name:                name,
		Title:               title,
		ProcessingReference: result.Reference,
		UploadedBy:          uploaderID,
		UploadedAt:          s.now(),
	}
	if err := s.Repo.Create(ctx, paper); err != nil {
		// No row will ever reference this index.
		s.release(context.WithoutCancel(ctx), paperID, result.Reference)
		if errors.Is(err, ErrDuplicateTitle) || errors.Is(err, ErrAlreadyAdopted) {
			metrics.IncPaperDuplicate()
			return Registration{}, ErrDuplicateTitle
		}
		return Registration{}, err
	}

	metrics.IncPaperRegistered()
	telemetry.Info("paper.registered", map[string]any{
		"paper_id":  paper.ID,
		"user_id":   uploaderID,
		"reference": paper.ProcessingReference,
	})
	return Registration{Paper: paper, Message: result.Message}, nil
}

// ListMine returns the uploader's papers, newest first.
func (s *Service) ListMine(ctx context.Context, uploaderID string) ([]Paper, error) {
	return s.Repo.ListByOwner(ctx, uploaderID)
}

// ListAll returns every paper with its uploader's username, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Listing, error) {
	return s.Repo.ListAll(ctx)
}

// GetOwned returns the paper only if uploaderID owns it.
func (s *Service) GetOwned(ctx context.Context, paperID, uploaderID string) (Paper, error) {
	paper, err := s.Get(ctx, paperID)
	if err != nil {
		return Paper{}, err
	}
	if paper.UploadedBy != uploaderID {
		return Paper{}, ErrNotFound
	}
	return paper, nil
}

// Get returns any paper by id.
func (s *Service) Get(ctx context.Context, paperID string) (Paper, error) {
	if strings.TrimSpace(paperID) == "" {
		return Paper{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, paperID)
}

// AdoptExisting adds an already processed paper to requesterID's collection.
func (s *Service) AdoptExisting(ctx context.Context, paperID, requesterID string) (Paper, error) {
	if strings.TrimSpace(paperID) == "" {
		return Paper{}, fmt.Errorf("%w: paper id is required", ErrInvalidInput)
	}
	origin, err := s.Get(ctx, paperID)
	if err != nil {
		return Paper{}, err
	}

	if _, err := s.Repo.FindByOwnerTitle(ctx, requesterID, origin.Title); err == nil {
		return Paper{}, ErrAlreadyAdopted
	} else if !errors.Is(err, ErrNotFound) {
		return Paper{}, err
	}

	root := origin.ID
	if !origin.Registered() {
		root = origin.AdoptedFrom
	}
	paper := Paper{
		ID:                  uuid.NewString(),
		Name:                origin.Name,
		Title:               origin.Title,
		ProcessingReference: origin.ProcessingReference,
		UploadedBy:          requesterID,
		UploadedAt:          s.now(),
		AdoptedFrom:         root,
	}
	if err := s.Repo.Create(ctx, paper); err != nil {
		if errors.Is(err, ErrAlreadyAdopted) || errors.Is(err, ErrDuplicateTitle) {
			return Paper{}, ErrAlreadyAdopted
		}
		return Paper{}, err
	}

	metrics.IncPaperAdopted()
	telemetry.Info("paper.adopted", map[string]any{
		"paper_id":     paper.ID,
		"adopted_from": root,
		"user_id":      requesterID,
	})
	return paper, nil
}

// Remove deletes an owned paper with its exchanges. The processing index is
// released only when no other row still points at it.
func (s *Service) Remove(ctx context.Context, paperID, ownerID string) error {
	paper, err := s.GetOwned(ctx, paperID, ownerID)
	if err != nil {
		return err
	}

	shared, err := s.Repo.CountByReference(ctx, paper.ProcessingReference)
	if err != nil {
		return err
	}
	if shared <= 1 {
		s.release(ctx, paper.ID, paper.ProcessingReference)
	}

	if err := s.Repo.Delete(ctx, paper.ID, s.Exchanges); err != nil {
		return err
	}
	metrics.IncPaperRemoved()
	telemetry.Info("paper.removed", map[string]any{
		"paper_id": paper.ID,
		"user_id":  ownerID,
		"released": shared <= 1,
	})
	return nil
}

// release is best effort; failures are logged and counted.
func (s *Service) release(ctx context.Context, paperID, reference string) {
	if err := s.Gateway.Release(ctx, reference); err != nil {
		metrics.IncReleaseFailed()
		telemetry.Warn("paper.release.failed", map[string]any{
			"paper_id":  paperID,
			"reference": reference,
			"error":     err,
		})
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
