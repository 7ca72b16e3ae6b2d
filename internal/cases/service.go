package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCaseDesk/casedesk/internal/submission"
)

// CaseService opens and maintains cases produced by approved submissions.
type CaseService struct {
	repo Repository
}

func NewCaseService(repo Repository) *CaseService {
	return &CaseService{repo: repo}
}

// GetOrCreateFromSubmissionInTx links exactly one case to an originating
// submission. Replays of the same approval return the existing case
// unchanged; an attempt to link the submission to a different source object
// fails with ConflictingLink.
func (s *CaseService) GetOrCreateFromSubmissionInTx(ctx context.Context, tx *gorm.DB, draft *Case) (*Case, error) {
	existing, err := s.repo.GetCaseBySourceSubmissionInTx(ctx, tx, draft.SourceSubmissionID)
	if err != nil && !errors.Is(err, ErrCaseNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.SourceObjectID != draft.SourceObjectID {
			return nil, fmt.Errorf("%w: submission %s already linked to case %s",
				submission.ErrConflictingLink, draft.SourceSubmissionID, existing.CaseNumber)
		}
		return existing, nil
	}

	if draft.ID == uuid.Nil {
		draft.ID = uuid.New()
	}
	draft.CaseNumber = newCaseNumber(draft.ID)
	if draft.Status == "" {
		draft.Status = CaseStatusOpen
	}
	if draft.CrimeLevel == "" {
		draft.CrimeLevel = "UNCLASSIFIED"
	}
	if err := s.repo.CreateCaseInTx(ctx, tx, draft); err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}

	slog.InfoContext(ctx, "case opened",
		"case_number", draft.CaseNumber,
		"source_submission_id", draft.SourceSubmissionID,
	)
	return draft, nil
}

// AssignLeadDetectiveInTx records the detective leading the case.
func (s *CaseService) AssignLeadDetectiveInTx(ctx context.Context, tx *gorm.DB, caseID, detectiveID uuid.UUID) error {
	c, err := s.repo.GetCaseInTx(ctx, tx, caseID)
	if err != nil {
		return err
	}
	c.LeadDetectiveID = &detectiveID
	return s.repo.SaveCaseInTx(ctx, tx, c)
}

// GetCase returns a case by id.
func (s *CaseService) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.repo.GetCase(ctx, id)
}

// newCaseNumber derives a short human-readable number from the case id.
func newCaseNumber(id uuid.UUID) string {
	return "C-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
}
