package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCaseDesk/casedesk/internal/submission"
	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

// SubmissionGuard answers whether an actor may see a submission. The
// workflow engine implements it; its not-found answer already hides
// submissions the actor has no business seeing.
type SubmissionGuard interface {
	GetSubmission(ctx context.Context, submissionID, actorID uuid.UUID) (*model.SubmissionResponseDTO, error)
}

// Service stores and serves evidence attachments. Uploads are restricted to
// the submission creator while the submission is still pending; downloads
// follow the submission visibility rule.
type Service struct {
	db     *gorm.DB
	driver StorageDriver
	guard  SubmissionGuard
}

func NewService(db *gorm.DB, driver StorageDriver, guard SubmissionGuard) *Service {
	return &Service{db: db, driver: driver, guard: guard}
}

// Attach uploads one file as evidence on the given submission.
func (s *Service) Attach(ctx context.Context, submissionID, actorID uuid.UUID, filename string, body io.Reader, size int64, contentType string) (*Attachment, error) {
	view, err := s.guard.GetSubmission(ctx, submissionID, actorID)
	if err != nil {
		return nil, err
	}
	if view.CreatedBy == nil || *view.CreatedBy != actorID {
		return nil, fmt.Errorf("%w: only the submitter may attach evidence", submission.ErrForbidden)
	}
	if view.Status.IsTerminal() {
		return nil, submission.ErrTerminal
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := uuid.NewString() + filepath.Ext(filename)

	if err := s.driver.Save(ctx, key, body, contentType); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	attachment := &Attachment{
		SubmissionID: submissionID,
		Key:          key,
		Filename:     filename,
		ContentType:  contentType,
		Size:         size,
		UploadedByID: actorID,
	}
	if err := s.db.WithContext(ctx).Create(attachment).Error; err != nil {
		if delErr := s.driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to clean up orphaned attachment", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	slog.InfoContext(ctx, "attachment stored",
		"submission_id", submissionID,
		"key", key,
		"size", size,
	)
	return attachment, nil
}

// Open streams an attachment back by storage key.
func (s *Service) Open(ctx context.Context, key string, actorID uuid.UUID) (*Attachment, io.ReadCloser, error) {
	var attachment Attachment
	if err := s.db.WithContext(ctx).First(&attachment, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, submission.ErrNotFound
		}
		return nil, nil, err
	}

	// Visibility rides on the owning submission.
	if _, err := s.guard.GetSubmission(ctx, attachment.SubmissionID, actorID); err != nil {
		return nil, nil, err
	}

	reader, _, err := s.driver.Get(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("storage driver failed: %w", err)
	}
	return &attachment, reader, nil
}

// List returns the attachments on a submission the actor may see.
func (s *Service) List(ctx context.Context, submissionID, actorID uuid.UUID) ([]Attachment, error) {
	if _, err := s.guard.GetSubmission(ctx, submissionID, actorID); err != nil {
		return nil, err
	}

	var attachments []Attachment
	if err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}
