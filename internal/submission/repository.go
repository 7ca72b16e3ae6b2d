package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

// Repository is the persistence contract of the transition engine. All
// mutating methods take the transaction handle of the enclosing unit of work;
// Transaction opens that unit of work. Submissions are independent units of
// concurrency: locking one submission row must not contend with appends to
// other submissions.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	CreateSubmissionInTx(ctx context.Context, tx *gorm.DB, sub *model.Submission) error
	// GetSubmissionForUpdateInTx loads a submission under an exclusive row
	// lock held until the transaction commits.
	GetSubmissionForUpdateInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Submission, error)
	GetSubmission(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	SaveSubmissionInTx(ctx context.Context, tx *gorm.DB, sub *model.Submission) error

	CreateStagesInTx(ctx context.Context, tx *gorm.DB, stages []model.SubmissionStage) error
	GetStagesInTx(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]model.SubmissionStage, error)
	GetStages(ctx context.Context, submissionID uuid.UUID) ([]model.SubmissionStage, error)
	SaveStageInTx(ctx context.Context, tx *gorm.DB, stage *model.SubmissionStage) error

	AppendActionInTx(ctx context.Context, tx *gorm.DB, action *model.SubmissionAction) error
	GetActionsInTx(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]model.SubmissionAction, error)
	GetActions(ctx context.Context, submissionID uuid.UUID) ([]model.SubmissionAction, error)

	ListByCreator(ctx context.Context, creatorID uuid.UUID, offset, limit int) ([]model.Submission, error)
	// ListPendingForActor returns PENDING submissions whose current stage
	// targets the actor directly or via any permission in the given set.
	ListPendingForActor(ctx context.Context, actorID uuid.UUID, permissions []string, offset, limit int) ([]model.Submission, error)
}

// GormRepository is the postgres-backed Repository.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a Repository over the given database handle.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *GormRepository) CreateSubmissionInTx(ctx context.Context, tx *gorm.DB, sub *model.Submission) error {
	if err := tx.Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *GormRepository) GetSubmissionForUpdateInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Submission, error) {
	var sub model.Submission
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load submission for update: %w", err)
	}
	return &sub, nil
}

func (r *GormRepository) GetSubmission(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	var sub model.Submission
	err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return &sub, nil
}

func (r *GormRepository) SaveSubmissionInTx(ctx context.Context, tx *gorm.DB, sub *model.Submission) error {
	if err := tx.Save(sub).Error; err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

func (r *GormRepository) CreateStagesInTx(ctx context.Context, tx *gorm.DB, stages []model.SubmissionStage) error {
	if len(stages) == 0 {
		return nil
	}
	if err := tx.Create(&stages).Error; err != nil {
		return fmt.Errorf("failed to create stages: %w", err)
	}
	return nil
}

func (r *GormRepository) GetStagesInTx(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]model.SubmissionStage, error) {
	var stages []model.SubmissionStage
	err := tx.Where("submission_id = ?", submissionID).
		Order("stage_order ASC").
		Find(&stages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load stages: %w", err)
	}
	return stages, nil
}

func (r *GormRepository) GetStages(ctx context.Context, submissionID uuid.UUID) ([]model.SubmissionStage, error) {
	return r.GetStagesInTx(ctx, r.db.WithContext(ctx), submissionID)
}

func (r *GormRepository) SaveStageInTx(ctx context.Context, tx *gorm.DB, stage *model.SubmissionStage) error {
	if err := tx.Save(stage).Error; err != nil {
		return fmt.Errorf("failed to save stage: %w", err)
	}
	return nil
}

func (r *GormRepository) AppendActionInTx(ctx context.Context, tx *gorm.DB, action *model.SubmissionAction) error {
	if err := tx.Create(action).Error; err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	return nil
}

func (r *GormRepository) GetActionsInTx(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]model.SubmissionAction, error) {
	var actions []model.SubmissionAction
	err := tx.Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load actions: %w", err)
	}
	return actions, nil
}

func (r *GormRepository) GetActions(ctx context.Context, submissionID uuid.UUID) ([]model.SubmissionAction, error) {
	return r.GetActionsInTx(ctx, r.db.WithContext(ctx), submissionID)
}

func (r *GormRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID, offset, limit int) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.db.WithContext(ctx).
		Where("created_by_id = ?", creatorID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions by creator: %w", err)
	}
	return subs, nil
}

func (r *GormRepository) ListPendingForActor(ctx context.Context, actorID uuid.UUID, permissions []string, offset, limit int) ([]model.Submission, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Joins("JOIN submission_stages ON submission_stages.submission_id = submissions.id AND submission_stages.stage_order = submissions.current_stage").
		Where("submissions.status = ?", model.SubmissionStatusPending)

	// Stage targeting is a set membership test against the actor's full
	// permission set, not a per-row permission lookup. A stage with a target
	// user admits only that user; the permission test applies to the rest.
	if len(permissions) > 0 {
		query = query.Where("submission_stages.target_user_id = ? OR (submission_stages.target_user_id IS NULL AND submission_stages.target_permission IN ?)", actorID, permissions)
	} else {
		query = query.Where("submission_stages.target_user_id = ?", actorID)
	}

	var subs []model.Submission
	err := query.
		Order("submissions.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending submissions for actor: %w", err)
	}
	return subs, nil
}
