package uploads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission codenames for the evidence review workflow.
const (
	PermSubmitEvidence = "uploads.submit_evidence"
	PermReviewEvidence = "uploads.review_evidence"
)

type EvidenceStatus string

const (
	EvidenceStatusPendingReview EvidenceStatus = "PENDING_REVIEW"
	EvidenceStatusAccepted      EvidenceStatus = "ACCEPTED"
	EvidenceStatusRejected      EvidenceStatus = "REJECTED"
)

// Evidence is a piece of case evidence submitted for forensic review. The
// record tracks review state; any file backing it is attached to the owning
// submission through the attachment service.
type Evidence struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"caseId"`
	Description   string         `gorm:"type:text;not null" json:"description"`
	Status        EvidenceStatus `gorm:"type:varchar(32);not null;default:'PENDING_REVIEW'" json:"status"`
	SubmittedByID *uuid.UUID     `gorm:"type:uuid" json:"submittedById,omitempty"`
	ReviewedByID  *uuid.UUID     `gorm:"type:uuid" json:"reviewedById,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (Evidence) TableName() string {
	return "evidence_records"
}

func (e *Evidence) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

var ErrEvidenceNotFound = errors.New("evidence record not found")

type EvidenceRepository interface {
	CreateEvidenceInTx(ctx context.Context, tx *gorm.DB, ev *Evidence) error
	SaveEvidenceInTx(ctx context.Context, tx *gorm.DB, ev *Evidence) error
	GetEvidenceInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Evidence, error)
	GetEvidence(ctx context.Context, id uuid.UUID) (*Evidence, error)
}

type GormEvidenceRepository struct {
	db *gorm.DB
}

func NewGormEvidenceRepository(db *gorm.DB) *GormEvidenceRepository {
	return &GormEvidenceRepository{db: db}
}

func (r *GormEvidenceRepository) CreateEvidenceInTx(ctx context.Context, tx *gorm.DB, ev *Evidence) error {
	return tx.WithContext(ctx).Create(ev).Error
}

func (r *GormEvidenceRepository) SaveEvidenceInTx(ctx context.Context, tx *gorm.DB, ev *Evidence) error {
	return tx.WithContext(ctx).Save(ev).Error
}

func (r *GormEvidenceRepository) GetEvidenceInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Evidence, error) {
	return getEvidence(ctx, tx, id)
}

func (r *GormEvidenceRepository) GetEvidence(ctx context.Context, id uuid.UUID) (*Evidence, error) {
	return getEvidence(ctx, r.db, id)
}

func getEvidence(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Evidence, error) {
	var ev Evidence
	if err := db.WithContext(ctx).First(&ev, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvidenceNotFound
		}
		return nil, err
	}
	return &ev, nil
}
