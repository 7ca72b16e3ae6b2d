package cases

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrComplaintNotFound  = errors.New("complaint not found")
	ErrCrimeSceneNotFound = errors.New("crime scene not found")
	ErrCaseNotFound       = errors.New("case not found")
)

// Repository persists the case domain objects. Methods suffixed InTx run
// inside an open workflow transaction.
type Repository interface {
	CreateComplaintInTx(ctx context.Context, tx *gorm.DB, complaint *Complaint) error
	SaveComplaintInTx(ctx context.Context, tx *gorm.DB, complaint *Complaint) error
	GetComplaintInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Complaint, error)
	GetComplaint(ctx context.Context, id uuid.UUID) (*Complaint, error)

	CreateCrimeSceneInTx(ctx context.Context, tx *gorm.DB, scene *CrimeScene) error
	GetCrimeSceneInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*CrimeScene, error)
	GetCrimeScene(ctx context.Context, id uuid.UUID) (*CrimeScene, error)

	CreateCaseInTx(ctx context.Context, tx *gorm.DB, c *Case) error
	SaveCaseInTx(ctx context.Context, tx *gorm.DB, c *Case) error
	GetCaseBySourceSubmissionInTx(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*Case, error)
	GetCaseInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Case, error)
	GetCase(ctx context.Context, id uuid.UUID) (*Case, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) CreateComplaintInTx(ctx context.Context, tx *gorm.DB, complaint *Complaint) error {
	return tx.WithContext(ctx).Create(complaint).Error
}

func (r *GormRepository) SaveComplaintInTx(ctx context.Context, tx *gorm.DB, complaint *Complaint) error {
	return tx.WithContext(ctx).Save(complaint).Error
}

func (r *GormRepository) GetComplaintInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Complaint, error) {
	return getComplaint(ctx, tx, id)
}

func (r *GormRepository) GetComplaint(ctx context.Context, id uuid.UUID) (*Complaint, error) {
	return getComplaint(ctx, r.db, id)
}

func getComplaint(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Complaint, error) {
	var complaint Complaint
	if err := db.WithContext(ctx).First(&complaint, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrComplaintNotFound
		}
		return nil, err
	}
	return &complaint, nil
}

func (r *GormRepository) CreateCrimeSceneInTx(ctx context.Context, tx *gorm.DB, scene *CrimeScene) error {
	return tx.WithContext(ctx).Create(scene).Error
}

func (r *GormRepository) GetCrimeSceneInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*CrimeScene, error) {
	return getCrimeScene(ctx, tx, id)
}

func (r *GormRepository) GetCrimeScene(ctx context.Context, id uuid.UUID) (*CrimeScene, error) {
	return getCrimeScene(ctx, r.db, id)
}

func getCrimeScene(ctx context.Context, db *gorm.DB, id uuid.UUID) (*CrimeScene, error) {
	var scene CrimeScene
	if err := db.WithContext(ctx).First(&scene, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCrimeSceneNotFound
		}
		return nil, err
	}
	return &scene, nil
}

func (r *GormRepository) CreateCaseInTx(ctx context.Context, tx *gorm.DB, c *Case) error {
	return tx.WithContext(ctx).Create(c).Error
}

func (r *GormRepository) SaveCaseInTx(ctx context.Context, tx *gorm.DB, c *Case) error {
	return tx.WithContext(ctx).Save(c).Error
}

func (r *GormRepository) GetCaseBySourceSubmissionInTx(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*Case, error) {
	var c Case
	if err := tx.WithContext(ctx).First(&c, "source_submission_id = ?", submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *GormRepository) GetCaseInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Case, error) {
	return getCase(ctx, tx, id)
}

func (r *GormRepository) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return getCase(ctx, r.db, id)
}

func getCase(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Case, error) {
	var c Case
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	return &c, nil
}
