package staffing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRequestNotFound = errors.New("staffing request not found")

type Repository interface {
	CreateRequestInTx(ctx context.Context, tx *gorm.DB, req *StaffingRequest) error
	SaveRequestInTx(ctx context.Context, tx *gorm.DB, req *StaffingRequest) error
	GetRequestInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*StaffingRequest, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*StaffingRequest, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) CreateRequestInTx(ctx context.Context, tx *gorm.DB, req *StaffingRequest) error {
	return tx.WithContext(ctx).Create(req).Error
}

func (r *GormRepository) SaveRequestInTx(ctx context.Context, tx *gorm.DB, req *StaffingRequest) error {
	return tx.WithContext(ctx).Save(req).Error
}

func (r *GormRepository) GetRequestInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*StaffingRequest, error) {
	return getRequest(ctx, tx, id)
}

func (r *GormRepository) GetRequest(ctx context.Context, id uuid.UUID) (*StaffingRequest, error) {
	return getRequest(ctx, r.db, id)
}

func getRequest(ctx context.Context, db *gorm.DB, id uuid.UUID) (*StaffingRequest, error) {
	var req StaffingRequest
	if err := db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}
