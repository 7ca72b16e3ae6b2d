package staffing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission codenames checked by the staffing workflow.
const (
	PermDetectiveReview  = "staffing.detective_review"
	PermSupervisorReview = "staffing.supervisor_review"
)

// RoleLeadDetective is the role requested for cases opened from approved
// crime scene reports.
const RoleLeadDetective = "LEAD_DETECTIVE"

type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	return nil
}

// StaffingRequest asks for an officer to fill a role on a case. DetectiveID
// is set once a detective accepts the request.
type StaffingRequest struct {
	BaseModel
	CaseID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"caseId"`
	RequestedRole string     `gorm:"type:varchar(32);not null" json:"requestedRole"`
	DetectiveID   *uuid.UUID `gorm:"type:uuid" json:"detectiveId"`
}

func (StaffingRequest) TableName() string {
	return "staffing_requests"
}
