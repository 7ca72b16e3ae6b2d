package cases

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission codenames checked by the case workflow descriptors.
const (
	PermFirstComplaintReview = "cases.first_complaint_review"
	PermFinalComplaintReview = "cases.final_complaint_review"
	PermCreateCrimeScene     = "cases.create_crime_scene"
	PermApproveCrimeScene    = "cases.approve_crime_scene"
)

type CaseStatus string

const (
	CaseStatusOpen   CaseStatus = "OPEN"
	CaseStatusClosed CaseStatus = "CLOSED"
)

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

// Complaint is a citizen complaint awaiting review.
type Complaint struct {
	BaseModel
	Title                  string     `gorm:"type:varchar(200);not null" json:"title"`
	Description            string     `gorm:"type:text;not null" json:"description"`
	ComplainantNationalIDs []string   `gorm:"type:jsonb;serializer:json" json:"complainantNationalIDs"`
	CreatedByID            *uuid.UUID `gorm:"type:uuid" json:"createdById"`
}

func (Complaint) TableName() string {
	return "complaints"
}

// CrimeScene is a crime scene report filed by an officer.
type CrimeScene struct {
	BaseModel
	Title       string     `gorm:"type:varchar(200);not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Witnesses   []string   `gorm:"type:jsonb;serializer:json" json:"witnesses"`
	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"createdById"`
}

func (CrimeScene) TableName() string {
	return "crime_scenes"
}

// Case is an investigation opened from an approved submission. Exactly one
// case may exist per originating submission; the unique source submission
// key is what makes case creation idempotent under action retries.
type Case struct {
	BaseModel
	CaseNumber         string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"caseNumber"`
	Title              string     `gorm:"type:varchar(200);not null" json:"title"`
	Description        string     `gorm:"type:text" json:"description"`
	CrimeLevel         string     `gorm:"type:varchar(32);not null;default:'UNCLASSIFIED'" json:"crimeLevel"`
	Status             CaseStatus `gorm:"type:varchar(16);not null;default:'OPEN'" json:"status"`
	ReporterID         *uuid.UUID `gorm:"type:uuid" json:"reporterId"`
	LeadDetectiveID    *uuid.UUID `gorm:"type:uuid" json:"leadDetectiveId"`
	SourceSubmissionID uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"sourceSubmissionId"`
	SourceObjectID     uuid.UUID  `gorm:"type:uuid;not null" json:"sourceObjectId"`
}

func (Case) TableName() string {
	return "cases"
}
