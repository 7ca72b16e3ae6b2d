package uploads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment is evidence attached to a submission: the binary lives in the
// storage driver under Key, the row carries the metadata.
type Attachment struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID uuid.UUID `gorm:"type:uuid;not null;index" json:"submissionId"`
	Key          string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"key"`
	Filename     string    `gorm:"type:varchar(255);not null" json:"filename"`
	ContentType  string    `gorm:"type:varchar(128);not null" json:"contentType"`
	Size         int64     `gorm:"not null" json:"size"`
	UploadedByID uuid.UUID `gorm:"type:uuid;not null" json:"uploadedById"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Attachment) TableName() string {
	return "attachments"
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}
