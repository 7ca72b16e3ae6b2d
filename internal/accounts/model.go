package accounts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel defines common fields shared by all account models.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;column:id;not null;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"type:timestamptz;column:created_at;not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamptz;column:updated_at;not null" json:"updatedAt"`
}

// BeforeCreate is a GORM hook that is triggered before a new record is created.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == uuid.Nil {
		base.ID, err = uuid.NewRandom()
		if err != nil {
			return
		}
	}
	base.CreatedAt = time.Now().UTC()
	base.UpdatedAt = base.CreatedAt
	return
}

// User is an actor in the system: a citizen, an officer, a detective or a supervisor.
type User struct {
	BaseModel
	Username    string `gorm:"type:varchar(100);column:username;not null;uniqueIndex" json:"username"`
	NationalID  string `gorm:"type:varchar(20);column:national_id;uniqueIndex" json:"nationalId"`
	PhoneNumber string `gorm:"type:varchar(20);column:phone_number" json:"phoneNumber"`
}

func (u *User) TableName() string {
	return "users"
}

// UserPermission grants a single permission codename (e.g. "cases.approve_crime_scene")
// to a user. Workflow stages reference these codenames when targeting a permission.
type UserPermission struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;column:user_id;not null;index:idx_user_permission,unique" json:"userId"`
	Permission string    `gorm:"type:varchar(128);column:permission;not null;index:idx_user_permission,unique" json:"permission"`
}

func (up *UserPermission) TableName() string {
	return "user_permissions"
}
