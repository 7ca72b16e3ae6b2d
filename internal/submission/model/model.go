package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionStatus is the workflow status of a submission.
type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "PENDING"
	SubmissionStatusApproved  SubmissionStatus = "APPROVED"
	SubmissionStatusRejected  SubmissionStatus = "REJECTED"
	SubmissionStatusCancelled SubmissionStatus = "CANCELLED"
)

// IsTerminal reports whether no further actions are accepted in this status.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected || s == SubmissionStatusCancelled
}

// ActionType is the kind of an action taken on a submission.
type ActionType string

const (
	ActionTypeSubmit   ActionType = "SUBMIT"
	ActionTypeApprove  ActionType = "APPROVE"
	ActionTypeReject   ActionType = "REJECT"
	ActionTypeCancel   ActionType = "CANCEL"
	ActionTypeResubmit ActionType = "RESUBMIT"
	ActionTypeAccept   ActionType = "ACCEPT"
)

var knownActionTypes = map[ActionType]struct{}{
	ActionTypeSubmit:   {},
	ActionTypeApprove:  {},
	ActionTypeReject:   {},
	ActionTypeCancel:   {},
	ActionTypeResubmit: {},
	ActionTypeAccept:   {},
}

// Valid reports whether the action type is a known kind.
func (a ActionType) Valid() bool {
	_, ok := knownActionTypes[a]
	return ok
}

// ActionTypeList is a jsonb-stored set of action kinds legal at a stage.
type ActionTypeList []ActionType

// Contains reports whether the list includes the given action type.
func (l ActionTypeList) Contains(a ActionType) bool {
	for _, item := range l {
		if item == a {
			return true
		}
	}
	return false
}

// Validate checks that the list is non-empty, holds only known action kinds
// and contains no duplicates.
func (l ActionTypeList) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("allowed actions must not be empty")
	}
	seen := make(map[ActionType]struct{}, len(l))
	for _, a := range l {
		if !a.Valid() {
			return fmt.Errorf("unknown action type %q", a)
		}
		if _, dup := seen[a]; dup {
			return fmt.Errorf("duplicate action type %q", a)
		}
		seen[a] = struct{}{}
	}
	return nil
}

// BaseModel defines common fields shared by all submission models.
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

// Submission is a workflow record that drives a target domain object through
// an ordered sequence of authorization-gated stages until a terminal status.
// The target is referenced only as (submission type, object ID); the engine
// never dereferences it except through the owning type descriptor.
type Submission struct {
	BaseModel
	SubmissionType string           `gorm:"type:varchar(64);column:submission_type;not null;index" json:"submissionType"`
	ObjectID       uuid.UUID        `gorm:"type:uuid;column:object_id;not null" json:"objectId"`
	Status         SubmissionStatus `gorm:"type:varchar(16);column:status;not null;index" json:"status"`
	CurrentStage   int              `gorm:"column:current_stage;not null" json:"currentStage"`
	CreatedByID    *uuid.UUID       `gorm:"type:uuid;column:created_by_id;index" json:"createdBy"` // nil for system-generated submissions
}

func (s *Submission) TableName() string {
	return "submissions"
}

// SubmissionStage is one step in a submission's workflow. A stage is assigned
// to either a specific user or to anyone holding a permission codename; when
// both are set the specific user takes precedence. ActedBy records who
// actually resolved the stage, which matters for permission-based targets.
type SubmissionStage struct {
	BaseModel
	SubmissionID     uuid.UUID      `gorm:"type:uuid;column:submission_id;not null;index:idx_stage_order,unique" json:"submissionId"`
	Order            int            `gorm:"column:stage_order;not null;index:idx_stage_order,unique" json:"order"`
	TargetUserID     *uuid.UUID     `gorm:"type:uuid;column:target_user_id" json:"targetUser"`
	TargetPermission *string        `gorm:"type:varchar(128);column:target_permission;index" json:"targetPermission"`
	AllowedActions   ActionTypeList `gorm:"type:jsonb;column:allowed_actions;not null;serializer:json" json:"allowedActions"`
	ActedByID        *uuid.UUID     `gorm:"type:uuid;column:acted_by_id" json:"actedBy"`
}

func (st *SubmissionStage) TableName() string {
	return "submission_stages"
}

// Validate checks the stage-local invariants: a target must be set and the
// allowed-action set must be well formed.
func (st *SubmissionStage) Validate() error {
	if st.TargetUserID == nil && st.TargetPermission == nil {
		return fmt.Errorf("stage %d: either target user or target permission must be set", st.Order)
	}
	if st.TargetPermission != nil && *st.TargetPermission == "" {
		return fmt.Errorf("stage %d: target permission must not be empty", st.Order)
	}
	if st.Order < 0 {
		return fmt.Errorf("stage order must be non-negative, got %d", st.Order)
	}
	if err := st.AllowedActions.Validate(); err != nil {
		return fmt.Errorf("stage %d: %w", st.Order, err)
	}
	return nil
}

// SubmissionAction is an immutable event in a submission's history. Rows are
// append-only; the ordered sequence of actions is the canonical record of
// what happened to a submission.
type SubmissionAction struct {
	BaseModel
	SubmissionID uuid.UUID       `gorm:"type:uuid;column:submission_id;not null;index" json:"submissionId"`
	ActionType   ActionType      `gorm:"type:varchar(32);column:action_type;not null" json:"actionType"`
	Payload      json.RawMessage `gorm:"type:jsonb;column:payload;not null;serializer:json" json:"payload"`
	CreatedByID  *uuid.UUID      `gorm:"type:uuid;column:created_by_id" json:"createdBy"` // nil for system actions
}

func (a *SubmissionAction) TableName() string {
	return "submission_actions"
}

// ValidateStageOrders checks that the given stage orders form exactly the set
// {0, 1, …, N-1}: contiguous, unique and zero-based.
func ValidateStageOrders(orders []int) error {
	sorted := make([]int, len(orders))
	copy(sorted, orders)
	sort.Ints(sorted)

	for i, order := range sorted {
		if order != i {
			return fmt.Errorf("stage orders must be contiguous starting at 0, got %v", sorted)
		}
	}
	return nil
}
