package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CreateSubmissionDTO is the request body for creating a submission.
// Payload shape depends on the submission type and is validated by the
// type descriptor.
type CreateSubmissionDTO struct {
	SubmissionType string          `json:"submissionType"`
	Payload        json.RawMessage `json:"payload"`
}

// ActionRequestDTO is the request body for acting on a submission's current stage.
type ActionRequestDTO struct {
	ActionType ActionType      `json:"actionType"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// SubmissionTypeDTO describes a submission type the caller may create.
type SubmissionTypeDTO struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
}

// StageDTO is the externally visible shape of a workflow stage.
type StageDTO struct {
	Order            int            `json:"order"`
	TargetUser       *uuid.UUID     `json:"targetUser,omitempty"`
	TargetPermission *string        `json:"targetPermission,omitempty"`
	AllowedActions   ActionTypeList `json:"allowedActions"`
	ActedBy          *uuid.UUID     `json:"actedBy,omitempty"`
}

// ActionDTO is the externally visible shape of a logged action.
type ActionDTO struct {
	ID         uuid.UUID       `json:"id"`
	ActionType ActionType      `json:"actionType"`
	Payload    json.RawMessage `json:"payload"`
	CreatedBy  *uuid.UUID      `json:"createdBy,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// AvailableActionsDTO lists the actions the caller may take right now,
// with a human-readable prompt for the current stage.
type AvailableActionsDTO struct {
	Actions ActionTypeList `json:"actions"`
	Prompt  string         `json:"prompt"`
}

// SubmissionResponseDTO is the full serialized view of a submission.
// The target object is resolved through the owning type descriptor; raw
// stage internals beyond targets and allowed actions are not exposed.
type SubmissionResponseDTO struct {
	ID               uuid.UUID        `json:"id"`
	SubmissionType   string           `json:"submissionType"`
	Status           SubmissionStatus `json:"status"`
	Target           any              `json:"target"`
	ActionsHistory   []ActionDTO      `json:"actionsHistory"`
	CurrentStage     int              `json:"currentStage"`
	Stages           []StageDTO       `json:"stages"`
	AvailableActions ActionTypeList   `json:"availableActions"`
	Prompt           string           `json:"prompt,omitempty"`
	CreatedBy        *uuid.UUID       `json:"createdBy,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// SubmissionSummaryDTO is the compact list-view shape used by mine/inbox.
type SubmissionSummaryDTO struct {
	ID             uuid.UUID        `json:"id"`
	SubmissionType string           `json:"submissionType"`
	Status         SubmissionStatus `json:"status"`
	CurrentStage   int              `json:"currentStage"`
	CreatedBy      *uuid.UUID       `json:"createdBy,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}
