package submission

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

// PermissionOracle answers permission questions about actors. The engine is
// deliberately independent of any particular identity backend; the accounts
// service implements this in production.
type PermissionOracle interface {
	HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
	PermissionSet(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error)
}

// StageSpec describes one stage a descriptor wants laid down. Exactly one of
// TargetUser/TargetPermission must be set (both is allowed, the user wins).
type StageSpec struct {
	TargetUser       *uuid.UUID
	TargetPermission *string
	AllowedActions   model.ActionTypeList
}

// AutoAction is an action a descriptor wants synthesized right after
// creation, attributed to the creator. It runs through the same authorization
// and transition path as a caller-supplied action; the engine has no
// shortcut semantics of its own.
type AutoAction struct {
	ActionType model.ActionType
	Payload    json.RawMessage
}

// InitialPlan is what OnSubmit returns: the initial stages (orders assigned
// 0..N-1 in slice order), the stage index the submission starts at, and any
// auto actions to synthesize. A plan must lay down at least one stage.
type InitialPlan struct {
	Stages      []StageSpec
	StartIndex  int
	AutoActions []AutoAction
}

// FollowUpSpec asks the engine to create a further submission as a side
// effect of an action, attributed to the system (no creator).
type FollowUpSpec struct {
	TypeKey string
	Payload json.RawMessage
}

// Effects is the explicit result of a descriptor handling an action. Only
// the engine applies effects to persisted workflow state; descriptors never
// mutate submission, stage or action rows directly.
type Effects struct {
	AdvanceTo *int                    // move the current stage pointer (forward or back)
	NewStatus *model.SubmissionStatus // flip status, terminal values freeze the submission
	NewStages []StageSpec             // appended after the existing stages
	FollowUps []FollowUpSpec          // further submissions to create
}

// TypeDescriptor is the pluggable policy bundle for one kind of submission:
// how to validate a creation payload, how to build and resolve the target
// domain object, which stages a new submission gets, and how the workflow
// reacts to actions. Implementations hold their own domain stores; the
// engine treats the target object as opaque.
//
// HandleAction receives the full ordered action history (including the
// action being handled) so descriptors can enforce retry budgets and
// cross-stage actor rules from the canonical log.
type TypeDescriptor interface {
	TypeKey() string
	DisplayName() string

	CanSubmit(ctx context.Context, actorID uuid.UUID) (bool, error)
	ValidatePayload(ctx context.Context, payload json.RawMessage) (any, error)
	CreateObject(ctx context.Context, tx *gorm.DB, validated any, createdBy *uuid.UUID) (uuid.UUID, error)
	ResolveObject(ctx context.Context, objectID uuid.UUID) (any, error)

	OnSubmit(ctx context.Context, tx *gorm.DB, sub *model.Submission) (*InitialPlan, error)
	HandleAction(ctx context.Context, tx *gorm.DB, sub *model.Submission, stage *model.SubmissionStage, action *model.SubmissionAction, history []model.SubmissionAction) (*Effects, error)

	// Prompt returns a short human-readable description of what is expected
	// at the given stage, shown alongside the available actions.
	Prompt(stage *model.SubmissionStage) string
}
