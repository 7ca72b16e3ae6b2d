package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

// Engine is the transition orchestrator. It owns every mutation of
// submission, stage and action rows: descriptors describe transitions as
// effect values and the engine applies them inside a transaction locked on
// the affected submission.
type Engine struct {
	repo     Repository
	registry *Registry
	oracle   PermissionOracle
}

// NewEngine creates a transition engine.
func NewEngine(repo Repository, registry *Registry, oracle PermissionOracle) *Engine {
	return &Engine{
		repo:     repo,
		registry: registry,
		oracle:   oracle,
	}
}

// Registry exposes the type registry for read-only queries.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// CreateSubmission validates the payload for the given type, creates the
// target domain object and the submission, lays down the descriptor's
// initial stages, records the synthetic SUBMIT action and runs any
// descriptor-requested auto actions, all in one transaction.
func (e *Engine) CreateSubmission(ctx context.Context, typeKey string, payload json.RawMessage, actorID uuid.UUID) (*model.Submission, error) {
	desc, err := e.registry.Lookup(typeKey)
	if err != nil {
		return nil, err
	}

	ok, err := desc.CanSubmit(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check create access: %w", err)
	}
	if !ok {
		return nil, ErrForbidden
	}

	validated, err := desc.ValidatePayload(ctx, payload)
	if err != nil {
		return nil, err
	}

	var sub *model.Submission
	err = e.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var txErr error
		sub, txErr = e.createInTx(ctx, tx, desc, validated, &actorID)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "submission created",
		"submission_id", sub.ID,
		"type_key", typeKey,
		"status", sub.Status,
		"created_by", actorID,
	)
	return sub, nil
}

// ApplyAction applies one action to a submission's current stage. The
// submission row is locked exclusively for the duration, so concurrent
// actors racing on the same stage serialize: the loser observes Terminal,
// ActionNotAllowed or StageAdvanced, never a stale-stage transition.
func (e *Engine) ApplyAction(ctx context.Context, submissionID uuid.UUID, actionType model.ActionType, payload json.RawMessage, actorID uuid.UUID) (*model.SubmissionAction, error) {
	if !actionType.Valid() {
		return nil, fmt.Errorf("%w: unknown action type %q", ErrActionNotAllowed, actionType)
	}

	var action *model.SubmissionAction
	err := e.repo.Transaction(ctx, func(tx *gorm.DB) error {
		sub, txErr := e.repo.GetSubmissionForUpdateInTx(ctx, tx, submissionID)
		if txErr != nil {
			return txErr
		}

		desc, txErr := e.registry.Lookup(sub.SubmissionType)
		if txErr != nil {
			return txErr
		}

		action, txErr = e.applyInTx(ctx, tx, sub, desc, actionType, payload, &actorID)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "submission action applied",
		"submission_id", submissionID,
		"action_type", actionType,
		"actor", actorID,
	)
	return action, nil
}

// createInTx runs the creation flow inside an open transaction. A nil
// creator marks a system-generated submission (follow-up workflows).
func (e *Engine) createInTx(ctx context.Context, tx *gorm.DB, desc TypeDescriptor, validated any, creator *uuid.UUID) (*model.Submission, error) {
	objectID, err := desc.CreateObject(ctx, tx, validated, creator)
	if err != nil {
		return nil, fmt.Errorf("failed to create target object: %w", err)
	}

	sub := &model.Submission{
		SubmissionType: desc.TypeKey(),
		ObjectID:       objectID,
		Status:         model.SubmissionStatusPending,
		CreatedByID:    creator,
	}
	if err := e.repo.CreateSubmissionInTx(ctx, tx, sub); err != nil {
		return nil, err
	}

	plan, err := desc.OnSubmit(ctx, tx, sub)
	if err != nil {
		return nil, fmt.Errorf("descriptor %q failed on submit: %w", desc.TypeKey(), err)
	}
	if plan == nil || len(plan.Stages) == 0 {
		return nil, fmt.Errorf("%w: descriptor %q laid down no stages", ErrCorruptedStage, desc.TypeKey())
	}

	stages, err := buildStages(sub.ID, 0, plan.Stages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedStage, err)
	}
	if err := e.repo.CreateStagesInTx(ctx, tx, stages); err != nil {
		return nil, err
	}

	if plan.StartIndex < 0 || plan.StartIndex >= len(stages) {
		return nil, fmt.Errorf("%w: start index %d outside stages [0,%d)", ErrCorruptedStage, plan.StartIndex, len(stages))
	}
	sub.CurrentStage = plan.StartIndex
	if err := e.repo.SaveSubmissionInTx(ctx, tx, sub); err != nil {
		return nil, err
	}

	submitAction := &model.SubmissionAction{
		SubmissionID: sub.ID,
		ActionType:   model.ActionTypeSubmit,
		Payload:      normalizePayload(nil),
		CreatedByID:  creator,
	}
	if err := e.repo.AppendActionInTx(ctx, tx, submitAction); err != nil {
		return nil, err
	}

	// Auto actions run through the same gate and transition path as
	// caller-supplied actions, attributed to the creator.
	for _, auto := range plan.AutoActions {
		if _, err := e.applyInTx(ctx, tx, sub, desc, auto.ActionType, auto.Payload, creator); err != nil {
			return nil, err
		}
	}

	return sub, nil
}

// applyInTx validates and applies one action while the submission row lock
// is held. The actor is nil only for engine-internal synthetic actions.
func (e *Engine) applyInTx(ctx context.Context, tx *gorm.DB, sub *model.Submission, desc TypeDescriptor, actionType model.ActionType, payload json.RawMessage, actor *uuid.UUID) (*model.SubmissionAction, error) {
	if sub.Status.IsTerminal() {
		return nil, ErrTerminal
	}

	stages, err := e.repo.GetStagesInTx(ctx, tx, sub.ID)
	if err != nil {
		return nil, err
	}
	stage := stageAt(stages, sub.CurrentStage)
	if stage == nil {
		return nil, fmt.Errorf("%w: current stage %d has no row", ErrCorruptedStage, sub.CurrentStage)
	}

	if actor != nil {
		perms, permErr := e.oracle.PermissionSet(ctx, *actor)
		if permErr != nil {
			return nil, fmt.Errorf("failed to load permission set: %w", permErr)
		}
		if !IsAuthorized(stage, *actor, perms) {
			return nil, ErrForbidden
		}
	}

	if !stage.AllowedActions.Contains(actionType) {
		return nil, fmt.Errorf("%w: %q not in %v", ErrActionNotAllowed, actionType, stage.AllowedActions)
	}

	if err := e.checkActionPayload(ctx, desc, actionType, payload); err != nil {
		return nil, err
	}

	// Re-validate the stage snapshot immediately before mutating: the stage
	// pointer read above must still be current under the lock.
	fresh, err := e.repo.GetSubmissionForUpdateInTx(ctx, tx, sub.ID)
	if err != nil {
		return nil, err
	}
	if fresh.Status.IsTerminal() {
		return nil, ErrTerminal
	}
	if fresh.CurrentStage != stage.Order {
		return nil, ErrStageAdvanced
	}

	// Record who actually resolved the stage, so permission-targeted stages
	// keep a concrete actor in the audit trail.
	stage.ActedByID = actor
	if err := e.repo.SaveStageInTx(ctx, tx, stage); err != nil {
		return nil, err
	}

	action := &model.SubmissionAction{
		SubmissionID: sub.ID,
		ActionType:   actionType,
		Payload:      normalizePayload(payload),
		CreatedByID:  actor,
	}
	if err := e.repo.AppendActionInTx(ctx, tx, action); err != nil {
		return nil, err
	}

	history, err := e.repo.GetActionsInTx(ctx, tx, sub.ID)
	if err != nil {
		return nil, err
	}

	effects, err := desc.HandleAction(ctx, tx, sub, stage, action, history)
	if err != nil {
		return nil, err
	}

	if err := e.applyEffects(ctx, tx, sub, effects); err != nil {
		return nil, err
	}
	return action, nil
}

// checkActionPayload performs the action-kind-generic payload checks:
// rejections must carry a message, resubmissions must pass full creation
// payload validation again.
func (e *Engine) checkActionPayload(ctx context.Context, desc TypeDescriptor, actionType model.ActionType, payload json.RawMessage) error {
	switch actionType {
	case model.ActionTypeReject:
		var body struct {
			Message string `json:"message"`
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &body); err != nil {
				return NewInvalidPayload("payload", "payload must be a JSON object")
			}
		}
		if strings.TrimSpace(body.Message) == "" {
			return NewInvalidPayload("message", "rejection message required")
		}
	case model.ActionTypeResubmit:
		if _, err := desc.ValidatePayload(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

// applyEffects is the single place persisted workflow state changes in
// response to an action. It appends descriptor-requested stages, moves the
// stage pointer, flips the status, re-checks the structural invariants and
// creates follow-up submissions.
func (e *Engine) applyEffects(ctx context.Context, tx *gorm.DB, sub *model.Submission, effects *Effects) error {
	if effects == nil {
		effects = &Effects{}
	}

	if len(effects.NewStages) > 0 {
		existing, err := e.repo.GetStagesInTx(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		stages, err := buildStages(sub.ID, len(existing), effects.NewStages)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptedStage, err)
		}
		if err := e.repo.CreateStagesInTx(ctx, tx, stages); err != nil {
			return err
		}
	}

	if effects.NewStatus != nil {
		sub.Status = *effects.NewStatus
	}
	if effects.AdvanceTo != nil {
		sub.CurrentStage = *effects.AdvanceTo
	}

	stages, err := e.repo.GetStagesInTx(ctx, tx, sub.ID)
	if err != nil {
		return err
	}
	orders := make([]int, len(stages))
	for i, st := range stages {
		orders[i] = st.Order
	}
	if err := model.ValidateStageOrders(orders); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptedStage, err)
	}
	if sub.Status == model.SubmissionStatusPending && stageAt(stages, sub.CurrentStage) == nil {
		return fmt.Errorf("%w: stage pointer %d left dangling", ErrCorruptedStage, sub.CurrentStage)
	}

	if err := e.repo.SaveSubmissionInTx(ctx, tx, sub); err != nil {
		return err
	}

	for _, followUp := range effects.FollowUps {
		desc, err := e.registry.Lookup(followUp.TypeKey)
		if err != nil {
			return err
		}
		validated, err := desc.ValidatePayload(ctx, followUp.Payload)
		if err != nil {
			return fmt.Errorf("follow-up %q payload invalid: %w", followUp.TypeKey, err)
		}
		if _, err := e.createInTx(ctx, tx, desc, validated, nil); err != nil {
			return fmt.Errorf("failed to create follow-up %q: %w", followUp.TypeKey, err)
		}
	}

	return nil
}

// buildStages materializes stage specs into rows with contiguous orders
// starting at the given base.
func buildStages(submissionID uuid.UUID, baseOrder int, specs []StageSpec) ([]model.SubmissionStage, error) {
	stages := make([]model.SubmissionStage, 0, len(specs))
	for i, spec := range specs {
		stage := model.SubmissionStage{
			SubmissionID:     submissionID,
			Order:            baseOrder + i,
			TargetUserID:     spec.TargetUser,
			TargetPermission: spec.TargetPermission,
			AllowedActions:   spec.AllowedActions,
		}
		if err := stage.Validate(); err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func stageAt(stages []model.SubmissionStage, order int) *model.SubmissionStage {
	for i := range stages {
		if stages[i].Order == order {
			return &stages[i]
		}
	}
	return nil
}

func normalizePayload(payload json.RawMessage) json.RawMessage {
	if len(payload) == 0 {
		return json.RawMessage(`{}`)
	}
	return payload
}
