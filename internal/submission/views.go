package submission

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
	"github.com/OpenCaseDesk/casedesk/utils"
)

// ListTypes returns the submission types the actor may create.
func (e *Engine) ListTypes(ctx context.Context, actorID uuid.UUID) ([]model.SubmissionTypeDTO, error) {
	return e.registry.ListAccessibleTo(ctx, actorID)
}

// ListMine returns the submissions created by the actor, newest first.
func (e *Engine) ListMine(ctx context.Context, actorID uuid.UUID, offset, limit *int) ([]model.SubmissionSummaryDTO, error) {
	finalOffset, finalLimit := utils.GetPaginationParams(offset, limit)
	subs, err := e.repo.ListByCreator(ctx, actorID, finalOffset, finalLimit)
	if err != nil {
		return nil, err
	}
	return summarize(subs), nil
}

// ListInbox returns the PENDING submissions whose current stage is authorized
// for the actor: targeted at them directly, or at a permission they hold.
// A submission leaves the inbox the moment its stage pointer moves past the
// actor's stage or its status turns terminal.
func (e *Engine) ListInbox(ctx context.Context, actorID uuid.UUID, offset, limit *int) ([]model.SubmissionSummaryDTO, error) {
	perms, err := e.oracle.PermissionSet(ctx, actorID)
	if err != nil {
		return nil, err
	}
	permList := make([]string, 0, len(perms))
	for p := range perms {
		permList = append(permList, p)
	}

	finalOffset, finalLimit := utils.GetPaginationParams(offset, limit)
	subs, err := e.repo.ListPendingForActor(ctx, actorID, permList, finalOffset, finalLimit)
	if err != nil {
		return nil, err
	}
	return summarize(subs), nil
}

// AvailableActions returns the actions the actor may take on the submission
// right now, with a stage prompt. The list is empty when the submission is
// terminal or the actor is not authorized on the current stage.
func (e *Engine) AvailableActions(ctx context.Context, submissionID, actorID uuid.UUID) (*model.AvailableActionsDTO, error) {
	sub, err := e.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return e.availableActionsFor(ctx, sub, actorID)
}

// GetSubmission assembles the full serialized view: status, resolved target
// object, action history, stages and the actor's available actions. Visible
// only to the creator or an actor authorized on the current stage; everyone
// else gets ErrNotFound, indistinguishable from a missing ID.
func (e *Engine) GetSubmission(ctx context.Context, submissionID, actorID uuid.UUID) (*model.SubmissionResponseDTO, error) {
	sub, err := e.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	stages, err := e.repo.GetStages(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	visible := sub.CreatedByID != nil && *sub.CreatedByID == actorID
	if !visible && sub.Status == model.SubmissionStatusPending {
		perms, permErr := e.oracle.PermissionSet(ctx, actorID)
		if permErr != nil {
			return nil, permErr
		}
		visible = IsAuthorized(stageAt(stages, sub.CurrentStage), actorID, perms)
	}
	if !visible {
		return nil, ErrNotFound
	}

	actions, err := e.repo.GetActions(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	desc, err := e.registry.Lookup(sub.SubmissionType)
	if err != nil {
		return nil, err
	}

	target, err := desc.ResolveObject(ctx, sub.ObjectID)
	if err != nil {
		// A missing target renders as null rather than failing the view.
		slog.WarnContext(ctx, "failed to resolve submission target",
			"submission_id", sub.ID,
			"type_key", sub.SubmissionType,
			"object_id", sub.ObjectID,
			"error", err,
		)
		target = nil
	}

	available, err := e.availableActionsFor(ctx, sub, actorID)
	if err != nil {
		return nil, err
	}

	resp := &model.SubmissionResponseDTO{
		ID:               sub.ID,
		SubmissionType:   sub.SubmissionType,
		Status:           sub.Status,
		Target:           target,
		ActionsHistory:   make([]model.ActionDTO, 0, len(actions)),
		CurrentStage:     sub.CurrentStage,
		Stages:           make([]model.StageDTO, 0, len(stages)),
		AvailableActions: available.Actions,
		Prompt:           available.Prompt,
		CreatedBy:        sub.CreatedByID,
		CreatedAt:        sub.CreatedAt,
		UpdatedAt:        sub.UpdatedAt,
	}
	for _, a := range actions {
		resp.ActionsHistory = append(resp.ActionsHistory, model.ActionDTO{
			ID:         a.ID,
			ActionType: a.ActionType,
			Payload:    a.Payload,
			CreatedBy:  a.CreatedByID,
			CreatedAt:  a.CreatedAt,
		})
	}
	for _, st := range stages {
		resp.Stages = append(resp.Stages, model.StageDTO{
			Order:            st.Order,
			TargetUser:       st.TargetUserID,
			TargetPermission: st.TargetPermission,
			AllowedActions:   st.AllowedActions,
			ActedBy:          st.ActedByID,
		})
	}
	return resp, nil
}

func (e *Engine) availableActionsFor(ctx context.Context, sub *model.Submission, actorID uuid.UUID) (*model.AvailableActionsDTO, error) {
	empty := &model.AvailableActionsDTO{Actions: model.ActionTypeList{}}
	if sub.Status.IsTerminal() {
		return empty, nil
	}

	stages, err := e.repo.GetStages(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	stage := stageAt(stages, sub.CurrentStage)
	if stage == nil {
		return nil, ErrCorruptedStage
	}

	perms, err := e.oracle.PermissionSet(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !IsAuthorized(stage, actorID, perms) {
		return empty, nil
	}

	desc, err := e.registry.Lookup(sub.SubmissionType)
	if err != nil {
		return nil, err
	}
	return &model.AvailableActionsDTO{
		Actions: stage.AllowedActions,
		Prompt:  desc.Prompt(stage),
	}, nil
}

func summarize(subs []model.Submission) []model.SubmissionSummaryDTO {
	out := make([]model.SubmissionSummaryDTO, 0, len(subs))
	for _, sub := range subs {
		out = append(out, model.SubmissionSummaryDTO{
			ID:             sub.ID,
			SubmissionType: sub.SubmissionType,
			Status:         sub.Status,
			CurrentStage:   sub.CurrentStage,
			CreatedBy:      sub.CreatedByID,
			CreatedAt:      sub.CreatedAt,
			UpdatedAt:      sub.UpdatedAt,
		})
	}
	return out
}
