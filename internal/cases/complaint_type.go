package cases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCaseDesk/casedesk/internal/submission"
	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

const ComplaintTypeKey = "cases.complaint"

// complaintRejectBudget is the total number of rejections a complaint may
// absorb before it is terminally rejected.
const complaintRejectBudget = 3

// Stage layout for complaints. The creator fix-up stage sits before the
// review stages so a rejection can send the complaint back to its author.
const (
	complaintStageFixUp       = 0
	complaintStageFirstReview = 1
	complaintStageFinalReview = 2
)

type complaintPayload struct {
	Title                  string   `json:"title" validate:"required,max=200"`
	Description            string   `json:"description" validate:"required"`
	ComplainantNationalIDs []string `json:"complainantNationalIDs" validate:"omitempty,dive,required"`
}

// ComplaintType is the workflow descriptor for citizen complaints: a
// two-reviewer approval chain with a creator fix-up loop on rejection.
type ComplaintType struct {
	repo        Repository
	caseService *CaseService
	validate    *validator.Validate
}

func NewComplaintType(repo Repository, caseService *CaseService) *ComplaintType {
	return &ComplaintType{
		repo:        repo,
		caseService: caseService,
		validate:    validator.New(),
	}
}

var _ submission.TypeDescriptor = (*ComplaintType)(nil)

func (t *ComplaintType) TypeKey() string {
	return ComplaintTypeKey
}

func (t *ComplaintType) DisplayName() string {
	return "Complaint"
}

// CanSubmit allows any authenticated user to file a complaint.
func (t *ComplaintType) CanSubmit(ctx context.Context, actorID uuid.UUID) (bool, error) {
	return true, nil
}

func (t *ComplaintType) ValidatePayload(ctx context.Context, payload json.RawMessage) (any, error) {
	var body complaintPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, submission.NewInvalidPayload("payload", "payload must be a JSON object")
	}
	if err := t.validate.StructCtx(ctx, body); err != nil {
		return nil, submission.InvalidPayloadFromValidator(err)
	}
	return &body, nil
}

func (t *ComplaintType) CreateObject(ctx context.Context, tx *gorm.DB, validated any, createdBy *uuid.UUID) (uuid.UUID, error) {
	body, ok := validated.(*complaintPayload)
	if !ok {
		return uuid.Nil, fmt.Errorf("unexpected validated payload type %T", validated)
	}
	complaint := &Complaint{
		Title:                  body.Title,
		Description:            body.Description,
		ComplainantNationalIDs: body.ComplainantNationalIDs,
		CreatedByID:            createdBy,
	}
	if err := t.repo.CreateComplaintInTx(ctx, tx, complaint); err != nil {
		return uuid.Nil, err
	}
	return complaint.ID, nil
}

func (t *ComplaintType) ResolveObject(ctx context.Context, objectID uuid.UUID) (any, error) {
	return t.repo.GetComplaint(ctx, objectID)
}

func (t *ComplaintType) OnSubmit(ctx context.Context, tx *gorm.DB, sub *model.Submission) (*submission.InitialPlan, error) {
	if sub.CreatedByID == nil {
		return nil, errors.New("complaints cannot be system-created")
	}
	firstReview := PermFirstComplaintReview
	finalReview := PermFinalComplaintReview
	return &submission.InitialPlan{
		Stages: []submission.StageSpec{
			{
				TargetUser:     sub.CreatedByID,
				AllowedActions: model.ActionTypeList{model.ActionTypeResubmit, model.ActionTypeCancel},
			},
			{
				TargetPermission: &firstReview,
				AllowedActions:   model.ActionTypeList{model.ActionTypeApprove, model.ActionTypeReject},
			},
			{
				TargetPermission: &finalReview,
				AllowedActions:   model.ActionTypeList{model.ActionTypeApprove, model.ActionTypeReject},
			},
		},
		StartIndex: complaintStageFirstReview,
	}, nil
}

func (t *ComplaintType) HandleAction(ctx context.Context, tx *gorm.DB, sub *model.Submission, stage *model.SubmissionStage, action *model.SubmissionAction, history []model.SubmissionAction) (*submission.Effects, error) {
	switch action.ActionType {
	case model.ActionTypeApprove:
		return t.handleApprove(ctx, tx, sub, stage, action, history)

	case model.ActionTypeReject:
		if countActions(history, model.ActionTypeReject) >= complaintRejectBudget {
			return statusEffect(model.SubmissionStatusRejected), nil
		}
		return advanceEffect(complaintStageFixUp), nil

	case model.ActionTypeResubmit:
		validated, err := t.ValidatePayload(ctx, action.Payload)
		if err != nil {
			return nil, err
		}
		if err := t.updateComplaint(ctx, tx, sub.ObjectID, validated.(*complaintPayload)); err != nil {
			return nil, err
		}
		return advanceEffect(complaintStageFirstReview), nil

	case model.ActionTypeCancel:
		return statusEffect(model.SubmissionStatusCancelled), nil
	}
	return nil, fmt.Errorf("unhandled complaint action %q", action.ActionType)
}

func (t *ComplaintType) handleApprove(ctx context.Context, tx *gorm.DB, sub *model.Submission, stage *model.SubmissionStage, action *model.SubmissionAction, history []model.SubmissionAction) (*submission.Effects, error) {
	if stage.Order == complaintStageFirstReview {
		return advanceEffect(complaintStageFinalReview), nil
	}

	// The final reviewer must not be the actor who gave the first approval.
	// The action log is the source of truth: every APPROVE before this one
	// is a first-review approval.
	for _, past := range history {
		if past.ID == action.ID || past.ActionType != model.ActionTypeApprove {
			continue
		}
		if past.CreatedByID != nil && action.CreatedByID != nil && *past.CreatedByID == *action.CreatedByID {
			return nil, fmt.Errorf("%w: final review requires a different reviewer", submission.ErrForbidden)
		}
	}

	complaint, err := t.repo.GetComplaintInTx(ctx, tx, sub.ObjectID)
	if err != nil {
		return nil, err
	}
	if _, err := t.caseService.GetOrCreateFromSubmissionInTx(ctx, tx, &Case{
		Title:              complaint.Title,
		Description:        complaint.Description,
		ReporterID:         sub.CreatedByID,
		SourceSubmissionID: sub.ID,
		SourceObjectID:     complaint.ID,
	}); err != nil {
		return nil, err
	}
	return statusEffect(model.SubmissionStatusApproved), nil
}

func (t *ComplaintType) updateComplaint(ctx context.Context, tx *gorm.DB, complaintID uuid.UUID, body *complaintPayload) error {
	complaint, err := t.repo.GetComplaintInTx(ctx, tx, complaintID)
	if err != nil {
		return err
	}
	complaint.Title = body.Title
	complaint.Description = body.Description
	complaint.ComplainantNationalIDs = body.ComplainantNationalIDs
	return t.repo.SaveComplaintInTx(ctx, tx, complaint)
}

func (t *ComplaintType) Prompt(stage *model.SubmissionStage) string {
	switch stage.Order {
	case complaintStageFixUp:
		return "Revise and resubmit the complaint, or cancel it"
	case complaintStageFirstReview:
		return "First review of the complaint"
	case complaintStageFinalReview:
		return "Final review of the complaint"
	}
	return ""
}

func countActions(history []model.SubmissionAction, kind model.ActionType) int {
	n := 0
	for _, a := range history {
		if a.ActionType == kind {
			n++
		}
	}
	return n
}

func statusEffect(status model.SubmissionStatus) *submission.Effects {
	return &submission.Effects{NewStatus: &status}
}

func advanceEffect(order int) *submission.Effects {
	return &submission.Effects{AdvanceTo: &order}
}
