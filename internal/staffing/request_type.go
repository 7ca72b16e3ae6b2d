package staffing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCaseDesk/casedesk/internal/cases"
	"github.com/OpenCaseDesk/casedesk/internal/submission"
	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

const RequestTypeKey = "staffing.request"

const (
	requestStageDetective  = 0
	requestStageSupervisor = 1
)

type requestPayload struct {
	CaseID        string `json:"caseId" validate:"required,uuid"`
	RequestedRole string `json:"requestedRole" validate:"required,oneof=LEAD_DETECTIVE DETECTIVE"`
}

// RequestType is the workflow descriptor for staffing requests: a detective
// accepts the assignment, then a supervisor confirms it. Requests are only
// created by the system as follow-ups of other workflows, never directly.
type RequestType struct {
	repo        Repository
	caseService *cases.CaseService
	validate    *validator.Validate
}

func NewRequestType(repo Repository, caseService *cases.CaseService) *RequestType {
	return &RequestType{
		repo:        repo,
		caseService: caseService,
		validate:    validator.New(),
	}
}

var _ submission.TypeDescriptor = (*RequestType)(nil)

func (t *RequestType) TypeKey() string {
	return RequestTypeKey
}

func (t *RequestType) DisplayName() string {
	return "Staffing Request"
}

// CanSubmit always denies: staffing requests are system-created.
func (t *RequestType) CanSubmit(ctx context.Context, actorID uuid.UUID) (bool, error) {
	return false, nil
}

func (t *RequestType) ValidatePayload(ctx context.Context, payload json.RawMessage) (any, error) {
	var body requestPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, submission.NewInvalidPayload("payload", "payload must be a JSON object")
	}
	if err := t.validate.StructCtx(ctx, body); err != nil {
		return nil, submission.InvalidPayloadFromValidator(err)
	}
	return &body, nil
}

func (t *RequestType) CreateObject(ctx context.Context, tx *gorm.DB, validated any, createdBy *uuid.UUID) (uuid.UUID, error) {
	body, ok := validated.(*requestPayload)
	if !ok {
		return uuid.Nil, fmt.Errorf("unexpected validated payload type %T", validated)
	}
	caseID, err := uuid.Parse(body.CaseID)
	if err != nil {
		return uuid.Nil, submission.NewInvalidPayload("caseId", "must be a uuid")
	}
	req := &StaffingRequest{
		CaseID:        caseID,
		RequestedRole: body.RequestedRole,
	}
	if err := t.repo.CreateRequestInTx(ctx, tx, req); err != nil {
		return uuid.Nil, err
	}
	return req.ID, nil
}

func (t *RequestType) ResolveObject(ctx context.Context, objectID uuid.UUID) (any, error) {
	return t.repo.GetRequest(ctx, objectID)
}

func (t *RequestType) OnSubmit(ctx context.Context, tx *gorm.DB, sub *model.Submission) (*submission.InitialPlan, error) {
	detective := PermDetectiveReview
	supervisor := PermSupervisorReview
	return &submission.InitialPlan{
		Stages: []submission.StageSpec{
			{
				TargetPermission: &detective,
				AllowedActions:   model.ActionTypeList{model.ActionTypeAccept, model.ActionTypeReject},
			},
			{
				TargetPermission: &supervisor,
				AllowedActions:   model.ActionTypeList{model.ActionTypeApprove, model.ActionTypeReject},
			},
		},
		StartIndex: requestStageDetective,
	}, nil
}

func (t *RequestType) HandleAction(ctx context.Context, tx *gorm.DB, sub *model.Submission, stage *model.SubmissionStage, action *model.SubmissionAction, history []model.SubmissionAction) (*submission.Effects, error) {
	switch action.ActionType {
	case model.ActionTypeAccept:
		req, err := t.repo.GetRequestInTx(ctx, tx, sub.ObjectID)
		if err != nil {
			return nil, err
		}
		req.DetectiveID = action.CreatedByID
		if err := t.repo.SaveRequestInTx(ctx, tx, req); err != nil {
			return nil, err
		}
		next := requestStageSupervisor
		return &submission.Effects{AdvanceTo: &next}, nil

	case model.ActionTypeApprove:
		req, err := t.repo.GetRequestInTx(ctx, tx, sub.ObjectID)
		if err != nil {
			return nil, err
		}
		if req.DetectiveID == nil {
			return nil, errors.New("staffing request approved before a detective accepted it")
		}
		if err := t.caseService.AssignLeadDetectiveInTx(ctx, tx, req.CaseID, *req.DetectiveID); err != nil {
			return nil, err
		}
		approved := model.SubmissionStatusApproved
		return &submission.Effects{NewStatus: &approved}, nil

	case model.ActionTypeReject:
		rejected := model.SubmissionStatusRejected
		return &submission.Effects{NewStatus: &rejected}, nil
	}
	return nil, fmt.Errorf("unhandled staffing action %q", action.ActionType)
}

func (t *RequestType) Prompt(stage *model.SubmissionStage) string {
	switch stage.Order {
	case requestStageDetective:
		return "Accept or decline the case assignment"
	case requestStageSupervisor:
		return "Confirm the detective assignment"
	}
	return ""
}
