package uploads

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

const EvidenceTypeKey = "uploads.evidence"

// CaseDirectory looks up the case an evidence record belongs to.
// cases.CaseService implements it.
type CaseDirectory interface {
	GetCase(ctx context.Context, id uuid.UUID) (*cases.Case, error)
}

type evidencePayload struct {
	CaseID      string `json:"caseId" validate:"required,uuid"`
	Description string `json:"description" validate:"required"`
}

// EvidenceType is the workflow descriptor for evidence review: an officer
// logs a piece of evidence against an open case and a forensic reviewer
// accepts or rejects it in a single stage.
type EvidenceType struct {
	repo     EvidenceRepository
	caseDir  CaseDirectory
	oracle   submission.PermissionOracle
	validate *validator.Validate
}

func NewEvidenceType(repo EvidenceRepository, caseDir CaseDirectory, oracle submission.PermissionOracle) *EvidenceType {
	return &EvidenceType{
		repo:     repo,
		caseDir:  caseDir,
		oracle:   oracle,
		validate: validator.New(),
	}
}

var _ submission.TypeDescriptor = (*EvidenceType)(nil)

func (t *EvidenceType) TypeKey() string {
	return EvidenceTypeKey
}

func (t *EvidenceType) DisplayName() string {
	return "Evidence Record"
}

func (t *EvidenceType) CanSubmit(ctx context.Context, actorID uuid.UUID) (bool, error) {
	return t.oracle.HasPermission(ctx, actorID, PermSubmitEvidence)
}

func (t *EvidenceType) ValidatePayload(ctx context.Context, payload json.RawMessage) (any, error) {
	var body evidencePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, submission.NewInvalidPayload("payload", "payload must be a JSON object")
	}
	if err := t.validate.StructCtx(ctx, body); err != nil {
		return nil, submission.InvalidPayloadFromValidator(err)
	}
	return &body, nil
}

func (t *EvidenceType) CreateObject(ctx context.Context, tx *gorm.DB, validated any, createdBy *uuid.UUID) (uuid.UUID, error) {
	body, ok := validated.(*evidencePayload)
	if !ok {
		return uuid.Nil, fmt.Errorf("unexpected validated payload type %T", validated)
	}
	caseID, err := uuid.Parse(body.CaseID)
	if err != nil {
		return uuid.Nil, submission.NewInvalidPayload("caseId", "must be a uuid")
	}
	if _, err := t.caseDir.GetCase(ctx, caseID); err != nil {
		if errors.Is(err, cases.ErrCaseNotFound) {
			return uuid.Nil, submission.NewInvalidPayload("caseId", "unknown case")
		}
		return uuid.Nil, err
	}

	ev := &Evidence{
		CaseID:        caseID,
		Description:   body.Description,
		Status:        EvidenceStatusPendingReview,
		SubmittedByID: createdBy,
	}
	if err := t.repo.CreateEvidenceInTx(ctx, tx, ev); err != nil {
		return uuid.Nil, err
	}
	return ev.ID, nil
}

func (t *EvidenceType) ResolveObject(ctx context.Context, objectID uuid.UUID) (any, error) {
	return t.repo.GetEvidence(ctx, objectID)
}

func (t *EvidenceType) OnSubmit(ctx context.Context, tx *gorm.DB, sub *model.Submission) (*submission.InitialPlan, error) {
	review := PermReviewEvidence
	return &submission.InitialPlan{
		Stages: []submission.StageSpec{
			{
				TargetPermission: &review,
				AllowedActions:   model.ActionTypeList{model.ActionTypeApprove, model.ActionTypeReject},
			},
		},
		StartIndex: 0,
	}, nil
}

func (t *EvidenceType) HandleAction(ctx context.Context, tx *gorm.DB, sub *model.Submission, stage *model.SubmissionStage, action *model.SubmissionAction, history []model.SubmissionAction) (*submission.Effects, error) {
	ev, err := t.repo.GetEvidenceInTx(ctx, tx, sub.ObjectID)
	if err != nil {
		return nil, err
	}

	switch action.ActionType {
	case model.ActionTypeApprove:
		ev.Status = EvidenceStatusAccepted
		ev.ReviewedByID = action.CreatedByID
		if err := t.repo.SaveEvidenceInTx(ctx, tx, ev); err != nil {
			return nil, err
		}
		approved := model.SubmissionStatusApproved
		return &submission.Effects{NewStatus: &approved}, nil

	case model.ActionTypeReject:
		ev.Status = EvidenceStatusRejected
		ev.ReviewedByID = action.CreatedByID
		if err := t.repo.SaveEvidenceInTx(ctx, tx, ev); err != nil {
			return nil, err
		}
		rejected := model.SubmissionStatusRejected
		return &submission.Effects{NewStatus: &rejected}, nil
	}
	return nil, fmt.Errorf("unhandled evidence action %q", action.ActionType)
}

func (t *EvidenceType) Prompt(stage *model.SubmissionStage) string {
	return "Review the evidence record"
}
