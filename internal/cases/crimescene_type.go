package cases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCaseDesk/casedesk/internal/submission"
	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

const CrimeSceneTypeKey = "cases.crime_scene"

type crimeScenePayload struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	Witnesses   []string `json:"witnesses" validate:"omitempty,dive,required"`
}

// CrimeSceneType is the workflow descriptor for crime scene reports: a
// single approval stage, restricted to officers holding the create
// permission. When the reporting officer also holds the approve permission
// the report is approved on submit, as a type-level shortcut through the
// ordinary action path. Approval opens a case and files a staffing request.
type CrimeSceneType struct {
	repo         Repository
	caseService  *CaseService
	oracle       submission.PermissionOracle
	followUpType string
	validate     *validator.Validate
}

// NewCrimeSceneType creates the descriptor. followUpType is the submission
// type key of the staffing request workflow created on approval.
func NewCrimeSceneType(repo Repository, caseService *CaseService, oracle submission.PermissionOracle, followUpType string) *CrimeSceneType {
	return &CrimeSceneType{
		repo:         repo,
		caseService:  caseService,
		oracle:       oracle,
		followUpType: followUpType,
		validate:     validator.New(),
	}
}

var _ submission.TypeDescriptor = (*CrimeSceneType)(nil)

func (t *CrimeSceneType) TypeKey() string {
	return CrimeSceneTypeKey
}

func (t *CrimeSceneType) DisplayName() string {
	return "Crime Scene Report"
}

func (t *CrimeSceneType) CanSubmit(ctx context.Context, actorID uuid.UUID) (bool, error) {
	return t.oracle.HasPermission(ctx, actorID, PermCreateCrimeScene)
}

func (t *CrimeSceneType) ValidatePayload(ctx context.Context, payload json.RawMessage) (any, error) {
	var body crimeScenePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, submission.NewInvalidPayload("payload", "payload must be a JSON object")
	}
	if err := t.validate.StructCtx(ctx, body); err != nil {
		return nil, submission.InvalidPayloadFromValidator(err)
	}
	return &body, nil
}

func (t *CrimeSceneType) CreateObject(ctx context.Context, tx *gorm.DB, validated any, createdBy *uuid.UUID) (uuid.UUID, error) {
	body, ok := validated.(*crimeScenePayload)
	if !ok {
		return uuid.Nil, fmt.Errorf("unexpected validated payload type %T", validated)
	}
	scene := &CrimeScene{
		Title:       body.Title,
		Description: body.Description,
		Witnesses:   body.Witnesses,
		CreatedByID: createdBy,
	}
	if err := t.repo.CreateCrimeSceneInTx(ctx, tx, scene); err != nil {
		return uuid.Nil, err
	}
	return scene.ID, nil
}

func (t *CrimeSceneType) ResolveObject(ctx context.Context, objectID uuid.UUID) (any, error) {
	return t.repo.GetCrimeScene(ctx, objectID)
}

func (t *CrimeSceneType) OnSubmit(ctx context.Context, tx *gorm.DB, sub *model.Submission) (*submission.InitialPlan, error) {
	approve := PermApproveCrimeScene
	plan := &submission.InitialPlan{
		Stages: []submission.StageSpec{
			{
				TargetPermission: &approve,
				AllowedActions:   model.ActionTypeList{model.ActionTypeApprove, model.ActionTypeReject},
			},
		},
		StartIndex: 0,
	}

	// Reporting officers who can approve crime scenes do not review their
	// own reports; the report is approved immediately on their behalf.
	if sub.CreatedByID != nil {
		ok, err := t.oracle.HasPermission(ctx, *sub.CreatedByID, PermApproveCrimeScene)
		if err != nil {
			return nil, err
		}
		if ok {
			plan.AutoActions = []submission.AutoAction{{ActionType: model.ActionTypeApprove}}
		}
	}
	return plan, nil
}

func (t *CrimeSceneType) HandleAction(ctx context.Context, tx *gorm.DB, sub *model.Submission, stage *model.SubmissionStage, action *model.SubmissionAction, history []model.SubmissionAction) (*submission.Effects, error) {
	switch action.ActionType {
	case model.ActionTypeApprove:
		scene, err := t.repo.GetCrimeSceneInTx(ctx, tx, sub.ObjectID)
		if err != nil {
			return nil, err
		}
		opened, err := t.caseService.GetOrCreateFromSubmissionInTx(ctx, tx, &Case{
			Title:              scene.Title,
			Description:        scene.Description,
			ReporterID:         sub.CreatedByID,
			SourceSubmissionID: sub.ID,
			SourceObjectID:     scene.ID,
		})
		if err != nil {
			return nil, err
		}

		followUp, err := json.Marshal(map[string]string{
			"caseId":        opened.ID.String(),
			"requestedRole": "LEAD_DETECTIVE",
		})
		if err != nil {
			return nil, err
		}

		effects := statusEffect(model.SubmissionStatusApproved)
		effects.FollowUps = []submission.FollowUpSpec{{TypeKey: t.followUpType, Payload: followUp}}
		return effects, nil

	case model.ActionTypeReject:
		return statusEffect(model.SubmissionStatusRejected), nil
	}
	return nil, fmt.Errorf("unhandled crime scene action %q", action.ActionType)
}

func (t *CrimeSceneType) Prompt(stage *model.SubmissionStage) string {
	return "Review the crime scene report"
}
