package submission_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/OpenCaseDesk/casedesk/internal/submission"
	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
	"github.com/OpenCaseDesk/casedesk/internal/submission/submissiontest"
)

const (
	permFirstSignoff = "docs.review"
	permFinalSignoff = "docs.signoff"
)

// reviewDescriptor is a two-stage approval workflow over an in-memory
// document store, used to exercise the engine without the case domain.
// assignFirstTo, when set, pins the first stage to that user on top of
// the permission target.
type reviewDescriptor struct {
	mu            sync.Mutex
	docs          map[uuid.UUID]string
	denySubmit    bool
	assignFirstTo *uuid.UUID
}

func newReviewDescriptor() *reviewDescriptor {
	return &reviewDescriptor{docs: make(map[uuid.UUID]string)}
}

func (d *reviewDescriptor) TypeKey() string     { return "docs.review" }
func (d *reviewDescriptor) DisplayName() string { return "Document Review" }

func (d *reviewDescriptor) CanSubmit(ctx context.Context, actorID uuid.UUID) (bool, error) {
	return !d.denySubmit, nil
}

func (d *reviewDescriptor) ValidatePayload(ctx context.Context, payload json.RawMessage) (any, error) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, submission.NewInvalidPayload("payload", "payload must be a JSON object")
	}
	if body.Title == "" {
		return nil, submission.NewInvalidPayload("title", "title required")
	}
	return body.Title, nil
}

func (d *reviewDescriptor) CreateObject(ctx context.Context, tx *gorm.DB, validated any, createdBy *uuid.UUID) (uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.New()
	d.docs[id] = validated.(string)
	return id, nil
}

func (d *reviewDescriptor) ResolveObject(ctx context.Context, objectID uuid.UUID) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	title, ok := d.docs[objectID]
	if !ok {
		return nil, fmt.Errorf("document %s not found", objectID)
	}
	return map[string]string{"title": title}, nil
}

func (d *reviewDescriptor) OnSubmit(ctx context.Context, tx *gorm.DB, sub *model.Submission) (*submission.InitialPlan, error) {
	first := permFirstSignoff
	final := permFinalSignoff
	return &submission.InitialPlan{
		Stages: []submission.StageSpec{
			{TargetUser: d.assignFirstTo, TargetPermission: &first, AllowedActions: model.ActionTypeList{model.ActionTypeApprove, model.ActionTypeReject}},
			{TargetPermission: &final, AllowedActions: model.ActionTypeList{model.ActionTypeApprove, model.ActionTypeReject}},
		},
		StartIndex: 0,
	}, nil
}

func (d *reviewDescriptor) HandleAction(ctx context.Context, tx *gorm.DB, sub *model.Submission, stage *model.SubmissionStage, action *model.SubmissionAction, history []model.SubmissionAction) (*submission.Effects, error) {
	switch action.ActionType {
	case model.ActionTypeApprove:
		if stage.Order == 0 {
			next := 1
			return &submission.Effects{AdvanceTo: &next}, nil
		}
		approved := model.SubmissionStatusApproved
		return &submission.Effects{NewStatus: &approved}, nil
	case model.ActionTypeReject:
		rejected := model.SubmissionStatusRejected
		return &submission.Effects{NewStatus: &rejected}, nil
	}
	return nil, fmt.Errorf("unhandled action %q", action.ActionType)
}

func (d *reviewDescriptor) Prompt(stage *model.SubmissionStage) string {
	if stage.Order == 0 {
		return "First signoff"
	}
	return "Final signoff"
}

type engineFixture struct {
	engine *submission.Engine
	store  *submissiontest.Store
	oracle *submissiontest.Oracle
	desc   *reviewDescriptor

	creator   uuid.UUID
	reviewer1 uuid.UUID
	reviewer2 uuid.UUID
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	desc := newReviewDescriptor()
	registry, err := submission.NewRegistry(desc)
	require.NoError(t, err)

	store := submissiontest.NewStore()
	oracle := submissiontest.NewOracle()

	f := &engineFixture{
		engine:    submission.NewEngine(store, registry, oracle),
		store:     store,
		oracle:    oracle,
		desc:      desc,
		creator:   uuid.New(),
		reviewer1: uuid.New(),
		reviewer2: uuid.New(),
	}
	oracle.Grant(f.reviewer1, permFirstSignoff)
	oracle.Grant(f.reviewer2, permFinalSignoff)
	return f
}

func (f *engineFixture) create(t *testing.T) *model.Submission {
	t.Helper()
	sub, err := f.engine.CreateSubmission(context.Background(), "docs.review", json.RawMessage(`{"title":"incident report"}`), f.creator)
	require.NoError(t, err)
	return sub
}

func TestCreateSubmissionStartsPending(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	sub := f.create(t)
	assert.Equal(t, model.SubmissionStatusPending, sub.Status)
	assert.Equal(t, 0, sub.CurrentStage)
	require.NotNil(t, sub.CreatedByID)
	assert.Equal(t, f.creator, *sub.CreatedByID)

	actions, err := f.store.GetActions(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, model.ActionTypeSubmit, actions[0].ActionType)

	mine, err := f.engine.ListMine(ctx, f.creator, nil, nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, sub.ID, mine[0].ID)
}

func TestCreateSubmissionUnknownType(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.CreateSubmission(context.Background(), "docs.unknown", json.RawMessage(`{}`), f.creator)
	assert.True(t, errors.Is(err, submission.ErrUnsupportedType))
}

func TestCreateSubmissionInvalidPayload(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.CreateSubmission(context.Background(), "docs.review", json.RawMessage(`{"title":""}`), f.creator)
	invalid, ok := submission.AsInvalidPayload(err)
	require.True(t, ok)
	assert.Contains(t, invalid.Fields, "title")
}

func TestCreateSubmissionForbidden(t *testing.T) {
	f := newEngineFixture(t)
	f.desc.denySubmit = true

	_, err := f.engine.CreateSubmission(context.Background(), "docs.review", json.RawMessage(`{"title":"x"}`), f.creator)
	assert.True(t, errors.Is(err, submission.ErrForbidden))
}

func TestApprovalFlowAdvancesToTerminal(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.create(t)

	// Stage 0 sits in reviewer1's inbox, not reviewer2's.
	inbox, err := f.engine.ListInbox(ctx, f.reviewer1, nil, nil)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	inbox, err = f.engine.ListInbox(ctx, f.reviewer2, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	_, err = f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeApprove, nil, f.reviewer1)
	require.NoError(t, err)

	got, err := f.store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusPending, got.Status)
	assert.Equal(t, 1, got.CurrentStage)

	// Now it moved to reviewer2's inbox.
	inbox, err = f.engine.ListInbox(ctx, f.reviewer1, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, inbox)
	inbox, err = f.engine.ListInbox(ctx, f.reviewer2, nil, nil)
	require.NoError(t, err)
	require.Len(t, inbox, 1)

	_, err = f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeApprove, nil, f.reviewer2)
	require.NoError(t, err)

	got, err = f.store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusApproved, got.Status)

	// Terminal submissions accept nothing further.
	_, err = f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeApprove, nil, f.reviewer2)
	assert.True(t, errors.Is(err, submission.ErrTerminal))

	inbox, err = f.engine.ListInbox(ctx, f.reviewer2, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}

func TestApplyActionForbiddenForStranger(t *testing.T) {
	f := newEngineFixture(t)
	sub := f.create(t)

	_, err := f.engine.ApplyAction(context.Background(), sub.ID, model.ActionTypeApprove, nil, uuid.New())
	assert.True(t, errors.Is(err, submission.ErrForbidden))
}

func TestAssignedStageExcludesPermissionHolders(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// Stage 0 names the creator as its target user; reviewer1 holds the
	// stage permission but the assignment takes precedence.
	f.desc.assignFirstTo = &f.creator
	sub := f.create(t)

	_, err := f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeApprove, nil, f.reviewer1)
	assert.True(t, errors.Is(err, submission.ErrForbidden))

	inbox, err := f.engine.ListInbox(ctx, f.reviewer1, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	// The assigned user acts even without the permission.
	_, err = f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeApprove, nil, f.creator)
	require.NoError(t, err)

	got, err := f.store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStage)
}

func TestApplyActionKindNotInStage(t *testing.T) {
	f := newEngineFixture(t)
	sub := f.create(t)

	_, err := f.engine.ApplyAction(context.Background(), sub.ID, model.ActionTypeResubmit, json.RawMessage(`{"title":"x"}`), f.reviewer1)
	assert.True(t, errors.Is(err, submission.ErrActionNotAllowed))
}

func TestApplyActionUnknownKind(t *testing.T) {
	f := newEngineFixture(t)
	sub := f.create(t)

	_, err := f.engine.ApplyAction(context.Background(), sub.ID, model.ActionType("ESCALATE"), nil, f.reviewer1)
	assert.True(t, errors.Is(err, submission.ErrActionNotAllowed))
}

func TestApplyActionUnknownSubmission(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.ApplyAction(context.Background(), uuid.New(), model.ActionTypeApprove, nil, f.reviewer1)
	assert.True(t, errors.Is(err, submission.ErrNotFound))
}

func TestRejectRequiresMessage(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.create(t)

	_, err := f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeReject, nil, f.reviewer1)
	invalid, ok := submission.AsInvalidPayload(err)
	require.True(t, ok)
	assert.Contains(t, invalid.Fields, "message")

	_, err = f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeReject, json.RawMessage(`{"message":"   "}`), f.reviewer1)
	_, ok = submission.AsInvalidPayload(err)
	assert.True(t, ok, "whitespace-only message")

	_, err = f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeReject, json.RawMessage(`{"message":"missing details"}`), f.reviewer1)
	require.NoError(t, err)

	got, err := f.store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusRejected, got.Status)
}

func TestConcurrentFinalApprovalsHaveOneWinner(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.oracle.Grant(f.reviewer1, permFinalSignoff)

	sub := f.create(t)
	_, err := f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeApprove, nil, f.reviewer1)
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, actor := range []uuid.UUID{f.reviewer1, f.reviewer2} {
		wg.Add(1)
		go func(i int, actor uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeApprove, nil, actor)
		}(i, actor)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		losable := errors.Is(err, submission.ErrTerminal) || errors.Is(err, submission.ErrStageAdvanced)
		assert.True(t, losable, "loser got unexpected error: %v", err)
	}
	assert.Equal(t, 1, winners)

	// Exactly one APPROVE was recorded against the final stage.
	actions, err := f.store.GetActions(ctx, sub.ID)
	require.NoError(t, err)
	approves := 0
	for _, a := range actions {
		if a.ActionType == model.ActionTypeApprove {
			approves++
		}
	}
	assert.Equal(t, 2, approves, "one first signoff, one final signoff")
}

func TestGetSubmissionVisibility(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.create(t)

	// Creator sees it, including the resolved target.
	view, err := f.engine.GetSubmission(ctx, sub.ID, f.creator)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"title": "incident report"}, view.Target)
	assert.Empty(t, view.AvailableActions, "creator is not a reviewer")

	// The current reviewer sees it with actions and prompt.
	view, err = f.engine.GetSubmission(ctx, sub.ID, f.reviewer1)
	require.NoError(t, err)
	assert.ElementsMatch(t, model.ActionTypeList{model.ActionTypeApprove, model.ActionTypeReject}, view.AvailableActions)
	assert.Equal(t, "First signoff", view.Prompt)

	// A stranger gets not-found, not forbidden.
	_, err = f.engine.GetSubmission(ctx, sub.ID, uuid.New())
	assert.True(t, errors.Is(err, submission.ErrNotFound))

	// The later-stage reviewer has no visibility yet either.
	_, err = f.engine.GetSubmission(ctx, sub.ID, f.reviewer2)
	assert.True(t, errors.Is(err, submission.ErrNotFound))

	// Terminal: the creator keeps visibility, reviewers lose it.
	_, err = f.engine.ApplyAction(ctx, sub.ID, model.ActionTypeReject, json.RawMessage(`{"message":"no"}`), f.reviewer1)
	require.NoError(t, err)

	_, err = f.engine.GetSubmission(ctx, sub.ID, f.creator)
	assert.NoError(t, err)
	_, err = f.engine.GetSubmission(ctx, sub.ID, f.reviewer1)
	assert.True(t, errors.Is(err, submission.ErrNotFound))
}

func TestAvailableActions(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.create(t)

	actions, err := f.engine.AvailableActions(ctx, sub.ID, f.reviewer1)
	require.NoError(t, err)
	assert.ElementsMatch(t, model.ActionTypeList{model.ActionTypeApprove, model.ActionTypeReject}, actions.Actions)
	assert.Equal(t, "First signoff", actions.Prompt)

	actions, err = f.engine.AvailableActions(ctx, sub.ID, f.creator)
	require.NoError(t, err)
	assert.Empty(t, actions.Actions)
}

func TestListTypes(t *testing.T) {
	f := newEngineFixture(t)

	types, err := f.engine.ListTypes(context.Background(), f.creator)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "docs.review", types[0].Key)
	assert.Equal(t, "Document Review", types[0].DisplayName)
}
