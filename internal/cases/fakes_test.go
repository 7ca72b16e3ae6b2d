package cases_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/OpenCaseDesk/casedesk/internal/cases"
	"github.com/OpenCaseDesk/casedesk/internal/staffing"
	"github.com/OpenCaseDesk/casedesk/internal/submission"
	"github.com/OpenCaseDesk/casedesk/internal/submission/submissiontest"
)

// fakeCaseRepo is an in-memory cases.Repository.
type fakeCaseRepo struct {
	mu         sync.Mutex
	complaints map[uuid.UUID]cases.Complaint
	scenes     map[uuid.UUID]cases.CrimeScene
	caseRows   map[uuid.UUID]cases.Case
}

func newFakeCaseRepo() *fakeCaseRepo {
	return &fakeCaseRepo{
		complaints: make(map[uuid.UUID]cases.Complaint),
		scenes:     make(map[uuid.UUID]cases.CrimeScene),
		caseRows:   make(map[uuid.UUID]cases.Case),
	}
}

func (r *fakeCaseRepo) CreateComplaintInTx(ctx context.Context, tx *gorm.DB, complaint *cases.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if complaint.ID == uuid.Nil {
		complaint.ID = uuid.New()
	}
	r.complaints[complaint.ID] = *complaint
	return nil
}

func (r *fakeCaseRepo) SaveComplaintInTx(ctx context.Context, tx *gorm.DB, complaint *cases.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.complaints[complaint.ID]; !ok {
		return cases.ErrComplaintNotFound
	}
	r.complaints[complaint.ID] = *complaint
	return nil
}

func (r *fakeCaseRepo) GetComplaintInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*cases.Complaint, error) {
	return r.GetComplaint(ctx, id)
}

func (r *fakeCaseRepo) GetComplaint(ctx context.Context, id uuid.UUID) (*cases.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	complaint, ok := r.complaints[id]
	if !ok {
		return nil, cases.ErrComplaintNotFound
	}
	return &complaint, nil
}

func (r *fakeCaseRepo) CreateCrimeSceneInTx(ctx context.Context, tx *gorm.DB, scene *cases.CrimeScene) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if scene.ID == uuid.Nil {
		scene.ID = uuid.New()
	}
	r.scenes[scene.ID] = *scene
	return nil
}

func (r *fakeCaseRepo) GetCrimeSceneInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*cases.CrimeScene, error) {
	return r.GetCrimeScene(ctx, id)
}

func (r *fakeCaseRepo) GetCrimeScene(ctx context.Context, id uuid.UUID) (*cases.CrimeScene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scene, ok := r.scenes[id]
	if !ok {
		return nil, cases.ErrCrimeSceneNotFound
	}
	return &scene, nil
}

func (r *fakeCaseRepo) CreateCaseInTx(ctx context.Context, tx *gorm.DB, c *cases.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.caseRows[c.ID] = *c
	return nil
}

func (r *fakeCaseRepo) SaveCaseInTx(ctx context.Context, tx *gorm.DB, c *cases.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.caseRows[c.ID]; !ok {
		return cases.ErrCaseNotFound
	}
	r.caseRows[c.ID] = *c
	return nil
}

func (r *fakeCaseRepo) GetCaseBySourceSubmissionInTx(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*cases.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.caseRows {
		if c.SourceSubmissionID == submissionID {
			c := c
			return &c, nil
		}
	}
	return nil, cases.ErrCaseNotFound
}

func (r *fakeCaseRepo) GetCaseInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*cases.Case, error) {
	return r.GetCase(ctx, id)
}

func (r *fakeCaseRepo) GetCase(ctx context.Context, id uuid.UUID) (*cases.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caseRows[id]
	if !ok {
		return nil, cases.ErrCaseNotFound
	}
	return &c, nil
}

func (r *fakeCaseRepo) allCases() []cases.Case {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]cases.Case, 0, len(r.caseRows))
	for _, c := range r.caseRows {
		out = append(out, c)
	}
	return out
}

// fakeStaffingRepo is an in-memory staffing.Repository.
type fakeStaffingRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]staffing.StaffingRequest
}

func newFakeStaffingRepo() *fakeStaffingRepo {
	return &fakeStaffingRepo{requests: make(map[uuid.UUID]staffing.StaffingRequest)}
}

func (r *fakeStaffingRepo) CreateRequestInTx(ctx context.Context, tx *gorm.DB, req *staffing.StaffingRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *fakeStaffingRepo) SaveRequestInTx(ctx context.Context, tx *gorm.DB, req *staffing.StaffingRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return staffing.ErrRequestNotFound
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *fakeStaffingRepo) GetRequestInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*staffing.StaffingRequest, error) {
	return r.GetRequest(ctx, id)
}

func (r *fakeStaffingRepo) GetRequest(ctx context.Context, id uuid.UUID) (*staffing.StaffingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, staffing.ErrRequestNotFound
	}
	return &req, nil
}

func (r *fakeStaffingRepo) allRequests() []staffing.StaffingRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]staffing.StaffingRequest, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, req)
	}
	return out
}

// workflowFixture wires the full case-management registry over in-memory
// stores: complaint and crime scene descriptors, the staffing follow-up and
// a shared permission oracle.
type workflowFixture struct {
	engine       *submission.Engine
	store        *submissiontest.Store
	oracle       *submissiontest.Oracle
	caseRepo     *fakeCaseRepo
	caseService  *cases.CaseService
	staffingRepo *fakeStaffingRepo

	citizen    uuid.UUID
	reviewer1  uuid.UUID
	reviewer2  uuid.UUID
	officer    uuid.UUID
	chief      uuid.UUID
	detective  uuid.UUID
	supervisor uuid.UUID
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	caseRepo := newFakeCaseRepo()
	caseService := cases.NewCaseService(caseRepo)
	staffingRepo := newFakeStaffingRepo()
	oracle := submissiontest.NewOracle()

	registry, err := submission.NewRegistry(
		cases.NewComplaintType(caseRepo, caseService),
		cases.NewCrimeSceneType(caseRepo, caseService, oracle, staffing.RequestTypeKey),
		staffing.NewRequestType(staffingRepo, caseService),
	)
	require.NoError(t, err)

	store := submissiontest.NewStore()
	f := &workflowFixture{
		engine:       submission.NewEngine(store, registry, oracle),
		store:        store,
		oracle:       oracle,
		caseRepo:     caseRepo,
		caseService:  caseService,
		staffingRepo: staffingRepo,

		citizen:    uuid.New(),
		reviewer1:  uuid.New(),
		reviewer2:  uuid.New(),
		officer:    uuid.New(),
		chief:      uuid.New(),
		detective:  uuid.New(),
		supervisor: uuid.New(),
	}

	f.oracle.Grant(f.reviewer1, cases.PermFirstComplaintReview)
	f.oracle.Grant(f.reviewer2, cases.PermFinalComplaintReview)
	f.oracle.Grant(f.officer, cases.PermCreateCrimeScene)
	f.oracle.Grant(f.chief, cases.PermCreateCrimeScene, cases.PermApproveCrimeScene)
	f.oracle.Grant(f.detective, staffing.PermDetectiveReview)
	f.oracle.Grant(f.supervisor, staffing.PermSupervisorReview)
	return f
}
