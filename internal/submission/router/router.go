package router

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/OpenCaseDesk/casedesk/internal/auth"
	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

// Workflow is the engine surface the router serves.
type Workflow interface {
	CreateSubmission(ctx context.Context, typeKey string, payload json.RawMessage, actorID uuid.UUID) (*model.Submission, error)
	ApplyAction(ctx context.Context, submissionID uuid.UUID, actionType model.ActionType, payload json.RawMessage, actorID uuid.UUID) (*model.SubmissionAction, error)
	ListTypes(ctx context.Context, actorID uuid.UUID) ([]model.SubmissionTypeDTO, error)
	ListMine(ctx context.Context, actorID uuid.UUID, offset, limit *int) ([]model.SubmissionSummaryDTO, error)
	ListInbox(ctx context.Context, actorID uuid.UUID, offset, limit *int) ([]model.SubmissionSummaryDTO, error)
	AvailableActions(ctx context.Context, submissionID, actorID uuid.UUID) (*model.AvailableActionsDTO, error)
	GetSubmission(ctx context.Context, submissionID, actorID uuid.UUID) (*model.SubmissionResponseDTO, error)
}

type SubmissionRouter struct {
	workflow Workflow
}

func NewSubmissionRouter(workflow Workflow) *SubmissionRouter {
	return &SubmissionRouter{workflow: workflow}
}

// RegisterRoutes attaches the submission endpoints to the mux. All routes
// require authentication.
func (s *SubmissionRouter) RegisterRoutes(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/submission-types", requireAuth(http.HandlerFunc(s.HandleListTypes)))
	mux.Handle("POST /api/submissions", requireAuth(http.HandlerFunc(s.HandleCreateSubmission)))
	mux.Handle("GET /api/submissions/mine", requireAuth(http.HandlerFunc(s.HandleListMine)))
	mux.Handle("GET /api/submissions/inbox", requireAuth(http.HandlerFunc(s.HandleListInbox)))
	mux.Handle("GET /api/submissions/{submissionID}", requireAuth(http.HandlerFunc(s.HandleGetSubmission)))
	mux.Handle("GET /api/submissions/{submissionID}/actions", requireAuth(http.HandlerFunc(s.HandleAvailableActions)))
	mux.Handle("POST /api/submissions/{submissionID}/actions", requireAuth(http.HandlerFunc(s.HandleApplyAction)))
}

// HandleListTypes handles GET /api/submission-types
func (s *SubmissionRouter) HandleListTypes(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAuthContext(r.Context())

	types, err := s.workflow.ListTypes(r.Context(), actor.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, types)
}

// HandleCreateSubmission handles POST /api/submissions
// Request body: CreateSubmissionDTO
func (s *SubmissionRouter) HandleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAuthContext(r.Context())

	var req model.CreateSubmissionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	sub, err := s.workflow.CreateSubmission(r.Context(), req.SubmissionType, req.Payload, actor.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	view, err := s.workflow.GetSubmission(r.Context(), sub.ID, actor.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

// HandleListMine handles GET /api/submissions/mine?offset=&limit=
func (s *SubmissionRouter) HandleListMine(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAuthContext(r.Context())
	offset, limit := paginationQuery(r)

	items, err := s.workflow.ListMine(r.Context(), actor.UserID, offset, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

// HandleListInbox handles GET /api/submissions/inbox?offset=&limit=
func (s *SubmissionRouter) HandleListInbox(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAuthContext(r.Context())
	offset, limit := paginationQuery(r)

	items, err := s.workflow.ListInbox(r.Context(), actor.UserID, offset, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

// HandleGetSubmission handles GET /api/submissions/{submissionID}
func (s *SubmissionRouter) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAuthContext(r.Context())

	submissionID, ok := pathUUID(w, r, "submissionID")
	if !ok {
		return
	}

	view, err := s.workflow.GetSubmission(r.Context(), submissionID, actor.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// HandleAvailableActions handles GET /api/submissions/{submissionID}/actions
func (s *SubmissionRouter) HandleAvailableActions(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAuthContext(r.Context())

	submissionID, ok := pathUUID(w, r, "submissionID")
	if !ok {
		return
	}

	actions, err := s.workflow.AvailableActions(r.Context(), submissionID, actor.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, actions)
}

// HandleApplyAction handles POST /api/submissions/{submissionID}/actions
// Request body: ActionRequestDTO
func (s *SubmissionRouter) HandleApplyAction(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAuthContext(r.Context())

	submissionID, ok := pathUUID(w, r, "submissionID")
	if !ok {
		return
	}

	var req model.ActionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	action, err := s.workflow.ApplyAction(r.Context(), submissionID, req.ActionType, req.Payload, actor.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	// The actor may have lost visibility of the submission by resolving it,
	// so respond with the logged action rather than the full view.
	WriteJSON(w, http.StatusOK, model.ActionDTO{
		ID:         action.ID,
		ActionType: action.ActionType,
		Payload:    action.Payload,
		CreatedBy:  action.CreatedByID,
		CreatedAt:  action.CreatedAt,
	})
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func paginationQuery(r *http.Request) (*int, *int) {
	parse := func(name string) *int {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil
		}
		return &n
	}
	return parse("offset"), parse("limit")
}
