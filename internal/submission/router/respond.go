package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/OpenCaseDesk/casedesk/internal/submission"
)

type errorBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// WriteJSON writes v as a JSON response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError maps a workflow error to its HTTP status and writes a JSON
// error body. Unknown errors are logged and reported as a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if invalid, ok := submission.AsInvalidPayload(err); ok {
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: "invalid payload", Fields: invalid.Fields})
		return
	}

	switch {
	case errors.Is(err, submission.ErrForbidden):
		WriteJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
	case errors.Is(err, submission.ErrNotFound), errors.Is(err, submission.ErrUnsupportedType):
		WriteJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, submission.ErrTerminal):
		WriteJSON(w, http.StatusConflict, errorBody{Error: "submission is terminal"})
	case errors.Is(err, submission.ErrActionNotAllowed):
		WriteJSON(w, http.StatusConflict, errorBody{Error: "action not allowed at this stage"})
	case errors.Is(err, submission.ErrStageAdvanced):
		WriteJSON(w, http.StatusConflict, errorBody{Error: "stage already resolved"})
	case errors.Is(err, submission.ErrConflictingLink):
		WriteJSON(w, http.StatusConflict, errorBody{Error: "conflicting case link"})
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}
