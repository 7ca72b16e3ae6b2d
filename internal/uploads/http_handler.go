package uploads

import (
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/OpenCaseDesk/casedesk/internal/auth"
	"github.com/OpenCaseDesk/casedesk/internal/submission/router"
)

// maxUploadMemory bounds the in-memory part of multipart parsing (32MB).
const maxUploadMemory = 32 << 20

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterRoutes attaches the attachment endpoints to the mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("POST /api/submissions/{submissionID}/attachments", requireAuth(http.HandlerFunc(h.HandleUpload)))
	mux.Handle("GET /api/submissions/{submissionID}/attachments", requireAuth(http.HandlerFunc(h.HandleList)))
	mux.Handle("GET /api/attachments/{key}", requireAuth(http.HandlerFunc(h.HandleDownload)))
}

// HandleUpload handles POST /api/submissions/{submissionID}/attachments
// Multipart form with a "file" part.
func (h *HTTPHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAuthContext(r.Context())

	submissionID, err := uuid.Parse(r.PathValue("submissionID"))
	if err != nil {
		http.Error(w, `{"error":"invalid submissionID"}`, http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, `{"error":"failed to parse form"}`, http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"file is required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	attachment, err := h.service.Attach(r.Context(), submissionID, actor.UserID,
		header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		router.WriteError(w, r, err)
		return
	}
	router.WriteJSON(w, http.StatusCreated, attachment)
}

// HandleList handles GET /api/submissions/{submissionID}/attachments
func (h *HTTPHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAuthContext(r.Context())

	submissionID, err := uuid.Parse(r.PathValue("submissionID"))
	if err != nil {
		http.Error(w, `{"error":"invalid submissionID"}`, http.StatusBadRequest)
		return
	}

	attachments, err := h.service.List(r.Context(), submissionID, actor.UserID)
	if err != nil {
		router.WriteError(w, r, err)
		return
	}
	router.WriteJSON(w, http.StatusOK, attachments)
}

// HandleDownload handles GET /api/attachments/{key}
func (h *HTTPHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAuthContext(r.Context())

	key := r.PathValue("key")
	if key == "" {
		http.Error(w, `{"error":"key is required"}`, http.StatusBadRequest)
		return
	}

	attachment, reader, err := h.service.Open(r.Context(), key, actor.UserID)
	if err != nil {
		router.WriteError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", attachment.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+attachment.Filename+`"`)
	io.Copy(w, reader)
}
