package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/Mxlaser/projet-web/internal/apperror"
	"github.com/Mxlaser/projet-web/internal/auth"
	"github.com/Mxlaser/projet-web/internal/service"
	"github.com/Mxlaser/projet-web/internal/upload"
)

// maxUploadBytes caps ParseMultipartForm's in-memory buffer; larger files
// spill to temp files.
const maxUploadBytes = 32 << 20

// ResourceHandler exposes owner-scoped resource CRUD. Create and update
// accept either a JSON body or multipart form data with an optional file
// part; both shapes funnel through the same normalizers into one
// service.ResourceInput.
type ResourceHandler struct {
	resources *service.ResourceService
	uploads   *upload.Store
	logger    *slog.Logger
}

func NewResourceHandler(resources *service.ResourceService, uploads *upload.Store, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{resources: resources, uploads: uploads, logger: logger}
}

// HandleList returns the caller's resources, newest first.
//
// GET /api/resources (bearer)
func (h *ResourceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	resources, err := h.resources.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing resources", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

// HandleGet returns one resource. A resource owned by someone else is
// reported as not found, never as forbidden.
//
// GET /api/resources/{id} (bearer)
func (h *ResourceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}
	id, err := parseResourceID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resource, err := h.resources.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

// HandleCreate stores a new resource for the caller.
//
// POST /api/resources (bearer), JSON or multipart
func (h *ResourceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	input, err := h.buildInput(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resource, err := h.resources.Create(r.Context(), userID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resource)
}

// HandleUpdate applies a partial update to the caller's resource.
//
// PUT /api/resources/{id} (bearer), JSON or multipart
func (h *ResourceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}
	id, err := parseResourceID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	input, err := h.buildInput(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resource, err := h.resources.Update(r.Context(), userID, id, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

// HandleDelete removes the caller's resource. The uploaded file, if any,
// is left behind; file lifecycle is out of scope.
//
// DELETE /api/resources/{id} (bearer)
func (h *ResourceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}
	id, err := parseResourceID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.resources.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "resource deleted"})
}

// resourceRequest keeps the polymorphic fields raw so the normalizers can
// decide their shape, and so absent fields stay distinguishable from
// explicit nulls.
type resourceRequest struct {
	Title      *string         `json:"title"`
	Type       *string         `json:"type"`
	Content    json.RawMessage `json:"content"`
	CategoryID json.RawMessage `json:"categoryId"`
	Tags       json.RawMessage `json:"tags"`
	CreatedAt  *string         `json:"createdAt"`
}

// buildInput normalizes either body shape into a ResourceInput.
func (h *ResourceHandler) buildInput(r *http.Request) (service.ResourceInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.buildMultipartInput(r)
	}
	return buildJSONInput(r)
}

func buildJSONInput(r *http.Request) (service.ResourceInput, error) {
	var input service.ResourceInput

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Unrecoverably malformed body; surfaces as a generic 500.
		return input, fmt.Errorf("decoding resource body: %w", err)
	}

	input.Title = req.Title
	input.Type = req.Type
	input.Content = parseContentJSON(req.Content)
	input.Tags = parseTagJSON(req.Tags)
	input.CategoryID, input.CategoryProvided = parseCategoryIDJSON(req.CategoryID)
	if req.CreatedAt != nil {
		input.CreatedAt = parseCreatedAt(*req.CreatedAt)
	}
	return input, nil
}

func (h *ResourceHandler) buildMultipartInput(r *http.Request) (service.ResourceInput, error) {
	var input service.ResourceInput

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return input, fmt.Errorf("parsing multipart form: %w", err)
	}

	// Key presence in the form distinguishes absent from empty, which
	// matters for tags (replace vs leave) and categoryId (clear vs leave).
	form := r.MultipartForm.Value
	if v, ok := formValue(form, "title"); ok {
		input.Title = &v
	}
	if v, ok := formValue(form, "type"); ok {
		input.Type = &v
	}
	if v, ok := formValue(form, "content"); ok {
		input.Content = parseContentString(v)
	}
	if v, ok := formValue(form, "tags"); ok {
		input.Tags = parseTagString(v)
	}
	if v, ok := formValue(form, "categoryId"); ok {
		input.CategoryID = parseCategoryIDString(v)
		input.CategoryProvided = true
	}
	if v, ok := formValue(form, "createdAt"); ok {
		input.CreatedAt = parseCreatedAt(v)
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		saved, err := h.uploads.Save(file, header.Filename)
		if err != nil {
			return input, fmt.Errorf("saving upload: %w", err)
		}
		input.File = saved
		h.logger.Info("file uploaded",
			slog.String("url", saved.URL),
			slog.String("originalName", saved.OriginalName),
		)
	} else if err != http.ErrMissingFile {
		return input, fmt.Errorf("reading upload: %w", err)
	}

	return input, nil
}

func formValue(form map[string][]string, key string) (string, bool) {
	values, ok := form[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func parseResourceID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "invalid resource id")
	}
	return id, nil
}

func writeUnauthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: "authentication required",
	})
}
