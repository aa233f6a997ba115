package storage

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"homeservices/internal/api"
	"homeservices/internal/auth"
	"homeservices/internal/request"
)

type Handlers struct {
	Repo  *Repository
	Store ObjectStore
	Svc   *request.Service
	Log   *zap.Logger
}

var allowedKinds = map[string]bool{"report": true, "photo": true, "other": true}

// Upload streams the request body into the bucket and records the reference.
// Visibility follows the request itself, so the ownership check is delegated.
func (h Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	actor := request.Actor{UserID: u.ID, Role: u.Role}
	if _, err := h.Svc.Get(r.Context(), actor, id); err != nil {
		api.WriteWorkflowError(w, err)
		return
	}

	kind := r.URL.Query().Get("kind")
	if !allowedKinds[kind] {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "kind must be report, photo or other")
		return
	}
	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "filename is required")
		return
	}

	objectPath := path.Join(id, uuid.NewString()+"-"+path.Base(filename))
	fileURL, err := h.Store.Upload(r.Context(), objectPath, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}

	rec, err := h.Repo.Insert(r.Context(), id, u.ID, fileURL, objectPath, kind)
	if err != nil {
		h.Log.Error("insert attachment", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"attachment": rec})
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	actor := request.Actor{UserID: u.ID, Role: u.Role}
	if _, err := h.Svc.Get(r.Context(), actor, id); err != nil {
		api.WriteWorkflowError(w, err)
		return
	}

	items, err := h.Repo.ListByRequest(r.Context(), id)
	if err != nil {
		h.Log.Error("list attachments", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if items == nil {
		items = []Attachment{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

// Delete removes an attachment: the stored object first, then its reference.
// Only the uploader or an administrator may delete.
func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	actor := request.Actor{UserID: u.ID, Role: u.Role}
	if _, err := h.Svc.Get(r.Context(), actor, id); err != nil {
		api.WriteWorkflowError(w, err)
		return
	}

	att, err := h.Repo.Get(r.Context(), chi.URLParam(r, "attachmentID"))
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	if att.RequestID != id {
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "attachment not found")
		return
	}
	if u.Role != auth.RoleAdmin && att.UploadedBy != u.ID {
		api.WriteError(w, http.StatusForbidden, "FORBIDDEN", "only the uploader or an administrator may delete an attachment")
		return
	}

	if err := h.Store.Delete(r.Context(), att.ObjectPath); err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	if err := h.Repo.Delete(r.Context(), att.ID); err != nil {
		h.Log.Error("delete attachment record", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
