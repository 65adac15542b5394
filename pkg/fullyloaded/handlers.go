package fullyloaded

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fullyloaded/fullyloaded/pkg/auth"
	"github.com/fullyloaded/fullyloaded/pkg/checklist"
	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// respondJSON writes payload as JSON with the given status. A nil payload
// writes no body.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

// respondError writes {"error": message}.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, checklist.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, checklist.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, checklist.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, checklist.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrReadOnly):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError logs err and answers with its mapped status. Client
// errors carry the error text; server errors only the fallback message.
func (a *App) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(err)
	event := a.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = a.logger.Error()
	}
	event.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg(fallback)

	switch {
	case status == http.StatusServiceUnavailable:
		respondError(w, status, "Service is in read-only mode, try again later")
	case status >= http.StatusInternalServerError:
		respondError(w, status, fallback)
	default:
		respondError(w, status, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func principal(r *http.Request) *auth.Principal {
	return auth.FromContext(r.Context())
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":   "healthy",
		"mode":     a.cqrs.GetMode(),
		"readOnly": a.IsReadOnly(),
		"time":     time.Now().Unix(),
	}
	respondJSON(w, http.StatusOK, response)
}

func (a *App) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"latest":  LatestVersion,
		"history": VersionHistory,
	})
}

// List handlers.

type saveListRequest struct {
	Name       string            `json:"name"`
	Categories []models.Category `json:"categories"`
	Overwrite  bool              `json:"overwrite"`
}

type renameListRequest struct {
	NewName   string `json:"newName"`
	Overwrite bool   `json:"overwrite"`
}

func (a *App) handleListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := a.lists.List(r.Context(), principal(r).UID)
	if err != nil {
		a.respondServiceError(w, r, err, "Failed to load lists")
		return
	}
	if lists == nil {
		lists = []models.SavedChecklist{}
	}
	respondJSON(w, http.StatusOK, lists)
}

func (a *App) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req saveListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	uid := principal(r).UID
	if err := a.lists.SaveNew(r.Context(), uid, req.Name, req.Categories, req.Overwrite); err != nil {
		a.respondServiceError(w, r, err, "Failed to save list")
		return
	}
	a.respondList(w, r, uid, req.Name, http.StatusCreated)
}

func (a *App) handleGetList(w http.ResponseWriter, r *http.Request) {
	a.respondList(w, r, principal(r).UID, mux.Vars(r)["name"], http.StatusOK)
}

func (a *App) respondList(w http.ResponseWriter, r *http.Request, uid, name string, status int) {
	list, err := a.lists.Get(r.Context(), uid, name)
	if err != nil {
		a.respondServiceError(w, r, err, "Failed to load list")
		return
	}
	respondJSON(w, status, list)
}

func (a *App) handleSaveList(w http.ResponseWriter, r *http.Request) {
	var req saveListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	uid := principal(r).UID
	name := mux.Vars(r)["name"]
	if err := a.lists.Save(r.Context(), uid, name, req.Categories); err != nil {
		a.respondServiceError(w, r, err, "Failed to save list")
		return
	}
	a.respondList(w, r, uid, name, http.StatusOK)
}

func (a *App) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	if err := a.lists.Delete(r.Context(), principal(r).UID, mux.Vars(r)["name"]); err != nil {
		a.respondServiceError(w, r, err, "Failed to delete list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleListExists(w http.ResponseWriter, r *http.Request) {
	exists, err := a.lists.Exists(r.Context(), principal(r).UID, mux.Vars(r)["name"])
	if err != nil {
		a.respondServiceError(w, r, err, "Failed to check list")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (a *App) handleRenameList(w http.ResponseWriter, r *http.Request) {
	var req renameListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	uid := principal(r).UID
	if err := a.lists.Rename(r.Context(), uid, mux.Vars(r)["name"], req.NewName, req.Overwrite); err != nil {
		a.respondServiceError(w, r, err, "Failed to rename list")
		return
	}
	a.respondList(w, r, uid, req.NewName, http.StatusOK)
}

// Share handlers. Creating and reading shares needs no authentication.

type createShareRequest struct {
	UserID     string            `json:"userId"`
	ListName   string            `json:"listName"`
	Categories []models.Category `json:"categories"`
}

func (a *App) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.ListName == "" || req.Categories == nil {
		respondError(w, http.StatusBadRequest, "userId, listName and categories are required")
		return
	}
	result, err := a.sharing.CreateShare(r.Context(), req.UserID, req.ListName, req.Categories)
	if err != nil {
		a.respondServiceError(w, r, err, "Failed to create shared list")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleGetShare answers 500 for unknown shares as well as backend
// failures; the front end does not tell the two apart.
func (a *App) handleGetShare(w http.ResponseWriter, r *http.Request) {
	shareID := r.URL.Query().Get("id")
	if shareID == "" {
		respondError(w, http.StatusBadRequest, "Share ID is required")
		return
	}
	snap, err := a.sharing.Resolve(r.Context(), shareID)
	if err != nil {
		a.logger.Error().Err(err).Str("share", shareID).Msg("failed to get shared list")
		respondError(w, http.StatusInternalServerError, "Failed to get shared list")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (a *App) handleImportShare(w http.ResponseWriter, r *http.Request) {
	name, err := a.sharing.Import(r.Context(), principal(r).UID, mux.Vars(r)["id"])
	if err != nil {
		a.respondServiceError(w, r, err, "Failed to import shared list")
		return
	}
	a.respondList(w, r, principal(r).UID, name, http.StatusCreated)
}
