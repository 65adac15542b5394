package fullyloaded

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fullyloaded/fullyloaded/pkg/auth"
	"github.com/fullyloaded/fullyloaded/pkg/media"
	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store/cqrs"
)

type createSessionRequest struct {
	IDToken string `json:"idToken"`
}

type sessionResponse struct {
	Token       string         `json:"token"`
	User        auth.Principal `json:"user"`
	HasMigrated bool           `json:"hasMigrated"`
}

// handleCreateSession exchanges an ID token for a session token and
// refreshes the caller's stored profile. A failed profile write does not
// fail the sign-in.
func (a *App) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil || req.IDToken == "" {
		respondError(w, http.StatusBadRequest, "idToken is required")
		return
	}

	p, err := a.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		a.logger.Warn().Err(err).Msg("sign-in rejected")
		respondError(w, http.StatusUnauthorized, "Invalid ID token")
		return
	}

	token, err := a.sessions.Create(*p)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to create session")
		respondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	resp := sessionResponse{Token: token, User: *p}
	profile, err := a.profiles.Upsert(r.Context(), &models.Profile{
		UID:         p.UID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		PhotoURL:    p.PhotoURL,
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("uid", p.UID).Msg("failed to update profile on sign-in")
	} else {
		resp.HasMigrated = profile.HasMigrated
	}

	a.logger.Info().Str("uid", p.UID).Msg("session created")
	respondJSON(w, http.StatusOK, resp)
}

func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	a.sessions.Delete(auth.BearerToken(r))
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (a *App) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, principal(r))
}

func (a *App) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := a.profiles.Get(r.Context(), principal(r).UID)
	if err != nil {
		a.respondServiceError(w, r, err, "Failed to load profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// handleUploadProfileImage stores the multipart field "image" and records
// its URL on the profile and the caller's session.
func (a *App) handleUploadProfileImage(w http.ResponseWriter, r *http.Request) {
	if a.uploader == nil {
		respondError(w, http.StatusNotImplemented, "Profile images are not configured")
		return
	}
	if a.IsReadOnly() {
		respondError(w, http.StatusServiceUnavailable, "Service is in read-only mode, try again later")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxImageBytes+maxBodyBytes)
	if err := r.ParseMultipartForm(media.MaxImageBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()
	if header.Size > media.MaxImageBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "Image is too large")
		return
	}

	p := principal(r)
	url, err := a.uploader.Upload(r.Context(), p.UID, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, media.ErrNotImage) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error().Err(err).Str("uid", p.UID).Msg("failed to upload profile image")
		respondError(w, http.StatusInternalServerError, "Failed to upload profile image")
		return
	}

	profile, err := a.profiles.SetPhotoURL(r.Context(), p.UID, url)
	if err != nil {
		a.respondServiceError(w, r, err, "Failed to update profile")
		return
	}
	updated := *p
	updated.PhotoURL = url
	a.sessions.Update(auth.BearerToken(r), updated)

	respondJSON(w, http.StatusOK, profile)
}

// Migration handlers. The owner defaults to the caller; naming another
// owner is refused by the migrator.

func migrationOwner(r *http.Request) string {
	if owner := r.URL.Query().Get("userId"); owner != "" {
		return owner
	}
	return principal(r).UID
}

func (a *App) handleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	done, err := a.migrator.Status(r.Context(), principal(r).UID)
	if err != nil {
		a.respondServiceError(w, r, err, "Failed to read migration status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"hasMigrated": done})
}

func (a *App) handleRunMigration(w http.ResponseWriter, r *http.Request) {
	caller := principal(r).UID
	owner := migrationOwner(r)
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	var (
		count int
		ran   = true
		err   error
	)
	if force {
		count, err = a.migrator.Run(r.Context(), caller, owner)
	} else {
		count, ran, err = a.migrator.EnsureMigrated(r.Context(), caller, owner)
	}
	if err != nil {
		a.respondServiceError(w, r, err, "Migration failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"migratedCount": count,
		"ran":           ran,
	})
}

// Admin handlers.

type modeResponse struct {
	Mode     cqrs.MigrationMode `json:"mode"`
	ReadOnly bool               `json:"readOnly"`
}

func (a *App) handleGetMode(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, modeResponse{Mode: a.cqrs.GetMode(), ReadOnly: a.IsReadOnly()})
}

func (a *App) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := a.cqrs.SetMode(cqrs.MigrationMode(req.Mode)); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.logger.Info().Str("mode", req.Mode).Str("by", principal(r).UID).Msg("migration mode set")
	a.handleGetMode(w, r)
}

func (a *App) handleSetReadOnly(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReadOnly *bool `json:"readOnly"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.ReadOnly == nil {
		respondError(w, http.StatusBadRequest, "readOnly is required")
		return
	}
	a.SetReadOnly(*req.ReadOnly)
	a.handleGetMode(w, r)
}

// handleSwapStores finishes a move: the secondary, already the write
// target in reversed mode, becomes the primary.
func (a *App) handleSwapStores(w http.ResponseWriter, r *http.Request) {
	if err := a.cqrs.SwapStores(); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	a.logger.Info().Str("by", principal(r).UID).Msg("stores swapped")
	a.handleGetMode(w, r)
}
