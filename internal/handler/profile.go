package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whyme0/chattings/internal/apperror"
	"github.com/whyme0/chattings/internal/auth"
	"github.com/whyme0/chattings/internal/service"
)

// maxAvatarSize caps avatar uploads at 5 MiB.
const maxAvatarSize = 5 << 20

// ProfileHandler exposes profile reads and self-service mutations.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleMe returns the authenticated profile.
//
// HTTP: GET /api/me
func (h *ProfileHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	profileID, ok := auth.ProfileIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("Authentication required."))
		return
	}

	profile, err := h.profiles.Get(r.Context(), profileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandlePublicProfile returns the profile's fields filtered through its
// privacy settings (hidden fields come back as the "Hidden" sentinel)
// together with the chats the profile belongs to.
//
// HTTP: GET /profile/{username}
func (h *ProfileHandler) HandlePublicProfile(w http.ResponseWriter, r *http.Request) {
	info, err := h.profiles.PublicInfo(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type privacyRequest struct {
	ShowUsername   bool `json:"showUsername"`
	ShowEmail      bool `json:"showEmail"`
	ShowDateJoined bool `json:"showDateJoined"`
}

// HandleUpdatePrivacy replaces the caller's privacy flags.
//
// HTTP: PUT /profile/privacy
func (h *ProfileHandler) HandleUpdatePrivacy(w http.ResponseWriter, r *http.Request) {
	profileID, ok := auth.ProfileIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("Authentication required."))
		return
	}

	var req privacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body."))
		return
	}

	err := h.profiles.UpdatePrivacySettings(r.Context(), profileID,
		req.ShowUsername, req.ShowEmail, req.ShowDateJoined)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Form successfully saved.",
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HandleChangePassword changes the caller's password after verifying the
// current one.
//
// HTTP: POST /profile/password
func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	profileID, ok := auth.ProfileIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("Authentication required."))
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body."))
		return
	}

	if err := h.profiles.ChangePassword(r.Context(), profileID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	// The old session is no longer trusted once the password changes;
	// the client has to log in again.
	auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed.",
	})
}

// HandleUploadAvatar accepts a multipart upload under the "avatar" field
// and stores it, replacing the caller's avatar URL.
//
// HTTP: POST /profile/avatar
func (h *ProfileHandler) HandleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	profileID, ok := auth.ProfileIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("Authentication required."))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		writeError(w, apperror.ValidationFailed("avatar", "Invalid or oversized upload."))
		return
	}
	file, _, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, apperror.ValidationFailed("avatar", "Missing avatar file."))
		return
	}
	defer file.Close()

	url, err := h.profiles.UpdateAvatar(r.Context(), profileID, file)
	if err != nil {
		h.logger.Error("avatar upload failed",
			slog.Int64("profile_id", profileID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatarUrl": url})
}
