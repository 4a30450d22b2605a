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

// AuthHandler exposes registration, login, email confirmation, and the
// password-recovery endpoints.
type AuthHandler struct {
	accounts *service.AccountService
	recovery *service.RecoveryService
	sessions *auth.SessionService
	logger   *slog.Logger
}

func NewAuthHandler(
	accounts *service.AccountService,
	recovery *service.RecoveryService,
	sessions *auth.SessionService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		recovery: recovery,
		sessions: sessions,
		logger:   logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an unconfirmed profile.
//
// HTTP: POST /auth/registration
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body."))
		return
	}

	profile, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin authenticates and sets the session cookie. The username
// field also accepts an email address.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body."))
		return
	}

	profile, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.sessions.Issue(profile.ID)
	if err != nil {
		h.logger.Error("issuing session failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	auth.SetCookie(w, token, h.sessions.TTL())
	writeJSON(w, http.StatusOK, profile)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleConfirmEmail consumes an email-verification token from the link
// the user received.
//
// HTTP: GET /auth/emailverification/{token}
func (h *AuthHandler) HandleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.ConfirmEmail(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleResendConfirmation refreshes the verification token and re-sends
// the confirmation mail. Both query parameters are mandatory: a request
// missing either is treated as not found, before any user lookup.
//
// HTTP: GET /auth/resend-confirmation-email?redirect_to=...&username=...
func (h *AuthHandler) HandleResendConfirmation(w http.ResponseWriter, r *http.Request) {
	redirectTo := r.URL.Query().Get("redirect_to")
	username := r.URL.Query().Get("username")
	if redirectTo == "" || username == "" {
		writeError(w, apperror.NotFoundMsg("Page not found."))
		return
	}

	if err := h.accounts.ResendConfirmation(r.Context(), username); err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, redirectTo, http.StatusSeeOther)
}

type recoveryRequest struct {
	Email string `json:"email"`
}

// HandleRequestRecovery starts the password-recovery workflow. The
// caller's session is terminated first, whoever they were logged in as.
//
// HTTP: POST /auth/password-recovery
func (h *AuthHandler) HandleRequestRecovery(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)

	var req recoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body."))
		return
	}

	if err := h.recovery.Request(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Recovery email sent.",
	})
}

// HandleCheckRecovery verifies a recovery token without consuming it, so
// the client can show the reset form or an error up front.
//
// HTTP: GET /auth/password-recovery/{token}
func (h *AuthHandler) HandleCheckRecovery(w http.ResponseWriter, r *http.Request) {
	if err := h.recovery.Check(r.Context(), chi.URLParam(r, "token")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "valid"})
}

type resetRequest struct {
	Password string `json:"password"`
}

// HandleResetPassword consumes the recovery token and sets the new
// password.
//
// HTTP: POST /auth/password-recovery/{token}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body."))
		return
	}

	profile, err := h.recovery.Reset(r.Context(), chi.URLParam(r, "token"), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
