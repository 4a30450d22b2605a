package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/whyme0/chattings/internal/apperror"
	"github.com/whyme0/chattings/internal/auth"
	"github.com/whyme0/chattings/internal/service"
)

// ChatHandler exposes chat CRUD and membership endpoints. Reads are open
// to everyone; mutations require a session and go through the service's
// ownership checks.
type ChatHandler struct {
	chats  *service.ChatService
	logger *slog.Logger
}

func NewChatHandler(chats *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, logger: logger}
}

func chatID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "Invalid chat id.")
	}
	return id, nil
}

type createChatRequest struct {
	Label       string `json:"label"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreate creates a chat owned by the caller.
//
// HTTP: POST /chats
func (h *ChatHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	profileID, ok := auth.ProfileIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("Authentication required."))
		return
	}

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body."))
		return
	}

	chat, err := h.chats.Create(r.Context(), profileID, req.Label, req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

// HandleList returns a page of chats. Passing owner=me narrows the list
// to the caller's own chats.
//
// HTTP: GET /chats?limit=&offset=&owner=me
func (h *ChatHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("owner") == "me" {
		profileID, ok := auth.ProfileIDFromContext(r.Context())
		if !ok {
			writeError(w, apperror.Forbidden("Authentication required."))
			return
		}
		chats, err := h.chats.ListByOwner(r.Context(), profileID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, chats)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	chats, err := h.chats.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// HandleGet returns a single chat.
//
// HTTP: GET /chats/{id}
func (h *ChatHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := chatID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	chat, err := h.chats.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

type updateChatRequest struct {
	Label       string `json:"label"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleUpdate edits label and description. Owner only; the name is
// immutable and a differing value is rejected.
//
// HTTP: PUT /chats/{id}
func (h *ChatHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	profileID, ok := auth.ProfileIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("Authentication required."))
		return
	}
	id, err := chatID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body."))
		return
	}

	chat, err := h.chats.Update(r.Context(), profileID, id, req.Label, req.Description, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// HandleDelete removes a chat. Owner only.
//
// HTTP: DELETE /chats/{id}
func (h *ChatHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	profileID, ok := auth.ProfileIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("Authentication required."))
		return
	}
	id, err := chatID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.chats.Delete(r.Context(), profileID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleJoin adds the caller to the member list. Joining twice is a
// no-op and still returns the chat.
//
// HTTP: POST /chats/{id}/members
func (h *ChatHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	profileID, ok := auth.ProfileIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("Authentication required."))
		return
	}
	id, err := chatID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	chat, err := h.chats.AddMember(r.Context(), id, profileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// HandleMembers returns the member list as raw profile ids.
//
// HTTP: GET /chats/{id}/members
func (h *ChatHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	id, err := chatID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := h.chats.Members(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}
