package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	service *Service
}

func NewHandler(base *transport.BaseHandler, service *Service) *Handler {
	return &Handler{BaseHandler: base, service: service}
}

// Create handles POST /servers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	var dto CreateServerDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	srv, err := h.service.Create(r.Context(), actor.UserID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusCreated, srv)
}

// List handles GET /servers and returns the actor's servers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	srvs, err := h.service.ListForUser(r.Context(), actor.UserID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, srvs)
}

// Get handles GET /servers/{serverID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	srv, err := h.service.Get(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteData(w, http.StatusOK, srv)
}

// Join handles POST /servers/{serverID}/join. The body is optional; an open
// server needs no invite code.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	var dto JoinServerDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil && !errors.Is(err, io.EOF) {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	if err := h.service.Join(r.Context(), chi.URLParam(r, "serverID"), actor.UserID, dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Leave handles POST /servers/{serverID}/leave.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	if err := h.service.Leave(r.Context(), chi.URLParam(r, "serverID"), actor.UserID); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Members handles GET /servers/{serverID}/members.
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.Members(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteData(w, http.StatusOK, members)
}

// Invite handles GET /servers/{serverID}/invite.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.Invite(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteData(w, http.StatusOK, map[string]string{"invite_code": code})
}

// RotateInvite handles POST /servers/{serverID}/invite.
func (h *Handler) RotateInvite(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.RotateInvite(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteData(w, http.StatusOK, map[string]string{"invite_code": code})
}

// Kick handles DELETE /servers/{serverID}/members/{userID}.
func (h *Handler) Kick(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	if err := h.service.Kick(r.Context(), chi.URLParam(r, "serverID"), actor.UserID, chi.URLParam(r, "userID")); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Ban handles POST /servers/{serverID}/bans/{userID}.
func (h *Handler) Ban(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	var dto BanDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil && !errors.Is(err, io.EOF) {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	if err := h.service.Ban(r.Context(), chi.URLParam(r, "serverID"), actor.UserID, chi.URLParam(r, "userID"), dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unban handles DELETE /servers/{serverID}/bans/{userID}.
func (h *Handler) Unban(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unban(r.Context(), chi.URLParam(r, "serverID"), chi.URLParam(r, "userID")); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
