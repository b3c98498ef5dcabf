package message

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/transport"
	"github.com/veyra-chat/veyra/pkg/ratelimit"
)

type Handler struct {
	*transport.BaseHandler
	service        *Service
	messageLimiter *ratelimit.Limiter
}

func NewHandler(base *transport.BaseHandler, service *Service, messageLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		BaseHandler:    base,
		service:        service,
		messageLimiter: messageLimiter,
	}
}

// Create handles POST /servers/{serverID}/channels/{channelID}/messages.
// Sends are throttled per author across all channels.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	if !h.messageLimiter.Allow(actor.UserID) {
		h.WriteRateLimited(w, h.messageLimiter.RemainingCooldown(actor.UserID))
		return
	}

	var dto CreateMessageDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	m, err := h.service.Create(r.Context(),
		chi.URLParam(r, "serverID"), chi.URLParam(r, "channelID"), actor.UserID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusCreated, m)
}

// List handles GET /servers/{serverID}/channels/{channelID}/messages with
// optional before and limit query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := ListMessagesQuery{Before: r.URL.Query().Get("before")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.WriteAppError(w, internal.NewValidationError("limit must be an integer"))
			return
		}
		q.Limit = limit
	}

	msgs, err := h.service.List(r.Context(),
		chi.URLParam(r, "serverID"), chi.URLParam(r, "channelID"), q)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, msgs)
}

// Update handles PATCH /servers/{serverID}/channels/{channelID}/messages/{messageID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	var dto UpdateMessageDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	m, err := h.service.Update(r.Context(),
		chi.URLParam(r, "serverID"), actor.UserID, chi.URLParam(r, "messageID"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, m)
}

// Delete handles DELETE /servers/{serverID}/channels/{channelID}/messages/{messageID}.
// The route carries the actor's channel permissions in the context so the
// service can apply the author-or-moderator rule.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	perms, _ := internal.PermissionsFromContext(r.Context())
	err := h.service.Delete(r.Context(),
		chi.URLParam(r, "serverID"), actor.UserID, perms, chi.URLParam(r, "messageID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
