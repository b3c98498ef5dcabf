package user

import (
	"encoding/json"
	"net/http"

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

// GetCurrentUser handles GET /users/me.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	u, err := h.service.Get(r.Context(), actor.UserID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, u.ToProfile())
}

type updatePresenceDTO struct {
	Status string `json:"status"`
}

// UpdatePresence handles PATCH /users/me/presence.
func (h *Handler) UpdatePresence(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	var dto updatePresenceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.service.SetManualStatus(r.Context(), actor.UserID, dto.Status); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateLocaleDTO struct {
	Locale string `json:"locale"`
}

// UpdateLocale handles PATCH /users/me/locale.
func (h *Handler) UpdateLocale(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	var dto updateLocaleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.service.UpdateLocale(r.Context(), actor.UserID, dto.Locale); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
