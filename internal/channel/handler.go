package channel

import (
	"encoding/json"
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

// List handles GET /servers/{serverID}/channels.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	chs, err := h.service.List(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteData(w, http.StatusOK, chs)
}

// Create handles POST /servers/{serverID}/channels.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateChannelDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	ch, err := h.service.Create(r.Context(), chi.URLParam(r, "serverID"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusCreated, ch)
}

// Get handles GET /servers/{serverID}/channels/{channelID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ch, err := h.service.Get(r.Context(), chi.URLParam(r, "serverID"), chi.URLParam(r, "channelID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteData(w, http.StatusOK, ch)
}

// Update handles PATCH /servers/{serverID}/channels/{channelID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var dto UpdateChannelDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	ch, err := h.service.Update(r.Context(), chi.URLParam(r, "serverID"), chi.URLParam(r, "channelID"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, ch)
}

// Delete handles DELETE /servers/{serverID}/channels/{channelID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "serverID"), chi.URLParam(r, "channelID")); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOverrides handles GET /servers/{serverID}/channels/{channelID}/overrides.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListOverrides(r.Context(), chi.URLParam(r, "serverID"), chi.URLParam(r, "channelID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteData(w, http.StatusOK, rows)
}

// SetOverride handles PUT /servers/{serverID}/channels/{channelID}/overrides/{roleID}.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var dto SetOverrideDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	o, err := h.service.SetOverride(r.Context(),
		chi.URLParam(r, "serverID"), chi.URLParam(r, "channelID"), chi.URLParam(r, "roleID"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, o)
}

// DeleteOverride handles DELETE /servers/{serverID}/channels/{channelID}/overrides/{roleID}.
func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteOverride(r.Context(),
		chi.URLParam(r, "serverID"), chi.URLParam(r, "channelID"), chi.URLParam(r, "roleID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
