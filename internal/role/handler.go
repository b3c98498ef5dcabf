package role

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

// List handles GET /servers/{serverID}/roles. With ?editable=true it returns
// only the roles the calling member may edit, assign, or delete.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")

	if r.URL.Query().Get("editable") == "true" {
		actor, ok := internal.ActorFromContext(r.Context())
		if !ok {
			h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
			return
		}
		roles, err := h.service.EditableRoles(r.Context(), serverID, actor.UserID)
		if err != nil {
			h.WriteAppError(w, err)
			return
		}
		h.WriteData(w, http.StatusOK, roles)
		return
	}

	roles, err := h.service.List(r.Context(), serverID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteData(w, http.StatusOK, roles)
}

// Create handles POST /servers/{serverID}/roles.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	var dto CreateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	created, err := h.service.Create(r.Context(), chi.URLParam(r, "serverID"), actor.UserID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusCreated, created)
}

// Update handles PATCH /servers/{serverID}/roles/{roleID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	var dto UpdateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "serverID"), actor.UserID, chi.URLParam(r, "roleID"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, updated)
}

// Delete handles DELETE /servers/{serverID}/roles/{roleID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "serverID"), actor.UserID, chi.URLParam(r, "roleID")); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Assign handles PUT /servers/{serverID}/roles/{roleID}/members/{userID}.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	err := h.service.Assign(r.Context(),
		chi.URLParam(r, "serverID"), actor.UserID,
		chi.URLParam(r, "roleID"), chi.URLParam(r, "userID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unassign handles DELETE /servers/{serverID}/roles/{roleID}/members/{userID}.
func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	err := h.service.Unassign(r.Context(),
		chi.URLParam(r, "serverID"), actor.UserID,
		chi.URLParam(r, "roleID"), chi.URLParam(r, "userID"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
