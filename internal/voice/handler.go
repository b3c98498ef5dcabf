package voice

import (
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

// Join handles POST /servers/{serverID}/channels/{channelID}/voice.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	grant, err := h.service.Join(r.Context(),
		chi.URLParam(r, "serverID"), chi.URLParam(r, "channelID"), actor.UserID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, grant)
}

// Leave handles DELETE /servers/{serverID}/channels/{channelID}/voice.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
		return
	}

	h.service.Leave(r.Context(), actor.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// Participants handles GET /servers/{serverID}/channels/{channelID}/voice.
func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	h.WriteData(w, http.StatusOK, h.service.Participants(chi.URLParam(r, "channelID")))
}
