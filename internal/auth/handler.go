package auth

import (
	"encoding/json"
	"net/http"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/transport"
	"github.com/veyra-chat/veyra/pkg/ratelimit"
)

type Handler struct {
	*transport.BaseHandler
	service      *Service
	loginLimiter *ratelimit.Limiter
}

func NewHandler(base *transport.BaseHandler, service *Service, loginLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		BaseHandler:  base,
		service:      service,
		loginLimiter: loginLimiter,
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	u, err := h.service.Register(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusCreated, u.ToProfile())
}

// Login handles POST /auth/login. Attempts are throttled per source IP; the
// counter resets on a successful login so a legitimate user is never locked
// out by their own typos.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if !h.loginLimiter.Allow(ip) {
		h.WriteRateLimited(w, h.loginLimiter.RemainingCooldown(ip))
		return
	}

	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	tokens, u, err := h.service.Authenticate(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.loginLimiter.Reset(ip)

	h.WriteData(w, http.StatusOK, map[string]any{
		"tokens": tokens,
		"user":   u.ToProfile(),
	})
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body"))
		return
	}

	tokens, err := h.service.Refresh(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, tokens)
}

// Middleware authenticates the request and stores the acting user in the
// context. Every protected route sits behind this; later stages assume the
// actor is present.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.NewUnauthorizedError("missing authorization token"))
			return
		}

		u, err := h.service.ValidateAccessToken(r.Context(), token)
		if err != nil {
			h.WriteAppError(w, err)
			return
		}

		ctx := internal.ContextWithActor(r.Context(), internal.Actor{
			UserID:   u.ID,
			Username: u.Username,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
