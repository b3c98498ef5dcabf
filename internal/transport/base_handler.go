package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/pkg/logger"
)

// Envelope is the REST response shape shared by every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BaseHandler provides the shared response plumbing for HTTP handlers.
type BaseHandler struct {
	Logger *slog.Logger
}

func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.L()
	}
	return &BaseHandler{Logger: lg}
}

// WriteData writes a success envelope.
func (h *BaseHandler) WriteData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Success: true, Data: data}); err != nil {
		h.Logger.Error("failed to encode response", "error", err)
	}
}

// WriteAppError translates a domain error into the wire envelope. This is the
// single point where errors cross the boundary: internal detail goes to the
// log, the client sees only the typed message.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, err error) {
	appErr := internal.AsAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "type", appErr.Type, "code", appErr.Code, "cause", appErr.Cause)
	} else {
		h.Logger.Warn("request rejected", "type", appErr.Type, "code", appErr.Code, "message", appErr.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	if encErr := json.NewEncoder(w).Encode(Envelope{Success: false, Error: appErr.Message}); encErr != nil {
		h.Logger.Error("failed to encode error response", "error", encErr)
	}
}

// WriteErrorMessage writes a failure envelope with an explicit status.
func (h *BaseHandler) WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Success: false, Error: message}); err != nil {
		h.Logger.Error("failed to encode error response", "error", err)
	}
}

// WriteRateLimited writes the throttling outcome: a 429 with a Retry-After
// header in whole seconds. Distinct from Forbidden: the caller did nothing
// wrong besides being too fast.
func (h *BaseHandler) WriteRateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	if err := json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Error:   "rate limited, retry after " + strconv.Itoa(retryAfterSeconds) + "s",
	}); err != nil {
		h.Logger.Error("failed to encode rate limit response", "error", err)
	}
}

// ExtractTokenFromHeader pulls the bearer token from the Authorization header.
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}
	return authHeader[7:]
}
