package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/server"
	"github.com/veyra-chat/veyra/internal/user"
)

// Authenticator resolves a bearer token to a live user.
type Authenticator interface {
	ValidateAccessToken(ctx context.Context, token string) (*user.User, error)
}

// MembershipSource lists the servers a user belongs to, which become the
// connection's initial subscriptions.
type MembershipSource interface {
	ListForUser(ctx context.Context, userID string) ([]server.Server, error)
}

// Gateway owns the WebSocket endpoint and the pumps behind it.
type Gateway struct {
	hub         *Hub
	auth        Authenticator
	memberships MembershipSource
	cfg         internal.GatewayConfig
	upgrader    websocket.Upgrader
	logger      *slog.Logger

	// OnPresence receives client-initiated presence changes.
	OnPresence func(userID, status string)
}

func NewGateway(hub *Hub, auth Authenticator, memberships MembershipSource, cfg internal.GatewayConfig, allowedOrigins string, logger *slog.Logger) *Gateway {
	origins := make(map[string]struct{})
	allowAll := allowedOrigins == "" || allowedOrigins == "*"
	for _, o := range strings.Split(allowedOrigins, ",") {
		origins[strings.TrimSpace(o)] = struct{}{}
	}

	return &Gateway{
		hub:         hub,
		auth:        auth,
		memberships: memberships,
		cfg:         cfg,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// ServeHTTP handles GET /gateway. The token rides in the token query
// parameter because browsers cannot set headers on a WebSocket upgrade; the
// Authorization header works too for non-browser clients.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	u, err := g.auth.ValidateAccessToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	srvs, err := g.memberships.ListForUser(r.Context(), u.ID)
	if err != nil {
		http.Error(w, "failed to load memberships", http.StatusInternalServerError)
		return
	}
	serverIDs := make([]string, len(srvs))
	for i := range srvs {
		serverIDs[i] = srvs[i].ID
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("gateway upgrade failed", "error", err, "user_id", u.ID)
		return
	}

	c := newClient(u.ID, conn, serverIDs, g.cfg.SendBufferSize)
	g.hub.register(c)

	go g.writePump(c)

	g.hub.deliver(c, Event{Op: OpReady, Data: map[string]any{
		"user":               u.ToProfile(),
		"server_ids":         serverIDs,
		"heartbeat_interval": g.cfg.HeartbeatInterval.Milliseconds(),
	}})

	g.readPump(c)
}
