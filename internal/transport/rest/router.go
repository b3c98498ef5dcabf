package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/veyra-chat/veyra/internal/auth"
	"github.com/veyra-chat/veyra/internal/channel"
	"github.com/veyra-chat/veyra/internal/message"
	"github.com/veyra-chat/veyra/internal/permissions"
	"github.com/veyra-chat/veyra/internal/role"
	"github.com/veyra-chat/veyra/internal/server"
	"github.com/veyra-chat/veyra/internal/transport"
	"github.com/veyra-chat/veyra/internal/transport/middleware"
	"github.com/veyra-chat/veyra/internal/user"
	"github.com/veyra-chat/veyra/internal/voice"
)

// Handlers bundles everything the route tree mounts.
type Handlers struct {
	Auth    *auth.Handler
	User    *user.Handler
	Server  *server.Handler
	Role    *role.Handler
	Channel *channel.Handler
	Message *message.Handler
	Voice   *voice.Handler
	Gateway http.Handler
	Hub     ConnectionCounter
}

// RegisterAllRoutes builds the route tree. Server-scoped routes run the full
// pipeline: authentication, then membership on {serverID}, then whatever
// permission bit the operation demands.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers,
	members middleware.MembershipChecker, resolver middleware.PermissionResolver, logger *slog.Logger) {

	base := transport.NewBaseHandler(logger)
	healthHandler := NewHealthHandler(db, h.Hub)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.Trace)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// The gateway sits outside the REST prefix; it authenticates on its own
	// because the token rides in the query string.
	if h.Gateway != nil {
		router.Handle("/gateway", h.Gateway)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", h.Auth.Register)
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.Refresh)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.Middleware)

			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Patch("/users/me/presence", h.User.UpdatePresence)
			pr.Patch("/users/me/locale", h.User.UpdateLocale)

			pr.Post("/servers", h.Server.Create)
			pr.Get("/servers", h.Server.List)

			// Joining precedes membership, so it sits outside the pipeline.
			pr.Post("/servers/{serverID}/join", h.Server.Join)

			pr.Route("/servers/{serverID}", func(sr chi.Router) {
				sr.Use(middleware.RequireMembership(base, members))

				sr.Get("/", h.Server.Get)
				sr.Post("/leave", h.Server.Leave)
				sr.Get("/members", h.Server.Members)

				sr.Group(func(gr chi.Router) {
					gr.Use(middleware.RequirePermission(base, resolver, permissions.KickMembers))
					gr.Delete("/members/{userID}", h.Server.Kick)
				})

				sr.Group(func(gr chi.Router) {
					gr.Use(middleware.RequirePermission(base, resolver, permissions.BanMembers))
					gr.Post("/bans/{userID}", h.Server.Ban)
					gr.Delete("/bans/{userID}", h.Server.Unban)
				})

				sr.Group(func(gr chi.Router) {
					gr.Use(middleware.RequirePermission(base, resolver, permissions.ManageInvites))
					gr.Get("/invite", h.Server.Invite)
					gr.Post("/invite", h.Server.RotateInvite)
				})

				sr.Get("/roles", h.Role.List)
				sr.Group(func(gr chi.Router) {
					gr.Use(middleware.RequirePermission(base, resolver, permissions.ManageRoles))
					gr.Post("/roles", h.Role.Create)
					gr.Patch("/roles/{roleID}", h.Role.Update)
					gr.Delete("/roles/{roleID}", h.Role.Delete)
					gr.Put("/roles/{roleID}/members/{userID}", h.Role.Assign)
					gr.Delete("/roles/{roleID}/members/{userID}", h.Role.Unassign)
				})

				sr.Get("/channels", h.Channel.List)
				sr.Group(func(gr chi.Router) {
					gr.Use(middleware.RequirePermission(base, resolver, permissions.ManageChannels))
					gr.Post("/channels", h.Channel.Create)
					gr.Patch("/channels/{channelID}", h.Channel.Update)
					gr.Delete("/channels/{channelID}", h.Channel.Delete)
					gr.Get("/channels/{channelID}/overrides", h.Channel.ListOverrides)
					gr.Put("/channels/{channelID}/overrides/{roleID}", h.Channel.SetOverride)
					gr.Delete("/channels/{channelID}/overrides/{roleID}", h.Channel.DeleteOverride)
				})

				sr.Route("/channels/{channelID}", func(cr chi.Router) {
					cr.Get("/", h.Channel.Get)

					cr.Group(func(gr chi.Router) {
						gr.Use(middleware.RequireChannelPermission(base, resolver, permissions.ReadMessages))
						gr.Get("/messages", h.Message.List)
						gr.Get("/voice", h.Voice.Participants)
					})

					cr.Group(func(gr chi.Router) {
						gr.Use(middleware.RequireChannelPermission(base, resolver, permissions.SendMessages))
						gr.Post("/messages", h.Message.Create)
					})

					// Edit is author-only; delete is author-or-moderator, so
					// the resolved mask is loaded without gating.
					cr.Patch("/messages/{messageID}", h.Message.Update)
					cr.Group(func(gr chi.Router) {
						gr.Use(middleware.LoadChannelPermissions(base, resolver))
						gr.Delete("/messages/{messageID}", h.Message.Delete)
					})

					cr.Group(func(gr chi.Router) {
						gr.Use(middleware.RequireChannelPermission(base, resolver, permissions.ConnectVoice))
						gr.Post("/voice", h.Voice.Join)
					})
					cr.Delete("/voice", h.Voice.Leave)
				})
			})
		})
	})
}
