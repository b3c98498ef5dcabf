package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/permissions"
	"github.com/veyra-chat/veyra/internal/transport"
)

// PermissionResolver computes effective permissions for the final pipeline
// stage. Server scope uses the member's base mask; channel scope narrows it
// through the channel's overrides.
type PermissionResolver interface {
	ServerPermissions(ctx context.Context, serverID, userID string) (permissions.Permission, error)
	ChannelPermissions(ctx context.Context, serverID, channelID, userID string) (permissions.Permission, error)
}

// RequirePermission gates a server-scoped route on one permission bit. Runs
// behind RequireMembership, so the actor and server id are already in the
// context. The resolved mask is stored for handlers that need it.
func RequirePermission(base *transport.BaseHandler, resolver PermissionResolver, perm permissions.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, serverID, ok := pipelineState(r)
			if !ok {
				base.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
				return
			}

			resolved, err := resolver.ServerPermissions(r.Context(), serverID, actor.UserID)
			if err != nil {
				base.WriteAppError(w, err)
				return
			}
			if !resolved.Has(perm) {
				base.WriteAppError(w, internal.ErrInsufficientPermissions)
				return
			}

			ctx := internal.ContextWithPermissions(r.Context(), resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireChannelPermission gates a channel-scoped route on one permission
// bit, evaluated against the {channelID} in the path. The channel is resolved
// under the pipeline's server id, so a channel id from another server comes
// back not found.
func RequireChannelPermission(base *transport.BaseHandler, resolver PermissionResolver, perm permissions.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, serverID, ok := pipelineState(r)
			if !ok {
				base.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
				return
			}

			channelID := chi.URLParam(r, "channelID")
			if channelID == "" {
				base.WriteAppError(w, internal.NewValidationError("channel id is required"))
				return
			}

			resolved, err := resolver.ChannelPermissions(r.Context(), serverID, channelID, actor.UserID)
			if err != nil {
				base.WriteAppError(w, err)
				return
			}
			if !resolved.Has(perm) {
				base.WriteAppError(w, internal.ErrInsufficientPermissions)
				return
			}

			ctx := internal.ContextWithPermissions(r.Context(), resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadChannelPermissions resolves the actor's channel permissions into the
// context without gating on any bit, for routes whose rule is more involved
// than a single bit (message deletion is author-or-moderator).
func LoadChannelPermissions(base *transport.BaseHandler, resolver PermissionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, serverID, ok := pipelineState(r)
			if !ok {
				base.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
				return
			}

			channelID := chi.URLParam(r, "channelID")
			if channelID == "" {
				base.WriteAppError(w, internal.NewValidationError("channel id is required"))
				return
			}

			resolved, err := resolver.ChannelPermissions(r.Context(), serverID, channelID, actor.UserID)
			if err != nil {
				base.WriteAppError(w, err)
				return
			}

			ctx := internal.ContextWithPermissions(r.Context(), resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func pipelineState(r *http.Request) (internal.Actor, string, bool) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		return internal.Actor{}, "", false
	}
	serverID, ok := internal.ServerIDFromContext(r.Context())
	if !ok {
		serverID = chi.URLParam(r, "serverID")
	}
	return actor, serverID, serverID != ""
}
