package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/transport"
)

// MembershipChecker reports whether a user belongs to a server.
type MembershipChecker interface {
	IsMember(ctx context.Context, serverID, userID string) (bool, error)
}

// RequireMembership is the gate between authentication and permission checks:
// the actor must be a member of the {serverID} in the path before any
// server-scoped handler runs. The server id is stored in the context for the
// stages behind it.
func RequireMembership(base *transport.BaseHandler, members MembershipChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := internal.ActorFromContext(r.Context())
			if !ok {
				base.WriteAppError(w, internal.NewUnauthorizedError("authentication required"))
				return
			}

			serverID := chi.URLParam(r, "serverID")
			if serverID == "" {
				base.WriteAppError(w, internal.NewValidationError("server id is required"))
				return
			}

			member, err := members.IsMember(r.Context(), serverID, actor.UserID)
			if err != nil {
				base.WriteAppError(w, err)
				return
			}
			if !member {
				base.WriteAppError(w, internal.ErrNotAMember)
				return
			}

			ctx := internal.ContextWithServerID(r.Context(), serverID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
