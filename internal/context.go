package internal

import (
	"context"

	"github.com/veyra-chat/veyra/internal/permissions"
)

type ctxKey string

const (
	contextActorKey       ctxKey = "actor"
	contextServerIDKey    ctxKey = "serverID"
	contextPermissionsKey ctxKey = "permissions"
)

// Actor is the verified identity threaded through the request after the
// authentication stage. It is immutable for the lifetime of the request.
type Actor struct {
	UserID   string
	Username string
}

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextActorKey).(Actor)
	return actor, ok
}

func ContextWithServerID(ctx context.Context, serverID string) context.Context {
	return context.WithValue(ctx, contextServerIDKey, serverID)
}

func ServerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextServerIDKey).(string)
	return id, ok
}

func ContextWithPermissions(ctx context.Context, perms permissions.Permission) context.Context {
	return context.WithValue(ctx, contextPermissionsKey, perms)
}

func PermissionsFromContext(ctx context.Context) (permissions.Permission, bool) {
	perms, ok := ctx.Value(contextPermissionsKey).(permissions.Permission)
	return perms, ok
}
