package channel

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/permissions"
	"github.com/veyra-chat/veyra/pkg/cache"
)

// RoleSource is the slice of the role service the resolver reads from.
type RoleSource interface {
	BasePermissions(ctx context.Context, serverID, userID string) (permissions.Permission, error)
	RoleIDsForUser(ctx context.Context, serverID, userID string) ([]string, error)
}

// Resolver computes effective permissions and memoizes them behind a short
// TTL. Mutations to roles, assignments, memberships or overrides must go
// through the Invalidate methods; the TTL only bounds how stale a missed
// invalidation can get.
type Resolver struct {
	roles RoleSource
	repo  Repository
	cache *cache.TTLCache[string, permissions.Permission]
}

func NewResolver(roles RoleSource, repo Repository, ttl, sweepInterval time.Duration) *Resolver {
	return &Resolver{
		roles: roles,
		repo:  repo,
		cache: cache.New[string, permissions.Permission](ttl, sweepInterval),
	}
}

// ServerPermissions returns a member's server-level mask, cached.
func (r *Resolver) ServerPermissions(ctx context.Context, serverID, userID string) (permissions.Permission, error) {
	key := baseKey(userID, serverID)
	if p, ok := r.cache.Get(key); ok {
		return p, nil
	}

	base, err := r.roles.BasePermissions(ctx, serverID, userID)
	if err != nil {
		return 0, err
	}
	r.cache.Set(key, base)
	return base, nil
}

// ChannelPermissions narrows the member's server mask through the channel's
// overrides, cached per channel. The channel must belong to serverID; a
// channel from another server resolves as not found, so a member of one
// server can never reach into another server's channels.
func (r *Resolver) ChannelPermissions(ctx context.Context, serverID, channelID, userID string) (permissions.Permission, error) {
	key := chanKey(userID, serverID, channelID)
	if p, ok := r.cache.Get(key); ok {
		return p, nil
	}

	ch, err := r.repo.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, internal.ErrChannelNotFound
		}
		return 0, internal.NewInternalError("failed to load channel").WithCause(err)
	}
	if ch.ServerID != serverID {
		return 0, internal.ErrChannelNotFound
	}

	base, err := r.ServerPermissions(ctx, serverID, userID)
	if err != nil {
		return 0, err
	}

	roleIDs, err := r.roles.RoleIDsForUser(ctx, serverID, userID)
	if err != nil {
		return 0, err
	}

	rows, err := r.repo.ListOverrides(ctx, channelID)
	if err != nil {
		return 0, internal.NewInternalError("failed to load channel overrides").WithCause(err)
	}
	overrides := make([]permissions.Override, len(rows))
	for i, row := range rows {
		overrides[i] = permissions.Override{RoleID: row.RoleID, Allow: row.Allow, Deny: row.Deny}
	}

	resolved := permissions.ResolveChannel(base, roleIDs, overrides)
	r.cache.Set(key, resolved)
	return resolved, nil
}

// InvalidateUser drops every cached entry for one user across all servers and
// channels.
func (r *Resolver) InvalidateUser(userID string) {
	marker := ":" + userID + ":"
	r.cache.DeleteFunc(func(key string) bool {
		return strings.Contains(key, marker)
	})
}

// InvalidateChannel drops every user's cached entry for one channel.
func (r *Resolver) InvalidateChannel(channelID string) {
	suffix := ":" + channelID
	r.cache.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, "chan:") && strings.HasSuffix(key, suffix)
	})
}

// InvalidateAll empties the cache.
func (r *Resolver) InvalidateAll() {
	r.cache.DeleteFunc(func(string) bool { return true })
}

// Close stops the cache's background sweeper.
func (r *Resolver) Close() {
	r.cache.Close()
}

func baseKey(userID, serverID string) string {
	return "base:" + userID + ":" + serverID
}

func chanKey(userID, serverID, channelID string) string {
	return "chan:" + userID + ":" + serverID + ":" + channelID
}
