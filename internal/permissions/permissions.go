// Package permissions defines the permission bit vocabulary and the pure
// functions over it. It has no I/O and no dependencies; every function is
// total over well-formed input.
package permissions

import "sort"

// Permission is a fixed-width bitmask. A user's effective permission in a
// server is the OR of the bitmasks of every role assigned to them there.
type Permission int64

const (
	ManageChannels Permission = 1 << iota // 1
	ManageRoles                           // 2
	KickMembers                           // 4
	BanMembers                            // 8
	ManageMessages                        // 16
	SendMessages                          // 32
	ConnectVoice                          // 64
	Speak                                 // 128
	Stream                                // 256
	Admin                                 // 512
	ManageInvites                         // 1024
	ReadMessages                          // 2048
)

// All is the full permission set.
const All Permission = (1 << 12) - 1

// ChannelOverridable is the subset of bits that may appear in a channel
// override. Server-management bits (ManageChannels, ManageRoles, KickMembers,
// BanMembers, Admin, ManageInvites) stay global and are never overridable.
const ChannelOverridable Permission = SendMessages | ReadMessages | ManageMessages |
	ConnectVoice | Speak | Stream

// Has reports whether p grants perm. The Admin bit grants everything
// unconditionally.
func (p Permission) Has(perm Permission) bool {
	if p&Admin != 0 {
		return true
	}
	return p&perm != 0
}

// Override is one channel-scoped allow/deny row for a role.
type Override struct {
	RoleID string
	Allow  Permission
	Deny   Permission
}

// ResolveChannel narrows a server-level base permission to a channel.
//
// Admin bypasses override evaluation entirely and yields the full set.
// Otherwise every override row belonging to one of roleIDs contributes to the
// aggregate allow and deny masks, and the result is (base &^ deny) | allow.
// With no matching rows the base passes through unchanged.
func ResolveChannel(base Permission, roleIDs []string, overrides []Override) Permission {
	if base&Admin != 0 {
		return All
	}

	held := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = struct{}{}
	}

	var allow, deny Permission
	for _, o := range overrides {
		if _, ok := held[o.RoleID]; !ok {
			continue
		}
		allow |= o.Allow
		deny |= o.Deny
	}

	if allow == 0 && deny == 0 {
		return base
	}
	return (base &^ deny) | allow
}

// RoleRank is the minimal view of a role the hierarchy functions need.
type RoleRank struct {
	ID        string
	Position  int
	IsDefault bool
	IsOwner   bool
}

// MaxPosition returns the highest position among the given roles, or zero for
// an empty set.
func MaxPosition(roles []RoleRank) int {
	max := 0
	for _, r := range roles {
		if r.Position > max {
			max = r.Position
		}
	}
	return max
}

// EditableRoles returns the roles an actor with actorMax as their highest
// role position may edit, assign, or delete: every role strictly below them,
// excluding the default and owner roles, sorted descending by position.
func EditableRoles(roles []RoleRank, actorMax int) []RoleRank {
	editable := make([]RoleRank, 0, len(roles))
	for _, r := range roles {
		if r.IsDefault || r.IsOwner {
			continue
		}
		if r.Position < actorMax {
			editable = append(editable, r)
		}
	}
	sort.Slice(editable, func(i, j int) bool {
		return editable[i].Position > editable[j].Position
	})
	return editable
}

// CanEdit reports whether a role is inside the actor's editable set.
func CanEdit(role RoleRank, actorMax int) bool {
	if role.IsDefault || role.IsOwner {
		return false
	}
	return role.Position < actorMax
}
