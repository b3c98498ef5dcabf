package role

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/permissions"
)

type Repository interface {
	Create(ctx context.Context, r *Role) error
	GetByID(ctx context.Context, id string) (*Role, error)
	Update(ctx context.Context, r *Role) error
	Delete(ctx context.Context, id string) error
	ListByServer(ctx context.Context, serverID string) ([]Role, error)

	Assign(ctx context.Context, a *Assignment) error
	Unassign(ctx context.Context, roleID, userID string) error
	UnassignAll(ctx context.Context, roleID string) error
	RolesForUser(ctx context.Context, serverID, userID string) ([]Role, error)
}

type Publisher interface {
	BroadcastToServer(serverID, op string, data any)
}

// MembershipSource answers whether a user belongs to a server. The default
// role is implicit for members only, so resolution has to consult it.
type MembershipSource interface {
	IsMember(ctx context.Context, serverID, userID string) (bool, error)
}

// Invalidator drops cached permission resolutions. Changing a role's bits can
// affect every holder, so that path flushes everything; assignment changes
// only touch one user.
type Invalidator interface {
	InvalidateUser(userID string)
	InvalidateAll()
}

type Service struct {
	repo     Repository
	members  MembershipSource
	hub      Publisher
	resolver Invalidator
	logger   *slog.Logger
}

func NewService(repo Repository, members MembershipSource, hub Publisher, resolver Invalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		members:  members,
		hub:      hub,
		resolver: resolver,
		logger:   logger,
	}
}

// ProvisionNewServer seeds a fresh server with its owner role and the default
// role, and hands the owner role to the creator.
func (s *Service) ProvisionNewServer(ctx context.Context, serverID, ownerID string) error {
	owner := &Role{
		ID:          uuid.New().String(),
		ServerID:    serverID,
		Name:        OwnerRoleName,
		Position:    ownerPosition,
		Permissions: permissions.All,
		IsOwner:     true,
	}
	if err := s.repo.Create(ctx, owner); err != nil {
		return internal.NewInternalError("failed to create owner role").WithCause(err)
	}

	def := &Role{
		ID:          uuid.New().String(),
		ServerID:    serverID,
		Name:        DefaultRoleName,
		Position:    0,
		Permissions: defaultPermissions,
		IsDefault:   true,
	}
	if err := s.repo.Create(ctx, def); err != nil {
		return internal.NewInternalError("failed to create default role").WithCause(err)
	}

	if err := s.repo.Assign(ctx, &Assignment{RoleID: owner.ID, UserID: ownerID, ServerID: serverID}); err != nil {
		return internal.NewInternalError("failed to assign owner role").WithCause(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, serverID string) ([]Role, error) {
	roles, err := s.repo.ListByServer(ctx, serverID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list roles").WithCause(err)
	}
	return roles, nil
}

// EditableRoles returns the roles the actor may edit, assign, or delete:
// everything strictly below their own highest role, fenced roles excluded,
// highest first.
func (s *Service) EditableRoles(ctx context.Context, serverID, actorID string) ([]Role, error) {
	actorMax, _, err := s.actorStanding(ctx, serverID, actorID)
	if err != nil {
		return nil, err
	}

	all, err := s.repo.ListByServer(ctx, serverID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list roles").WithCause(err)
	}

	byID := make(map[string]Role, len(all))
	for _, r := range all {
		byID[r.ID] = r
	}

	ranks := permissions.EditableRoles(rankAll(all), actorMax)
	out := make([]Role, 0, len(ranks))
	for _, rk := range ranks {
		out = append(out, byID[rk.ID])
	}
	return out, nil
}

// Create adds a role. The actor cannot place it at or above their own highest
// role, and cannot grant bits they do not hold themselves unless they carry
// Admin.
func (s *Service) Create(ctx context.Context, serverID, actorID string, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	actorMax, actorPerms, err := s.actorStanding(ctx, serverID, actorID)
	if err != nil {
		return nil, err
	}
	if dto.Position >= actorMax {
		return nil, internal.ErrRoleHierarchy
	}
	if err := checkEscalation(actorPerms, dto.Permissions); err != nil {
		return nil, err
	}

	r := &Role{
		ID:          uuid.New().String(),
		ServerID:    serverID,
		Name:        dto.Name,
		Color:       dto.Color,
		Position:    dto.Position,
		Permissions: dto.Permissions,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, internal.NewInternalError("failed to create role").WithCause(err)
	}

	s.hub.BroadcastToServer(serverID, "role_create", r)
	s.logger.Info("role created", "server_id", serverID, "role_id", r.ID, "actor_id", actorID)
	return r, nil
}

// Update edits a role the actor outranks. The default role accepts permission
// changes only; the owner role accepts none.
func (s *Service) Update(ctx context.Context, serverID, actorID, roleID string, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r, err := s.get(ctx, serverID, roleID)
	if err != nil {
		return nil, err
	}

	actorMax, actorPerms, err := s.actorStanding(ctx, serverID, actorID)
	if err != nil {
		return nil, err
	}

	if r.IsOwner {
		return nil, internal.ErrProtectedRole
	}
	if r.IsDefault {
		if dto.Name != nil || dto.Position != nil {
			return nil, internal.ErrProtectedRole
		}
	} else if !permissions.CanEdit(r.Rank(), actorMax) {
		return nil, internal.ErrRoleHierarchy
	}

	if dto.Permissions != nil {
		if err := checkEscalation(actorPerms, *dto.Permissions); err != nil {
			return nil, err
		}
		r.Permissions = *dto.Permissions
	}
	if dto.Name != nil {
		r.Name = *dto.Name
	}
	if dto.Color != nil {
		r.Color = *dto.Color
	}
	if dto.Position != nil {
		if *dto.Position >= actorMax {
			return nil, internal.ErrRoleHierarchy
		}
		r.Position = *dto.Position
	}

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, internal.NewInternalError("failed to update role").WithCause(err)
	}

	s.resolver.InvalidateAll()
	s.hub.BroadcastToServer(serverID, "role_update", r)
	return r, nil
}

// Delete removes a role the actor outranks, along with its assignments. The
// default and owner roles cannot be deleted.
func (s *Service) Delete(ctx context.Context, serverID, actorID, roleID string) error {
	r, err := s.get(ctx, serverID, roleID)
	if err != nil {
		return err
	}
	if r.IsDefault || r.IsOwner {
		return internal.ErrProtectedRole
	}

	actorMax, _, err := s.actorStanding(ctx, serverID, actorID)
	if err != nil {
		return err
	}
	if !permissions.CanEdit(r.Rank(), actorMax) {
		return internal.ErrRoleHierarchy
	}

	if err := s.repo.UnassignAll(ctx, roleID); err != nil {
		return internal.NewInternalError("failed to clear role assignments").WithCause(err)
	}
	if err := s.repo.Delete(ctx, roleID); err != nil {
		return internal.NewInternalError("failed to delete role").WithCause(err)
	}

	s.resolver.InvalidateAll()
	s.hub.BroadcastToServer(serverID, "role_delete", map[string]string{
		"server_id": serverID,
		"role_id":   roleID,
	})
	s.logger.Info("role deleted", "server_id", serverID, "role_id", roleID, "actor_id", actorID)
	return nil
}

// Assign hands a role to a member. Only roles below the actor's own highest
// role can be handed out.
func (s *Service) Assign(ctx context.Context, serverID, actorID, roleID, targetID string) error {
	r, err := s.get(ctx, serverID, roleID)
	if err != nil {
		return err
	}
	if r.IsDefault || r.IsOwner {
		return internal.ErrProtectedRole
	}

	actorMax, _, err := s.actorStanding(ctx, serverID, actorID)
	if err != nil {
		return err
	}
	if !permissions.CanEdit(r.Rank(), actorMax) {
		return internal.ErrRoleHierarchy
	}

	if err := s.repo.Assign(ctx, &Assignment{RoleID: roleID, UserID: targetID, ServerID: serverID}); err != nil {
		return internal.NewInternalError("failed to assign role").WithCause(err)
	}

	s.resolver.InvalidateUser(targetID)
	s.hub.BroadcastToServer(serverID, "role_assign", map[string]string{
		"server_id": serverID,
		"role_id":   roleID,
		"user_id":   targetID,
	})
	return nil
}

// Unassign takes a role back from a member, under the same hierarchy rule as
// Assign.
func (s *Service) Unassign(ctx context.Context, serverID, actorID, roleID, targetID string) error {
	r, err := s.get(ctx, serverID, roleID)
	if err != nil {
		return err
	}
	if r.IsDefault || r.IsOwner {
		return internal.ErrProtectedRole
	}

	actorMax, _, err := s.actorStanding(ctx, serverID, actorID)
	if err != nil {
		return err
	}
	if !permissions.CanEdit(r.Rank(), actorMax) {
		return internal.ErrRoleHierarchy
	}

	if err := s.repo.Unassign(ctx, roleID, targetID); err != nil {
		return internal.NewInternalError("failed to unassign role").WithCause(err)
	}

	s.resolver.InvalidateUser(targetID)
	s.hub.BroadcastToServer(serverID, "role_unassign", map[string]string{
		"server_id": serverID,
		"role_id":   roleID,
		"user_id":   targetID,
	})
	return nil
}

// RolesForUser returns the roles a member holds plus the server's default
// role, which every member holds implicitly. Users who are not members of
// the server hold no roles at all.
func (s *Service) RolesForUser(ctx context.Context, serverID, userID string) ([]Role, error) {
	isMember, err := s.members.IsMember(ctx, serverID, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check membership").WithCause(err)
	}
	if !isMember {
		return nil, nil
	}

	held, err := s.repo.RolesForUser(ctx, serverID, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user roles").WithCause(err)
	}

	all, err := s.repo.ListByServer(ctx, serverID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list roles").WithCause(err)
	}
	for i := range all {
		if all[i].IsDefault {
			held = append(held, all[i])
			break
		}
	}
	return held, nil
}

// RoleIDsForUser returns the IDs of the roles a member holds, default role
// included.
func (s *Service) RoleIDsForUser(ctx context.Context, serverID, userID string) ([]string, error) {
	roles, err := s.RolesForUser(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(roles))
	for i := range roles {
		ids[i] = roles[i].ID
	}
	return ids, nil
}

// BasePermissions computes a member's server-level permission mask: the OR of
// every role they hold.
func (s *Service) BasePermissions(ctx context.Context, serverID, userID string) (permissions.Permission, error) {
	roles, err := s.RolesForUser(ctx, serverID, userID)
	if err != nil {
		return 0, err
	}
	var base permissions.Permission
	for _, r := range roles {
		base |= r.Permissions
	}
	return base, nil
}

// CanActOn reports whether the actor outranks the target: strictly higher
// highest-role position, or the owner role against anyone.
func (s *Service) CanActOn(ctx context.Context, serverID, actorID, targetID string) (bool, error) {
	actorMax, _, err := s.actorStanding(ctx, serverID, actorID)
	if err != nil {
		return false, err
	}

	targetRoles, err := s.RolesForUser(ctx, serverID, targetID)
	if err != nil {
		return false, err
	}
	targetMax := permissions.MaxPosition(rankAll(targetRoles))

	return actorMax > targetMax, nil
}

func (s *Service) get(ctx context.Context, serverID, roleID string) (*Role, error) {
	r, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRoleNotFound
		}
		return nil, internal.NewInternalError("failed to load role").WithCause(err)
	}
	if r.ServerID != serverID {
		return nil, internal.ErrRoleNotFound
	}
	return r, nil
}

func (s *Service) actorStanding(ctx context.Context, serverID, actorID string) (int, permissions.Permission, error) {
	roles, err := s.RolesForUser(ctx, serverID, actorID)
	if err != nil {
		return 0, 0, err
	}
	var perms permissions.Permission
	for _, r := range roles {
		perms |= r.Permissions
	}
	return permissions.MaxPosition(rankAll(roles)), perms, nil
}

func checkEscalation(actor, granted permissions.Permission) error {
	if actor.Has(permissions.Admin) {
		return nil
	}
	if granted&^actor != 0 {
		return internal.NewForbiddenError("cannot grant permissions you do not hold")
	}
	return nil
}

func rankAll(roles []Role) []permissions.RoleRank {
	ranks := make([]permissions.RoleRank, len(roles))
	for i := range roles {
		ranks[i] = roles[i].Rank()
	}
	return ranks
}
