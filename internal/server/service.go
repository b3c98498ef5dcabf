package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal"
)

type Repository interface {
	Create(ctx context.Context, srv *Server) error
	GetByID(ctx context.Context, id string) (*Server, error)
	GetByInviteCode(ctx context.Context, code string) (*Server, error)
	Update(ctx context.Context, srv *Server) error
	ListForUser(ctx context.Context, userID string) ([]Server, error)

	AddMember(ctx context.Context, m *Membership) error
	RemoveMember(ctx context.Context, serverID, userID string) error
	IsMember(ctx context.Context, serverID, userID string) (bool, error)
	MembershipCount(ctx context.Context, userID string) (int64, error)
	ListMembers(ctx context.Context, serverID string) ([]Member, error)

	AddBan(ctx context.Context, b *Ban) error
	RemoveBan(ctx context.Context, serverID, userID string) error
	IsBanned(ctx context.Context, serverID, userID string) (bool, error)
}

// RoleProvisioner seeds a fresh server with its owner and default roles and
// enforces the rank ordering between two members.
type RoleProvisioner interface {
	ProvisionNewServer(ctx context.Context, serverID, ownerID string) error
	CanActOn(ctx context.Context, serverID, actorID, targetID string) (bool, error)
}

// Publisher is the slice of the gateway hub the server service drives.
type Publisher interface {
	BroadcastToServer(serverID, op string, data any)
	BroadcastToUsers(userIDs []string, op string, data any)
	Subscribe(userID, serverID string)
	Unsubscribe(userID, serverID string)
	DisconnectUser(userID string)
}

// Invalidator drops cached permission resolutions for a member whose standing
// in a server changed.
type Invalidator interface {
	InvalidateUser(userID string)
}

type Service struct {
	repo     Repository
	roles    RoleProvisioner
	hub      Publisher
	resolver Invalidator
	logger   *slog.Logger
}

func NewService(repo Repository, roles RoleProvisioner, hub Publisher, resolver Invalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		roles:    roles,
		hub:      hub,
		resolver: resolver,
		logger:   logger,
	}
}

// Create provisions a new server. The creator becomes owner, gets the owner
// role, and the default role comes into existence alongside it.
func (s *Service) Create(ctx context.Context, ownerID string, dto CreateServerDTO) (*Server, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	srv := &Server{
		ID:             uuid.New().String(),
		Name:           dto.Name,
		OwnerID:        ownerID,
		InviteRequired: dto.InviteRequired,
		InviteCode:     uuid.New().String(),
	}
	if err := s.repo.Create(ctx, srv); err != nil {
		return nil, internal.NewInternalError("failed to create server").WithCause(err)
	}

	position, err := s.repo.MembershipCount(ctx, ownerID)
	if err != nil {
		return nil, internal.NewInternalError("failed to count memberships").WithCause(err)
	}
	if err := s.repo.AddMember(ctx, &Membership{ServerID: srv.ID, UserID: ownerID, Position: int(position)}); err != nil {
		return nil, internal.NewInternalError("failed to add owner membership").WithCause(err)
	}

	if err := s.roles.ProvisionNewServer(ctx, srv.ID, ownerID); err != nil {
		return nil, err
	}

	s.hub.Subscribe(ownerID, srv.ID)
	s.logger.Info("server created", "server_id", srv.ID, "owner_id", ownerID)
	return srv, nil
}

func (s *Service) Get(ctx context.Context, serverID string) (*Server, error) {
	srv, err := s.repo.GetByID(ctx, serverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrServerNotFound
		}
		return nil, internal.NewInternalError("failed to load server").WithCause(err)
	}
	return srv, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Server, error) {
	srvs, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list servers").WithCause(err)
	}
	return srvs, nil
}

// Join adds the actor to a server. Banned users are refused outright, and a
// server that requires invites refuses mismatched codes.
func (s *Service) Join(ctx context.Context, serverID, userID string, dto JoinServerDTO) error {
	srv, err := s.Get(ctx, serverID)
	if err != nil {
		return err
	}

	banned, err := s.repo.IsBanned(ctx, serverID, userID)
	if err != nil {
		return internal.NewInternalError("failed to check ban").WithCause(err)
	}
	if banned {
		return internal.NewForbiddenError("you are banned from this server")
	}

	member, err := s.repo.IsMember(ctx, serverID, userID)
	if err != nil {
		return internal.NewInternalError("failed to check membership").WithCause(err)
	}
	if member {
		return internal.ErrAlreadyMember
	}

	if srv.InviteRequired && dto.InviteCode != srv.InviteCode {
		return internal.ErrInviteRequired
	}

	position, err := s.repo.MembershipCount(ctx, userID)
	if err != nil {
		return internal.NewInternalError("failed to count memberships").WithCause(err)
	}
	if err := s.repo.AddMember(ctx, &Membership{ServerID: serverID, UserID: userID, Position: int(position)}); err != nil {
		return internal.NewInternalError("failed to add member").WithCause(err)
	}

	s.hub.Subscribe(userID, serverID)
	s.hub.BroadcastToServer(serverID, "member_join", map[string]string{
		"server_id": serverID,
		"user_id":   userID,
	})
	s.logger.Info("member joined", "server_id", serverID, "user_id", userID)
	return nil
}

// Leave removes the actor from a server. The owner cannot leave their own
// server.
func (s *Service) Leave(ctx context.Context, serverID, userID string) error {
	srv, err := s.Get(ctx, serverID)
	if err != nil {
		return err
	}
	if srv.OwnerID == userID {
		return internal.NewValidationError("the owner cannot leave their own server")
	}

	if err := s.repo.RemoveMember(ctx, serverID, userID); err != nil {
		return internal.NewInternalError("failed to remove member").WithCause(err)
	}

	s.resolver.InvalidateUser(userID)
	s.hub.Unsubscribe(userID, serverID)
	s.hub.BroadcastToServer(serverID, "member_leave", map[string]string{
		"server_id": serverID,
		"user_id":   userID,
	})
	return nil
}

// Kick evicts a member. The actor must outrank the target.
func (s *Service) Kick(ctx context.Context, serverID, actorID, targetID string) error {
	if err := s.checkTarget(ctx, serverID, actorID, targetID); err != nil {
		return err
	}

	if err := s.repo.RemoveMember(ctx, serverID, targetID); err != nil {
		return internal.NewInternalError("failed to remove member").WithCause(err)
	}

	s.resolver.InvalidateUser(targetID)
	// Tell the target before the unsubscribe cuts their stream for this server.
	s.hub.BroadcastToUsers([]string{targetID}, "server_remove", map[string]string{
		"server_id": serverID,
		"reason":    "kicked",
	})
	s.hub.Unsubscribe(targetID, serverID)
	s.hub.BroadcastToServer(serverID, "member_kick", map[string]string{
		"server_id": serverID,
		"user_id":   targetID,
	})
	s.logger.Info("member kicked", "server_id", serverID, "actor_id", actorID, "target_id", targetID)
	return nil
}

// Ban evicts a member and blocks rejoining. The target's gateway connections
// are cut.
func (s *Service) Ban(ctx context.Context, serverID, actorID, targetID string, dto BanDTO) error {
	if err := s.checkTarget(ctx, serverID, actorID, targetID); err != nil {
		return err
	}

	if err := s.repo.AddBan(ctx, &Ban{
		ServerID: serverID,
		UserID:   targetID,
		BannedBy: actorID,
		Reason:   dto.Reason,
	}); err != nil {
		return internal.NewInternalError("failed to record ban").WithCause(err)
	}
	if err := s.repo.RemoveMember(ctx, serverID, targetID); err != nil {
		return internal.NewInternalError("failed to remove member").WithCause(err)
	}

	s.resolver.InvalidateUser(targetID)
	s.hub.BroadcastToUsers([]string{targetID}, "server_remove", map[string]string{
		"server_id": serverID,
		"reason":    "banned",
	})
	s.hub.Unsubscribe(targetID, serverID)
	s.hub.DisconnectUser(targetID)
	s.hub.BroadcastToServer(serverID, "member_ban", map[string]string{
		"server_id": serverID,
		"user_id":   targetID,
	})
	s.logger.Info("member banned", "server_id", serverID, "actor_id", actorID, "target_id", targetID)
	return nil
}

// Unban lifts a ban so the user may join again.
func (s *Service) Unban(ctx context.Context, serverID, userID string) error {
	if err := s.repo.RemoveBan(ctx, serverID, userID); err != nil {
		return internal.NewInternalError("failed to lift ban").WithCause(err)
	}
	return nil
}

// Invite returns the server's current invite code.
func (s *Service) Invite(ctx context.Context, serverID string) (string, error) {
	srv, err := s.Get(ctx, serverID)
	if err != nil {
		return "", err
	}
	return srv.InviteCode, nil
}

// RotateInvite replaces the invite code, cutting off anyone holding the old
// one.
func (s *Service) RotateInvite(ctx context.Context, serverID string) (string, error) {
	srv, err := s.Get(ctx, serverID)
	if err != nil {
		return "", err
	}

	srv.InviteCode = uuid.New().String()
	if err := s.repo.Update(ctx, srv); err != nil {
		return "", internal.NewInternalError("failed to rotate invite code").WithCause(err)
	}

	s.logger.Info("invite code rotated", "server_id", serverID)
	return srv.InviteCode, nil
}

func (s *Service) Members(ctx context.Context, serverID string) ([]Member, error) {
	members, err := s.repo.ListMembers(ctx, serverID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list members").WithCause(err)
	}
	return members, nil
}

// IsMember reports whether the user belongs to the server. The membership
// middleware and the gateway both gate on this.
func (s *Service) IsMember(ctx context.Context, serverID, userID string) (bool, error) {
	member, err := s.repo.IsMember(ctx, serverID, userID)
	if err != nil {
		return false, internal.NewInternalError("failed to check membership").WithCause(err)
	}
	return member, nil
}

func (s *Service) checkTarget(ctx context.Context, serverID, actorID, targetID string) error {
	if actorID == targetID {
		return internal.NewValidationError("you cannot target yourself")
	}

	srv, err := s.Get(ctx, serverID)
	if err != nil {
		return err
	}
	if srv.OwnerID == targetID {
		return internal.NewForbiddenError("the server owner cannot be targeted")
	}

	member, err := s.repo.IsMember(ctx, serverID, targetID)
	if err != nil {
		return internal.NewInternalError("failed to check membership").WithCause(err)
	}
	if !member {
		return internal.ErrNotAMember
	}

	ok, err := s.roles.CanActOn(ctx, serverID, actorID, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return internal.ErrRoleHierarchy
	}
	return nil
}
