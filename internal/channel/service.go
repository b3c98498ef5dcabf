package channel

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal"
)

type Repository interface {
	Create(ctx context.Context, ch *Channel) error
	GetByID(ctx context.Context, id string) (*Channel, error)
	Update(ctx context.Context, ch *Channel) error
	Delete(ctx context.Context, id string) error
	ListByServer(ctx context.Context, serverID string) ([]Channel, error)

	UpsertOverride(ctx context.Context, o *Override) error
	DeleteOverride(ctx context.Context, channelID, roleID string) error
	ListOverrides(ctx context.Context, channelID string) ([]Override, error)
	DeleteOverridesForChannel(ctx context.Context, channelID string) error
}

type Publisher interface {
	BroadcastToServer(serverID, op string, data any)
}

type Service struct {
	repo     Repository
	hub      Publisher
	resolver *Resolver
	logger   *slog.Logger
}

func NewService(repo Repository, hub Publisher, resolver *Resolver, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		hub:      hub,
		resolver: resolver,
		logger:   logger,
	}
}

func (s *Service) Create(ctx context.Context, serverID string, dto CreateChannelDTO) (*Channel, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ch := &Channel{
		ID:       uuid.New().String(),
		ServerID: serverID,
		Name:     dto.Name,
		Type:     dto.Type,
		Topic:    dto.Topic,
		Category: dto.Category,
		Position: dto.Position,
	}
	if err := s.repo.Create(ctx, ch); err != nil {
		return nil, internal.NewInternalError("failed to create channel").WithCause(err)
	}

	s.hub.BroadcastToServer(serverID, "channel_create", ch)
	s.logger.Info("channel created", "server_id", serverID, "channel_id", ch.ID)
	return ch, nil
}

func (s *Service) Get(ctx context.Context, serverID, channelID string) (*Channel, error) {
	ch, err := s.repo.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrChannelNotFound
		}
		return nil, internal.NewInternalError("failed to load channel").WithCause(err)
	}
	if ch.ServerID != serverID {
		return nil, internal.ErrChannelNotFound
	}
	return ch, nil
}

func (s *Service) List(ctx context.Context, serverID string) ([]Channel, error) {
	chs, err := s.repo.ListByServer(ctx, serverID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list channels").WithCause(err)
	}
	return chs, nil
}

func (s *Service) Update(ctx context.Context, serverID, channelID string, dto UpdateChannelDTO) (*Channel, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ch, err := s.Get(ctx, serverID, channelID)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		ch.Name = *dto.Name
	}
	if dto.Topic != nil {
		ch.Topic = *dto.Topic
	}
	if dto.Category != nil {
		ch.Category = *dto.Category
	}
	if dto.Position != nil {
		ch.Position = *dto.Position
	}

	if err := s.repo.Update(ctx, ch); err != nil {
		return nil, internal.NewInternalError("failed to update channel").WithCause(err)
	}

	s.hub.BroadcastToServer(serverID, "channel_update", ch)
	return ch, nil
}

func (s *Service) Delete(ctx context.Context, serverID, channelID string) error {
	if _, err := s.Get(ctx, serverID, channelID); err != nil {
		return err
	}

	if err := s.repo.DeleteOverridesForChannel(ctx, channelID); err != nil {
		return internal.NewInternalError("failed to clear channel overrides").WithCause(err)
	}
	if err := s.repo.Delete(ctx, channelID); err != nil {
		return internal.NewInternalError("failed to delete channel").WithCause(err)
	}

	s.resolver.InvalidateChannel(channelID)
	s.hub.BroadcastToServer(serverID, "channel_delete", map[string]string{
		"server_id":  serverID,
		"channel_id": channelID,
	})
	s.logger.Info("channel deleted", "server_id", serverID, "channel_id", channelID)
	return nil
}

// SetOverride writes the allow/deny row for one role on one channel,
// replacing any previous row for the pair.
func (s *Service) SetOverride(ctx context.Context, serverID, channelID, roleID string, dto SetOverrideDTO) (*Override, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.Get(ctx, serverID, channelID); err != nil {
		return nil, err
	}

	o := &Override{
		ChannelID: channelID,
		RoleID:    roleID,
		Allow:     dto.Allow,
		Deny:      dto.Deny,
	}
	if err := s.repo.UpsertOverride(ctx, o); err != nil {
		return nil, internal.NewInternalError("failed to set channel override").WithCause(err)
	}

	s.resolver.InvalidateChannel(channelID)
	s.hub.BroadcastToServer(serverID, "channel_permission_update", o)
	s.logger.Info("channel override set", "channel_id", channelID, "role_id", roleID,
		"allow", o.Allow, "deny", o.Deny)
	return o, nil
}

func (s *Service) DeleteOverride(ctx context.Context, serverID, channelID, roleID string) error {
	if _, err := s.Get(ctx, serverID, channelID); err != nil {
		return err
	}

	if err := s.repo.DeleteOverride(ctx, channelID, roleID); err != nil {
		return internal.NewInternalError("failed to delete channel override").WithCause(err)
	}

	s.resolver.InvalidateChannel(channelID)
	s.hub.BroadcastToServer(serverID, "channel_permission_update", map[string]string{
		"channel_id": channelID,
		"role_id":    roleID,
	})
	return nil
}

func (s *Service) ListOverrides(ctx context.Context, serverID, channelID string) ([]Override, error) {
	if _, err := s.Get(ctx, serverID, channelID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListOverrides(ctx, channelID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list channel overrides").WithCause(err)
	}
	return rows, nil
}
