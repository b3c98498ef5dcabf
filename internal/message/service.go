package message

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/permissions"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	Update(ctx context.Context, m *Message) error
	Delete(ctx context.Context, id string) error
	ListByChannel(ctx context.Context, channelID string, before time.Time, beforeID string, limit int) ([]Message, error)
}

type Publisher interface {
	BroadcastToServer(serverID, op string, data any)
}

type Service struct {
	repo   Repository
	hub    Publisher
	logger *slog.Logger
}

func NewService(repo Repository, hub Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, hub: hub, logger: logger}
}

func (s *Service) Create(ctx context.Context, serverID, channelID, authorID string, dto CreateMessageDTO) (*Message, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	m := &Message{
		ID:        uuid.New().String(),
		ChannelID: channelID,
		ServerID:  serverID,
		AuthorID:  authorID,
		Content:   dto.Content,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, internal.NewInternalError("failed to store message").WithCause(err)
	}

	s.hub.BroadcastToServer(serverID, "message_create", m)
	return m, nil
}

// List pages through a channel's history, newest first. The Before cursor is
// a message ID; results are strictly older than it. Paging compares the
// (created_at, id) pair so messages sharing a timestamp are never skipped.
func (s *Service) List(ctx context.Context, serverID, channelID string, q ListMessagesQuery) ([]Message, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	before := time.Now().Add(time.Second)
	beforeID := ""
	if q.Before != "" {
		anchor, err := s.get(ctx, serverID, q.Before)
		if err != nil {
			return nil, err
		}
		before = anchor.CreatedAt
		beforeID = anchor.ID
	}

	msgs, err := s.repo.ListByChannel(ctx, channelID, before, beforeID, limit)
	if err != nil {
		return nil, internal.NewInternalError("failed to list messages").WithCause(err)
	}
	return msgs, nil
}

// Update edits a message. Only the author may edit, regardless of
// permissions.
func (s *Service) Update(ctx context.Context, serverID, actorID, messageID string, dto UpdateMessageDTO) (*Message, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	m, err := s.get(ctx, serverID, messageID)
	if err != nil {
		return nil, err
	}
	if m.AuthorID != actorID {
		return nil, internal.NewForbiddenError("only the author can edit a message")
	}

	now := time.Now()
	m.Content = dto.Content
	m.EditedAt = &now
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, internal.NewInternalError("failed to update message").WithCause(err)
	}

	s.hub.BroadcastToServer(serverID, "message_update", m)
	return m, nil
}

// Delete removes a message. The author may always delete their own; anyone
// else needs ManageMessages in the channel.
func (s *Service) Delete(ctx context.Context, serverID, actorID string, actorPerms permissions.Permission, messageID string) error {
	m, err := s.get(ctx, serverID, messageID)
	if err != nil {
		return err
	}
	if m.AuthorID != actorID && !actorPerms.Has(permissions.ManageMessages) {
		return internal.ErrInsufficientPermissions
	}

	if err := s.repo.Delete(ctx, messageID); err != nil {
		return internal.NewInternalError("failed to delete message").WithCause(err)
	}

	s.hub.BroadcastToServer(serverID, "message_delete", map[string]string{
		"server_id":  serverID,
		"channel_id": m.ChannelID,
		"message_id": messageID,
	})
	s.logger.Info("message deleted", "message_id", messageID, "actor_id", actorID, "author_id", m.AuthorID)
	return nil
}

func (s *Service) get(ctx context.Context, serverID, messageID string) (*Message, error) {
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrMessageNotFound
		}
		return nil, internal.NewInternalError("failed to load message").WithCause(err)
	}
	if m.ServerID != serverID {
		return nil, internal.ErrMessageNotFound
	}
	return m, nil
}
