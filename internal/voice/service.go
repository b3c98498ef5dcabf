package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/channel"
	"github.com/veyra-chat/veyra/internal/permissions"
)

// PermissionSource resolves a member's effective permissions in a channel.
type PermissionSource interface {
	ChannelPermissions(ctx context.Context, serverID, channelID, userID string) (permissions.Permission, error)
}

// ChannelSource looks up channels so joins can refuse text channels.
type ChannelSource interface {
	Get(ctx context.Context, serverID, channelID string) (*channel.Channel, error)
}

type Publisher interface {
	BroadcastToServer(serverID, op string, data any)
}

// Service tracks who is in which voice channel. A user occupies at most one
// voice channel at a time; joining another moves them.
type Service struct {
	resolver PermissionSource
	channels ChannelSource
	hub      Publisher
	logger   *slog.Logger

	mu     sync.RWMutex
	byUser map[string]*State
}

func NewService(resolver PermissionSource, channels ChannelSource, hub Publisher, logger *slog.Logger) *Service {
	return &Service{
		resolver: resolver,
		channels: channels,
		hub:      hub,
		logger:   logger,
		byUser:   make(map[string]*State),
	}
}

// Join puts the user in a voice channel and reports which capabilities their
// resolved permissions grant. The ConnectVoice gate runs in the route
// middleware; Speak and Stream are evaluated here because they shape the
// grant rather than block the join.
func (s *Service) Join(ctx context.Context, serverID, channelID, userID string) (*Grant, error) {
	ch, err := s.channels.Get(ctx, serverID, channelID)
	if err != nil {
		return nil, err
	}
	if ch.Type != channel.TypeVoice {
		return nil, internal.NewValidationError("not a voice channel")
	}

	perms, err := s.resolver.ChannelPermissions(ctx, serverID, channelID, userID)
	if err != nil {
		return nil, err
	}

	state := &State{
		UserID:    userID,
		ServerID:  serverID,
		ChannelID: channelID,
		CanSpeak:  perms.Has(permissions.Speak),
		CanStream: perms.Has(permissions.Stream),
		JoinedAt:  time.Now(),
	}

	s.mu.Lock()
	prev := s.byUser[userID]
	s.byUser[userID] = state
	s.mu.Unlock()

	if prev != nil && prev.ChannelID != channelID {
		s.hub.BroadcastToServer(prev.ServerID, "voice_leave", map[string]string{
			"server_id":  prev.ServerID,
			"channel_id": prev.ChannelID,
			"user_id":    userID,
		})
	}
	s.hub.BroadcastToServer(serverID, "voice_join", state)
	s.logger.Info("voice join", "server_id", serverID, "channel_id", channelID, "user_id", userID,
		"can_speak", state.CanSpeak, "can_stream", state.CanStream)

	return &Grant{ChannelID: channelID, CanSpeak: state.CanSpeak, CanStream: state.CanStream}, nil
}

// Leave removes the user from whatever voice channel they occupy. Leaving
// while not in one is a no-op.
func (s *Service) Leave(ctx context.Context, userID string) {
	s.mu.Lock()
	state := s.byUser[userID]
	delete(s.byUser, userID)
	s.mu.Unlock()

	if state == nil {
		return
	}

	s.hub.BroadcastToServer(state.ServerID, "voice_leave", map[string]string{
		"server_id":  state.ServerID,
		"channel_id": state.ChannelID,
		"user_id":    userID,
	})
}

// Participants lists who is currently in a voice channel.
func (s *Service) Participants(channelID string) []State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []State
	for _, st := range s.byUser {
		if st.ChannelID == channelID {
			out = append(out, *st)
		}
	}
	return out
}

// HandleDisconnect is wired as a gateway callback so a dropped connection
// also vacates the voice channel.
func (s *Service) HandleDisconnect(userID string) {
	s.Leave(context.Background(), userID)
}
