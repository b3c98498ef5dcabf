package user

import (
	"context"
	"log/slog"

	"github.com/veyra-chat/veyra/internal"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateManualStatus(ctx context.Context, id, manualStatus string) error
	UpdateLocale(ctx context.Context, id, locale string) error
}

// Publisher is the slice of the event hub the user service needs.
type Publisher interface {
	BroadcastToAll(op string, data any)
}

type Service struct {
	repo   Repository
	hub    Publisher
	logger *slog.Logger
}

func NewService(repo Repository, hub Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, hub: hub, logger: logger}
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.ErrUserNotFound.WithCause(err)
	}
	return u, nil
}

// PresenceEvent is the payload broadcast when a user's visible status changes.
type PresenceEvent struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// SetManualStatus stores a user-chosen presence override and broadcasts the
// resulting visible status. An empty status clears the override.
func (s *Service) SetManualStatus(ctx context.Context, userID, status string) error {
	if !ValidManualStatus(status) {
		return internal.NewValidationError("invalid presence status", internal.ErrCodeInvalidPresence)
	}

	if err := s.repo.UpdateManualStatus(ctx, userID, status); err != nil {
		return internal.NewInternalError("failed to update presence").WithCause(err)
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return internal.ErrUserNotFound.WithCause(err)
	}

	s.hub.BroadcastToAll("presence_update", PresenceEvent{UserID: userID, Status: u.EffectiveStatus()})
	return nil
}

// HandleConnect is wired to the hub's first-connection callback: the user's
// automatic status becomes online and, absent a manual override, everyone is
// told.
func (s *Service) HandleConnect(userID string) {
	ctx := context.Background()

	if err := s.repo.UpdateStatus(ctx, userID, StatusOnline); err != nil {
		s.logger.Error("failed to mark user online", "user_id", userID, "error", err)
		return
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return
	}
	s.hub.BroadcastToAll("presence_update", PresenceEvent{UserID: userID, Status: u.EffectiveStatus()})
}

// HandleDisconnect is wired to the hub's last-connection callback.
func (s *Service) HandleDisconnect(userID string) {
	ctx := context.Background()

	if err := s.repo.UpdateStatus(ctx, userID, StatusOffline); err != nil {
		s.logger.Error("failed to mark user offline", "user_id", userID, "error", err)
		return
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return
	}
	s.hub.BroadcastToAll("presence_update", PresenceEvent{UserID: userID, Status: u.EffectiveStatus()})
}

func (s *Service) UpdateLocale(ctx context.Context, userID, locale string) error {
	if locale == "" {
		return internal.NewValidationError("locale is required", internal.ErrCodeValidationFailed)
	}
	if err := s.repo.UpdateLocale(ctx, userID, locale); err != nil {
		return internal.NewInternalError("failed to update locale").WithCause(err)
	}
	return nil
}
