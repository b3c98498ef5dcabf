package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal/message"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, m *message.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repository) GetByID(ctx context.Context, id string) (*message.Message, error) {
	var m message.Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) Update(ctx context.Context, m *message.Message) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&message.Message{}, "id = ?", id).Error
}

// ListByChannel pages newest-first. With a cursor it compares the
// (created_at, id) pair, so rows sharing the anchor's timestamp still page
// out instead of being skipped.
func (r *Repository) ListByChannel(ctx context.Context, channelID string, before time.Time, beforeID string, limit int) ([]message.Message, error) {
	q := r.db.WithContext(ctx).Where("channel_id = ?", channelID)
	if beforeID != "" {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", before, before, beforeID)
	} else {
		q = q.Where("created_at < ?", before)
	}

	var msgs []message.Message
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}
