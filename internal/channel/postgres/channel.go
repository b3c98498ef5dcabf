package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veyra-chat/veyra/internal/channel"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, ch *channel.Channel) error {
	return r.db.WithContext(ctx).Create(ch).Error
}

func (r *Repository) GetByID(ctx context.Context, id string) (*channel.Channel, error) {
	var ch channel.Channel
	if err := r.db.WithContext(ctx).First(&ch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *Repository) Update(ctx context.Context, ch *channel.Channel) error {
	return r.db.WithContext(ctx).Save(ch).Error
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&channel.Channel{}, "id = ?", id).Error
}

func (r *Repository) ListByServer(ctx context.Context, serverID string) ([]channel.Channel, error) {
	var chs []channel.Channel
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("position ASC, created_at ASC").
		Find(&chs).Error
	return chs, err
}

func (r *Repository) UpsertOverride(ctx context.Context, o *channel.Override) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}, {Name: "role_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"allow", "deny", "updated_at"}),
		}).
		Create(o).Error
}

func (r *Repository) DeleteOverride(ctx context.Context, channelID, roleID string) error {
	return r.db.WithContext(ctx).
		Where("channel_id = ? AND role_id = ?", channelID, roleID).
		Delete(&channel.Override{}).Error
}

func (r *Repository) ListOverrides(ctx context.Context, channelID string) ([]channel.Override, error) {
	var rows []channel.Override
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) DeleteOverridesForChannel(ctx context.Context, channelID string) error {
	return r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Delete(&channel.Override{}).Error
}
