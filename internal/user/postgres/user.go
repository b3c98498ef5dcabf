package postgres

import (
	"context"

	"github.com/veyra-chat/veyra/internal/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *Repository) UpdateManualStatus(ctx context.Context, id, manualStatus string) error {
	return r.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).
		Update("manual_status", manualStatus).Error
}

func (r *Repository) UpdateLocale(ctx context.Context, id, locale string) error {
	return r.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).
		Update("locale", locale).Error
}
