package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal/server"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, srv *server.Server) error {
	return r.db.WithContext(ctx).Create(srv).Error
}

func (r *Repository) GetByID(ctx context.Context, id string) (*server.Server, error) {
	var srv server.Server
	if err := r.db.WithContext(ctx).First(&srv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &srv, nil
}

func (r *Repository) GetByInviteCode(ctx context.Context, code string) (*server.Server, error) {
	var srv server.Server
	if err := r.db.WithContext(ctx).First(&srv, "invite_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &srv, nil
}

func (r *Repository) Update(ctx context.Context, srv *server.Server) error {
	return r.db.WithContext(ctx).Save(srv).Error
}

func (r *Repository) ListForUser(ctx context.Context, userID string) ([]server.Server, error) {
	var srvs []server.Server
	err := r.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.server_id = servers.id").
		Where("memberships.user_id = ?", userID).
		Order("memberships.position").
		Find(&srvs).Error
	return srvs, err
}

func (r *Repository) AddMember(ctx context.Context, m *server.Membership) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repository) RemoveMember(ctx context.Context, serverID, userID string) error {
	return r.db.WithContext(ctx).
		Where("server_id = ? AND user_id = ?", serverID, userID).
		Delete(&server.Membership{}).Error
}

func (r *Repository) IsMember(ctx context.Context, serverID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&server.Membership{}).
		Where("server_id = ? AND user_id = ?", serverID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) MembershipCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&server.Membership{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *Repository) ListMembers(ctx context.Context, serverID string) ([]server.Member, error) {
	var members []server.Member
	err := r.db.WithContext(ctx).Model(&server.Membership{}).
		Select("memberships.user_id, users.username, users.status, memberships.joined_at").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.server_id = ?", serverID).
		Scan(&members).Error
	return members, err
}

func (r *Repository) AddBan(ctx context.Context, b *server.Ban) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) RemoveBan(ctx context.Context, serverID, userID string) error {
	return r.db.WithContext(ctx).
		Where("server_id = ? AND user_id = ?", serverID, userID).
		Delete(&server.Ban{}).Error
}

func (r *Repository) IsBanned(ctx context.Context, serverID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&server.Ban{}).
		Where("server_id = ? AND user_id = ?", serverID, userID).
		Count(&count).Error
	return count > 0, err
}
