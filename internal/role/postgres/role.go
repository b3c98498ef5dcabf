package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal/role"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rl *role.Role) error {
	return r.db.WithContext(ctx).Create(rl).Error
}

func (r *Repository) GetByID(ctx context.Context, id string) (*role.Role, error) {
	var rl role.Role
	if err := r.db.WithContext(ctx).First(&rl, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rl, nil
}

func (r *Repository) Update(ctx context.Context, rl *role.Role) error {
	return r.db.WithContext(ctx).Save(rl).Error
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&role.Role{}, "id = ?", id).Error
}

func (r *Repository) ListByServer(ctx context.Context, serverID string) ([]role.Role, error) {
	var roles []role.Role
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("position DESC").
		Find(&roles).Error
	return roles, err
}

func (r *Repository) Assign(ctx context.Context, a *role.Assignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repository) Unassign(ctx context.Context, roleID, userID string) error {
	return r.db.WithContext(ctx).
		Where("role_id = ? AND user_id = ?", roleID, userID).
		Delete(&role.Assignment{}).Error
}

func (r *Repository) UnassignAll(ctx context.Context, roleID string) error {
	return r.db.WithContext(ctx).
		Where("role_id = ?", roleID).
		Delete(&role.Assignment{}).Error
}

func (r *Repository) RolesForUser(ctx context.Context, serverID, userID string) ([]role.Role, error) {
	var roles []role.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN role_assignments ON role_assignments.role_id = roles.id").
		Where("role_assignments.server_id = ? AND role_assignments.user_id = ?", serverID, userID).
		Find(&roles).Error
	return roles, err
}
