package role

import (
	"time"

	"github.com/veyra-chat/veyra/internal/permissions"
)

// Role is a named permission bundle inside one server. Position orders roles
// for hierarchy checks; higher outranks lower.
type Role struct {
	ID          string                 `gorm:"primaryKey;type:uuid" json:"id"`
	ServerID    string                 `gorm:"type:uuid;not null;index" json:"server_id"`
	Name        string                 `gorm:"not null" json:"name"`
	Color       string                 `json:"color"`
	Position    int                    `gorm:"not null" json:"position"`
	Permissions permissions.Permission `gorm:"not null" json:"permissions"`
	IsDefault   bool                   `gorm:"not null;default:false" json:"is_default"`
	IsOwner     bool                   `gorm:"not null;default:false" json:"is_owner"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func (Role) TableName() string {
	return "roles"
}

// Rank projects a role onto the view the hierarchy functions work with.
func (r *Role) Rank() permissions.RoleRank {
	return permissions.RoleRank{
		ID:        r.ID,
		Position:  r.Position,
		IsDefault: r.IsDefault,
		IsOwner:   r.IsOwner,
	}
}

// Assignment links a member to a role they hold.
type Assignment struct {
	RoleID     string    `gorm:"primaryKey;type:uuid" json:"role_id"`
	UserID     string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	ServerID   string    `gorm:"type:uuid;not null;index" json:"server_id"`
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assigned_at"`
}

func (Assignment) TableName() string {
	return "role_assignments"
}

const (
	// DefaultRoleName is the role every member implicitly holds.
	DefaultRoleName = "@everyone"
	// OwnerRoleName is the role the server creator holds.
	OwnerRoleName = "owner"

	ownerPosition = 1000

	// defaultPermissions is the baseline a fresh server grants everyone.
	defaultPermissions = permissions.ReadMessages | permissions.SendMessages |
		permissions.ConnectVoice | permissions.Speak
)
