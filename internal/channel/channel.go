package channel

import (
	"time"

	"github.com/veyra-chat/veyra/internal/permissions"
)

const (
	TypeText  = "text"
	TypeVoice = "voice"
)

// Channel is a named room inside a server, either text or voice. Category is
// a free-form grouping label clients use to section the channel list; an
// empty category leaves the channel ungrouped.
type Channel struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	ServerID  string    `gorm:"type:uuid;not null;index" json:"server_id"`
	Name      string    `gorm:"not null" json:"name"`
	Type      string    `gorm:"not null;default:text" json:"type"`
	Topic     string    `json:"topic"`
	Category  string    `json:"category"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Channel) TableName() string {
	return "channels"
}

// Override is a per-channel allow/deny adjustment for one role. At most one
// row exists per channel and role pair.
type Override struct {
	ChannelID string                 `gorm:"primaryKey;type:uuid" json:"channel_id"`
	RoleID    string                 `gorm:"primaryKey;type:uuid" json:"role_id"`
	Allow     permissions.Permission `gorm:"not null;default:0" json:"allow"`
	Deny      permissions.Permission `gorm:"not null;default:0" json:"deny"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func (Override) TableName() string {
	return "channel_overrides"
}
