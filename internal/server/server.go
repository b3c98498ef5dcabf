package server

import "time"

// Server is a tenant: an isolated community with its own channels, roles and
// members.
type Server struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	OwnerID        string    `gorm:"type:uuid;not null;index" json:"owner_id"`
	InviteRequired bool      `gorm:"not null;default:false" json:"invite_required"`
	InviteCode     string    `gorm:"index" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Server) TableName() string {
	return "servers"
}

// Membership links a user to a server. Presence of a row is what the
// authorization pipeline checks before anything permission-related runs.
// Position orders the user's server list in their client; new memberships
// append at the end.
type Membership struct {
	ServerID string    `gorm:"primaryKey;type:uuid" json:"server_id"`
	UserID   string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	Position int       `gorm:"not null;default:0" json:"position"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (Membership) TableName() string {
	return "memberships"
}

// Ban records an eviction that also blocks rejoining.
type Ban struct {
	ServerID  string    `gorm:"primaryKey;type:uuid" json:"server_id"`
	UserID    string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	BannedBy  string    `gorm:"type:uuid;not null" json:"banned_by"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (Ban) TableName() string {
	return "bans"
}

// Member is the wire shape for member listings.
type Member struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}
