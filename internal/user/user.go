package user

import "time"

// Presence statuses. Status tracks the connection lifecycle (online/offline);
// ManualStatus is a user-set override (idle, dnd, invisible) that wins over
// the automatic value until cleared.
const (
	StatusOnline    = "online"
	StatusIdle      = "idle"
	StatusDND       = "dnd"
	StatusOffline   = "offline"
	StatusInvisible = "invisible"
)

type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Status       string    `gorm:"default:'offline'" json:"-"`
	ManualStatus string    `gorm:"default:''" json:"-"`
	Locale       string    `gorm:"default:'en'" json:"locale"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EffectiveStatus is what other users see: the manual override when set,
// otherwise the connection-driven status. Invisible presents as offline.
func (u *User) EffectiveStatus() string {
	s := u.Status
	if u.ManualStatus != "" {
		s = u.ManualStatus
	}
	if s == StatusInvisible {
		return StatusOffline
	}
	return s
}

// ValidManualStatus reports whether a client-supplied status may be stored
// as a manual override. Offline is not settable directly; invisible is the
// user-facing way to appear offline.
func ValidManualStatus(status string) bool {
	switch status {
	case StatusOnline, StatusIdle, StatusDND, StatusInvisible, "":
		return true
	}
	return false
}

// Profile is the wire shape for a user.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
	Locale   string `json:"locale"`
}

func (u *User) ToProfile() Profile {
	return Profile{
		ID:       u.ID,
		Username: u.Username,
		Status:   u.EffectiveStatus(),
		Locale:   u.Locale,
	}
}
