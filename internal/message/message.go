package message

import "time"

// Message is one text message in a channel.
type Message struct {
	ID        string     `gorm:"primaryKey;type:uuid" json:"id"`
	ChannelID string     `gorm:"type:uuid;not null;index" json:"channel_id"`
	ServerID  string     `gorm:"type:uuid;not null;index" json:"server_id"`
	AuthorID  string     `gorm:"type:uuid;not null;index" json:"author_id"`
	Content   string     `gorm:"not null" json:"content"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}
