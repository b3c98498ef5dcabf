package voice

import "time"

// State is one user's live presence in a voice channel. Voice state is
// ephemeral: it lives in memory and vanishes with the process, the same as
// gateway connections.
type State struct {
	UserID    string    `json:"user_id"`
	ServerID  string    `json:"server_id"`
	ChannelID string    `json:"channel_id"`
	CanSpeak  bool      `json:"can_speak"`
	CanStream bool      `json:"can_stream"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Grant is what a successful join reports back: which voice capabilities the
// member's resolved channel permissions carry.
type Grant struct {
	ChannelID string `json:"channel_id"`
	CanSpeak  bool   `json:"can_speak"`
	CanStream bool   `json:"can_stream"`
}
