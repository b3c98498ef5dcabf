package ws

// Gateway opcodes. Server-to-client events reuse the broadcast op names the
// feature services publish (message_create, role_update, ...); the constants
// here are the ones the gateway itself produces or consumes.
const (
	OpReady          = "ready"
	OpHeartbeat      = "heartbeat"
	OpHeartbeatAck   = "heartbeat_ack"
	OpPresenceUpdate = "presence_update"
	OpTypingStart    = "typing_start"
)

// Event is one gateway frame. Seq is assigned per-hub at publish time and is
// strictly increasing, so clients can detect gaps.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  uint64 `json:"s,omitempty"`
}
