package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Client is one WebSocket connection. Its send queue is bounded; the hub
// disconnects it rather than block when the queue fills.
type Client struct {
	userID  string
	conn    *websocket.Conn
	send    chan Event
	servers map[string]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(userID string, conn *websocket.Conn, serverIDs []string, bufferSize int) *Client {
	servers := make(map[string]struct{}, len(serverIDs))
	for _, id := range serverIDs {
		servers[id] = struct{}{}
	}
	return &Client{
		userID:  userID,
		conn:    conn,
		send:    make(chan Event, bufferSize),
		servers: servers,
		done:    make(chan struct{}),
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// inboundFrame is what clients send: an op and an opaque payload.
type inboundFrame struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d"`
}

// readPump consumes frames until the connection dies or the heartbeat
// deadline lapses. Each heartbeat extends the deadline; a silent client is
// dropped by the deadline alone, no ticker needed.
func (g *Gateway) readPump(c *Client) {
	defer g.hub.unregister(c)

	deadline := g.cfg.HeartbeatInterval * time.Duration(g.cfg.AllowedMisses)
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			g.logger.Debug("dropping malformed gateway frame", "user_id", c.userID)
			continue
		}

		switch frame.Op {
		case OpHeartbeat:
			_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
			g.hub.deliver(c, Event{Op: OpHeartbeatAck})

		case OpPresenceUpdate:
			var payload struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(frame.Data, &payload); err != nil {
				continue
			}
			if g.OnPresence != nil {
				g.OnPresence(c.userID, payload.Status)
			}

		case OpTypingStart:
			var payload struct {
				ServerID  string `json:"server_id"`
				ChannelID string `json:"channel_id"`
			}
			if err := json.Unmarshal(frame.Data, &payload); err != nil {
				continue
			}
			if !g.hub.isSubscribed(c, payload.ServerID) {
				continue
			}
			g.hub.BroadcastToServer(payload.ServerID, OpTypingStart, map[string]string{
				"server_id":  payload.ServerID,
				"channel_id": payload.ChannelID,
				"user_id":    c.userID,
			})

		default:
			g.logger.Debug("unknown gateway op", "op", frame.Op, "user_id", c.userID)
		}
	}
}

// writePump drains the send queue onto the wire until the client closes.
func (g *Gateway) writePump(c *Client) {
	defer c.close()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				g.hub.unregister(c)
				return
			}
		case <-c.done:
			return
		}
	}
}
