package ws

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub routes events to connected clients. Every broadcast is scoped: an event
// for one server only ever reaches clients subscribed to that server. A user
// may hold several connections at once; all of them receive the user's
// events.
//
// Slow consumers are cut, not buffered forever. When a client's send queue is
// full the hub closes the connection; the client is expected to reconnect and
// resynchronize over REST.
type Hub struct {
	logger *slog.Logger
	seq    atomic.Uint64

	mu       sync.RWMutex
	clients  map[*Client]struct{}
	byUser   map[string]map[*Client]struct{}
	byServer map[string]map[*Client]struct{}

	// OnFirstConnect fires when a user's first connection registers,
	// OnLastDisconnect when their last one leaves. Both run outside the hub
	// lock so handlers may call back into the hub.
	OnFirstConnect   func(userID string)
	OnLastDisconnect func(userID string)
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:   logger,
		clients:  make(map[*Client]struct{}),
		byUser:   make(map[string]map[*Client]struct{}),
		byServer: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}

	first := len(h.byUser[c.userID]) == 0
	if h.byUser[c.userID] == nil {
		h.byUser[c.userID] = make(map[*Client]struct{})
	}
	h.byUser[c.userID][c] = struct{}{}

	for serverID := range c.servers {
		if h.byServer[serverID] == nil {
			h.byServer[serverID] = make(map[*Client]struct{})
		}
		h.byServer[serverID][c] = struct{}{}
	}
	h.mu.Unlock()

	h.logger.Info("gateway client connected", "user_id", c.userID)
	if first && h.OnFirstConnect != nil {
		go h.OnFirstConnect(c.userID)
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)

	delete(h.byUser[c.userID], c)
	last := len(h.byUser[c.userID]) == 0
	if last {
		delete(h.byUser, c.userID)
	}

	for serverID := range c.servers {
		delete(h.byServer[serverID], c)
		if len(h.byServer[serverID]) == 0 {
			delete(h.byServer, serverID)
		}
	}
	h.mu.Unlock()

	c.close()

	h.logger.Info("gateway client disconnected", "user_id", c.userID)
	if last && h.OnLastDisconnect != nil {
		go h.OnLastDisconnect(c.userID)
	}
}

// BroadcastToServer delivers an event to every connection subscribed to the
// server.
func (h *Hub) BroadcastToServer(serverID, op string, data any) {
	ev := Event{Op: op, Data: data, Seq: h.seq.Add(1)}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byServer[serverID]))
	for c := range h.byServer[serverID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, ev)
	}
}

// BroadcastToUser delivers an event to every connection one user holds.
func (h *Hub) BroadcastToUser(userID, op string, data any) {
	ev := Event{Op: op, Data: data, Seq: h.seq.Add(1)}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, ev)
	}
}

// BroadcastToUsers delivers one event, stamped with a single sequence
// number, to every connection each listed user holds.
func (h *Hub) BroadcastToUsers(userIDs []string, op string, data any) {
	ev := Event{Op: op, Data: data, Seq: h.seq.Add(1)}

	h.mu.RLock()
	var targets []*Client
	for _, id := range userIDs {
		for c := range h.byUser[id] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, ev)
	}
}

// BroadcastToAll delivers an event to every connected client.
func (h *Hub) BroadcastToAll(op string, data any) {
	ev := Event{Op: op, Data: data, Seq: h.seq.Add(1)}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, ev)
	}
}

// Subscribe adds a server to every live connection the user holds, so a
// freshly joined server starts streaming without a reconnect.
func (h *Hub) Subscribe(userID, serverID string) {
	h.mu.Lock()
	for c := range h.byUser[userID] {
		c.servers[serverID] = struct{}{}
		if h.byServer[serverID] == nil {
			h.byServer[serverID] = make(map[*Client]struct{})
		}
		h.byServer[serverID][c] = struct{}{}
	}
	h.mu.Unlock()
}

// Unsubscribe removes a server from the user's connections. Used on leave,
// kick and ban.
func (h *Hub) Unsubscribe(userID, serverID string) {
	h.mu.Lock()
	for c := range h.byUser[userID] {
		delete(c.servers, serverID)
		delete(h.byServer[serverID], c)
	}
	if len(h.byServer[serverID]) == 0 {
		delete(h.byServer, serverID)
	}
	h.mu.Unlock()
}

// DisconnectUser force-closes every connection a user holds.
func (h *Hub) DisconnectUser(userID string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.unregister(c)
	}
}

// OnlineUserIDs lists users with at least one live connection.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.byUser))
	for id := range h.byUser {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionCount reports the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.unregister(c)
	}
}

func (h *Hub) isSubscribed(c *Client, serverID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.servers[serverID]
	return ok
}

func (h *Hub) deliver(c *Client, ev Event) {
	select {
	case c.send <- ev:
	default:
		h.logger.Warn("gateway client too slow, disconnecting", "user_id", c.userID)
		h.unregister(c)
	}
}
