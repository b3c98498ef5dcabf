package ws

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/gorilla/websocket"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/server"
	"github.com/veyra-chat/veyra/internal/user"
)

type stubAuth struct {
	users map[string]*user.User
}

func (s *stubAuth) ValidateAccessToken(_ context.Context, token string) (*user.User, error) {
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, internal.ErrInvalidToken
}

type stubMemberships struct {
	servers map[string][]server.Server
}

func (s *stubMemberships) ListForUser(_ context.Context, userID string) ([]server.Server, error) {
	return s.servers[userID], nil
}

var _ = Describe("Gateway", func() {
	var (
		hub     *Hub
		gateway *Gateway
		srv     *httptest.Server
		cfg     internal.GatewayConfig
	)

	dial := func(token string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		Expect(err).NotTo(HaveOccurred())
		return conn
	}

	readEvent := func(conn *websocket.Conn) Event {
		var ev Event
		Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		Expect(conn.ReadJSON(&ev)).To(Succeed())
		return ev
	}

	BeforeEach(func() {
		cfg = internal.GatewayConfig{
			HeartbeatInterval: 200 * time.Millisecond,
			AllowedMisses:     2,
			SendBufferSize:    16,
		}
		hub = NewHub(slog.Default())
		auth := &stubAuth{users: map[string]*user.User{
			"token-alice": {ID: "alice", Username: "alice"},
			"token-bob":   {ID: "bob", Username: "bob"},
		}}
		memberships := &stubMemberships{servers: map[string][]server.Server{
			"alice": {{ID: "srv-a"}},
			"bob":   {{ID: "srv-b"}},
		}}
		gateway = NewGateway(hub, auth, memberships, cfg, "*", slog.Default())
		srv = httptest.NewServer(gateway)
	})

	AfterEach(func() {
		hub.Shutdown()
		srv.Close()
	})

	It("rejects a connection without a valid token", func() {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=bogus"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		Expect(err).To(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(401))
	})

	It("sends a ready event carrying the membership subscriptions", func() {
		conn := dial("token-alice")
		defer conn.Close()

		ev := readEvent(conn)
		Expect(ev.Op).To(Equal(OpReady))

		data := ev.Data.(map[string]any)
		Expect(data["server_ids"]).To(ConsistOf("srv-a"))
	})

	It("acknowledges heartbeats", func() {
		conn := dial("token-alice")
		defer conn.Close()
		readEvent(conn)

		Expect(conn.WriteJSON(map[string]string{"op": OpHeartbeat})).To(Succeed())
		Expect(readEvent(conn).Op).To(Equal(OpHeartbeatAck))
	})

	It("drops a client that stops heartbeating", func() {
		conn := dial("token-alice")
		defer conn.Close()
		readEvent(conn)
		Eventually(hub.ConnectionCount).Should(Equal(1))

		// No heartbeats: the read deadline (interval * misses) lapses and the
		// server cuts the connection.
		Eventually(hub.ConnectionCount, "2s", "20ms").Should(BeZero())
	})

	It("keeps a heartbeating client alive past the bare deadline", func() {
		conn := dial("token-alice")
		defer conn.Close()
		readEvent(conn)

		deadline := cfg.HeartbeatInterval * time.Duration(cfg.AllowedMisses)
		end := time.Now().Add(3 * deadline)
		for time.Now().Before(end) {
			Expect(conn.WriteJSON(map[string]string{"op": OpHeartbeat})).To(Succeed())
			time.Sleep(cfg.HeartbeatInterval / 2)
		}

		Expect(hub.ConnectionCount()).To(Equal(1))
	})

	It("routes typing notifications only to the sender's server", func() {
		alice := dial("token-alice")
		defer alice.Close()
		bob := dial("token-bob")
		defer bob.Close()
		readEvent(alice)
		readEvent(bob)

		Expect(alice.WriteJSON(map[string]any{
			"op": OpTypingStart,
			"d":  map[string]string{"server_id": "srv-a", "channel_id": "chan-1"},
		})).To(Succeed())

		ev := readEvent(alice)
		Expect(ev.Op).To(Equal(OpTypingStart))

		// Bob is in a different server and must see nothing.
		_ = bob.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		var stray Event
		Expect(bob.ReadJSON(&stray)).NotTo(Succeed())
	})

	It("forwards presence updates to the presence callback", func() {
		got := make(chan string, 1)
		gateway.OnPresence = func(userID, status string) { got <- userID + ":" + status }

		conn := dial("token-alice")
		defer conn.Close()
		readEvent(conn)

		Expect(conn.WriteJSON(map[string]any{
			"op": OpPresenceUpdate,
			"d":  map[string]string{"status": "dnd"},
		})).To(Succeed())

		Eventually(got).Should(Receive(Equal("alice:dnd")))
	})
})
