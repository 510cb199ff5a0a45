package ws_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	router "github.com/wosunheizhu/e2ee-chat/internal/adapters/http"
	"github.com/wosunheizhu/e2ee-chat/internal/app"
	"github.com/wosunheizhu/e2ee-chat/internal/config"
	"github.com/wosunheizhu/e2ee-chat/internal/store"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Mode:             "release",
		ReadLimit:        512 * 1024,
		PingPeriod:       50 * time.Second,
		RegistryMaxBytes: 256 * 1024,
		JoinRateLimit:    100,
		JoinRateWindow:   time.Minute,
	}
	orch := &app.Orchestrator{
		Registry:   app.NewRegistry(),
		Rooms:      app.NewTable(),
		Store:      store.New(nil),
		BcryptCost: bcrypt.MinCost,
	}
	srv := httptest.NewServer(router.SetupRouter(context.Background(), cfg, orch, orch.Store))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(frame)))
}

// waitFor reads frames until one with the wanted type arrives.
func waitFor(t *testing.T, c *websocket.Conn, typ string) (string, map[string]any) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, c.SetReadDeadline(deadline))
		_, data, err := c.ReadMessage()
		require.NoError(t, err, "waiting for %q", typ)
		var env map[string]any
		require.NoError(t, json.Unmarshal(data, &env))
		if env["type"] == typ {
			return string(data), env
		}
	}
}

func joinRoom(t *testing.T, c *websocket.Conn, room, name, secret string, create bool) map[string]any {
	t.Helper()
	req, err := json.Marshal(map[string]any{
		"type": "join", "room": room, "name": name, "secret": secret, "create": create,
	})
	require.NoError(t, err)
	send(t, c, string(req))
	_, env := waitFor(t, c, "join_result")
	return env
}

func getJSON(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestJoinRelayAndPresenceOverSocket(t *testing.T) {
	srv := startServer(t)

	alice := dial(t, srv)
	env := joinRoom(t, alice, "lobby", "alice", "s1", true)
	require.Equal(t, true, env["ok"])

	bob := dial(t, srv)
	env = joinRoom(t, bob, "lobby", "bob", "wrong", false)
	require.Equal(t, "auth", env["error"])

	env = joinRoom(t, bob, "lobby", "bob", "s1", false)
	require.Equal(t, true, env["ok"])

	raw, _ := waitFor(t, alice, "system")
	require.Contains(t, raw, "bob joined")

	require.Contains(t, getJSON(t, srv.URL+"/room/lobby/exists"), `"exists":true`)

	// Opaque payload relayed verbatim, sender echo included.
	frame := `{"type":"pubkey","payload":"QUJDRA=="}`
	send(t, alice, frame)
	got, _ := waitFor(t, bob, "pubkey")
	require.Equal(t, frame, got)
	echo, _ := waitFor(t, alice, "pubkey")
	require.Equal(t, frame, echo)

	// FIFO per sender as observed by one recipient.
	for _, f := range []string{
		`{"type":"msg","payload":"e1"}`,
		`{"type":"msg","payload":"e2"}`,
		`{"type":"msg","payload":"e3"}`,
	} {
		send(t, alice, f)
	}
	first, _ := waitFor(t, bob, "msg")
	second, _ := waitFor(t, bob, "msg")
	third, _ := waitFor(t, bob, "msg")
	require.Contains(t, first, "e1")
	require.Contains(t, second, "e2")
	require.Contains(t, third, "e3")

	// Disconnect announces presence and eventually frees the room.
	require.NoError(t, alice.Close())
	raw, _ = waitFor(t, bob, "system")
	require.Contains(t, raw, "alice left")

	require.NoError(t, bob.Close())
	require.Eventually(t, func() bool {
		return strings.Contains(getJSON(t, srv.URL+"/room/lobby/exists"), `"exists":false`)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSecondJoinRejectedOverSocket(t *testing.T) {
	srv := startServer(t)

	c := dial(t, srv)
	env := joinRoom(t, c, "r1", "alice", "s1", true)
	require.Equal(t, true, env["ok"])

	env = joinRoom(t, c, "r2", "alice", "s2", true)
	require.Equal(t, "joined", env["error"])
}

func TestRelayBeforeJoinIsIgnored(t *testing.T) {
	srv := startServer(t)

	ghost := dial(t, srv)
	send(t, ghost, `{"type":"msg","payload":"x"}`)

	// The connection stays open and can still join afterwards.
	env := joinRoom(t, ghost, "r", "ghost", "s", true)
	require.Equal(t, true, env["ok"])
}

func TestPingPong(t *testing.T) {
	srv := startServer(t)
	c := dial(t, srv)
	send(t, c, `{"type":"ping"}`)
	_, env := waitFor(t, c, "pong")
	require.Equal(t, "pong", env["type"])
}
