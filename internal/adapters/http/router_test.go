package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wosunheizhu/e2ee-chat/internal/app"
	"github.com/wosunheizhu/e2ee-chat/internal/config"
	"github.com/wosunheizhu/e2ee-chat/internal/store"
)

func testRouter(t *testing.T) (*gin.Engine, *app.Orchestrator) {
	t.Helper()
	cfg := &config.Config{
		Mode:             "release",
		RegistryMaxBytes: 64,
		JoinRateLimit:    100,
		JoinRateWindow:   time.Minute,
	}
	orch := &app.Orchestrator{
		Registry:   app.NewRegistry(),
		Rooms:      app.NewTable(),
		Store:      store.New(nil),
		BcryptCost: bcrypt.MinCost,
	}
	return SetupRouter(context.Background(), cfg, orch, orch.Store), orch
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegistryGetMissing(t *testing.T) {
	r, _ := testRouter(t)
	w := do(r, http.MethodGet, "/registry/lobby", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"ok":false}`, w.Body.String())
}

func TestRegistryPutThenGet(t *testing.T) {
	r, _ := testRouter(t)

	w := do(r, http.MethodPost, "/registry/lobby", `{"ciphertext":"abc"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = do(r, http.MethodGet, "/registry/lobby", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"ciphertext":"abc"`)
	require.Contains(t, w.Body.String(), `"updatedAt"`)
}

func TestRegistryPutInvalid(t *testing.T) {
	r, _ := testRouter(t)

	cases := []string{
		`{}`,
		`{"ciphertext":""}`,
		`{"ciphertext":123}`,
		`not json`,
		`{"ciphertext":"` + strings.Repeat("x", 65) + `"}`, // over the cap
	}
	for _, body := range cases {
		w := do(r, http.MethodPost, "/registry/lobby", body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		require.JSONEq(t, `{"ok":false}`, w.Body.String())
	}
}

func TestRoomExists(t *testing.T) {
	r, orch := testRouter(t)

	w := do(r, http.MethodGet, "/room/lobby/exists", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"exists":false}`, w.Body.String())

	orch.Registry.Register("A", nopConn{})
	require.NoError(t, orch.Join("A", "lobby", "alice", "s1", true))

	w = do(r, http.MethodGet, "/room/lobby/exists", "")
	require.JSONEq(t, `{"exists":true}`, w.Body.String())

	orch.Disconnect("A")
	w = do(r, http.MethodGet, "/room/lobby/exists", "")
	require.JSONEq(t, `{"exists":false}`, w.Body.String())
}

func TestListRooms(t *testing.T) {
	r, orch := testRouter(t)

	orch.Registry.Register("A", nopConn{})
	require.NoError(t, orch.Join("A", "lobby", "alice", "s1", true))

	w := do(r, http.MethodGet, "/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"name":"lobby"`)
	require.Contains(t, w.Body.String(), `"members":1`)
}

func TestClientTokenCookieSet(t *testing.T) {
	r, _ := testRouter(t)
	w := do(r, http.MethodGet, "/rooms", "")
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, "ct", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}

type nopConn struct{}

func (nopConn) TrySend(app.Frame) error { return nil }
func (nopConn) Close()                  {}
