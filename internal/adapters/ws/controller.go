package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wosunheizhu/e2ee-chat/internal/app"
	"github.com/wosunheizhu/e2ee-chat/internal/domain"
)

type Controller struct {
	Orch       *app.Orchestrator
	Limiter    *JoinLimiter
	ReadLimit  int64
	PingPeriod time.Duration
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the request and runs the connection until it closes.
// Each connection gets its own identity; the client token only feeds the
// join limiter.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	id := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "ws").Str("cid", string(id)).Msg("new connection")

	conn := &wsConn{
		conn: ws,
		send: make(chan app.Frame, 32),
	}
	ctl.Orch.Registry.Register(id, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, token, conn)
}
