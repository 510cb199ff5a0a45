package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wosunheizhu/e2ee-chat/internal/adapters/ws"
	"github.com/wosunheizhu/e2ee-chat/internal/app"
	"github.com/wosunheizhu/e2ee-chat/internal/config"
	"github.com/wosunheizhu/e2ee-chat/internal/store"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware pins a stable token on each client; the websocket
// join limiter keys off it.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, st *store.Store) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(ClientTokenMiddleware())

	h := &handlers{orch: orch, store: st, maxRegistryBytes: cfg.RegistryMaxBytes}
	r.GET("/registry/:room", h.getRegistry)
	r.POST("/registry/:room", h.putRegistry)
	r.GET("/room/:room/exists", h.roomExists)
	r.GET("/rooms", h.listRooms)

	ctl := &ws.Controller{
		Orch:       orch,
		Limiter:    ws.NewJoinLimiter(cfg.JoinRateLimit, cfg.JoinRateWindow),
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}
	r.GET("/ws", func(c *gin.Context) {
		ctl.Handle(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
