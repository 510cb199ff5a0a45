package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/wosunheizhu/e2ee-chat/internal/app"
	"github.com/wosunheizhu/e2ee-chat/internal/domain"
)

type joinRequest struct {
	Type   string `json:"type"`
	Room   string `json:"room"`
	Name   string `json:"name"`
	Secret string `json:"secret"`
	Create bool   `json:"create"`
}

type joinResult struct {
	Type  string `json:"type"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (ctl *Controller) handleFrame(id domain.ConnID, token string, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("cid", string(id)).Msg("bad json")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(id, token, c, data)
	case "pubkey", "groupkey", "msg", "ready":
		// Relayed verbatim; the payload is opaque ciphertext.
		ctl.Orch.Relay(id, app.Frame(data))
	case "ping":
		ctl.sendJSON(c, map[string]any{"type": "pong"})
	default:
		// Covers client-sent "system" too: presence is server-originated only.
		log.Warn().Str("module", "ws").Str("cid", string(id)).Str("type", env.Type).Msg("unknown event kind")
	}
}

func (ctl *Controller) handleJoin(id domain.ConnID, token string, c *wsConn, data []byte) {
	var req joinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("cid", string(id)).Msg("bad join payload")
		ctl.sendJSON(c, joinResult{Type: "join_result", Error: "missing"})
		return
	}

	if ctl.Limiter != nil && !ctl.Limiter.Allow(token) {
		log.Warn().Str("module", "ws").Str("cid", string(id)).Msg("join rate limited")
		ctl.sendJSON(c, joinResult{Type: "join_result", Error: "ratelimited"})
		return
	}

	err := ctl.Orch.Join(id, domain.RoomName(req.Room), req.Name, req.Secret, req.Create)
	if err != nil {
		ctl.sendJSON(c, joinResult{Type: "join_result", Error: domain.ErrorCode(err)})
		return
	}
	ctl.sendJSON(c, joinResult{Type: "join_result", OK: true})
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
