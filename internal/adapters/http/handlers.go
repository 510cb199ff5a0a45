package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wosunheizhu/e2ee-chat/internal/app"
	"github.com/wosunheizhu/e2ee-chat/internal/domain"
	"github.com/wosunheizhu/e2ee-chat/internal/store"
)

type handlers struct {
	orch             *app.Orchestrator
	store            *store.Store
	maxRegistryBytes int
}

type registryResponse struct {
	OK         bool      `json:"ok"`
	Ciphertext string    `json:"ciphertext"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type putRegistryRequest struct {
	Ciphertext string `json:"ciphertext"`
}

func (h *handlers) getRegistry(c *gin.Context) {
	room := domain.RoomName(c.Param("room"))
	rec, ok := h.store.GetRegistry(room)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, registryResponse{
		OK:         true,
		Ciphertext: rec.Ciphertext,
		UpdatedAt:  rec.UpdatedAt,
	})
}

func (h *handlers) putRegistry(c *gin.Context) {
	room := domain.RoomName(c.Param("room"))

	var req putRegistryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Ciphertext == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}
	if h.maxRegistryBytes > 0 && len(req.Ciphertext) > h.maxRegistryBytes {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}

	if _, err := h.store.PutRegistry(room, req.Ciphertext); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *handlers) roomExists(c *gin.Context) {
	room := domain.RoomName(c.Param("room"))
	c.JSON(http.StatusOK, gin.H{"exists": h.orch.RoomExists(room)})
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.LiveRooms()})
}
