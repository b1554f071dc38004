package handler

import (
	"net/http"

	"mate_chat/internal/config"
	"mate_chat/internal/hub"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	router        *hub.Router
	storageDriver string
}

func NewHealthHandler(router *hub.Router, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		router:        router,
		storageDriver: cfg.Storage.Driver,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"service":     "mate-chat",
		"storage":     h.storageDriver,
		"connections": h.router.ConnectionCount(),
		"rooms":       h.router.RoomCount(),
	})
}
