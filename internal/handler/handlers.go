package handler

import (
	"net/http"

	"mate_chat/internal/config"
	"mate_chat/internal/hub"
	"mate_chat/internal/service"
	apperrors "mate_chat/pkg/errors"
	"mate_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, router *hub.Router, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(router, cfg),
		Auth:      NewAuthHandler(services.Auth, log),
		User:      NewUserHandler(services.User, log),
		Chat:      NewChatHandler(services.Chat, log),
		WebSocket: NewWebSocketHandler(services.Chat, services.RateLimit, router, cfg, log),
	}
}

// respondError writes err with the status derived from its kind. Server-side
// failures never leak their text.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatusFromError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = apperrors.ClientMessage(err)
	}
	c.JSON(status, gin.H{"error": message})
}
