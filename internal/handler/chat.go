package handler

import (
	"net/http"
	"strconv"

	"mate_chat/internal/service"
	apperrors "mate_chat/pkg/errors"
	"mate_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

// GetHistory serves GET /messages/:roomId?cursor=&limit=.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperrors.NewAPIError("invalid limit", http.StatusBadRequest))
			return
		}
		limit = parsed
	}

	page, err := h.chatService.GetHistory(c.Request.Context(), c.Param("roomId"), c.Query("cursor"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
