package handler

import (
	"net/http"
	"strconv"

	"mate_chat/internal/middleware"
	"mate_chat/internal/service"
	apperrors "mate_chat/pkg/errors"
	"mate_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserHandler struct {
	userService service.UserService
	log         logger.Logger
}

func NewUserHandler(userService service.UserService, log logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	// Идентификатор из токена не обязан быть UUID
	userID, err := uuid.Parse(middleware.UserID(c))
	if err != nil {
		respondError(c, apperrors.ErrUserNotFound)
		return
	}

	user, err := h.userService.GetMe(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	users, err := h.userService.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
