package middleware

import (
	"net/http"

	"mate_chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем есть ли ошибки
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		statusCode := errors.HTTPStatusFromError(err.Err)

		message := err.Error()
		if statusCode >= http.StatusInternalServerError {
			message = errors.ClientMessage(err.Err)
		}

		c.JSON(statusCode, gin.H{"error": message})
	}
}
