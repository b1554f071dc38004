package middleware

import (
	"net/http"
	"strings"

	"mate_chat/internal/service"
	"mate_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key holding the authenticated identity.
const ContextUserID = "user_id"

type AuthMiddleware struct {
	authService service.AuthService
	log         logger.Logger
}

func NewAuthMiddleware(authService service.AuthService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		log:         log,
	}
}

// RequireAuth accepts only the Authorization header.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return m.require(false)
}

// RequireSocketAuth also accepts a token query parameter, since browser and
// mobile WebSocket clients cannot set headers on the upgrade request. It must
// run before the upgrade so a rejected client never gets a socket.
func (m *AuthMiddleware) RequireSocketAuth() gin.HandlerFunc {
	return m.require(true)
}

func (m *AuthMiddleware) require(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, msg := bearerToken(c, allowQuery)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		identity, err := m.authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			m.log.Debug("Authentication failed", "error", err, "path", c.FullPath(), "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, identity)
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			return "", "Invalid authorization header format"
		}
		return strings.TrimSpace(parts[1]), ""
	}

	if allowQuery {
		if token := strings.TrimSpace(c.Query("token")); token != "" {
			return token, ""
		}
	}
	return "", "Authorization required"
}

// UserID returns the identity stored by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
