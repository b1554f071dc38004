package handler

import (
	"mate_chat/internal/config"
	"mate_chat/internal/middleware"
	"mate_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func SetupRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)

	// WebSocket чат: проверка токена до upgrade
	router.GET("/ws", authMiddleware.RequireSocketAuth(), handlers.WebSocket.HandleConnection)

	v1 := router.Group("/api/v1")
	{
		// Публичные endpoints
		public := v1.Group("/auth")
		if cfg.RateLimit.Enabled {
			public.Use(rateLimitMiddleware.Limit("auth", cfg.RateLimit.AuthRequests, cfg.RateLimit.Window))
		}
		{
			public.POST("/register", handlers.Auth.Register)
			public.POST("/login", handlers.Auth.Login)
		}

		// Защищенные endpoints
		protected := v1.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			users := protected.Group("/users")
			{
				users.GET("", handlers.User.List)
				users.GET("/me", handlers.User.GetMe)
			}

			protected.GET("/messages/:roomId", handlers.Chat.GetHistory)
		}
	}

	return router
}
