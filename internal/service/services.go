package service

import (
	"mate_chat/internal/config"
	"mate_chat/internal/repository"
	"mate_chat/pkg/logger"
)

type Services struct {
	Auth      AuthService
	User      UserService
	Chat      ChatService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, broadcaster Broadcaster, cfg *config.Config, log logger.Logger) *Services {
	services := &Services{
		Auth:      NewAuthService(repos.User, cfg.JWT, log),
		User:      NewUserService(repos.User, log),
		Chat:      NewChatService(repos.Message, broadcaster, cfg.Chat, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
	}

	if repos.RateLimit == nil {
		log.Warn("Rate limiting is disabled")
	}

	return services
}
