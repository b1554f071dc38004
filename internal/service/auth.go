package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mate_chat/internal/config"
	"mate_chat/internal/domain"
	"mate_chat/internal/repository"
	apperrors "mate_chat/pkg/errors"
	"mate_chat/pkg/jwt"
	"mate_chat/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	// Authenticate turns a bearer credential into the chat identity.
	Authenticate(ctx context.Context, token string) (string, error)
}

type LoginResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   config.JWTConfig
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		log:      log,
	}
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrBadRequest, msg)
}

func (s *authService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	// Валидация входных данных
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	password = strings.TrimSpace(password)

	switch {
	case email == "":
		return nil, badRequest("email is required")
	case len(email) > 255:
		return nil, badRequest("email is too long")
	case !strings.Contains(email, "@") || !strings.Contains(email, "."):
		return nil, badRequest("invalid email format")
	case password == "":
		return nil, badRequest("password is required")
	case len(password) < 8:
		return nil, badRequest("password must be at least 8 characters")
	case displayName == "":
		return nil, badRequest("display name is required")
	case len(displayName) > 100:
		return nil, badRequest("display name is too long (max 100 characters)")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(passwordHash),
		DisplayName:  displayName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			return nil, err
		}
		s.log.Error("Failed to create user", "error", err, "email", email)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("User registered", "user_id", user.ID)

	// Убираем пароль из ответа
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)

	if email == "" || password == "" {
		return nil, badRequest("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			s.log.Error("Failed to load user", "error", err)
			return nil, err
		}
		// Не раскрываем, существует ли пользователь
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%w: user account is disabled", apperrors.ErrForbidden)
	}

	now := time.Now().UTC()
	accessToken, err := jwt.GenerateAccessToken(user.Identity(), user.Email, s.jwtCfg.AccessSecret, s.jwtCfg.Issuer, s.jwtCfg.AccessTTL)
	if err != nil {
		s.log.Error("Failed to generate access token", "error", err)
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("Failed to update last login", "error", err, "user_id", user.ID)
	} else {
		user.LastLoginAt = &now
	}

	user.PasswordHash = ""
	return &LoginResponse{
		User:        user,
		AccessToken: accessToken,
		ExpiresAt:   now.Add(s.jwtCfg.AccessTTL),
	}, nil
}

func (s *authService) Authenticate(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.ErrUnauthorized
	}

	claims, err := jwt.ValidateToken(token, s.jwtCfg.AccessSecret)
	if err != nil {
		s.log.Debug("Rejected credential", "error", err)
		return "", err
	}
	// Идентификатор участвует в RoomID и должен раскладываться однозначно
	if err := domain.ValidateIdentity(claims.UserID); err != nil {
		s.log.Debug("Rejected credential identity", "user_id", claims.UserID)
		return "", fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	return claims.UserID, nil
}
