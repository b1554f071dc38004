package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mate_chat/internal/config"
	"mate_chat/internal/domain"
	"mate_chat/internal/repository"
	"mate_chat/internal/repository/mocks"
	apperrors "mate_chat/pkg/errors"
	"mate_chat/pkg/jwt"
	"mate_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

var testJWTConfig = config.JWTConfig{
	AccessSecret: "test-secret",
	AccessTTL:    time.Hour,
	Issuer:       "mate-chat-test",
}

func Test_Register_And_Login(t *testing.T) {
	req := require.New(t)
	svc := NewAuthService(repository.NewMemoryUserRepository(), testJWTConfig, logger.NewNop())
	ctx := context.Background()

	user, err := svc.Register(ctx, " Alice@Example.com ", "correct horse", "Alice")
	req.NoError(err)
	req.Equal("alice@example.com", user.Email)
	req.Empty(user.PasswordHash)
	req.True(user.IsActive)

	_, err = svc.Register(ctx, "alice@example.com", "another password", "Alice 2")
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)

	resp, err := svc.Login(ctx, "ALICE@example.com", "correct horse")
	req.NoError(err)
	req.Equal(user.ID, resp.User.ID)
	req.Empty(resp.User.PasswordHash)
	req.NotNil(resp.User.LastLoginAt)
	req.NotEmpty(resp.AccessToken)

	identity, err := svc.Authenticate(ctx, resp.AccessToken)
	req.NoError(err)
	req.Equal(user.ID.String(), identity)
}

func Test_Register_Validation(t *testing.T) {
	svc := NewAuthService(repository.NewMemoryUserRepository(), testJWTConfig, logger.NewNop())

	cases := []struct {
		name, email, password, displayName string
	}{
		{"missing email", "", "password123", "Bob"},
		{"bad email", "bob", "password123", "Bob"},
		{"short password", "bob@example.com", "short", "Bob"},
		{"missing name", "bob@example.com", "password123", "  "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.email, tc.password, tc.displayName)
			require.ErrorIs(t, err, apperrors.ErrBadRequest)
		})
	}
}

func Test_Login_Invalid_Credentials(t *testing.T) {
	req := require.New(t)
	svc := NewAuthService(repository.NewMemoryUserRepository(), testJWTConfig, logger.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, "bob@example.com", "password123", "Bob")
	req.NoError(err)

	_, err = svc.Login(ctx, "bob@example.com", "wrong password")
	req.ErrorIs(err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	req.ErrorIs(err, apperrors.ErrInvalidCredentials)
}

func Test_Login_Disabled_User(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	req.NoError(err)
	users.EXPECT().GetByEmail(gomock.Any(), "carol@example.com").Return(&domain.User{
		Email:        "carol@example.com",
		PasswordHash: string(hash),
		IsActive:     false,
	}, nil)

	svc := NewAuthService(users, testJWTConfig, logger.NewNop())
	_, err = svc.Login(context.Background(), "carol@example.com", "password123")
	req.ErrorIs(err, apperrors.ErrForbidden)
}

func Test_Login_Store_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	dbErr := errors.New("connection refused")
	users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, dbErr)

	svc := NewAuthService(users, testJWTConfig, logger.NewNop())
	_, err := svc.Login(context.Background(), "dave@example.com", "password123")
	req.ErrorIs(err, dbErr)
}

func Test_Login_Survives_Last_Login_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	req.NoError(err)
	user := &domain.User{Email: "erin@example.com", PasswordHash: string(hash), IsActive: true}
	users.EXPECT().GetByEmail(gomock.Any(), "erin@example.com").Return(user, nil)
	users.EXPECT().UpdateLastLogin(gomock.Any(), user.ID, gomock.Any()).Return(errors.New("read only"))

	svc := NewAuthService(users, testJWTConfig, logger.NewNop())
	resp, err := svc.Login(context.Background(), "erin@example.com", "password123")
	req.NoError(err)
	req.NotEmpty(resp.AccessToken)
	req.Nil(resp.User.LastLoginAt)
}

func Test_Authenticate_Rejects(t *testing.T) {
	req := require.New(t)
	svc := NewAuthService(repository.NewMemoryUserRepository(), testJWTConfig, logger.NewNop())
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "")
	req.ErrorIs(err, apperrors.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "not-a-token")
	req.ErrorIs(err, apperrors.ErrInvalidToken)

	foreign, err := jwt.GenerateAccessToken("u1", "", "other-secret", "x", time.Hour)
	req.NoError(err)
	_, err = svc.Authenticate(ctx, foreign)
	req.ErrorIs(err, apperrors.ErrInvalidToken)

	expired, err := jwt.GenerateAccessToken("u1", "", testJWTConfig.AccessSecret, "x", -time.Minute)
	req.NoError(err)
	_, err = svc.Authenticate(ctx, expired)
	req.ErrorIs(err, apperrors.ErrTokenExpired)
}

func Test_Authenticate_Rejects_Ambiguous_Identity(t *testing.T) {
	req := require.New(t)
	svc := NewAuthService(repository.NewMemoryUserRepository(), testJWTConfig, logger.NewNop())
	ctx := context.Background()

	for _, identity := range []string{"a-b", "u1-", "6F9619FF-8B86-D011-B42D-00C04FC964FF"} {
		token, err := jwt.GenerateAccessToken(identity, "", testJWTConfig.AccessSecret, "x", time.Hour)
		req.NoError(err)
		_, err = svc.Authenticate(ctx, token)
		req.ErrorIs(err, apperrors.ErrInvalidToken, identity)
	}

	id := uuid.NewString()
	token, err := jwt.GenerateAccessToken(id, "", testJWTConfig.AccessSecret, "x", time.Hour)
	req.NoError(err)
	identity, err := svc.Authenticate(ctx, token)
	req.NoError(err)
	req.Equal(id, identity)
}
