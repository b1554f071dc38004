package repository

import (
	"context"
	"testing"
	"time"

	"mate_chat/internal/domain"
	apperrors "mate_chat/pkg/errors"
	"mate_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newTestUser(email, name string) *domain.User {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		DisplayName:  name,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func Test_Postgres_Create_User_Duplicate(t *testing.T) {
	req := require.New(t)
	mock, err := pgxmock.NewPool()
	req.NoError(err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	repo := NewUserRepository(mock, logger.NewNop())
	err = repo.Create(context.Background(), newTestUser("alice@example.com", "Alice"))
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
	req.NoError(mock.ExpectationsWereMet())
}

func Test_Postgres_Get_User_Not_Found(t *testing.T) {
	req := require.New(t)
	mock, err := pgxmock.NewPool()
	req.NoError(err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("FROM users WHERE id").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	repo := NewUserRepository(mock, logger.NewNop())
	_, err = repo.GetByID(context.Background(), id)
	req.ErrorIs(err, apperrors.ErrUserNotFound)
	req.NoError(mock.ExpectationsWereMet())
}

func Test_Postgres_Get_User_By_Email_Normalizes(t *testing.T) {
	req := require.New(t)
	mock, err := pgxmock.NewPool()
	req.NoError(err)
	defer mock.Close()

	mock.ExpectQuery("FROM users WHERE email").WithArgs("bob@example.com").WillReturnError(pgx.ErrNoRows)

	repo := NewUserRepository(mock, logger.NewNop())
	_, err = repo.GetByEmail(context.Background(), "  Bob@Example.com ")
	req.ErrorIs(err, apperrors.ErrUserNotFound)
	req.NoError(mock.ExpectationsWereMet())
}

func Test_Postgres_Update_Last_Login(t *testing.T) {
	req := require.New(t)
	mock, err := pgxmock.NewPool()
	req.NoError(err)
	defer mock.Close()

	id := uuid.New()
	at := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE users SET last_login_at").
		WithArgs(id, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewUserRepository(mock, logger.NewNop())
	req.NoError(repo.UpdateLastLogin(context.Background(), id, at))
	req.NoError(mock.ExpectationsWereMet())
}

func Test_Memory_User_Store(t *testing.T) {
	req := require.New(t)
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	alice := newTestUser("alice@example.com", "Alice")
	bob := newTestUser("bob@example.com", "Bob")
	inactive := newTestUser("carol@example.com", "Carol")
	inactive.IsActive = false

	req.NoError(repo.Create(ctx, bob))
	req.NoError(repo.Create(ctx, alice))
	req.NoError(repo.Create(ctx, inactive))
	req.ErrorIs(repo.Create(ctx, newTestUser("ALICE@example.com", "Other")), apperrors.ErrUserAlreadyExists)

	found, err := repo.GetByEmail(ctx, "Alice@Example.com")
	req.NoError(err)
	req.Equal(alice.ID, found.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	req.ErrorIs(err, apperrors.ErrUserNotFound)

	users, err := repo.List(ctx, 10, 0)
	req.NoError(err)
	req.Len(users, 2)
	req.Equal("Alice", users[0].DisplayName)
	req.Equal("Bob", users[1].DisplayName)

	page, err := repo.List(ctx, 1, 1)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("Bob", page[0].DisplayName)

	empty, err := repo.List(ctx, 10, 5)
	req.NoError(err)
	req.Empty(empty)

	at := time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)
	req.NoError(repo.UpdateLastLogin(ctx, alice.ID, at))
	found, err = repo.GetByID(ctx, alice.ID)
	req.NoError(err)
	req.NotNil(found.LastLoginAt)
	req.Equal(at, *found.LastLoginAt)
}
