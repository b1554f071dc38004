package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mate_chat/internal/domain"
	apperrors "mate_chat/pkg/errors"

	"github.com/google/uuid"
)

type memoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]domain.User
	byEmail map[string]uuid.UUID
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:    make(map[uuid.UUID]domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return apperrors.ErrUserAlreadyExists
	}
	r.byID[user.ID] = *user
	r.byEmail[email] = user.ID
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &user, nil
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryUserRepository) List(_ context.Context, limit, offset int) ([]*domain.User, error) {
	r.mu.RLock()
	users := make([]*domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		if user.IsActive {
			u := user
			users = append(users, &u)
		}
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].DisplayName != users[j].DisplayName {
			return users[i].DisplayName < users[j].DisplayName
		}
		return users[i].ID.String() < users[j].ID.String()
	})

	if offset >= len(users) {
		return []*domain.User{}, nil
	}
	users = users[offset:]
	if limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (r *memoryUserRepository) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.LastLoginAt = &at
	user.UpdatedAt = at
	r.byID[id] = user
	return nil
}
