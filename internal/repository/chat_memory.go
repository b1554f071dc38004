package repository

import (
	"context"
	"sort"
	"sync"

	"mate_chat/internal/domain"
)

// memoryChatRepository is the development and test store. Data lives for the
// lifetime of the process.
type memoryChatRepository struct {
	mu     sync.RWMutex
	nextID int64
	rooms  map[string][]domain.Message
}

func NewMemoryChatRepository() MessageRepository {
	return &memoryChatRepository{rooms: make(map[string][]domain.Message)}
}

func (r *memoryChatRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	msg.ID = r.nextID
	r.rooms[msg.RoomID] = append(r.rooms[msg.RoomID], *msg)
	return nil
}

func (r *memoryChatRepository) ListByRoom(ctx context.Context, roomID string, afterID int64, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.rooms[roomID]
	start := sort.Search(len(stored), func(i int) bool { return stored[i].ID > afterID })
	end := start + limit
	if end > len(stored) {
		end = len(stored)
	}

	messages := make([]domain.Message, end-start)
	copy(messages, stored[start:end])
	return messages, nil
}
