package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Memory_Message_Store(t *testing.T) {
	runMessageStoreSuite(t, func(t *testing.T) MessageRepository {
		return NewMemoryChatRepository()
	})
}

func Test_Memory_Store_Returns_Copies(t *testing.T) {
	req := require.New(t)
	repo := NewMemoryChatRepository()
	ctx := context.Background()

	req.NoError(repo.Create(ctx, newTestMessage("u1-u2", "u1", "u2", "original", 0)))

	messages, err := repo.ListByRoom(ctx, "u1-u2", 0, 10)
	req.NoError(err)
	messages[0].Body = "changed"

	again, err := repo.ListByRoom(ctx, "u1-u2", 0, 10)
	req.NoError(err)
	req.Equal("original", again[0].Body)
}

func Test_Memory_Store_Concurrent_Create(t *testing.T) {
	req := require.New(t)
	repo := NewMemoryChatRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Create(ctx, newTestMessage("u1-u2", "u1", "u2", "hi", 0))
		}()
	}
	wg.Wait()

	messages, err := repo.ListByRoom(ctx, "u1-u2", 0, 100)
	req.NoError(err)
	req.Len(messages, 50)
	for i := 1; i < len(messages); i++ {
		req.Greater(messages[i].ID, messages[i-1].ID)
	}
}

func Test_Memory_Store_Honours_Cancelled_Context(t *testing.T) {
	req := require.New(t)
	repo := NewMemoryChatRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.ErrorIs(repo.Create(ctx, newTestMessage("u1-u2", "u1", "u2", "hi", 0)), context.Canceled)

	_, err := repo.ListByRoom(ctx, "u1-u2", 0, 10)
	req.ErrorIs(err, context.Canceled)
}
