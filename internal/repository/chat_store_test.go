package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mate_chat/internal/domain"

	"github.com/stretchr/testify/require"
)

var storeTestTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestMessage(roomID, sender, receiver, body string, offset time.Duration) *domain.Message {
	return &domain.Message{
		RoomID:     roomID,
		SenderID:   sender,
		ReceiverID: receiver,
		Body:       body,
		CreatedAt:  storeTestTime.Add(offset),
	}
}

// runMessageStoreSuite checks the behaviour every MessageRepository driver shares.
func runMessageStoreSuite(t *testing.T, newRepo func(t *testing.T) MessageRepository) {
	t.Run("Create_Assigns_Increasing_IDs", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		ctx := context.Background()

		var last int64
		for i := 0; i < 5; i++ {
			msg := newTestMessage("u1-u2", "u1", "u2", fmt.Sprintf("hello %d", i), time.Duration(i)*time.Second)
			req.NoError(repo.Create(ctx, msg))
			req.Greater(msg.ID, last)
			last = msg.ID
		}
	})

	t.Run("ListByRoom_Returns_Ascending_Order", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		ctx := context.Background()

		stored := make([]domain.Message, 0, 3)
		for i, body := range []string{"first", "second", "third"} {
			msg := newTestMessage("u1-u2", "u1", "u2", body, time.Duration(i)*time.Minute)
			req.NoError(repo.Create(ctx, msg))
			stored = append(stored, *msg)
		}

		messages, err := repo.ListByRoom(ctx, "u1-u2", 0, 10)
		req.NoError(err)
		req.Equal(stored, messages)
	})

	t.Run("ListByRoom_Pages_With_AfterID", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			req.NoError(repo.Create(ctx, newTestMessage("u1-u2", "u1", "u2", fmt.Sprintf("m%d", i), time.Duration(i)*time.Second)))
		}

		first, err := repo.ListByRoom(ctx, "u1-u2", 0, 2)
		req.NoError(err)
		req.Len(first, 2)
		req.Equal("m0", first[0].Body)
		req.Equal("m1", first[1].Body)

		second, err := repo.ListByRoom(ctx, "u1-u2", first[1].ID, 2)
		req.NoError(err)
		req.Len(second, 2)
		req.Equal("m2", second[0].Body)
		req.Equal("m3", second[1].Body)

		last, err := repo.ListByRoom(ctx, "u1-u2", second[1].ID, 2)
		req.NoError(err)
		req.Len(last, 1)
		req.Equal("m4", last[0].Body)

		empty, err := repo.ListByRoom(ctx, "u1-u2", last[0].ID, 2)
		req.NoError(err)
		req.Empty(empty)
	})

	t.Run("ListByRoom_Isolates_Rooms", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		ctx := context.Background()

		req.NoError(repo.Create(ctx, newTestMessage("u1-u2", "u1", "u2", "for u2", 0)))
		req.NoError(repo.Create(ctx, newTestMessage("u1-u3", "u1", "u3", "for u3", time.Second)))

		messages, err := repo.ListByRoom(ctx, "u1-u3", 0, 10)
		req.NoError(err)
		req.Len(messages, 1)
		req.Equal("for u3", messages[0].Body)
		req.Equal("u3", messages[0].ReceiverID)
	})

	t.Run("ListByRoom_Unknown_Room_Is_Empty", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		messages, err := repo.ListByRoom(context.Background(), "nobody-here", 0, 10)
		req.NoError(err)
		req.NotNil(messages)
		req.Empty(messages)
	})

	t.Run("ListByRoom_Does_Not_Match_Room_Prefix", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		ctx := context.Background()

		req.NoError(repo.Create(ctx, newTestMessage("a-b", "a", "b", "short", 0)))
		req.NoError(repo.Create(ctx, newTestMessage("a-bc", "a", "bc", "long", time.Second)))

		messages, err := repo.ListByRoom(ctx, "a-b", 0, 10)
		req.NoError(err)
		req.Len(messages, 1)
		req.Equal("short", messages[0].Body)
	})
}
