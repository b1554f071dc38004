package repository

import (
	"context"
	"errors"
	"testing"

	"mate_chat/internal/domain"
	"mate_chat/pkg/logger"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func Test_Postgres_Create_Message(t *testing.T) {
	req := require.New(t)
	mock, err := pgxmock.NewPool()
	req.NoError(err)
	defer mock.Close()

	msg := newTestMessage("u1-u2", "u1", "u2", "hello", 0)
	mock.ExpectQuery("INSERT INTO chat_messages").
		WithArgs("u1-u2", "u1", "u2", "hello", storeTestTime).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), storeTestTime))

	repo := NewChatRepository(mock, logger.NewNop())
	req.NoError(repo.Create(context.Background(), msg))
	req.Equal(int64(42), msg.ID)
	req.NoError(mock.ExpectationsWereMet())
}

func Test_Postgres_Create_Message_Error(t *testing.T) {
	req := require.New(t)
	mock, err := pgxmock.NewPool()
	req.NoError(err)
	defer mock.Close()

	dbErr := errors.New("connection reset")
	mock.ExpectQuery("INSERT INTO chat_messages").WillReturnError(dbErr)

	repo := NewChatRepository(mock, logger.NewNop())
	err = repo.Create(context.Background(), newTestMessage("u1-u2", "u1", "u2", "hello", 0))
	req.ErrorIs(err, dbErr)
	req.NoError(mock.ExpectationsWereMet())
}

func Test_Postgres_List_Messages(t *testing.T) {
	req := require.New(t)
	mock, err := pgxmock.NewPool()
	req.NoError(err)
	defer mock.Close()

	columns := []string{"id", "room_id", "sender_id", "receiver_id", "body", "created_at"}
	mock.ExpectQuery("FROM chat_messages").
		WithArgs("u1-u2", int64(3), 2).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(int64(4), "u1-u2", "u1", "u2", "four", storeTestTime).
			AddRow(int64(5), "u1-u2", "u2", "u1", "five", storeTestTime))

	repo := NewChatRepository(mock, logger.NewNop())
	messages, err := repo.ListByRoom(context.Background(), "u1-u2", 3, 2)
	req.NoError(err)
	req.Equal([]domain.Message{
		{ID: 4, RoomID: "u1-u2", SenderID: "u1", ReceiverID: "u2", Body: "four", CreatedAt: storeTestTime},
		{ID: 5, RoomID: "u1-u2", SenderID: "u2", ReceiverID: "u1", Body: "five", CreatedAt: storeTestTime},
	}, messages)
	req.NoError(mock.ExpectationsWereMet())
}

func Test_Migrate(t *testing.T) {
	req := require.New(t)
	mock, err := pgxmock.NewPool()
	req.NoError(err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	req.NoError(Migrate(context.Background(), mock))
	req.NoError(mock.ExpectationsWereMet())
}
