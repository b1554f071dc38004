package repository

import (
	"context"

	"mate_chat/internal/domain"
	"mate_chat/pkg/logger"
)

//go:generate mockgen -source=chat.go -destination=mocks/mock_chat.go -package=mocks

type MessageRepository interface {
	// Create stores msg and fills msg.ID. CreatedAt is kept as given.
	Create(ctx context.Context, msg *domain.Message) error
	// ListByRoom returns up to limit messages of roomID with ID > afterID, ascending.
	ListByRoom(ctx context.Context, roomID string, afterID int64, limit int) ([]domain.Message, error)
}

type chatRepository struct {
	db  DB
	log logger.Logger
}

func NewChatRepository(db DB, log logger.Logger) MessageRepository {
	return &chatRepository{db: db, log: log}
}

func (r *chatRepository) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO chat_messages (room_id, sender_id, receiver_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		msg.RoomID, msg.SenderID, msg.ReceiverID, msg.Body, msg.CreatedAt,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		r.log.Error("Failed to create message", "error", err, "room_id", msg.RoomID)
		return err
	}

	return nil
}

func (r *chatRepository) ListByRoom(ctx context.Context, roomID string, afterID int64, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, room_id, sender_id, receiver_id, body, created_at
		FROM chat_messages
		WHERE room_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, roomID, afterID, limit)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err, "room_id", roomID)
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0, limit)
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.ReceiverID, &msg.Body, &msg.CreatedAt); err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		r.log.Error("Failed to iterate messages", "error", err, "room_id", roomID)
		return nil, err
	}

	return messages, nil
}
