package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"mate_chat/internal/domain"
	"mate_chat/pkg/logger"

	"github.com/dgraph-io/badger/v4"
)

var badgerSequenceKey = []byte("seq/chat_messages")

// BadgerChatRepository stores messages under msg/<room>\x00<big-endian id>,
// so a prefix scan walks one room in ID order.
type BadgerChatRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log logger.Logger
}

func NewBadgerChatRepository(db *badger.DB, log logger.Logger) (*BadgerChatRepository, error) {
	seq, err := db.GetSequence(badgerSequenceKey, 128)
	if err != nil {
		return nil, fmt.Errorf("failed to open message sequence: %w", err)
	}
	return &BadgerChatRepository{db: db, seq: seq, log: log}, nil
}

// Close returns unused leased IDs to the store.
func (r *BadgerChatRepository) Close() error {
	return r.seq.Release()
}

func badgerRoomPrefix(roomID string) []byte {
	prefix := make([]byte, 0, len("msg/")+len(roomID)+1)
	prefix = append(prefix, "msg/"...)
	prefix = append(prefix, roomID...)
	return append(prefix, 0)
}

func badgerMessageKey(roomID string, id int64) []byte {
	key := badgerRoomPrefix(roomID)
	return binary.BigEndian.AppendUint64(key, uint64(id))
}

func (r *BadgerChatRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next, err := r.seq.Next()
	if err != nil {
		r.log.Error("Failed to allocate message id", "error", err)
		return fmt.Errorf("failed to allocate message id: %w", err)
	}
	msg.ID = int64(next) + 1

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerMessageKey(msg.RoomID, msg.ID), value)
	})
	if err != nil {
		r.log.Error("Failed to save message to Badger", "error", err, "room_id", msg.RoomID)
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

func (r *BadgerChatRepository) ListByRoom(ctx context.Context, roomID string, afterID int64, limit int) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = badgerRoomPrefix(roomID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(badgerMessageKey(roomID, afterID+1)); it.ValidForPrefix(opts.Prefix); it.Next() {
			if len(messages) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var msg domain.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				r.log.Warn("Failed to decode message", "error", err, "room_id", roomID)
				continue
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		r.log.Error("Failed to get messages from Badger", "error", err, "room_id", roomID)
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	return messages, nil
}
