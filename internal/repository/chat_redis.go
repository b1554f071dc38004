package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"mate_chat/internal/domain"
	"mate_chat/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	// Префиксы ключей Redis
	ChatMessagesKeyPrefix = "chat:room:%s:messages"
	ChatSequenceKeyPrefix = "chat:room:%s:seq"
)

// redisChatRepository keeps each room in a sorted set scored by the message
// ID taken from a per-room INCR counter.
type redisChatRepository struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

func NewRedisChatRepository(rdb *redis.Client, ttl time.Duration, log logger.Logger) MessageRepository {
	return &redisChatRepository{
		rdb: rdb,
		ttl: ttl,
		log: log,
	}
}

func (r *redisChatRepository) messagesKey(roomID string) string {
	return fmt.Sprintf(ChatMessagesKeyPrefix, roomID)
}

func (r *redisChatRepository) sequenceKey(roomID string) string {
	return fmt.Sprintf(ChatSequenceKeyPrefix, roomID)
}

func (r *redisChatRepository) Create(ctx context.Context, msg *domain.Message) error {
	id, err := r.rdb.Incr(ctx, r.sequenceKey(msg.RoomID)).Result()
	if err != nil {
		r.log.Error("Failed to allocate message id", "error", err, "room_id", msg.RoomID)
		return fmt.Errorf("failed to allocate message id: %w", err)
	}
	msg.ID = id

	messageJSON, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("Failed to marshal message", "error", err)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := r.messagesKey(msg.RoomID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(id),
			Member: messageJSON,
		})
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
			pipe.Expire(ctx, r.sequenceKey(msg.RoomID), r.ttl)
		}
		return nil
	})
	if err != nil {
		r.log.Error("Failed to save message to Redis", "error", err, "room_id", msg.RoomID)
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

func (r *redisChatRepository) ListByRoom(ctx context.Context, roomID string, afterID int64, limit int) ([]domain.Message, error) {
	messagesJSON, err := r.rdb.ZRangeByScore(ctx, r.messagesKey(roomID), &redis.ZRangeBy{
		Min:    "(" + strconv.FormatInt(afterID, 10),
		Max:    "+inf",
		Offset: 0,
		Count:  int64(limit),
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return []domain.Message{}, nil
		}
		r.log.Error("Failed to get messages from Redis", "error", err, "room_id", roomID)
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]domain.Message, 0, len(messagesJSON))
	for _, msgJSON := range messagesJSON {
		var msg domain.Message
		if err := json.Unmarshal([]byte(msgJSON), &msg); err != nil {
			r.log.Warn("Failed to unmarshal message", "error", err, "room_id", roomID)
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}
