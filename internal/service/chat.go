package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"mate_chat/internal/config"
	"mate_chat/internal/domain"
	"mate_chat/internal/hub"
	"mate_chat/internal/repository"
	apperrors "mate_chat/pkg/errors"
	"mate_chat/pkg/logger"
)

// Broadcaster fans an event out to the live members of a room.
type Broadcaster interface {
	BroadcastEvent(roomID, event string, data any) int
}

type ChatService interface {
	// SendMessage persists body from senderID and then delivers it to the room.
	// roomID must be the direct room of senderID and receiverID; an empty
	// receiverID is derived from roomID. Nothing is delivered when persistence fails.
	SendMessage(ctx context.Context, senderID, roomID, receiverID, body string) (*domain.Message, error)
	// GetHistory returns the page of roomID that follows cursor, oldest first.
	GetHistory(ctx context.Context, roomID, cursor string, limit int) (*domain.HistoryPage, error)
}

type chatService struct {
	messageRepo repository.MessageRepository
	broadcaster Broadcaster
	cfg         config.ChatConfig
	locks       *roomLocks
	now         func() time.Time
	log         logger.Logger
}

func NewChatService(messageRepo repository.MessageRepository, broadcaster Broadcaster, cfg config.ChatConfig, log logger.Logger) ChatService {
	return &chatService{
		messageRepo: messageRepo,
		broadcaster: broadcaster,
		cfg:         cfg,
		locks:       newRoomLocks(),
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

func (s *chatService) SendMessage(ctx context.Context, senderID, roomID, receiverID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.ErrEmptyMessage
	}
	if s.cfg.MaxMessageLength > 0 && utf8.RuneCountInString(body) > s.cfg.MaxMessageLength {
		return nil, apperrors.ErrMessageTooLong
	}
	if err := domain.ValidateRoomID(roomID); err != nil {
		return nil, err
	}
	// Писать можно только в свою комнату: получатель выводится из roomID
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		peer, ok := domain.Peer(roomID, senderID)
		if !ok {
			return nil, apperrors.ErrRoomMismatch
		}
		receiverID = peer
	} else if domain.ValidateIdentity(receiverID) != nil || domain.RoomID(senderID, receiverID) != roomID {
		return nil, apperrors.ErrRoomMismatch
	}

	// Один писатель на комнату: порядок доставки совпадает с порядком записи
	unlock := s.locks.lock(roomID)
	defer unlock()

	msg := &domain.Message{
		RoomID:     roomID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  s.now(),
	}

	persistCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.messageRepo.Create(persistCtx, msg); err != nil {
		s.log.Error("Failed to persist message", "error", err, "room_id", roomID, "user_id", senderID)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	delivered := s.broadcaster.BroadcastEvent(roomID, hub.EventReceiveMessage, msg)
	s.log.Debug("Message relayed", "room_id", roomID, "message_id", msg.ID, "delivered", delivered)

	return msg, nil
}

func (s *chatService) GetHistory(ctx context.Context, roomID, cursor string, limit int) (*domain.HistoryPage, error) {
	if err := domain.ValidateRoomID(roomID); err != nil {
		return nil, err
	}

	afterID, err := ParseCursor(cursor)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.cfg.HistoryPageSize
	}
	if s.cfg.HistoryMaxPageSize > 0 && limit > s.cfg.HistoryMaxPageSize {
		limit = s.cfg.HistoryMaxPageSize
	}

	readCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	// Берём на одну запись больше, чтобы понять, есть ли следующая страница
	messages, err := s.messageRepo.ListByRoom(readCtx, roomID, afterID, limit+1)
	if err != nil {
		s.log.Error("Failed to load history", "error", err, "room_id", roomID)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	page := &domain.HistoryPage{RoomID: roomID, Messages: messages}
	if page.Messages == nil {
		page.Messages = []domain.Message{}
	}
	if len(page.Messages) > limit {
		page.Messages = page.Messages[:limit]
		page.NextCursor = FormatCursor(page.Messages[limit-1].ID)
	}

	return page, nil
}

func (s *chatService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.PersistTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.PersistTimeout)
}

// ParseCursor decodes a history cursor. The empty cursor starts at the
// beginning of the room.
func ParseCursor(cursor string) (int64, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || id < 0 {
		return 0, apperrors.ErrInvalidCursor
	}
	return id, nil
}

func FormatCursor(id int64) string {
	return strconv.FormatInt(id, 10)
}

// roomLocks hands out one mutex per room and forgets it once nobody holds it.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

func (l *roomLocks) lock(roomID string) func() {
	l.mu.Lock()
	rl, ok := l.locks[roomID]
	if !ok {
		rl = &roomLock{}
		l.locks[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, roomID)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
