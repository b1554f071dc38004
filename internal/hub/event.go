package hub

import (
	"encoding/json"
	"fmt"

	"mate_chat/internal/domain"
)

// События WebSocket протокола
const (
	EventJoinRoom       = "joinRoom"
	EventJoinedRoom     = "joinedRoom"
	EventLeaveRoom      = "leaveRoom"
	EventLeftRoom       = "leftRoom"
	EventGetChatHistory = "getChatHistory"
	EventChatHistory    = "chatHistory"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventError          = "error"
)

// Envelope is the single frame shape in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type HistoryRequest struct {
	RoomID string `json:"roomId"`
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type SendMessageRequest struct {
	RoomID     string `json:"roomId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// ChatHistoryPayload is sent for getChatHistory. Messages is never null.
type ChatHistoryPayload = domain.HistoryPage

type ReceiveMessagePayload = domain.Message

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

// Encode builds a ready-to-write frame.
func Encode(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", event, err)
	}
	return frame, nil
}

// DecodeData unmarshals the envelope payload into v. A missing payload
// leaves v untouched.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
