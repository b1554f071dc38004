package domain

import (
	"sort"
	"strings"
	"time"
	"unicode"

	apperrors "mate_chat/pkg/errors"

	"github.com/google/uuid"
)

// RoomIDSeparator joins the two participant identities of a direct room.
const RoomIDSeparator = "-"

const MaxRoomIDLength = 256

// Message is an immutable chat record. ID is assigned by the store and grows
// with insertion order inside a store.
type Message struct {
	ID         int64     `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId,omitempty"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"timestamp"`
}

// HistoryPage is one chronological slice of a room's history.
type HistoryPage struct {
	RoomID     string    `json:"roomId"`
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// RoomID derives the room shared by two identities. The result does not
// depend on argument order. It is only unambiguous for identities accepted
// by ValidateIdentity.
func RoomID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, RoomIDSeparator)
}

// ValidateIdentity accepts a canonical UUID or a name without the room
// separator. UUIDs carry the separator only at fixed positions, so a room id
// built from two accepted identities splits back in exactly one way.
func ValidateIdentity(identity string) error {
	if identity == "" || strings.TrimSpace(identity) != identity {
		return apperrors.ErrInvalidIdentity
	}
	if !strings.Contains(identity, RoomIDSeparator) {
		return nil
	}
	if parsed, err := uuid.Parse(identity); err == nil && parsed.String() == identity {
		return nil
	}
	return apperrors.ErrInvalidIdentity
}

// Peer returns the other participant of the direct room roomID when identity
// is one of its two members.
func Peer(roomID, identity string) (string, bool) {
	if ValidateIdentity(identity) != nil {
		return "", false
	}
	candidates := []string{}
	if rest, ok := strings.CutPrefix(roomID, identity+RoomIDSeparator); ok {
		candidates = append(candidates, rest)
	}
	if rest, ok := strings.CutSuffix(roomID, RoomIDSeparator+identity); ok {
		candidates = append(candidates, rest)
	}
	for _, peer := range candidates {
		if ValidateIdentity(peer) == nil && RoomID(identity, peer) == roomID {
			return peer, true
		}
	}
	return "", false
}

func ValidateRoomID(roomID string) error {
	if roomID == "" || len(roomID) > MaxRoomIDLength {
		return apperrors.ErrInvalidRoomID
	}
	for _, r := range roomID {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return apperrors.ErrInvalidRoomID
		}
	}
	return nil
}
