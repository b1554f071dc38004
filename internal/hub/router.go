// Package hub keeps live WebSocket connections and the rooms they joined.
package hub

import (
	"context"
	"sort"
	"sync"

	apperrors "mate_chat/pkg/errors"
	"mate_chat/pkg/logger"

	"github.com/samber/lo"
)

// Member is a connection that can be placed in rooms.
type Member interface {
	// ID identifies the connection, not the user.
	ID() string
	Identity() string
	// Deliver queues a frame without blocking and reports whether it was accepted.
	Deliver(frame []byte) bool
	Close()
}

type room struct {
	mu      sync.RWMutex
	members map[Member]struct{}
}

// Router maps room ids to their current members. Lock order is always
// Router.mu before room.mu; delivery holds only the room read lock.
type Router struct {
	mu         sync.Mutex
	conns      map[Member]struct{}
	rooms      map[string]*room
	index      map[Member]map[string]struct{}
	maxMembers int
	log        logger.Logger

	// sessions counts running Client.Run calls; closed stops new ones.
	sessions sync.WaitGroup
	closed   bool
}

func NewRouter(maxMembers int, log logger.Logger) *Router {
	return &Router{
		conns:      make(map[Member]struct{}),
		rooms:      make(map[string]*room),
		index:      make(map[Member]map[string]struct{}),
		maxMembers: maxMembers,
		log:        log,
	}
}

// Register tracks a live connection so CloseAll can reach it before it
// joins any room.
func (r *Router) Register(m Member) {
	r.mu.Lock()
	r.conns[m] = struct{}{}
	r.mu.Unlock()
}

// attach registers a client session. It fails once CloseAll has run so
// Wait cannot miss a late connection.
func (r *Router) attach(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.conns[c] = struct{}{}
	r.sessions.Add(1)
	return true
}

// detach releases c and marks its session finished.
func (r *Router) detach(c *Client) {
	r.Release(c)
	r.sessions.Done()
}

// Join adds m to roomID. Joining a room twice is a no-op.
func (r *Router) Join(m Member, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[m][roomID]; ok {
		return nil
	}

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{members: make(map[Member]struct{})}
		r.rooms[roomID] = rm
	}

	rm.mu.Lock()
	if r.maxMembers > 0 && len(rm.members) >= r.maxMembers {
		rm.mu.Unlock()
		return apperrors.ErrRoomFull
	}
	rm.members[m] = struct{}{}
	rm.mu.Unlock()

	rooms, ok := r.index[m]
	if !ok {
		rooms = make(map[string]struct{})
		r.index[m] = rooms
	}
	rooms[roomID] = struct{}{}

	r.log.Debug("Member joined room", "room_id", roomID, "user_id", m.Identity(), "conn_id", m.ID())
	return nil
}

// Leave removes m from roomID if it is a member.
func (r *Router) Leave(m Member, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.index[m]
	if !ok {
		return
	}
	if _, ok := rooms[roomID]; !ok {
		return
	}

	r.removeLocked(m, roomID)
	delete(rooms, roomID)
	if len(rooms) == 0 {
		delete(r.index, m)
	}
}

// Release removes m from every room it joined and forgets the connection.
func (r *Router) Release(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, m)
	rooms, ok := r.index[m]
	if !ok {
		return
	}
	for roomID := range rooms {
		r.removeLocked(m, roomID)
	}
	delete(r.index, m)

	r.log.Debug("Member released", "user_id", m.Identity(), "conn_id", m.ID(), "rooms", len(rooms))
}

func (r *Router) removeLocked(m Member, roomID string) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}

	rm.mu.Lock()
	delete(rm.members, m)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		delete(r.rooms, roomID)
	}
}

// BroadcastEvent encodes the event once and hands it to every member of
// roomID. It returns how many members accepted the frame.
func (r *Router) BroadcastEvent(roomID, event string, data any) int {
	frame, err := Encode(event, data)
	if err != nil {
		r.log.Error("Failed to encode broadcast", "error", err, "room_id", roomID, "event", event)
		return 0
	}

	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return 0
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	delivered := 0
	for m := range rm.members {
		if m.Deliver(frame) {
			delivered++
		}
	}
	return delivered
}

// Rooms lists the rooms m belongs to in lexical order.
func (r *Router) Rooms(m Member) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := lo.Keys(r.index[m])
	sort.Strings(rooms)
	return rooms
}

func (r *Router) MemberCount(roomID string) int {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return 0
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.members)
}

func (r *Router) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// RoomCount is the number of rooms with at least one member.
func (r *Router) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// CloseAll closes every registered connection and refuses new client
// sessions. Each connection releases itself once its pumps stop.
func (r *Router) CloseAll() {
	r.mu.Lock()
	r.closed = true
	members := lo.Keys(r.conns)
	r.mu.Unlock()

	for _, m := range members {
		m.Close()
	}
	r.log.Info("Closed all connections", "count", len(members))
}

// Wait blocks until every client session has finished, including events it
// was still handling, or until ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
