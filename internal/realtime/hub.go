package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub holds the per-room live connection sets used for fan-out. Membership
// changes are atomic: switching rooms removes the connection from its old set
// and adds it to the new one under one lock, so a connection is never counted
// in two rooms or in none.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[int64]map[*Conn]struct{}
	byConn map[*Conn]int64
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[int64]map[*Conn]struct{}),
		byConn: make(map[*Conn]int64),
	}
}

// Join moves the connection into the room's live set, leaving any previous
// room in the same step.
func (h *Hub) Join(c *Conn, roomID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
	set := h.rooms[roomID]
	if set == nil {
		set = make(map[*Conn]struct{})
		h.rooms[roomID] = set
	}
	set[c] = struct{}{}
	h.byConn[c] = roomID
}

// Leave removes the connection from the room's live set. The connection stays
// alive; the member is now eligible for unread increments in that room.
func (h *Hub) Leave(c *Conn, roomID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byConn[c] == roomID {
		h.removeLocked(c)
	}
}

// Detach removes the connection from whatever room it is in. Idempotent; run
// on transport-level disconnect.
func (h *Hub) Detach(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Conn) {
	roomID, ok := h.byConn[c]
	if !ok {
		return
	}
	delete(h.byConn, c)
	if set, ok := h.rooms[roomID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// --------------------------------------------------------------------
// Fan-out
// --------------------------------------------------------------------

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Emit broadcasts an event to every live connection in the room except those
// belonging to exceptMember. Non-blocking: slow consumers drop frames rather
// than stall the sender.
func (h *Hub) Emit(roomID, exceptMember int64, event string, data any) {
	b, err := json.Marshal(frame{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Int64("room_id", roomID).Msg("encode broadcast frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		if c.member == exceptMember {
			continue
		}
		c.enqueue(b) // ignore slow / dead connections
	}
}
