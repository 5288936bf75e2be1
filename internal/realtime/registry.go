package realtime

import (
	"sync"

	"github.com/google/uuid"
)

type session struct {
	member int64
	room   int64 // 0 = no room currently viewed
}

// Registry is the process-wide session table: which member owns each live
// connection and which room that connection currently has joined. It is the
// authority the pipeline consults for "who is present in this room right now";
// the single mutex makes every snapshot a consistent cut across concurrent
// joins and leaves.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*session)}
}

func (r *Registry) Register(connID uuid.UUID, memberID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = &session{member: memberID}
}

// Unregister is an idempotent teardown: unknown connections are a no-op.
func (r *Registry) Unregister(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connID)
}

// SetCurrentRoom associates the connection with a room, replacing any previous
// association in the same step. roomID 0 clears the association (leave view).
// Unknown connections are a no-op.
func (r *Registry) SetCurrentRoom(connID uuid.UUID, roomID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[connID]; ok {
		s.room = roomID
	}
}

// MembersPresentIn reports the deduplicated set of members with at least one
// live connection currently joined to the room.
func (r *Registry) MembersPresentIn(roomID int64) map[int64]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	present := make(map[int64]struct{})
	for _, s := range r.sessions {
		if s.room == roomID {
			present[s.member] = struct{}{}
		}
	}
	return present
}
