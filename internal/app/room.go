package app

import (
	"sync"

	"github.com/wosunheizhu/e2ee-chat/internal/domain"
)

// LiveRoom is the in-memory record of a room's currently connected members.
// It exists only while at least one member is bound; membership mutation
// goes through the Table so eviction stays atomic with joins.
type LiveRoom struct {
	name       domain.RoomName
	secretHash string

	mu      sync.RWMutex
	members map[domain.ConnID]Conn
	evicted bool
}

func newLiveRoom(name domain.RoomName, secretHash string) *LiveRoom {
	return &LiveRoom{
		name:       name,
		secretHash: secretHash,
		members:    make(map[domain.ConnID]Conn),
	}
}

func (r *LiveRoom) Name() domain.RoomName { return r.name }

// SecretHash is a cached copy of the room's credential hash; it always
// equals the store's record because rooms are only created from it.
func (r *LiveRoom) SecretHash() string { return r.secretHash }

func (r *LiveRoom) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Snapshot returns a read-consistent copy of the member endpoints for
// fan-out. A member disconnecting mid-broadcast may or may not receive it.
func (r *LiveRoom) Snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conn, 0, len(r.members))
	for _, c := range r.members {
		out = append(out, c)
	}
	return out
}
