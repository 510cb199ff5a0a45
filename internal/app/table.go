package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wosunheizhu/e2ee-chat/internal/domain"
)

// Table owns all live rooms. The table lock guards the name->room map;
// each room's own lock serializes membership mutation, so operations on
// different rooms proceed in parallel.
type Table struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]*LiveRoom
}

func NewTable() *Table {
	return &Table{rooms: make(map[domain.RoomName]*LiveRoom)}
}

func (t *Table) Get(name domain.RoomName) (*LiveRoom, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	room, ok := t.rooms[name]
	return room, ok
}

// Exists reports liveness: true iff at least one member is currently bound.
func (t *Table) Exists(name domain.RoomName) bool {
	_, ok := t.Get(name)
	return ok
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"members"`
}

func (t *Table) List() []RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RoomInfo, 0, len(t.rooms))
	for name, r := range t.rooms {
		out = append(out, RoomInfo{Name: name, MemberCount: r.MemberCount()})
	}
	return out
}

// Join commits a member into the named room, creating the room if absent.
// A room is never observable with zero members: creation inserts the first
// member under the table lock, and a room marked evicted is never reused —
// the loop lands the joiner in a fresh room instead.
func (t *Table) Join(name domain.RoomName, secretHash string, id domain.ConnID, conn Conn) *LiveRoom {
	for {
		t.mu.RLock()
		room, ok := t.rooms[name]
		t.mu.RUnlock()

		if !ok {
			t.mu.Lock()
			if room, ok = t.rooms[name]; !ok {
				room = newLiveRoom(name, secretHash)
				room.members[id] = conn
				t.rooms[name] = room
				t.mu.Unlock()
				log.Info().Str("module", "app.table").Str("room", string(name)).Msg("room went live")
				return room
			}
			t.mu.Unlock()
		}

		room.mu.Lock()
		if room.evicted {
			room.mu.Unlock()
			continue
		}
		room.members[id] = conn
		room.mu.Unlock()
		return room
	}
}

// Leave removes a member and evicts the room the instant it becomes empty.
// It returns the surviving member endpoints for the presence broadcast.
func (t *Table) Leave(name domain.RoomName, id domain.ConnID) (remaining []Conn, evicted bool, ok bool) {
	t.mu.RLock()
	room, ok := t.rooms[name]
	t.mu.RUnlock()
	if !ok {
		return nil, false, false
	}

	room.mu.Lock()
	delete(room.members, id)
	if len(room.members) == 0 {
		room.evicted = true
		evicted = true
	} else {
		remaining = make([]Conn, 0, len(room.members))
		for _, c := range room.members {
			remaining = append(remaining, c)
		}
	}
	room.mu.Unlock()

	if evicted {
		t.mu.Lock()
		if t.rooms[name] == room {
			delete(t.rooms, name)
		}
		t.mu.Unlock()
		log.Info().Str("module", "app.table").Str("room", string(name)).Msg("room emptied, evicted")
	}
	return remaining, evicted, true
}
