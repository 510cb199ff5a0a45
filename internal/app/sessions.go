package app

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wosunheizhu/e2ee-chat/internal/domain"
)

type session struct {
	conn Conn
	room domain.RoomName
	name string
}

// Registry tracks every open connection's session context. A connection's
// room is bound at most once for its entire lifetime.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]*session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.ConnID]*session)}
}

func (r *Registry) Register(id domain.ConnID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{conn: conn}
	log.Info().Str("module", "app.registry").Str("cid", string(id)).Msg("session registered")
}

func (r *Registry) Conn(id domain.ConnID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[id]; ok {
		return s.conn, true
	}
	return nil, false
}

// Bind sets the session's room and display name, exactly once.
func (r *Registry) Bind(id domain.ConnID, room domain.RoomName, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("bind: unknown connection %q", id)
	}
	if s.room != "" {
		return domain.ErrAlreadyJoined
	}
	s.room = room
	s.name = name
	log.Info().Str("module", "app.registry").Str("cid", string(id)).Str("room", string(room)).Str("name", name).Msg("session bound")
	return nil
}

// Bound reports whether the connection already joined a room.
func (r *Registry) Bound(id domain.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return ok && s.room != ""
}

// RoomOf returns the bound room and display name; ok is false for
// connections that never joined.
func (r *Registry) RoomOf(id domain.ConnID) (domain.RoomName, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.room == "" {
		return "", "", false
	}
	return s.room, s.name, true
}

// Unregister drops the session and returns its binding, if any.
func (r *Registry) Unregister(id domain.ConnID) (domain.RoomName, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return "", "", false
	}
	delete(r.sessions, id)
	log.Info().Str("module", "app.registry").Str("cid", string(id)).Msg("session unregistered")
	return s.room, s.name, s.room != ""
}
