// Package store holds the durable half of the relay: room credentials and
// per-room registry blobs, write-through cached in memory and snapshotted
// to a single artifact on every mutation.
package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wosunheizhu/e2ee-chat/internal/domain"
)

type Store struct {
	mu          sync.RWMutex
	credentials map[domain.RoomName]domain.RoomCredential
	registry    map[domain.RoomName]domain.RegistryRecord

	saveMu  sync.Mutex
	gateway *Gateway
}

// New loads durable state through the gateway. A nil gateway keeps the
// store memory-only.
func New(gateway *Gateway) *Store {
	snap := emptySnapshot()
	if gateway != nil {
		snap = gateway.Load()
	}
	return &Store{
		credentials: snap.Credentials,
		registry:    snap.Registry,
		gateway:     gateway,
	}
}

func (s *Store) GetCredential(room domain.RoomName) (domain.RoomCredential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[room]
	return cred, ok
}

// PutCredential is exactly-once per room name for the lifetime of the
// durable store; a second create for the same name fails.
func (s *Store) PutCredential(room domain.RoomName, secretHash string) (domain.RoomCredential, error) {
	s.mu.Lock()
	if _, exists := s.credentials[room]; exists {
		s.mu.Unlock()
		return domain.RoomCredential{}, domain.ErrRoomExists
	}
	cred := domain.RoomCredential{SecretHash: secretHash, CreatedAt: time.Now()}
	s.credentials[room] = cred
	s.mu.Unlock()

	log.Info().Str("module", "store").Str("room", string(room)).Msg("credential created")
	s.scheduleSave()
	return cred, nil
}

func (s *Store) GetRegistry(room domain.RoomName) (domain.RegistryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.registry[room]
	return rec, ok
}

// PutRegistry is an idempotent overwrite; it succeeds for any room name
// whether or not a credential exists. Size caps live at the boundary.
func (s *Store) PutRegistry(room domain.RoomName, ciphertext string) (domain.RegistryRecord, error) {
	if ciphertext == "" {
		return domain.RegistryRecord{}, domain.ErrInvalidInput
	}
	rec := domain.RegistryRecord{Ciphertext: ciphertext, UpdatedAt: time.Now()}
	s.mu.Lock()
	s.registry[room] = rec
	s.mu.Unlock()

	log.Info().Str("module", "store").Str("room", string(room)).Int("bytes", len(ciphertext)).Msg("registry updated")
	s.scheduleSave()
	return rec, nil
}

func (s *Store) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := emptySnapshot()
	for room, cred := range s.credentials {
		snap.Credentials[room] = cred
	}
	for room, rec := range s.registry {
		snap.Registry[room] = rec
	}
	return snap
}

// scheduleSave persists the current snapshot off the request path. In-memory
// state is already committed and stays authoritative; a failed write is
// logged and swallowed.
func (s *Store) scheduleSave() {
	if s.gateway == nil {
		return
	}
	go func() {
		// Snapshot under saveMu so a delayed save never overwrites the
		// artifact with older state.
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		if err := s.gateway.Save(s.snapshot()); err != nil {
			log.Error().Err(err).Str("module", "store").Msg("durable save failed, in-memory state remains authoritative")
		}
	}()
}
