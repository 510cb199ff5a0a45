package app

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/wosunheizhu/e2ee-chat/internal/domain"
	"github.com/wosunheizhu/e2ee-chat/internal/store"
)

// Orchestrator is the only path that mutates room liveness. It wires the
// session registry, the live room table and the durable store together.
type Orchestrator struct {
	Registry   *Registry
	Rooms      *Table
	Store      *store.Store
	BcryptCost int
}

// Join authenticates a create/join request and commits membership.
// The bcrypt work runs before any room lock is taken; only the membership
// commit is serialized per room.
func (o *Orchestrator) Join(id domain.ConnID, room domain.RoomName, name, secret string, create bool) error {
	if room == "" || name == "" || secret == "" {
		return domain.ErrMissingField
	}
	if o.Registry.Bound(id) {
		return domain.ErrAlreadyJoined
	}
	if len(name) > domain.MaxDisplayNameLen {
		name = name[:domain.MaxDisplayNameLen]
	}

	var cred domain.RoomCredential
	if create {
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), o.BcryptCost)
		if err != nil {
			return fmt.Errorf("hash secret: %w", err)
		}
		cred, err = o.Store.PutCredential(room, string(hash))
		if err != nil {
			return err
		}
	} else {
		var ok bool
		cred, ok = o.Store.GetCredential(room)
		if !ok {
			return domain.ErrRoomNotFound
		}
	}

	// Verified on the create path too, so the hashing primitive is
	// exercised identically on every join.
	if err := bcrypt.CompareHashAndPassword([]byte(cred.SecretHash), []byte(secret)); err != nil {
		return domain.ErrAuthFailed
	}

	conn, ok := o.Registry.Conn(id)
	if !ok {
		return fmt.Errorf("join: unknown connection %q", id)
	}

	live := o.Rooms.Join(room, cred.SecretHash, id, conn)
	if err := o.Registry.Bind(id, room, name); err != nil {
		o.Rooms.Leave(room, id)
		return err
	}

	log.Info().Str("module", "app.orch").Str("cid", string(id)).Str("room", string(room)).Str("name", name).Bool("create", create).Msg("joined")
	o.deliver(live.Snapshot(), SystemFrame(name+" joined"))
	return nil
}

// Relay fans an inbound event frame out to every member of the sender's
// room, the sender included. Frames from unbound connections are dropped
// silently; unauthenticated noise is expected and ignored.
func (o *Orchestrator) Relay(id domain.ConnID, frame Frame) {
	room, _, ok := o.Registry.RoomOf(id)
	if !ok {
		return
	}
	live, ok := o.Rooms.Get(room)
	if !ok {
		return
	}
	o.deliver(live.Snapshot(), frame)
}

// Disconnect unbinds the connection, notifies the survivors and evicts the
// room if it emptied. Durable credential and registry records are untouched.
func (o *Orchestrator) Disconnect(id domain.ConnID) {
	room, name, bound := o.Registry.Unregister(id)
	if !bound {
		return
	}
	remaining, evicted, ok := o.Rooms.Leave(room, id)
	if !ok {
		return
	}
	log.Info().Str("module", "app.orch").Str("cid", string(id)).Str("room", string(room)).Bool("evicted", evicted).Msg("disconnected")
	if len(remaining) > 0 {
		o.deliver(remaining, SystemFrame(name+" left"))
	}
}

func (o *Orchestrator) RoomExists(room domain.RoomName) bool {
	return o.Rooms.Exists(room)
}

func (o *Orchestrator) LiveRooms() []RoomInfo {
	return o.Rooms.List()
}

// deliver writes a frame to each endpoint independently; one slow or
// closed member never aborts the rest of the fan-out.
func (o *Orchestrator) deliver(members []Conn, frame Frame) {
	for _, c := range members {
		if err := c.TrySend(frame); err != nil {
			log.Debug().Err(err).Str("module", "app.orch").Msg("fan-out drop")
		}
	}
}

type systemEvent struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// SystemFrame encodes a server-originated presence notification. Clients
// never originate system events.
func SystemFrame(text string) Frame {
	b, err := json.Marshal(systemEvent{Type: "system", Payload: text})
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("encode system event")
		return nil
	}
	return b
}
