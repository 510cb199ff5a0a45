package store

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wosunheizhu/e2ee-chat/internal/domain"
)

// Snapshot is the single durable artifact: both stores in one record.
// It must round-trip losslessly through Save/Load.
type Snapshot struct {
	Credentials map[domain.RoomName]domain.RoomCredential `json:"credentials"`
	Registry    map[domain.RoomName]domain.RegistryRecord `json:"registry"`
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Credentials: make(map[domain.RoomName]domain.RoomCredential),
		Registry:    make(map[domain.RoomName]domain.RegistryRecord),
	}
}

// Gateway writes the snapshot to a single file and loads it at startup.
// Saves are serialized so a slow disk never interleaves two writers.
type Gateway struct {
	mu   sync.Mutex
	path string
}

func NewGateway(path string) *Gateway {
	return &Gateway{path: path}
}

// Save writes tmp-then-rename so a crash mid-write leaves the previous
// artifact intact.
func (g *Gateway) Save(snap Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	tmp := g.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, g.path)
}

// Load reconstructs both stores. A missing or corrupt file degrades to
// empty stores; startup never fails on bad durable state.
func (g *Gateway) Load() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := os.ReadFile(g.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("module", "store.gateway").Str("path", g.path).Msg("read data file, starting empty")
		}
		return emptySnapshot()
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Str("module", "store.gateway").Str("path", g.path).Msg("corrupt data file, starting empty")
		return emptySnapshot()
	}
	if snap.Credentials == nil {
		snap.Credentials = make(map[domain.RoomName]domain.RoomCredential)
	}
	if snap.Registry == nil {
		snap.Registry = make(map[domain.RoomName]domain.RegistryRecord)
	}
	log.Info().Str("module", "store.gateway").Int("credentials", len(snap.Credentials)).Int("registry", len(snap.Registry)).Msg("loaded durable state")
	return snap
}
