package infrastructure

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// ErrPlayerStateNotFound is returned when no state is persisted for a guild.
var ErrPlayerStateNotFound = errors.New("player state not found")

// MemoryStateStore keeps player snapshots in memory. State survives
// reconnects of the gateway but not a process restart.
type MemoryStateStore struct {
	mu        sync.RWMutex
	snapshots map[snowflake.ID]domain.PlayerSnapshot
}

// NewMemoryStateStore creates a new MemoryStateStore.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		snapshots: make(map[snowflake.ID]domain.PlayerSnapshot),
	}
}

// SavePlayers replaces all stored snapshots.
func (s *MemoryStateStore) SavePlayers(_ context.Context, snapshots []domain.PlayerSnapshot) error {
	stored := make(map[snowflake.ID]domain.PlayerSnapshot, len(snapshots))
	for _, snapshot := range snapshots {
		stored[snapshot.GuildID] = cloneSnapshot(snapshot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = stored
	return nil
}

// LoadBindings returns the voice channel of every stored guild.
func (s *MemoryStateStore) LoadBindings(_ context.Context) (map[snowflake.ID]snowflake.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bindings := make(map[snowflake.ID]snowflake.ID, len(s.snapshots))
	for guildID, snapshot := range s.snapshots {
		bindings[guildID] = snapshot.VoiceChannelID
	}
	return bindings, nil
}

// LoadPlayer returns the stored snapshot of a guild.
func (s *MemoryStateStore) LoadPlayer(_ context.Context, guildID snowflake.ID) (domain.PlayerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[guildID]
	if !ok {
		return domain.PlayerSnapshot{}, ErrPlayerStateNotFound
	}
	return cloneSnapshot(snapshot), nil
}

// Count returns the number of stored snapshots (for testing/monitoring).
func (s *MemoryStateStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

func cloneSnapshot(snapshot domain.PlayerSnapshot) domain.PlayerSnapshot {
	if snapshot.Current != nil {
		current := *snapshot.Current
		snapshot.Current = &current
	}
	snapshot.Queue = slices.Clone(snapshot.Queue)
	return snapshot
}

var _ ports.PlayerStateStore = (*MemoryStateStore)(nil)
