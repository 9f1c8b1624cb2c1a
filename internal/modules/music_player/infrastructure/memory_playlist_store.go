package infrastructure

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// MemoryPlaylistStore keeps saved playlists in memory.
type MemoryPlaylistStore struct {
	mu        sync.RWMutex
	playlists map[string]domain.SavedPlaylist
}

// NewMemoryPlaylistStore creates a new MemoryPlaylistStore.
func NewMemoryPlaylistStore() *MemoryPlaylistStore {
	return &MemoryPlaylistStore{
		playlists: make(map[string]domain.SavedPlaylist),
	}
}

// SavePlaylist inserts or replaces a playlist.
func (s *MemoryPlaylistStore) SavePlaylist(_ context.Context, playlist domain.SavedPlaylist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists[playlist.ID] = playlist.Clone()
	return nil
}

// LoadPlaylist returns a copy of the stored playlist.
func (s *MemoryPlaylistStore) LoadPlaylist(_ context.Context, id string) (domain.SavedPlaylist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlist, ok := s.playlists[id]
	if !ok {
		return domain.SavedPlaylist{}, domain.ErrPlaylistNotFound
	}
	return playlist.Clone(), nil
}

// DeletePlaylist removes a playlist.
func (s *MemoryPlaylistStore) DeletePlaylist(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[id]; !ok {
		return domain.ErrPlaylistNotFound
	}
	delete(s.playlists, id)
	return nil
}

// ListPlaylists returns all playlists ordered by name, case-insensitively.
func (s *MemoryPlaylistStore) ListPlaylists(_ context.Context) ([]domain.SavedPlaylist, error) {
	s.mu.RLock()
	playlists := make([]domain.SavedPlaylist, 0, len(s.playlists))
	for _, playlist := range s.playlists {
		playlists = append(playlists, playlist.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(playlists, func(a, b domain.SavedPlaylist) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return playlists, nil
}

var _ ports.PlaylistStore = (*MemoryPlaylistStore)(nil)
