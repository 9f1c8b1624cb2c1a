package ports

import (
	"context"

	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// PlaylistStore persists saved playlists.
type PlaylistStore interface {
	// SavePlaylist inserts or replaces the playlist with the same ID.
	SavePlaylist(ctx context.Context, playlist domain.SavedPlaylist) error

	// LoadPlaylist returns domain.ErrPlaylistNotFound for unknown IDs.
	LoadPlaylist(ctx context.Context, id string) (domain.SavedPlaylist, error)

	// DeletePlaylist returns domain.ErrPlaylistNotFound for unknown IDs.
	DeletePlaylist(ctx context.Context, id string) error

	// ListPlaylists returns every playlist ordered by name.
	ListPlaylists(ctx context.Context) ([]domain.SavedPlaylist, error)
}
