package usecases

import (
	"time"

	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// Re-export domain types for presentation layer use.
// This allows presentation to depend only on usecases without importing domain directly.

// QueueEntry is an alias for domain.QueueEntry.
type QueueEntry = domain.QueueEntry

// TrackDescriptor is an alias for domain.TrackDescriptor.
type TrackDescriptor = domain.TrackDescriptor

// Placement is an alias for domain.Placement.
type Placement = domain.Placement

// PlayerState is an alias for domain.PlayerState.
type PlayerState = domain.PlayerState

// Player states.
const (
	PlayerStateDisconnected = domain.PlayerStateDisconnected
	PlayerStatePlaying      = domain.PlayerStatePlaying
	PlayerStatePaused       = domain.PlayerStatePaused
	PlayerStateIdle         = domain.PlayerStateIdle
)

// Queue errors surfaced to the presentation layer.
var (
	ErrIndexOutOfRange = domain.ErrIndexOutOfRange
	ErrEmptyQueue      = domain.ErrEmptyQueue
)

// Playlist errors surfaced to the presentation layer.
var (
	ErrPlaylistNotFound    = domain.ErrPlaylistNotFound
	ErrPlaylistExists      = domain.ErrPlaylistExists
	ErrInvalidPlaylistName = domain.ErrInvalidPlaylistName
)

// SavedPlaylist is an alias for domain.SavedPlaylist.
type SavedPlaylist = domain.SavedPlaylist

// ParsePlacement converts a user-facing placement name.
func ParsePlacement(s string) Placement {
	return domain.ParsePlacement(s)
}

// FormatDuration formats d as mm:ss, or hh:mm:ss when it spans an hour.
func FormatDuration(d time.Duration) string {
	return domain.FormatDuration(d)
}
