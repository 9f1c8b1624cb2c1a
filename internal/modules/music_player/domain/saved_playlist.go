package domain

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

var (
	// ErrPlaylistNotFound is returned when no saved playlist has the given name.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrPlaylistExists is returned when creating a playlist whose name is taken.
	ErrPlaylistExists = errors.New("a playlist with that name already exists")

	// ErrInvalidPlaylistName is returned for names that normalize to nothing.
	ErrInvalidPlaylistName = errors.New("invalid playlist name")
)

// SavedPlaylist is a named, user-owned list of tracks that outlives any queue.
type SavedPlaylist struct {
	ID          string            `json:"id"` // normalized name, see PlaylistID
	Name        string            `json:"name"`
	AuthorID    snowflake.ID      `json:"author_id"`
	Description string            `json:"description,omitempty"`
	Replays     int               `json:"replays"`
	CreatedAt   time.Time         `json:"created_at"`
	Tracks      []TrackDescriptor `json:"tracks"`
}

// PlaylistID normalizes a user-facing playlist name into its identifier.
// Names differing only in case or surrounding whitespace share an identifier.
func PlaylistID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// NewSavedPlaylist creates an empty playlist owned by authorID.
func NewSavedPlaylist(name string, authorID snowflake.ID, now time.Time) (SavedPlaylist, error) {
	name = strings.Join(strings.Fields(name), " ")
	id := PlaylistID(name)
	if id == "" {
		return SavedPlaylist{}, ErrInvalidPlaylistName
	}
	return SavedPlaylist{
		ID:        id,
		Name:      name,
		AuthorID:  authorID,
		CreatedAt: now.UTC(),
	}, nil
}

// Duration returns the summed playable duration of all tracks.
func (p SavedPlaylist) Duration() time.Duration {
	var total time.Duration
	for _, track := range p.Tracks {
		total += track.PlayableDuration()
	}
	return total
}

// Contains reports whether the playlist already holds the same track.
func (p SavedPlaylist) Contains(track TrackDescriptor) bool {
	key := track.Key()
	return slices.ContainsFunc(p.Tracks, func(t TrackDescriptor) bool {
		return t.Key() == key
	})
}

// AddTracks appends the tracks that are not in the playlist yet and returns them.
func (p *SavedPlaylist) AddTracks(tracks []TrackDescriptor) []TrackDescriptor {
	var added []TrackDescriptor
	for _, track := range tracks {
		if p.Contains(track) {
			continue
		}
		p.Tracks = append(p.Tracks, track)
		added = append(added, track)
	}
	return added
}

// RemoveTrack removes and returns the track at index.
func (p *SavedPlaylist) RemoveTrack(index int) (TrackDescriptor, error) {
	if index < 0 || index >= len(p.Tracks) {
		return TrackDescriptor{}, ErrIndexOutOfRange
	}
	removed := p.Tracks[index]
	p.Tracks = slices.Delete(p.Tracks, index, index+1)
	return removed, nil
}

// Entries turns every track into a fresh queue entry requested by requesterID.
func (p SavedPlaylist) Entries(requesterID snowflake.ID) []QueueEntry {
	entries := make([]QueueEntry, 0, len(p.Tracks))
	for _, track := range p.Tracks {
		entry := NewQueueEntry(track, requesterID)
		entry.Meta.Playlist = p.Name
		entries = append(entries, entry)
	}
	return entries
}

// Clone returns a deep copy.
func (p SavedPlaylist) Clone() SavedPlaylist {
	p.Tracks = slices.Clone(p.Tracks)
	return p
}
