package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// EntryMeta is the caller metadata attached to a queue entry.
type EntryMeta struct {
	RequesterID snowflake.ID `json:"requester_id,omitempty"`
	Playlist    string       `json:"playlist,omitempty"` // origin playlist, if any
	RequestedAt time.Time    `json:"requested_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"` // set when pushed to history
}

// QueueEntry is a request to play a track, with who asked for it and when.
type QueueEntry struct {
	ID    uuid.UUID       `json:"id"`
	Track TrackDescriptor `json:"track"`
	Meta  EntryMeta       `json:"meta"`
}

// NewQueueEntry creates a new QueueEntry with the current time as RequestedAt.
func NewQueueEntry(track TrackDescriptor, requesterID snowflake.ID) QueueEntry {
	return QueueEntry{
		ID:    uuid.New(),
		Track: track,
		Meta: EntryMeta{
			RequesterID: requesterID,
			RequestedAt: time.Now().UTC(),
		},
	}
}

// Copy returns a fresh entry for the same track.
// The copy has a new identity and no finish time.
func (e QueueEntry) Copy() QueueEntry {
	e.ID = uuid.New()
	e.Meta.FinishedAt = nil
	return e
}

// SameTrack reports whether both entries play the same underlying track.
func (e QueueEntry) SameTrack(other QueueEntry) bool {
	return e.Track.Key() == other.Track.Key()
}
