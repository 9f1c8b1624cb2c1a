package domain

import (
	"strconv"
	"time"
)

// TrackDescriptor describes a resolved, playable track.
// Descriptors are values: they are never mutated after resolution, only cloned.
type TrackDescriptor struct {
	Handle      string        `json:"handle"` // Lavalink encoded track data
	Identifier  string        `json:"identifier"`
	Title       string        `json:"title"`
	Artist      string        `json:"artist,omitempty"`
	Album       string        `json:"album,omitempty"`
	URI         string        `json:"uri,omitempty"`
	ArtworkURL  string        `json:"artwork_url,omitempty"`
	SourceName  string        `json:"source_name,omitempty"` // e.g., "youtube", "soundcloud"
	Duration    time.Duration `json:"duration"`              // zero for live streams
	IsStream    bool          `json:"is_stream"`
	Seekable    bool          `json:"seekable"`
	StartOffset time.Duration `json:"start_offset,omitempty"`
	EndOffset   time.Duration `json:"end_offset,omitempty"` // zero plays until the end
}

// Source returns the parsed TrackSource for this track.
func (t TrackDescriptor) Source() TrackSource {
	return ParseTrackSource(t.SourceName)
}

// Key identifies the underlying track independently of trim offsets and queue entries.
func (t TrackDescriptor) Key() string {
	switch {
	case t.Identifier != "":
		return t.SourceName + ":" + t.Identifier
	case t.URI != "":
		return t.URI
	default:
		return t.Handle
	}
}

// IsValid returns true if the track has the minimum required fields.
func (t TrackDescriptor) IsValid() bool {
	return t.Handle != "" && t.Title != ""
}

// IsSeekable returns true if the backend can reposition within the track.
func (t TrackDescriptor) IsSeekable() bool {
	return t.Seekable && !t.IsStream
}

// IsTrimmed returns true if playback is restricted to a sub-range of the track.
func (t TrackDescriptor) IsTrimmed() bool {
	return t.StartOffset > 0 || t.EndOffset > 0
}

// WithTrim returns a copy of the descriptor restricted to [start, end).
// Negative offsets are treated as zero.
func (t TrackDescriptor) WithTrim(start, end time.Duration) TrackDescriptor {
	t.StartOffset = max(start, 0)
	t.EndOffset = max(end, 0)
	return t
}

// PlayableDuration returns the length of the playable sub-range.
func (t TrackDescriptor) PlayableDuration() time.Duration {
	if t.IsStream {
		return 0
	}
	end := t.Duration
	if t.EndOffset > 0 && (end == 0 || t.EndOffset < end) {
		end = t.EndOffset
	}
	return max(end-t.StartOffset, 0)
}

// WithEnrichment returns a copy with the non-empty enrichment fields applied.
func (t TrackDescriptor) WithEnrichment(e Enrichment) TrackDescriptor {
	if e.Title != "" {
		t.Title = e.Title
	}
	if e.Artist != "" {
		t.Artist = e.Artist
	}
	if e.Album != "" {
		t.Album = e.Album
	}
	if e.ArtworkURL != "" {
		t.ArtworkURL = e.ArtworkURL
	}
	return t
}

// DisplayName returns "Artist - Title" when the artist is known.
func (t TrackDescriptor) DisplayName() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// FormattedDuration returns the playable duration as mm:ss or hh:mm:ss.
func (t TrackDescriptor) FormattedDuration() string {
	if t.IsStream {
		return "LIVE"
	}
	return FormatDuration(t.PlayableDuration())
}

// Enrichment holds descriptive metadata found by an external lookup.
type Enrichment struct {
	Source     string
	Title      string
	Artist     string
	Album      string
	ArtworkURL string
	Certainty  float64 // 0..1
}

// FormatDuration formats d as mm:ss, or hh:mm:ss when it spans an hour.
func FormatDuration(d time.Duration) string {
	totalSeconds := max(int(d.Seconds()), 0)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
