package ports

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// LoadResult represents the result of loading tracks.
type LoadResult struct {
	Type         LoadType
	Tracks       []domain.TrackDescriptor
	PlaylistName string
	Error        string // LoadTypeError only
}

// LoadType represents the type of load result.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
	LoadTypeError    LoadType = "error"
)

// NowPlayingInfo contains information for the "Now Playing" notification.
type NowPlayingInfo struct {
	Track              domain.TrackDescriptor
	Paused             bool
	Progress           time.Duration
	QueueLength        int
	RequesterID        snowflake.ID
	RequesterName      string
	RequesterAvatarURL string
	RequestedAt        time.Time
}

// VoiceChannelInfo describes a guild voice channel.
type VoiceChannelInfo struct {
	ID   snowflake.ID
	Name string
}

// GuildSettings are the per-guild player settings.
type GuildSettings struct {
	Volume         float64
	MaxVolume      float64
	HistoryLimit   int
	AutoPause      bool
	AutoDisconnect time.Duration // zero never disconnects
	VoiceChannelID snowflake.ID  // preferred voice channel, zero if unset
}
