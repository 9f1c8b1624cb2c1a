package ports

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// VoiceConnection joins and leaves voice channels through the audio backend.
type VoiceConnection interface {
	// JoinChannel connects the bot to the voice channel and returns once the
	// backend holds a voice session for it.
	JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error

	// LeaveChannel disconnects the bot from the voice channel.
	LeaveChannel(ctx context.Context, guildID snowflake.ID) error
}

// AudioPlayer defines the interface for audio playback operations.
type AudioPlayer interface {
	// Play starts streaming the track from start. A zero end plays to the end of the track.
	Play(ctx context.Context, guildID snowflake.ID, track domain.TrackDescriptor, start, end time.Duration) error

	// Stop stops the current playback.
	Stop(ctx context.Context, guildID snowflake.ID) error

	// Pause pauses the current playback.
	Pause(ctx context.Context, guildID snowflake.ID) error

	// Resume resumes the paused playback.
	Resume(ctx context.Context, guildID snowflake.ID) error

	// Seek repositions the current playback.
	Seek(ctx context.Context, guildID snowflake.ID, position time.Duration) error

	// SetVolume sets the playback volume in percent (100 is unchanged).
	SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error
}

// AudioBackend is the full transport to the external audio backend.
type AudioBackend interface {
	VoiceConnection
	AudioPlayer
}
