package usecases

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// PlaybackInput identifies the guild a playback command is for.
type PlaybackInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	Skipped *domain.QueueEntry
	Next    *domain.QueueEntry // nil if the queue was empty
}

// SeekInput contains the input for the Seek use cases.
type SeekInput struct {
	GuildID               snowflake.ID
	Position              time.Duration // absolute for Seek, an offset for Forward and Rewind
	NotificationChannelID snowflake.ID
}

// SeekOutput contains the progress after seeking.
type SeekOutput struct {
	Progress time.Duration
	Duration time.Duration
}

// VolumeInput contains the input for the SetVolume use case.
type VolumeInput struct {
	GuildID               snowflake.ID
	Volume                float64 // 0.0 to MaxVolume, or a change when Relative is set
	Relative              bool
	NotificationChannelID snowflake.ID
}

// VolumeOutput contains the result of the SetVolume use case.
type VolumeOutput struct {
	OldVolume float64
	Volume    float64
}

// NowPlayingOutput describes the player for the "now playing" view.
type NowPlayingOutput struct {
	Entry       *domain.QueueEntry
	State       domain.PlayerState
	Progress    time.Duration
	Volume      float64
	QueueLength int
	Next        *domain.QueueEntry // nil when the queue is empty
}

// PlaybackService handles playback operations.
type PlaybackService struct {
	players  *PlayerManager
	channels *NotificationChannelService
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(players *PlayerManager, channels *NotificationChannelService) *PlaybackService {
	return &PlaybackService{
		players:  players,
		channels: channels,
	}
}

// Pause pauses the current playback.
func (p *PlaybackService) Pause(ctx context.Context, input PlaybackInput) error {
	player, err := p.connectedPlayer(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	return player.Pause(ctx)
}

// Resume resumes the paused playback.
func (p *PlaybackService) Resume(ctx context.Context, input PlaybackInput) error {
	player, err := p.connectedPlayer(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	return player.Resume(ctx)
}

// Skip skips the current entry and plays the next one from the queue.
func (p *PlaybackService) Skip(ctx context.Context, input PlaybackInput) (*SkipOutput, error) {
	player, err := p.connectedPlayer(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	skipped := player.Current()
	if skipped == nil {
		return nil, ErrNotPlaying
	}

	if err := player.Skip(ctx); err != nil {
		return nil, err
	}

	return &SkipOutput{
		Skipped: skipped,
		Next:    player.Current(),
	}, nil
}

// Stop stops playback without touching the queue.
func (p *PlaybackService) Stop(ctx context.Context, input PlaybackInput) error {
	player, err := p.connectedPlayer(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	if player.Current() == nil {
		return ErrNotPlaying
	}
	return player.Stop(ctx)
}

// Seek jumps to an absolute position of the current entry.
func (p *PlaybackService) Seek(ctx context.Context, input SeekInput) (*SeekOutput, error) {
	return p.seek(ctx, input, func(time.Duration) time.Duration {
		return input.Position
	})
}

// Forward skips ahead by input.Position.
func (p *PlaybackService) Forward(ctx context.Context, input SeekInput) (*SeekOutput, error) {
	return p.seek(ctx, input, func(progress time.Duration) time.Duration {
		return progress + input.Position
	})
}

// Rewind jumps back by input.Position.
func (p *PlaybackService) Rewind(ctx context.Context, input SeekInput) (*SeekOutput, error) {
	return p.seek(ctx, input, func(progress time.Duration) time.Duration {
		return max(progress-input.Position, 0)
	})
}

// SetVolume sets or changes the volume.
func (p *PlaybackService) SetVolume(ctx context.Context, input VolumeInput) (*VolumeOutput, error) {
	player, err := p.connectedPlayer(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	old := player.Volume()
	target := input.Volume
	if input.Relative {
		target += old
	}

	applied, err := player.SetVolume(ctx, target)
	if err != nil {
		return nil, err
	}
	return &VolumeOutput{OldVolume: old, Volume: applied}, nil
}

// Volume returns the volume of a connected player.
func (p *PlaybackService) Volume(guildID snowflake.ID) (float64, error) {
	player := p.players.Get(guildID)
	if player == nil || !player.State().IsConnected() {
		return 0, ErrNotConnected
	}
	return player.Volume(), nil
}

// NowPlaying describes what the guild's player is doing.
func (p *PlaybackService) NowPlaying(guildID snowflake.ID) (*NowPlayingOutput, error) {
	player := p.players.Get(guildID)
	if player == nil {
		return nil, ErrNotConnected
	}

	current := player.Current()
	if current == nil {
		return nil, ErrNotPlaying
	}

	output := &NowPlayingOutput{
		Entry:       current,
		State:       player.State(),
		Progress:    player.Progress(),
		Volume:      player.Volume(),
		QueueLength: player.Queue().Len(),
	}
	if next, ok := player.Queue().Peek(); ok {
		output.Next = &next
	}
	return output, nil
}

func (p *PlaybackService) seek(
	ctx context.Context,
	input SeekInput,
	target func(progress time.Duration) time.Duration,
) (*SeekOutput, error) {
	player, err := p.connectedPlayer(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	current := player.Current()
	if current == nil {
		return nil, errNothingToSeek
	}

	if err := player.Seek(ctx, target(player.Progress())); err != nil {
		return nil, err
	}

	return &SeekOutput{
		Progress: player.Progress(),
		Duration: current.Track.PlayableDuration(),
	}, nil
}

func (p *PlaybackService) connectedPlayer(
	guildID, notificationChannelID snowflake.ID,
) (*GieselaPlayer, error) {
	player := p.players.Get(guildID)
	if player == nil || !player.State().IsConnected() {
		return nil, ErrNotConnected
	}

	p.channels.Set(SetNotificationChannelInput{
		GuildID:   guildID,
		ChannelID: notificationChannelID,
	})
	return player, nil
}
