package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// voiceChannelKeywords are matched against channel names when nothing
// better identifies the channel to join.
var voiceChannelKeywords = []string{"music", "giesela", "musicbot"}

// minChannelNameSimilarity is the similarity a channel name needs to be picked.
const minChannelNameSimilarity = 0.5

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means discover one)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
}

// LeaveInput contains the input for the Leave use case.
type LeaveInput struct {
	GuildID snowflake.ID
}

// BotVoiceStateChangeInput contains the input for handling bot voice state changes.
type BotVoiceStateChangeInput struct {
	GuildID      snowflake.ID
	NewChannelID *snowflake.ID // nil means disconnected
}

// VoiceChannelService handles voice channel operations, including pausing
// and leaving when nobody is listening.
type VoiceChannelService struct {
	players    *PlayerManager
	voiceState ports.VoiceStateProvider
	settings   ports.GuildSettingsProvider
	channels   *NotificationChannelService

	mu         sync.Mutex
	autoPaused map[snowflake.ID]bool
	leaveTimer map[snowflake.ID]*time.Timer
}

// NewVoiceChannelService creates a new VoiceChannelService. settings may be nil.
func NewVoiceChannelService(
	players *PlayerManager,
	voiceState ports.VoiceStateProvider,
	settings ports.GuildSettingsProvider,
	channels *NotificationChannelService,
) *VoiceChannelService {
	return &VoiceChannelService{
		players:    players,
		voiceState: voiceState,
		settings:   settings,
		channels:   channels,
		autoPaused: make(map[snowflake.ID]bool),
		leaveTimer: make(map[snowflake.ID]*time.Timer),
	}
}

// Join connects the guild's player to a voice channel.
func (v *VoiceChannelService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	v.channels.Set(SetNotificationChannelInput{
		GuildID:   input.GuildID,
		ChannelID: input.NotificationChannelID,
	})

	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		found, err := v.FindVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		voiceChannelID = found
	}

	player := v.players.GetOrCreate(input.GuildID, voiceChannelID)
	if err := player.Connect(ctx, voiceChannelID); err != nil {
		return nil, err
	}

	return &JoinOutput{VoiceChannelID: voiceChannelID}, nil
}

// FindVoiceChannel picks the channel to join: the user's channel, the
// configured channel, the player's previous channel, the channel whose name
// looks most like a music channel, and finally the first voice channel.
func (v *VoiceChannelService) FindVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error) {
	if v.voiceState == nil {
		return 0, ErrNotConnected
	}
	if userID != 0 {
		channelID, err := v.voiceState.GetUserVoiceChannel(guildID, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to get user voice channel: %w", err)
		}
		if channelID != 0 {
			return channelID, nil
		}
	}

	if v.settings != nil {
		if channelID := v.settings.GuildSettings(guildID).VoiceChannelID; channelID != 0 {
			return channelID, nil
		}
	}

	if player := v.players.Get(guildID); player != nil {
		if channelID := player.VoiceChannelID(); channelID != 0 {
			return channelID, nil
		}
	}

	channels, err := v.voiceState.VoiceChannels(guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to list voice channels: %w", err)
	}
	if len(channels) == 0 {
		return 0, ErrNoVoiceChannel
	}

	best, bestScore := channels[0].ID, 0.0
	for _, channel := range channels {
		name := strings.ToLower(channel.Name)
		for _, keyword := range voiceChannelKeywords {
			if score := domain.Similarity(name, keyword); score > bestScore {
				best, bestScore = channel.ID, score
			}
		}
	}
	if bestScore < minChannelNameSimilarity {
		return channels[0].ID, nil
	}
	return best, nil
}

// Leave disconnects the guild's player.
func (v *VoiceChannelService) Leave(ctx context.Context, input LeaveInput) error {
	player := v.players.Get(input.GuildID)
	if player == nil || !player.State().IsConnected() {
		return ErrNotConnected
	}

	v.cancelLeave(input.GuildID)
	return player.Disconnect(ctx)
}

// HandleBotVoiceStateChange handles external voice state changes (bot moved or disconnected).
func (v *VoiceChannelService) HandleBotVoiceStateChange(ctx context.Context, input BotVoiceStateChangeInput) {
	if input.NewChannelID == nil {
		v.cancelLeave(input.GuildID)
		v.players.OnVoiceChannelUpdate(ctx, input.GuildID, 0)
		return
	}
	v.players.OnVoiceChannelUpdate(ctx, input.GuildID, *input.NewChannelID)
	v.HandleListenersChanged(ctx, input.GuildID)
}

// HandleListenersChanged pauses the player when its channel became empty
// and resumes it when somebody is back. An empty channel is left after the
// configured delay.
func (v *VoiceChannelService) HandleListenersChanged(ctx context.Context, guildID snowflake.ID) {
	player := v.players.Get(guildID)
	if player == nil || !player.State().IsConnected() {
		return
	}

	listeners, err := v.voiceState.CountListeners(guildID, player.VoiceChannelID())
	if err != nil {
		slog.Warn("failed to count listeners", "guild", guildID, "error", err)
		return
	}

	settings := v.guildSettings(guildID)

	if listeners > 0 {
		v.cancelLeave(guildID)
		if v.takeAutoPaused(guildID) && player.State() == domain.PlayerStatePaused {
			if err := player.Resume(ctx); err != nil {
				slog.Warn("failed to auto-resume", "guild", guildID, "error", err)
				return
			}
			slog.Info("auto-resumed player", "guild", guildID)
		}
		return
	}

	if settings.AutoPause && player.State() == domain.PlayerStatePlaying {
		if err := player.Pause(ctx); err != nil {
			slog.Warn("failed to auto-pause", "guild", guildID, "error", err)
		} else {
			v.setAutoPaused(guildID)
			slog.Info("auto-paused player", "guild", guildID)
		}
	}

	if settings.AutoDisconnect > 0 {
		v.scheduleLeave(guildID, settings.AutoDisconnect)
	}
}

// Close stops all pending auto-disconnect timers.
func (v *VoiceChannelService) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for guildID, timer := range v.leaveTimer {
		timer.Stop()
		delete(v.leaveTimer, guildID)
	}
}

func (v *VoiceChannelService) scheduleLeave(guildID snowflake.ID, after time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.leaveTimer[guildID]; ok {
		return
	}
	v.leaveTimer[guildID] = time.AfterFunc(after, func() {
		v.mu.Lock()
		delete(v.leaveTimer, guildID)
		v.mu.Unlock()

		v.leaveIfEmpty(guildID)
	})
}

func (v *VoiceChannelService) leaveIfEmpty(guildID snowflake.ID) {
	player := v.players.Get(guildID)
	if player == nil || !player.State().IsConnected() {
		return
	}

	listeners, err := v.voiceState.CountListeners(guildID, player.VoiceChannelID())
	if err != nil || listeners > 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := player.Disconnect(ctx); err != nil {
		slog.Warn("failed to auto-disconnect", "guild", guildID, "error", err)
		return
	}
	v.takeAutoPaused(guildID)
	slog.Info("auto-disconnected from empty channel", "guild", guildID)
}

func (v *VoiceChannelService) cancelLeave(guildID snowflake.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if timer, ok := v.leaveTimer[guildID]; ok {
		timer.Stop()
		delete(v.leaveTimer, guildID)
	}
}

func (v *VoiceChannelService) setAutoPaused(guildID snowflake.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.autoPaused[guildID] = true
}

func (v *VoiceChannelService) takeAutoPaused(guildID snowflake.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	paused := v.autoPaused[guildID]
	delete(v.autoPaused, guildID)
	return paused
}

func (v *VoiceChannelService) guildSettings(guildID snowflake.ID) ports.GuildSettings {
	if v.settings == nil {
		return ports.GuildSettings{AutoPause: true}
	}
	return v.settings.GuildSettings(guildID)
}
