package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// BackendEventFunc receives events reported by the audio backend.
type BackendEventFunc func(ctx context.Context, event domain.BackendEvent)

// ChannelLookupFunc returns the notification channel of a guild, zero if none is known.
type ChannelLookupFunc func(guildID snowflake.ID) snowflake.ID

// QueueLengthFunc returns the number of upcoming entries of a guild.
type QueueLengthFunc func(guildID snowflake.ID) int

// RefreshFunc recomputes derived state after a player changed.
type RefreshFunc func() error

// BackendEventHandler forwards backend events to the players.
type BackendEventHandler struct {
	handle     BackendEventFunc
	subscriber ports.EventSubscriber
}

// NewBackendEventHandler creates a new BackendEventHandler.
func NewBackendEventHandler(handle BackendEventFunc, subscriber ports.EventSubscriber) *BackendEventHandler {
	return &BackendEventHandler{handle: handle, subscriber: subscriber}
}

// Start registers event handlers with the subscriber.
func (h *BackendEventHandler) Start() {
	h.subscriber.OnBackendEvent(func(ctx context.Context, event domain.BackendEvent) {
		slog.Debug("backend event",
			"guild", event.GuildID,
			"event", event.Kind,
			"reason", event.Reason,
		)
		h.handle(ctx, event)
	})

	slog.Debug("backend event handler started")
}

type nowPlayingMessage struct {
	channelID snowflake.ID
	messageID snowflake.ID
}

// NotificationEventHandler posts a "Now Playing" message whenever a player
// starts an entry and removes it once the entry is over. Playback failures
// reported by the backend are posted to the same channel.
type NotificationEventHandler struct {
	notifier     ports.NotificationSender
	subscriber   ports.EventSubscriber
	userInfoProv ports.UserInfoProvider
	channelOf    ChannelLookupFunc
	queueLength  QueueLengthFunc

	mu       sync.Mutex
	messages map[snowflake.ID]nowPlayingMessage
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
// userInfoProv and queueLength may be nil.
func NewNotificationEventHandler(
	notifier ports.NotificationSender,
	subscriber ports.EventSubscriber,
	userInfoProv ports.UserInfoProvider,
	channelOf ChannelLookupFunc,
	queueLength QueueLengthFunc,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		notifier:     notifier,
		subscriber:   subscriber,
		userInfoProv: userInfoProv,
		channelOf:    channelOf,
		queueLength:  queueLength,
		messages:     make(map[snowflake.ID]nowPlayingMessage),
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() {
	h.subscriber.OnPlayerStateChanged(h.handlePlayerStateChanged)
	h.subscriber.OnBackendEvent(h.handleBackendEvent)

	slog.Debug("notification event handler started")
}

func (h *NotificationEventHandler) handleBackendEvent(_ context.Context, event domain.BackendEvent) {
	if event.Kind != domain.BackendTrackException {
		return
	}

	channelID := h.channelOf(event.GuildID)
	if channelID == 0 {
		return
	}

	message := "Failed to play the current track."
	if event.Error != "" {
		message = fmt.Sprintf("Failed to play the current track: %s", event.Error)
	}
	if err := h.notifier.SendError(channelID, message); err != nil {
		slog.Warn("failed to send track exception notification",
			"guild", event.GuildID,
			"channel", channelID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) handlePlayerStateChanged(
	_ context.Context,
	event domain.PlayerStateChangedEvent,
) {
	switch event.Kind {
	case domain.PlayerPlay:
		h.deleteNowPlaying(event.GuildID)
		if event.Entry != nil {
			h.sendNowPlaying(event)
		}
	case domain.PlayerSkip, domain.PlayerStop, domain.PlayerFinished, domain.PlayerDisconnected:
		h.deleteNowPlaying(event.GuildID)
	}
}

func (h *NotificationEventHandler) sendNowPlaying(event domain.PlayerStateChangedEvent) {
	channelID := h.channelOf(event.GuildID)
	if channelID == 0 {
		slog.Debug("skipping now playing notification, no channel", "guild", event.GuildID)
		return
	}

	entry := event.Entry
	info := &ports.NowPlayingInfo{
		Track:       entry.Track,
		Paused:      event.To == domain.PlayerStatePaused,
		Progress:    event.Progress,
		RequesterID: entry.Meta.RequesterID,
		RequestedAt: entry.Meta.RequestedAt,
	}
	if h.queueLength != nil {
		info.QueueLength = h.queueLength(event.GuildID)
	}

	if h.userInfoProv != nil && entry.Meta.RequesterID != 0 {
		userInfo, err := h.userInfoProv.GetUserInfo(event.GuildID, entry.Meta.RequesterID)
		if err != nil {
			slog.Warn("failed to fetch requester info for now playing",
				"guild", event.GuildID,
				"requester", entry.Meta.RequesterID,
				"error", err,
			)
			info.RequesterName = "Unknown"
		} else {
			info.RequesterName = userInfo.DisplayName
			info.RequesterAvatarURL = userInfo.AvatarURL
		}
	}

	messageID, err := h.notifier.SendNowPlaying(channelID, info)
	if err != nil {
		slog.Error("failed to send now playing notification",
			"guild", event.GuildID,
			"channel", channelID,
			"error", err,
		)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[event.GuildID] = nowPlayingMessage{channelID: channelID, messageID: messageID}
}

func (h *NotificationEventHandler) deleteNowPlaying(guildID snowflake.ID) {
	h.mu.Lock()
	msg, ok := h.messages[guildID]
	delete(h.messages, guildID)
	h.mu.Unlock()

	if !ok {
		return
	}

	slog.Debug("deleting now playing message", "guild", guildID, "message_id", msg.messageID)
	if err := h.notifier.DeleteMessage(msg.channelID, msg.messageID); err != nil {
		slog.Warn("failed to delete now playing message",
			"guild", guildID,
			"error", err,
		)
	}
}

// PresenceEventHandler refreshes the bot's activity whenever a player
// starts, stops or pauses.
type PresenceEventHandler struct {
	refresh    RefreshFunc
	subscriber ports.EventSubscriber
}

// NewPresenceEventHandler creates a new PresenceEventHandler.
func NewPresenceEventHandler(refresh RefreshFunc, subscriber ports.EventSubscriber) *PresenceEventHandler {
	return &PresenceEventHandler{refresh: refresh, subscriber: subscriber}
}

// Start registers event handlers with the subscriber.
func (h *PresenceEventHandler) Start() {
	h.subscriber.OnPlayerStateChanged(func(_ context.Context, event domain.PlayerStateChangedEvent) {
		switch event.Kind {
		case domain.PlayerSeek, domain.PlayerVolume:
			return
		}
		if err := h.refresh(); err != nil {
			slog.Warn("failed to refresh presence", "guild", event.GuildID, "error", err)
		}
	})

	slog.Debug("presence event handler started")
}
