package usecases

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// NotificationChannelService remembers which text channel a guild's player
// reports to. The last channel a command was used in wins.
type NotificationChannelService struct {
	mu       sync.RWMutex
	channels map[snowflake.ID]snowflake.ID
}

// NewNotificationChannelService creates a new NotificationChannelService.
func NewNotificationChannelService() *NotificationChannelService {
	return &NotificationChannelService{channels: make(map[snowflake.ID]snowflake.ID)}
}

// SetNotificationChannelInput contains the input for the Set use case.
type SetNotificationChannelInput struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
}

// Set updates the notification channel of a guild. A zero channel is ignored.
func (n *NotificationChannelService) Set(input SetNotificationChannelInput) {
	if n == nil || input.ChannelID == 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels[input.GuildID] = input.ChannelID
}

// Get returns the notification channel of a guild, zero if none is known.
func (n *NotificationChannelService) Get(guildID snowflake.ID) snowflake.ID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.channels[guildID]
}
