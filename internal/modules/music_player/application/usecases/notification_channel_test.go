package usecases

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

func TestNotificationChannelService_Set(t *testing.T) {
	guildID := snowflake.ID(1)
	oldChannelID := snowflake.ID(3)
	newChannelID := snowflake.ID(99)

	t.Run("last channel wins", func(t *testing.T) {
		service := NewNotificationChannelService()
		service.Set(SetNotificationChannelInput{GuildID: guildID, ChannelID: oldChannelID})
		service.Set(SetNotificationChannelInput{GuildID: guildID, ChannelID: newChannelID})

		if got := service.Get(guildID); got != newChannelID {
			t.Errorf("expected notification channel ID %d, got %d", newChannelID, got)
		}
	})

	t.Run("zero channel is ignored", func(t *testing.T) {
		service := NewNotificationChannelService()
		service.Set(SetNotificationChannelInput{GuildID: guildID, ChannelID: oldChannelID})
		service.Set(SetNotificationChannelInput{GuildID: guildID})

		if got := service.Get(guildID); got != oldChannelID {
			t.Errorf("expected notification channel ID %d, got %d", oldChannelID, got)
		}
	})

	t.Run("unknown guild", func(t *testing.T) {
		service := NewNotificationChannelService()
		if got := service.Get(guildID); got != 0 {
			t.Errorf("expected no channel, got %d", got)
		}
	})
}
