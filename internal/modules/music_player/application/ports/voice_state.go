package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// VoiceStateProvider defines the interface for getting Discord voice state information.
type VoiceStateProvider interface {
	// GetUserVoiceChannel returns the voice channel ID the user is currently in.
	// Returns 0 if the user is not in a voice channel.
	GetUserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)

	// VoiceChannels lists the voice channels of a guild in display order.
	VoiceChannels(guildID snowflake.ID) ([]VoiceChannelInfo, error)

	// CountListeners counts the non-bot members in a voice channel.
	CountListeners(guildID, channelID snowflake.ID) (int, error)
}
