package ports

import "github.com/disgoorg/snowflake/v2"

// GuildSettingsProvider answers per-guild configuration queries.
type GuildSettingsProvider interface {
	// GuildSettings returns the effective settings for a guild.
	GuildSettings(guildID snowflake.ID) GuildSettings
}
