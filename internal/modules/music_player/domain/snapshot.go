package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// PlayerSnapshot is the persisted form of a player.
type PlayerSnapshot struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
	Current        *QueueEntry
	Progress       time.Duration // elapsed time of Current, relative to its trim start
	Queue          []QueueEntry
}
