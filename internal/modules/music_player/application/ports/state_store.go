package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// PlayerStateStore persists player snapshots across restarts.
type PlayerStateStore interface {
	// SavePlayers replaces all persisted state with the given snapshots.
	SavePlayers(ctx context.Context, snapshots []domain.PlayerSnapshot) error

	// LoadBindings returns the persisted guild -> voice channel mapping.
	LoadBindings(ctx context.Context) (map[snowflake.ID]snowflake.ID, error)

	// LoadPlayer returns the persisted snapshot of one guild.
	LoadPlayer(ctx context.Context, guildID snowflake.ID) (domain.PlayerSnapshot, error)
}
