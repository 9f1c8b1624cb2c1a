package usecases

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// PlayerManager owns the players of all guilds, at most one per guild.
// Players are created on demand and only released on shutdown.
type PlayerManager struct {
	mu      sync.RWMutex
	players map[snowflake.ID]*GieselaPlayer

	backend   ports.AudioBackend
	publisher ports.EventPublisher
	store     ports.PlayerStateStore
	settings  ports.GuildSettingsProvider
}

// NewPlayerManager creates a new PlayerManager. settings may be nil.
func NewPlayerManager(
	backend ports.AudioBackend,
	publisher ports.EventPublisher,
	store ports.PlayerStateStore,
	settings ports.GuildSettingsProvider,
) *PlayerManager {
	return &PlayerManager{
		players:   make(map[snowflake.ID]*GieselaPlayer),
		backend:   backend,
		publisher: publisher,
		store:     store,
		settings:  settings,
	}
}

// Get returns the player of a guild, or nil if there is none.
func (m *PlayerManager) Get(guildID snowflake.ID) *GieselaPlayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.players[guildID]
}

// GetOrCreate returns the player of a guild, creating it if needed.
// A non-zero voiceChannelID binds a disconnected player to that channel.
func (m *PlayerManager) GetOrCreate(guildID, voiceChannelID snowflake.ID) *GieselaPlayer {
	m.mu.Lock()
	player, ok := m.players[guildID]
	if !ok {
		player = m.createLocked(guildID, voiceChannelID)
	}
	m.mu.Unlock()

	if ok && voiceChannelID != 0 && !player.State().IsConnected() {
		player.SetVoiceChannel(voiceChannelID)
	}
	return player
}

func (m *PlayerManager) createLocked(guildID, voiceChannelID snowflake.ID) *GieselaPlayer {
	cfg := PlayerConfig{Volume: DefaultVolume}
	if m.settings != nil {
		s := m.settings.GuildSettings(guildID)
		cfg = PlayerConfig{
			Volume:       s.Volume,
			MaxVolume:    s.MaxVolume,
			HistoryLimit: s.HistoryLimit,
		}
		if voiceChannelID == 0 {
			voiceChannelID = s.VoiceChannelID
		}
	}

	player := NewGieselaPlayer(guildID, voiceChannelID, cfg, m.backend, m.publisher)
	m.players[guildID] = player

	slog.Debug("created player", "guild", guildID, "channel", voiceChannelID)
	return player
}

// Players returns every player ordered by guild ID.
func (m *PlayerManager) Players() []*GieselaPlayer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	players := lo.Values(m.players)
	slices.SortFunc(players, func(a, b *GieselaPlayer) int {
		return cmp.Compare(a.GuildID(), b.GuildID())
	})
	return players
}

// HandleBackendEvent forwards a backend event to the player of its guild.
// Events for guilds without a player are dropped.
func (m *PlayerManager) HandleBackendEvent(ctx context.Context, event domain.BackendEvent) {
	player := m.Get(event.GuildID)
	if player == nil {
		slog.Debug("dropping backend event for guild without player",
			"guild", event.GuildID,
			"event", event.Kind,
		)
		return
	}

	if err := player.HandleBackendEvent(ctx, event); err != nil {
		slog.Error("failed to handle backend event",
			"guild", event.GuildID,
			"event", event.Kind,
			"error", err,
		)
	}
}

// OnVoiceChannelUpdate records that the bot was moved to channelID.
// A zero channelID means the bot was disconnected.
func (m *PlayerManager) OnVoiceChannelUpdate(ctx context.Context, guildID, channelID snowflake.ID) {
	player := m.Get(guildID)
	if player == nil {
		return
	}

	if channelID == 0 {
		if err := player.Disconnect(ctx); err != nil {
			slog.Warn("failed to clean up after voice disconnect",
				"guild", guildID,
				"error", err,
			)
		}
		return
	}

	if player.VoiceChannelID() != channelID {
		slog.Info("player moved to another voice channel", "guild", guildID, "channel", channelID)
		player.SetVoiceChannel(channelID)
	}
}

// Dump persists every connected player, replacing previously persisted state.
func (m *PlayerManager) Dump(ctx context.Context) error {
	snapshots := make([]domain.PlayerSnapshot, 0)
	for _, player := range m.Players() {
		if !player.State().IsConnected() || player.VoiceChannelID() == 0 {
			continue
		}
		snapshots = append(snapshots, player.Snapshot())
	}

	if err := m.store.SavePlayers(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to save players: %w", err)
	}

	slog.Info("dumped players", "count", len(snapshots))
	return nil
}

// Restore recreates the persisted players. A guild that fails to restore is
// logged and skipped. Returns the number of restored players.
func (m *PlayerManager) Restore(ctx context.Context) (int, error) {
	bindings, err := m.store.LoadBindings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load voice channel bindings: %w", err)
	}

	guildIDs := lo.Keys(bindings)
	slices.Sort(guildIDs)

	restored := 0
	for _, guildID := range guildIDs {
		channelID := bindings[guildID]
		player := m.GetOrCreate(guildID, channelID)

		snapshot, err := m.store.LoadPlayer(ctx, guildID)
		if err != nil {
			slog.Warn("failed to load persisted player, starting empty",
				"guild", guildID,
				"error", err,
			)
			continue
		}
		snapshot.VoiceChannelID = channelID

		if err := player.Restore(ctx, snapshot); err != nil {
			slog.Error("failed to restore player",
				"guild", guildID,
				"channel", channelID,
				"error", err,
			)
			continue
		}

		slog.Info("restored player",
			"guild", guildID,
			"channel", channelID,
			"queue", len(snapshot.Queue),
		)
		restored++
	}

	return restored, nil
}

// Shutdown dumps all players and disconnects them.
func (m *PlayerManager) Shutdown(ctx context.Context) error {
	dumpErr := m.Dump(ctx)

	var errs []error
	for _, player := range m.Players() {
		if err := player.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", player.GuildID(), err))
		}
	}

	return errors.Join(dumpErr, errors.Join(errs...))
}
