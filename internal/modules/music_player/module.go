package music_player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/bot"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/giesela/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/giesela/internal/modules/music_player/infrastructure/enrichment"
	"github.com/sglre6355/giesela/internal/modules/music_player/presentation/discord"
)

const restoreTimeout = 2 * time.Minute

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.ReadyModule        = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	eventHandlers   *discord.EventHandlers
	lavalinkAdapter *infrastructure.LavalinkAdapter

	players      *usecases.PlayerManager
	voiceChannel *usecases.VoiceChannelService
	stateDB      *infrastructure.SQLiteStateStore

	// Event-driven components
	eventBus *infrastructure.ChannelEventBus
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return m.commandHandlers.Handlers()
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.autocomplete.HandleInteractionCreate(s, i)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		slog.Warn("music_player module initialized without session, Lavalink integration disabled")
		return m.initWithoutLavalink()
	}

	return m.initWithLavalink(deps)
}

func (m *MusicPlayerModule) initWithoutLavalink() error {
	// Nothing can play without a backend, but commands still register and
	// answer with "not connected".
	m.players = usecases.NewPlayerManager(nil, nil, infrastructure.NewMemoryStateStore(), nil)
	channels := usecases.NewNotificationChannelService()
	resolver := usecases.NewResolverService(nil, 0)
	m.voiceChannel = usecases.NewVoiceChannelService(m.players, nil, nil, channels)

	playlists := infrastructure.NewMemoryPlaylistStore()

	m.commandHandlers = discord.NewCommandHandlers(
		m.voiceChannel,
		usecases.NewPlaybackService(m.players, channels),
		usecases.NewQueueService(m.players, resolver, m.voiceChannel, channels),
		usecases.NewPlaylistService(playlists, m.players, resolver, m.voiceChannel, channels),
	)
	m.autocomplete = discord.NewAutocompleteHandler(usecases.NewAutocompleteService(m.players, resolver))

	return nil
}

func (m *MusicPlayerModule) initWithLavalink(deps bot.ModuleDependencies) error {
	cfg := m.config

	// Create event bus (needed by Lavalink adapter for publishing events)
	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(
		context.Background(),
		deps.Session,
		infrastructure.LavalinkConfig{
			NodeName: cfg.LavalinkNodeName,
			Address:  cfg.LavalinkAddress,
			Password: cfg.LavalinkPassword,
			Secure:   cfg.LavalinkSecure,
		},
	)
	if err != nil {
		m.eventBus.Close()
		return err
	}
	lavalinkAdapter.SetPublisher(m.eventBus)
	m.lavalinkAdapter = lavalinkAdapter

	store, err := m.openStateStore()
	if err != nil {
		m.closeBackends()
		return err
	}

	settings, err := infrastructure.LoadGuildSettings(
		cfg.GuildSettingsPath,
		infrastructure.WithHistoryLimit(cfg.HistoryLimit),
	)
	if err != nil {
		m.closeBackends()
		return err
	}
	slog.Info("loaded guild settings", "path", cfg.GuildSettingsPath, "overrides", settings.Overrides())

	// Create infrastructure
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	userInfoProv := infrastructure.NewDiscordUserInfoProvider(deps.Session)
	notifier := infrastructure.NewNotifier(deps.Session)

	// Create services
	m.players = usecases.NewPlayerManager(lavalinkAdapter, m.eventBus, store, settings)
	channels := usecases.NewNotificationChannelService()
	resolver := usecases.NewResolverService(lavalinkAdapter, cfg.EnrichmentTimeout, m.enrichers()...)
	m.voiceChannel = usecases.NewVoiceChannelService(m.players, voiceState, settings, channels)
	playback := usecases.NewPlaybackService(m.players, channels)
	queue := usecases.NewQueueService(m.players, resolver, m.voiceChannel, channels)
	presence := usecases.NewPresenceService(m.players, notifier)
	playlist := usecases.NewPlaylistService(m.playlistStore(), m.players, resolver, m.voiceChannel, channels)

	// Register event handlers
	infrastructure.NewBackendEventHandler(m.players.HandleBackendEvent, m.eventBus).Start()
	infrastructure.NewNotificationEventHandler(
		notifier,
		m.eventBus,
		userInfoProv,
		channels.Get,
		m.queueLength,
	).Start()
	infrastructure.NewPresenceEventHandler(presence.Refresh, m.eventBus).Start()

	// Create presentation handlers
	m.commandHandlers = discord.NewCommandHandlers(m.voiceChannel, playback, queue, playlist)
	m.autocomplete = discord.NewAutocompleteHandler(usecases.NewAutocompleteService(m.players, resolver))
	m.eventHandlers = discord.NewEventHandlers(deps.BotID, m.voiceChannel)

	slog.Info("music_player module initialized with Lavalink")

	return nil
}

// openStateStore opens the SQLite database, or an in-memory store when no path is set.
func (m *MusicPlayerModule) openStateStore() (ports.PlayerStateStore, error) {
	if m.config.StateDBPath == "" {
		slog.Warn("no state database configured, player state will not survive restarts")
		return infrastructure.NewMemoryStateStore(), nil
	}

	store, err := infrastructure.NewSQLiteStateStore(m.config.StateDBPath)
	if err != nil {
		return nil, err
	}
	m.stateDB = store
	return store, nil
}

// playlistStore keeps saved playlists next to the player state when a
// database is configured.
func (m *MusicPlayerModule) playlistStore() ports.PlaylistStore {
	if m.stateDB == nil {
		return infrastructure.NewMemoryPlaylistStore()
	}
	return m.stateDB
}

// enrichers builds the metadata sources that have credentials configured.
func (m *MusicPlayerModule) enrichers() []ports.Enricher {
	cfg := m.config

	var enrichers []ports.Enricher
	if cfg.SpotifyEnabled() {
		enrichers = append(enrichers, enrichment.NewSpotify(
			context.Background(),
			cfg.SpotifyClientID,
			cfg.SpotifyClientSecret,
		))
	}
	if cfg.LastFMEnabled() {
		enrichers = append(enrichers, enrichment.NewLastFM(cfg.LastFMAPIKey, cfg.LastFMAPISecret))
	}
	if cfg.MusicBrainzEnabled {
		enrichers = append(enrichers, enrichment.NewMusicBrainz())
	}

	names := make([]string, len(enrichers))
	for i, e := range enrichers {
		names[i] = e.Name()
	}
	slog.Info("configured enrichers", "enrichers", names)

	return enrichers
}

func (m *MusicPlayerModule) queueLength(guildID snowflake.ID) int {
	player := m.players.Get(guildID)
	if player == nil {
		return 0
	}
	return player.Queue().Len()
}

// OnReady restores the persisted players once the gateway can join voice channels.
func (m *MusicPlayerModule) OnReady(ctx context.Context) error {
	if m.lavalinkAdapter == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, restoreTimeout)
	defer cancel()

	restored, err := m.players.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore players: %w", err)
	}
	slog.Info("restored players", "count", restored)
	return nil
}

// Shutdown dumps the players and cleans up module resources.
func (m *MusicPlayerModule) Shutdown(ctx context.Context) error {
	var errs []error

	if m.players != nil && m.lavalinkAdapter != nil {
		if err := m.players.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down players: %w", err))
		}
	}
	if m.voiceChannel != nil {
		m.voiceChannel.Close()
	}

	if err := m.closeBackends(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// closeBackends closes the event bus, the Lavalink connection and the state database.
func (m *MusicPlayerModule) closeBackends() error {
	if m.eventBus != nil {
		m.eventBus.Close()
	}
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}
	if m.stateDB != nil {
		if err := m.stateDB.Close(); err != nil {
			return fmt.Errorf("failed to close state database: %w", err)
		}
		m.stateDB = nil
	}
	return nil
}

// Event handlers.

func (m *MusicPlayerModule) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceServerUpdate(event)
	}
}

func (m *MusicPlayerModule) handleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceStateUpdate(event)
	}
	if m.eventHandlers != nil {
		m.eventHandlers.HandleVoiceStateUpdate(s, event)
	}
}
