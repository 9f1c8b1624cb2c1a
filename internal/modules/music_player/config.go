package music_player

import "time"

// Config holds the music player module configuration.
type Config struct {
	LavalinkNodeName string `env:"LAVALINK_NODE_NAME" envDefault:"main"`
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`

	// Empty keeps player state in memory only.
	StateDBPath       string `env:"STATE_DB_PATH" envDefault:"data/giesela.db"`
	GuildSettingsPath string `env:"GUILD_SETTINGS_PATH" envDefault:"config/guilds.toml"`
	HistoryLimit      int    `env:"HISTORY_LIMIT" envDefault:"200"`

	EnrichmentTimeout   time.Duration `env:"ENRICHMENT_TIMEOUT" envDefault:"3s"`
	SpotifyClientID     string        `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string        `env:"SPOTIFY_CLIENT_SECRET"`
	LastFMAPIKey        string        `env:"LASTFM_API_KEY"`
	LastFMAPISecret     string        `env:"LASTFM_API_SECRET"`
	MusicBrainzEnabled  bool          `env:"MUSICBRAINZ_ENABLED" envDefault:"false"`
}

// SpotifyEnabled reports whether Spotify credentials are configured.
func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

// LastFMEnabled reports whether a Last.fm API key is configured.
func (c *Config) LastFMEnabled() bool {
	return c.LastFMAPIKey != ""
}
