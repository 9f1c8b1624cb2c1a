package infrastructure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// Built-in guild settings, used for keys the settings file leaves out.
const (
	defaultGuildVolume    = 0.6
	defaultGuildMaxVolume = 1.0
)

// guildSettingsEntry is one table of the settings file. Unset keys are nil
// so that guild tables only override what they name.
type guildSettingsEntry struct {
	Volume         *float64 `koanf:"volume"`
	MaxVolume      *float64 `koanf:"max_volume"`
	HistoryLimit   *int     `koanf:"history_limit"`
	AutoPause      *bool    `koanf:"auto_pause"`
	AutoDisconnect *float64 `koanf:"auto_disconnect"` // seconds, 0 = never
	VoiceChannelID *uint64  `koanf:"voice_channel_id"`
}

type guildSettingsFile struct {
	Defaults guildSettingsEntry            `koanf:"defaults"`
	Guilds   map[string]guildSettingsEntry `koanf:"guilds"`
}

// GuildSettings serves per-guild player settings read from a TOML file:
//
//	[defaults]
//	volume = 0.5
//
//	[guilds.123456789012345678]
//	auto_disconnect = 300
//	voice_channel_id = 234567890123456789
type GuildSettings struct {
	defaults ports.GuildSettings
	guilds   map[snowflake.ID]ports.GuildSettings
}

// GuildSettingsOption changes the built-in defaults before the settings file applies.
type GuildSettingsOption func(*ports.GuildSettings)

// WithHistoryLimit sets the default number of remembered entries.
// Non-positive limits are ignored.
func WithHistoryLimit(limit int) GuildSettingsOption {
	return func(s *ports.GuildSettings) {
		if limit > 0 {
			s.HistoryLimit = limit
		}
	}
}

// NewGuildSettings creates settings that use the built-in defaults for every guild.
func NewGuildSettings(opts ...GuildSettingsOption) *GuildSettings {
	defaults := builtinGuildSettings()
	for _, opt := range opts {
		opt(&defaults)
	}
	return &GuildSettings{
		defaults: defaults,
		guilds:   make(map[snowflake.ID]ports.GuildSettings),
	}
}

// LoadGuildSettings reads the settings file at path.
// A missing file yields the built-in defaults.
func LoadGuildSettings(path string, opts ...GuildSettingsOption) (*GuildSettings, error) {
	if path == "" {
		return NewGuildSettings(opts...), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewGuildSettings(opts...), nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load guild settings: %w", err)
	}

	var raw guildSettingsFile
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("failed to parse guild settings: %w", err)
	}

	settings := NewGuildSettings(opts...)
	settings.defaults = raw.Defaults.apply(settings.defaults)
	for rawID, entry := range raw.Guilds {
		guildID, err := snowflake.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("invalid guild id %q: %w", rawID, err)
		}
		settings.guilds[guildID] = entry.apply(settings.defaults)
	}

	return settings, nil
}

// Overrides returns the number of guilds with their own table.
func (s *GuildSettings) Overrides() int {
	return len(s.guilds)
}

// GuildSettings returns the effective settings for a guild.
func (s *GuildSettings) GuildSettings(guildID snowflake.ID) ports.GuildSettings {
	if settings, ok := s.guilds[guildID]; ok {
		return settings
	}
	return s.defaults
}

func builtinGuildSettings() ports.GuildSettings {
	return ports.GuildSettings{
		Volume:       defaultGuildVolume,
		MaxVolume:    defaultGuildMaxVolume,
		HistoryLimit: domain.DefaultHistoryLimit,
		AutoPause:    true,
	}
}

func (e guildSettingsEntry) apply(base ports.GuildSettings) ports.GuildSettings {
	if e.Volume != nil {
		base.Volume = *e.Volume
	}
	if e.MaxVolume != nil {
		base.MaxVolume = *e.MaxVolume
	}
	if e.HistoryLimit != nil {
		base.HistoryLimit = *e.HistoryLimit
	}
	if e.AutoPause != nil {
		base.AutoPause = *e.AutoPause
	}
	if e.AutoDisconnect != nil {
		base.AutoDisconnect = time.Duration(*e.AutoDisconnect * float64(time.Second))
	}
	if e.VoiceChannelID != nil {
		base.VoiceChannelID = snowflake.ID(*e.VoiceChannelID)
	}
	return base
}

var _ ports.GuildSettingsProvider = (*GuildSettings)(nil)
