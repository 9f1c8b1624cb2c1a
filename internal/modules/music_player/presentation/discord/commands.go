package discord

import "github.com/bwmarrin/discordgo"

// Commands returns all slash commands for the music player module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "join",
			Description: "Join a voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Voice channel to join (defaults to your current channel)",
					Required:    false,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildVoice,
						discordgo.ChannelTypeGuildStageVoice,
					},
				},
			},
		},
		{
			Name:        "leave",
			Description: "Leave the voice channel",
		},
		{
			Name:        "play",
			Description: "Play a track from URL or search",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "query",
					Description:  "URL or search term, several URLs may be separated by spaces",
					Required:     true,
					Autocomplete: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "placement",
					Description: "Where to add the tracks",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "End of queue", Value: "end"},
						{Name: "Play next", Value: "front"},
						{Name: "Random position", Value: "random"},
					},
				},
			},
		},
		{
			Name:        "stop",
			Description: "Stop playback and keep the queue",
		},
		{
			Name:        "pause",
			Description: "Pause playback",
		},
		{
			Name:        "resume",
			Description: "Resume playback",
		},
		{
			Name:        "skip",
			Description: "Skip the current track",
		},
		{
			Name:        "seek",
			Description: "Jump to a position in the current track",
			Options:     []*discordgo.ApplicationCommandOption{timestampOption("Position, e.g. 1:30")},
		},
		{
			Name:        "forward",
			Description: "Skip ahead in the current track",
			Options:     []*discordgo.ApplicationCommandOption{timestampOption("Amount, e.g. 30 or 1:00")},
		},
		{
			Name:        "rewind",
			Description: "Jump back in the current track",
			Options:     []*discordgo.ApplicationCommandOption{timestampOption("Amount, e.g. 30 or 1:00")},
		},
		{
			Name:        "volume",
			Description: "Show or change the volume",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "Volume in percent, or +10 / -10 to change it",
					Required:    false,
				},
			},
		},
		{
			Name:        "np",
			Description: "Show the current track",
		},
		{
			Name:        "queue",
			Description: "Manage the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Show the current queue",
					Options:     []*discordgo.ApplicationCommandOption{pageOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a track from the queue",
					Options: []*discordgo.ApplicationCommandOption{
						positionOption("position", "Position of the track to remove (as shown in queue list)", true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "move",
					Description: "Move a track to another position",
					Options: []*discordgo.ApplicationCommandOption{
						positionOption("from", "Position of the track to move", true),
						positionOption("to", "Position to move the track to", true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "promote",
					Description: "Move a track to the front of the queue",
					Options: []*discordgo.ApplicationCommandOption{
						positionOption("position", "Position of the track (defaults to the last one)", false),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "shuffle",
					Description: "Shuffle the queue",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "clear",
					Description: "Clear the queue",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "replay",
					Description: "Queue the current track or a track from the history again",
					Options: []*discordgo.ApplicationCommandOption{
						positionOption("index", "History index (defaults to the current track)", false),
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "now",
							Description: "Skip the current track so the replay starts immediately",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "history",
					Description: "Show recently played tracks",
					Options:     []*discordgo.ApplicationCommandOption{pageOption()},
				},
			},
		},
		{
			Name:        "playlist",
			Description: "Manage saved playlists",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Show all saved playlists",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Create an empty playlist",
					Options: []*discordgo.ApplicationCommandOption{
						playlistNameOption(),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "description",
							Description: "What the playlist is about",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Delete one of your playlists",
					Options:     []*discordgo.ApplicationCommandOption{playlistNameOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Save a track to one of your playlists",
					Options: []*discordgo.ApplicationCommandOption{
						playlistNameOption(),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "query",
							Description: "URL or search term (defaults to the current track)",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a track from one of your playlists",
					Options: []*discordgo.ApplicationCommandOption{
						playlistNameOption(),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "position",
							Description: "Position of the track (as shown in playlist show)",
							Required:    true,
							MinValue:    floatPtr(1),
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show the tracks of a playlist",
					Options:     []*discordgo.ApplicationCommandOption{playlistNameOption(), pageOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "play",
					Description: "Add every track of a playlist to the queue",
					Options: []*discordgo.ApplicationCommandOption{
						playlistNameOption(),
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "shuffle",
							Description: "Shuffle the tracks before adding them",
							Required:    false,
						},
					},
				},
			},
		},
	}
}

func playlistNameOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: "Playlist name",
		Required:    true,
	}
}

func timestampOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "timestamp",
		Description: description,
		Required:    true,
	}
}

func pageOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "page",
		Description: "Page number",
		Required:    false,
		MinValue:    floatPtr(1),
	}
}

func positionOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionInteger,
		Name:         name,
		Description:  description,
		Required:     required,
		MinValue:     floatPtr(1),
		Autocomplete: true,
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
