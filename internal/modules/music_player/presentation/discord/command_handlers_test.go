package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/giesela/internal/bot"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/usecases"
)

func TestCommandHandlers_InvalidInteraction(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name     string
		modify   func(i *discordgo.InteractionCreate)
		expected string
	}{
		{
			name:     "missing guild",
			modify:   func(i *discordgo.InteractionCreate) { i.GuildID = "" },
			expected: "Invalid guild",
		},
		{
			name:     "missing member",
			modify:   func(i *discordgo.InteractionCreate) { i.Member = nil },
			expected: "Invalid user",
		},
		{
			name:     "invalid channel",
			modify:   func(i *discordgo.InteractionCreate) { i.ChannelID = "general" },
			expected: "Invalid notification channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := commandInteraction("pause")
			tt.modify(i)
			r := &bot.MockResponder{}

			if err := f.handlers.HandlePause(nil, i, r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertError(t, r, tt.expected)
		})
	}
}

func TestCommandHandlers_NotConnected(t *testing.T) {
	f := newFixture()
	expected := errorMessage(usecases.ErrNotConnected)

	tests := []struct {
		name    string
		handler bot.InteractionHandler
		i       *discordgo.InteractionCreate
	}{
		{name: "leave", handler: f.handlers.HandleLeave, i: commandInteraction("leave")},
		{name: "pause", handler: f.handlers.HandlePause, i: commandInteraction("pause")},
		{name: "resume", handler: f.handlers.HandleResume, i: commandInteraction("resume")},
		{name: "stop", handler: f.handlers.HandleStop, i: commandInteraction("stop")},
		{name: "skip", handler: f.handlers.HandleSkip, i: commandInteraction("skip")},
		{name: "np", handler: f.handlers.HandleNowPlaying, i: commandInteraction("np")},
		{name: "volume", handler: f.handlers.HandleVolume, i: commandInteraction("volume")},
		{
			name:    "seek",
			handler: f.handlers.HandleSeek,
			i:       commandInteraction("seek", stringOpt("timestamp", "1:00")),
		},
		{
			name:    "queue list",
			handler: f.handlers.HandleQueue,
			i:       commandInteraction("queue", subcommand("list")),
		},
		{
			name:    "queue history",
			handler: f.handlers.HandleQueue,
			i:       commandInteraction("queue", subcommand("history")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &bot.MockResponder{}
			if err := tt.handler(nil, tt.i, r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertError(t, r, expected)
		})
	}
}

func TestCommandHandlers_HandleJoin(t *testing.T) {
	f := newFixture()
	r := &bot.MockResponder{}

	if err := f.handlers.HandleJoin(nil, commandInteraction("join"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertSuccess(t, r, fmt.Sprintf("<#%d>", testVoiceChannelID))
	player := f.players.Get(testGuildID)
	if player == nil || !player.State().IsConnected() {
		t.Fatal("expected connected player")
	}
}

func TestCommandHandlers_HandleJoin_DiscoversChannel(t *testing.T) {
	f := newFixture()
	f.voiceState.users = nil
	r := &bot.MockResponder{}

	if err := f.handlers.HandleJoin(nil, commandInteraction("join"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the user is not in voice, so the channel named "Music" is picked
	assertSuccess(t, r, fmt.Sprintf("<#%d>", testVoiceChannelID))
}

func TestCommandHandlers_HandlePlay(t *testing.T) {
	f := newFixture()
	f.addSearchResult("never gonna give you up", "rickroll")
	r := &bot.MockResponder{}

	i := commandInteraction("play", stringOpt("query", "never gonna give you up"))
	if err := f.handlers.HandlePlay(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.LastResponse == nil ||
		r.LastResponse.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("expected deferred response, got %+v", r.LastResponse)
	}
	if r.LastEdit == nil || r.LastEdit.Embeds == nil || len(*r.LastEdit.Embeds) != 1 {
		t.Fatalf("expected edited embed, got %+v", r.LastEdit)
	}

	embed := (*r.LastEdit.Embeds)[0]
	if !strings.Contains(embed.Description, "rickroll") || !strings.Contains(embed.Description, "Starting playback") {
		t.Errorf("unexpected description %q", embed.Description)
	}

	player := f.players.Get(testGuildID)
	if player == nil || player.Current() == nil || player.Current().Track.Title != "rickroll" {
		t.Fatal("expected rickroll to be playing")
	}
	if player.Current().Meta.RequesterID != testUserID {
		t.Errorf("expected requester %d, got %d", testUserID, player.Current().Meta.RequesterID)
	}
}

func TestCommandHandlers_HandlePlay_QueuesBehindCurrent(t *testing.T) {
	f := newFixture()
	f.playing(t, "a")
	f.addSearchResult("b", "b")
	r := &bot.MockResponder{}

	i := commandInteraction("play", stringOpt("query", "b"), stringOpt("placement", "front"))
	if err := f.handlers.HandlePlay(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := (*r.LastEdit.Embeds)[0]
	if !strings.Contains(embed.Description, "Position **#1**") {
		t.Errorf("expected position #1, got %q", embed.Description)
	}
}

func TestCommandHandlers_HandlePlay_Errors(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		f := newFixture()
		r := &bot.MockResponder{}

		i := commandInteraction("play", stringOpt("query", "   "))
		if err := f.handlers.HandlePlay(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertError(t, r, "Please provide a URL or search term.")
	})

	t.Run("nothing found", func(t *testing.T) {
		f := newFixture()
		r := &bot.MockResponder{}

		i := commandInteraction("play", stringOpt("query", "does not exist"))
		if err := f.handlers.HandlePlay(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if r.LastEdit == nil || r.LastEdit.Embeds == nil {
			t.Fatal("expected edited embed, got nil")
		}
		embed := (*r.LastEdit.Embeds)[0]
		if embed.Title != "Error" || embed.Description != errorMessage(usecases.ErrResolution) {
			t.Errorf("unexpected embed %q: %q", embed.Title, embed.Description)
		}
	})

	t.Run("defer fails", func(t *testing.T) {
		f := newFixture()
		expectedErr := errors.New("interaction expired")
		r := &bot.MockResponder{Err: expectedErr}

		i := commandInteraction("play", stringOpt("query", "anything"))
		if err := f.handlers.HandlePlay(nil, i, r); !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
	})
}

func TestCommandHandlers_PauseResume(t *testing.T) {
	f := newFixture()
	player := f.playing(t, "a")

	r := &bot.MockResponder{}
	if err := f.handlers.HandlePause(nil, commandInteraction("pause"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSuccess(t, r, "Paused")
	if player.State() != usecases.PlayerStatePaused {
		t.Errorf("expected paused, got %s", player.State())
	}

	r = &bot.MockResponder{}
	if err := f.handlers.HandlePause(nil, commandInteraction("pause"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertError(t, r, errorMessage(usecases.ErrNotPlaying))

	r = &bot.MockResponder{}
	if err := f.handlers.HandleResume(nil, commandInteraction("resume"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSuccess(t, r, "Resumed")
	if player.State() != usecases.PlayerStatePlaying {
		t.Errorf("expected playing, got %s", player.State())
	}
}

func TestCommandHandlers_HandleSkip(t *testing.T) {
	f := newFixture()
	player := f.playing(t, "a", "b")
	r := &bot.MockResponder{}

	if err := f.handlers.HandleSkip(nil, commandInteraction("skip"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertSuccess(t, r, "Skipped [a]")
	if player.Current() == nil || player.Current().Track.Title != "b" {
		t.Errorf("expected b to play, got %+v", player.Current())
	}
}

func TestCommandHandlers_HandleSeek(t *testing.T) {
	tests := []struct {
		name      string
		handler   func(f *fixture) bot.InteractionHandler
		timestamp string
		expected  string
	}{
		{
			name:      "seek",
			handler:   func(f *fixture) bot.InteractionHandler { return f.handlers.HandleSeek },
			timestamp: "1:30",
			expected:  "`01:30 / 03:00`",
		},
		{
			name:      "forward",
			handler:   func(f *fixture) bot.InteractionHandler { return f.handlers.HandleForward },
			timestamp: "45",
			expected:  "`00:45 / 03:00`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.playing(t, "a")
			r := &bot.MockResponder{}

			i := commandInteraction(tt.name, stringOpt("timestamp", tt.timestamp))
			if err := tt.handler(f)(nil, i, r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertSuccess(t, r, tt.expected)
		})
	}

	t.Run("invalid timestamp", func(t *testing.T) {
		f := newFixture()
		r := &bot.MockResponder{}

		i := commandInteraction("seek", stringOpt("timestamp", "soon"))
		if err := f.handlers.HandleSeek(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertError(t, r, "Invalid timestamp. Use seconds, mm:ss or hh:mm:ss.")
	})
}

func TestCommandHandlers_HandleVolume(t *testing.T) {
	tests := []struct {
		name     string
		options  []*discordgo.ApplicationCommandInteractionDataOption
		expected string
	}{
		{name: "show", expected: "Volume is **60%**."},
		{
			name:     "absolute",
			options:  []*discordgo.ApplicationCommandInteractionDataOption{stringOpt("value", "25%")},
			expected: "from **60%** to **25%**",
		},
		{
			name:     "relative",
			options:  []*discordgo.ApplicationCommandInteractionDataOption{stringOpt("value", "+10")},
			expected: "from **60%** to **70%**",
		},
		{
			name:     "clamped",
			options:  []*discordgo.ApplicationCommandInteractionDataOption{stringOpt("value", "250")},
			expected: "from **60%** to **100%**",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.playing(t, "a")
			r := &bot.MockResponder{}

			if err := f.handlers.HandleVolume(nil, commandInteraction("volume", tt.options...), r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertSuccess(t, r, tt.expected)
		})
	}
}

func TestCommandHandlers_HandleNowPlaying(t *testing.T) {
	f := newFixture()
	f.playing(t, "a", "b")
	r := &bot.MockResponder{}

	if err := f.handlers.HandleNowPlaying(nil, commandInteraction("np"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := responseEmbed(t, r)
	if embed.Title != "a" {
		t.Errorf("expected title %q, got %q", "a", embed.Title)
	}
	if embed.Author == nil || embed.Author.Name != "Now Playing" {
		t.Errorf("expected author %q, got %+v", "Now Playing", embed.Author)
	}
}

func TestCommandHandlers_HandleQueue(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		f := newFixture()
		f.playing(t, "a", "b", "c")
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("list"))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		embed := responseEmbed(t, r)
		for _, want := range []string{"### Now Playing", "[a]", "1\\. [b]", "2\\. [c]"} {
			if !strings.Contains(embed.Description, want) {
				t.Errorf("expected description to contain %q, got %q", want, embed.Description)
			}
		}
		if embed.Footer == nil || !strings.HasPrefix(embed.Footer.Text, "Page 1/1 · 2 entries") {
			t.Errorf("unexpected footer %+v", embed.Footer)
		}
	})

	t.Run("remove", func(t *testing.T) {
		f := newFixture()
		player := f.playing(t, "a", "b", "c")
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("remove", intOpt("position", 2)))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSuccess(t, r, "Removed [c]")
		if player.Queue().Len() != 1 {
			t.Errorf("expected 1 entry, got %d", player.Queue().Len())
		}
	})

	t.Run("remove out of range", func(t *testing.T) {
		f := newFixture()
		f.playing(t, "a", "b")
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("remove", intOpt("position", 5)))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertError(t, r, errorMessage(usecases.ErrIndexOutOfRange))
	})

	t.Run("move", func(t *testing.T) {
		f := newFixture()
		player := f.playing(t, "a", "b", "c", "d")
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("move", intOpt("from", 3), intOpt("to", 1)))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSuccess(t, r, "Moved [d](https://example.com/d) to position 1")
		if first := player.Queue().Entries()[0]; first.Track.Title != "d" {
			t.Errorf("expected d first, got %s", first.Track.Title)
		}
	})

	t.Run("promote last", func(t *testing.T) {
		f := newFixture()
		player := f.playing(t, "a", "b", "c")
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("promote"))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSuccess(t, r, "[c](https://example.com/c) plays next")
		if first := player.Queue().Entries()[0]; first.Track.Title != "c" {
			t.Errorf("expected c first, got %s", first.Track.Title)
		}
	})

	t.Run("shuffle empty", func(t *testing.T) {
		f := newFixture()
		f.playing(t, "a")
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("shuffle"))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertError(t, r, errorMessage(usecases.ErrEmptyQueue))
	})

	t.Run("clear", func(t *testing.T) {
		f := newFixture()
		player := f.playing(t, "a", "b", "c")
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("clear"))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSuccess(t, r, "Removed 2 entries")
		if player.Current() == nil {
			t.Error("expected current entry to keep playing")
		}
	})

	t.Run("replay current", func(t *testing.T) {
		f := newFixture()
		player := f.playing(t, "a", "b")
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("replay"))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSuccess(t, r, "play next")
		if first := player.Queue().Entries()[0]; first.Track.Title != "a" {
			t.Errorf("expected a first, got %s", first.Track.Title)
		}
	})

	t.Run("replay history now", func(t *testing.T) {
		f := newFixture()
		player := f.playing(t, "a", "b")
		if err := player.Skip(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("replay", intOpt("index", 1), boolOpt("now", true)))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertSuccess(t, r, "Replaying now")
		if player.Current() == nil || player.Current().Track.Title != "a" {
			t.Errorf("expected a to play, got %+v", player.Current())
		}
	})

	t.Run("history", func(t *testing.T) {
		f := newFixture()
		player := f.playing(t, "a", "b")
		if err := player.Skip(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("history"))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		embed := responseEmbed(t, r)
		if embed.Title != "History" || !strings.Contains(embed.Description, "1\\. [a]") {
			t.Errorf("unexpected embed %q: %q", embed.Title, embed.Description)
		}
	})

	t.Run("unknown subcommand", func(t *testing.T) {
		f := newFixture()
		r := &bot.MockResponder{}

		i := commandInteraction("queue", subcommand("loop"))
		if err := f.handlers.HandleQueue(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertError(t, r, "Unknown subcommand")
	})
}

func TestCommandHandlers_HandlersCoverCommands(t *testing.T) {
	handlers := newFixture().handlers.Handlers()

	for _, cmd := range Commands() {
		if _, ok := handlers[cmd.Name]; !ok {
			t.Errorf("expected handler for command %q", cmd.Name)
		}
	}
	if len(handlers) != len(Commands()) {
		t.Errorf("expected %d handlers, got %d", len(Commands()), len(handlers))
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "wrapped sentinel",
			err:      fmt.Errorf("failed to join: %w", usecases.ErrNoVoiceChannel),
			expected: errorMessage(usecases.ErrNoVoiceChannel),
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			expected: "That took too long, please try again.",
		},
		{
			name:     "unknown",
			err:      errors.New("lavalink unreachable"),
			expected: "lavalink unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage(tt.err); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
