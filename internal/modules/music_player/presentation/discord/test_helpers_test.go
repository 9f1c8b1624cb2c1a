package discord

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/bot"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

const (
	testGuildID        snowflake.ID = 1
	testTextChannelID  snowflake.ID = 2
	testVoiceChannelID snowflake.ID = 3
	testUserID         snowflake.ID = 4
	testBotID          snowflake.ID = 5
)

type fakeBackend struct{}

func (fakeBackend) JoinChannel(context.Context, snowflake.ID, snowflake.ID) error { return nil }
func (fakeBackend) LeaveChannel(context.Context, snowflake.ID) error              { return nil }
func (fakeBackend) Play(context.Context, snowflake.ID, domain.TrackDescriptor, time.Duration, time.Duration) error {
	return nil
}
func (fakeBackend) Stop(context.Context, snowflake.ID) error                { return nil }
func (fakeBackend) Pause(context.Context, snowflake.ID) error               { return nil }
func (fakeBackend) Resume(context.Context, snowflake.ID) error              { return nil }
func (fakeBackend) Seek(context.Context, snowflake.ID, time.Duration) error { return nil }
func (fakeBackend) SetVolume(context.Context, snowflake.ID, int) error      { return nil }

type fakeVoiceState struct {
	users     map[snowflake.ID]snowflake.ID
	listeners map[snowflake.ID]int
}

func (f *fakeVoiceState) GetUserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, error) {
	return f.users[userID], nil
}

func (f *fakeVoiceState) VoiceChannels(snowflake.ID) ([]ports.VoiceChannelInfo, error) {
	return []ports.VoiceChannelInfo{{ID: testVoiceChannelID, Name: "Music"}}, nil
}

func (f *fakeVoiceState) CountListeners(_, channelID snowflake.ID) (int, error) {
	return f.listeners[channelID], nil
}

type fakeLoader struct {
	results map[string]*ports.LoadResult
}

func (f *fakeLoader) LoadTracks(_ context.Context, query string) (*ports.LoadResult, error) {
	if result, ok := f.results[query]; ok {
		return result, nil
	}
	return &ports.LoadResult{Type: ports.LoadTypeEmpty}, nil
}

type fakePlaylistStore struct {
	playlists map[string]domain.SavedPlaylist
}

func newFakePlaylistStore() *fakePlaylistStore {
	return &fakePlaylistStore{playlists: make(map[string]domain.SavedPlaylist)}
}

func (f *fakePlaylistStore) SavePlaylist(_ context.Context, playlist domain.SavedPlaylist) error {
	f.playlists[playlist.ID] = playlist.Clone()
	return nil
}

func (f *fakePlaylistStore) LoadPlaylist(_ context.Context, id string) (domain.SavedPlaylist, error) {
	playlist, ok := f.playlists[id]
	if !ok {
		return domain.SavedPlaylist{}, domain.ErrPlaylistNotFound
	}
	return playlist.Clone(), nil
}

func (f *fakePlaylistStore) DeletePlaylist(_ context.Context, id string) error {
	if _, ok := f.playlists[id]; !ok {
		return domain.ErrPlaylistNotFound
	}
	delete(f.playlists, id)
	return nil
}

func (f *fakePlaylistStore) ListPlaylists(_ context.Context) ([]domain.SavedPlaylist, error) {
	playlists := make([]domain.SavedPlaylist, 0, len(f.playlists))
	for _, playlist := range f.playlists {
		playlists = append(playlists, playlist.Clone())
	}
	slices.SortFunc(playlists, func(a, b domain.SavedPlaylist) int {
		return strings.Compare(a.ID, b.ID)
	})
	return playlists, nil
}

type fakeSettings struct{}

func (fakeSettings) GuildSettings(snowflake.ID) ports.GuildSettings {
	return ports.GuildSettings{
		Volume:       usecases.DefaultVolume,
		MaxVolume:    1,
		HistoryLimit: domain.DefaultHistoryLimit,
		AutoPause:    true,
	}
}

type fixture struct {
	players    *usecases.PlayerManager
	voiceState *fakeVoiceState
	loader     *fakeLoader
	playlists  ports.PlaylistStore
	voice      *usecases.VoiceChannelService
	handlers   *CommandHandlers
	complete   *AutocompleteHandler
}

func newFixture() *fixture {
	f := &fixture{
		voiceState: &fakeVoiceState{
			users:     map[snowflake.ID]snowflake.ID{testUserID: testVoiceChannelID},
			listeners: map[snowflake.ID]int{testVoiceChannelID: 1},
		},
		loader:    &fakeLoader{results: make(map[string]*ports.LoadResult)},
		playlists: newFakePlaylistStore(),
	}

	f.players = usecases.NewPlayerManager(fakeBackend{}, nil, nil, fakeSettings{})
	channels := usecases.NewNotificationChannelService()
	resolver := usecases.NewResolverService(f.loader, 0)
	f.voice = usecases.NewVoiceChannelService(f.players, f.voiceState, fakeSettings{}, channels)
	queue := usecases.NewQueueService(f.players, resolver, f.voice, channels)
	playback := usecases.NewPlaybackService(f.players, channels)

	playlist := usecases.NewPlaylistService(f.playlists, f.players, resolver, f.voice, channels)

	f.handlers = NewCommandHandlers(f.voice, playback, queue, playlist)
	f.complete = NewAutocompleteHandler(usecases.NewAutocompleteService(f.players, resolver))
	return f
}

// addSearchResult makes a search for query resolve to a track titled title.
func (f *fixture) addSearchResult(query, title string) {
	f.loader.results["ytsearch:"+query] = &ports.LoadResult{
		Type:   ports.LoadTypeSearch,
		Tracks: []domain.TrackDescriptor{testTrack(title)},
	}
}

// playing connects the guild's player and starts the first entry.
func (f *fixture) playing(t *testing.T, titles ...string) *usecases.GieselaPlayer {
	t.Helper()

	player := f.players.GetOrCreate(testGuildID, testVoiceChannelID)
	if err := player.Connect(context.Background(), testVoiceChannelID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(titles) == 0 {
		return player
	}

	entries := make([]domain.QueueEntry, len(titles))
	for i, title := range titles {
		entries[i] = domain.NewQueueEntry(testTrack(title), testUserID)
	}
	if _, err := player.Enqueue(context.Background(), entries, domain.PlacementEnd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return player
}

func testTrack(title string) domain.TrackDescriptor {
	return domain.TrackDescriptor{
		Handle:     "encoded-" + title,
		Identifier: title,
		Title:      title,
		URI:        "https://example.com/" + title,
		SourceName: "youtube",
		Duration:   3 * time.Minute,
		Seekable:   true,
	}
}

// commandInteraction builds a guild slash command interaction.
func commandInteraction(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   testGuildID.String(),
			ChannelID: testTextChannelID.String(),
			Member: &discordgo.Member{
				User: &discordgo.User{ID: testUserID.String()},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func intOpt(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(value),
	}
}

func boolOpt(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionBoolean,
		Value: value,
	}
}

func subcommand(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:    name,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: options,
	}
}

// responseEmbed returns the single embed of the last response.
func responseEmbed(t *testing.T, r *bot.MockResponder) *discordgo.MessageEmbed {
	t.Helper()

	if r.LastResponse == nil || r.LastResponse.Data == nil {
		t.Fatal("expected response, got nil")
	}
	if len(r.LastResponse.Data.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(r.LastResponse.Data.Embeds))
	}
	return r.LastResponse.Data.Embeds[0]
}

func assertSuccess(t *testing.T, r *bot.MockResponder, contains string) {
	t.Helper()

	embed := responseEmbed(t, r)
	if embed.Color != colorSuccess {
		t.Errorf("expected success embed, got %q (%q)", embed.Title, embed.Description)
	}
	if !strings.Contains(embed.Description, contains) {
		t.Errorf("expected description to contain %q, got %q", contains, embed.Description)
	}
}

func assertError(t *testing.T, r *bot.MockResponder, message string) {
	t.Helper()

	embed := responseEmbed(t, r)
	if embed.Title != "Error" || embed.Color != colorError {
		t.Errorf("expected error embed, got %q", embed.Title)
	}
	if embed.Description != message {
		t.Errorf("expected message %q, got %q", message, embed.Description)
	}
}
