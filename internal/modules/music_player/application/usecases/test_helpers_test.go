package usecases

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

const (
	testGuildID        = snowflake.ID(1)
	testUserID         = snowflake.ID(2)
	testTextChannelID  = snowflake.ID(3)
	testVoiceChannelID = snowflake.ID(4)
)

func testTrack(id string) domain.TrackDescriptor {
	return domain.TrackDescriptor{
		Handle:     "encoded-" + id,
		Identifier: id,
		SourceName: "youtube",
		Title:      "Track " + id,
		Artist:     "Artist",
		URI:        "https://www.youtube.com/watch?v=" + id,
		Duration:   3 * time.Minute,
		Seekable:   true,
	}
}

func testEntry(id string) domain.QueueEntry {
	return domain.NewQueueEntry(testTrack(id), testUserID)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestPlayer creates a player bound to testVoiceChannelID.
func newTestPlayer() (*GieselaPlayer, *mockBackend, *mockEventPublisher, *fakeClock) {
	backend := &mockBackend{}
	publisher := &mockEventPublisher{}
	clock := newFakeClock()

	player := NewGieselaPlayer(testGuildID, testVoiceChannelID, PlayerConfig{Volume: DefaultVolume}, backend, publisher)
	player.SetClock(clock.Now)
	return player, backend, publisher, clock
}

// newPlayingPlayer creates a connected player playing current with the given entries queued.
func newPlayingPlayer(current domain.QueueEntry, queued ...domain.QueueEntry) (
	*GieselaPlayer, *mockBackend, *mockEventPublisher, *fakeClock,
) {
	player, backend, publisher, clock := newTestPlayer()
	if err := player.Play(context.Background(), &current); err != nil {
		panic(err)
	}
	if len(queued) > 0 {
		player.Queue().AddAll(queued, domain.PlacementEnd)
	}
	backend.reset()
	publisher.reset()
	return player, backend, publisher, clock
}

type backendCall struct {
	method    string
	channelID snowflake.ID
	track     domain.TrackDescriptor
	start     time.Duration
	end       time.Duration
	position  time.Duration
	volume    int
}

type mockBackend struct {
	mu    sync.Mutex
	calls []backendCall

	joinErr   error
	leaveErr  error
	playErr   error
	stopErr   error
	pauseErr  error
	resumeErr error
	seekErr   error
	volumeErr error
}

func (m *mockBackend) record(call backendCall, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return err
}

func (m *mockBackend) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *mockBackend) callsTo(method string) []backendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []backendCall
	for _, call := range m.calls {
		if call.method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

func (m *mockBackend) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	return m.record(backendCall{method: "join", channelID: channelID}, m.joinErr)
}

func (m *mockBackend) LeaveChannel(_ context.Context, _ snowflake.ID) error {
	return m.record(backendCall{method: "leave"}, m.leaveErr)
}

func (m *mockBackend) Play(
	_ context.Context,
	_ snowflake.ID,
	track domain.TrackDescriptor,
	start, end time.Duration,
) error {
	return m.record(backendCall{method: "play", track: track, start: start, end: end}, m.playErr)
}

func (m *mockBackend) Stop(_ context.Context, _ snowflake.ID) error {
	return m.record(backendCall{method: "stop"}, m.stopErr)
}

func (m *mockBackend) Pause(_ context.Context, _ snowflake.ID) error {
	return m.record(backendCall{method: "pause"}, m.pauseErr)
}

func (m *mockBackend) Resume(_ context.Context, _ snowflake.ID) error {
	return m.record(backendCall{method: "resume"}, m.resumeErr)
}

func (m *mockBackend) Seek(_ context.Context, _ snowflake.ID, position time.Duration) error {
	return m.record(backendCall{method: "seek", position: position}, m.seekErr)
}

func (m *mockBackend) SetVolume(_ context.Context, _ snowflake.ID, volume int) error {
	return m.record(backendCall{method: "volume", volume: volume}, m.volumeErr)
}

type mockEventPublisher struct {
	mu            sync.Mutex
	queueChanged  []domain.QueueChangedEvent
	playerChanged []domain.PlayerStateChangedEvent
	backendEvents []domain.BackendEvent
}

func (m *mockEventPublisher) PublishQueueChanged(event domain.QueueChangedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueChanged = append(m.queueChanged, event)
}

func (m *mockEventPublisher) PublishPlayerStateChanged(event domain.PlayerStateChangedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerChanged = append(m.playerChanged, event)
}

func (m *mockEventPublisher) PublishBackendEvent(event domain.BackendEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backendEvents = append(m.backendEvents, event)
}

func (m *mockEventPublisher) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueChanged = nil
	m.playerChanged = nil
	m.backendEvents = nil
}

func (m *mockEventPublisher) playerKinds() []domain.PlayerEventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]domain.PlayerEventKind, 0, len(m.playerChanged))
	for _, event := range m.playerChanged {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

type mockStateStore struct {
	saved   []domain.PlayerSnapshot
	saveErr error

	bindings   map[snowflake.ID]snowflake.ID
	bindingErr error
	snapshots  map[snowflake.ID]domain.PlayerSnapshot
	loadErrs   map[snowflake.ID]error
}

func newMockStateStore() *mockStateStore {
	return &mockStateStore{
		bindings:  make(map[snowflake.ID]snowflake.ID),
		snapshots: make(map[snowflake.ID]domain.PlayerSnapshot),
		loadErrs:  make(map[snowflake.ID]error),
	}
}

func (m *mockStateStore) SavePlayers(_ context.Context, snapshots []domain.PlayerSnapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = snapshots
	m.bindings = make(map[snowflake.ID]snowflake.ID)
	m.snapshots = make(map[snowflake.ID]domain.PlayerSnapshot)
	for _, snapshot := range snapshots {
		m.bindings[snapshot.GuildID] = snapshot.VoiceChannelID
		m.snapshots[snapshot.GuildID] = snapshot
	}
	return nil
}

func (m *mockStateStore) LoadBindings(_ context.Context) (map[snowflake.ID]snowflake.ID, error) {
	if m.bindingErr != nil {
		return nil, m.bindingErr
	}
	return m.bindings, nil
}

func (m *mockStateStore) LoadPlayer(_ context.Context, guildID snowflake.ID) (domain.PlayerSnapshot, error) {
	if err := m.loadErrs[guildID]; err != nil {
		return domain.PlayerSnapshot{}, err
	}
	return m.snapshots[guildID], nil
}

type mockPlaylistStore struct {
	playlists map[string]domain.SavedPlaylist
	saves     int
	saveErr   error
}

func newMockPlaylistStore() *mockPlaylistStore {
	return &mockPlaylistStore{playlists: make(map[string]domain.SavedPlaylist)}
}

func (m *mockPlaylistStore) SavePlaylist(_ context.Context, playlist domain.SavedPlaylist) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.playlists[playlist.ID] = playlist.Clone()
	return nil
}

func (m *mockPlaylistStore) LoadPlaylist(_ context.Context, id string) (domain.SavedPlaylist, error) {
	playlist, ok := m.playlists[id]
	if !ok {
		return domain.SavedPlaylist{}, domain.ErrPlaylistNotFound
	}
	return playlist.Clone(), nil
}

func (m *mockPlaylistStore) DeletePlaylist(_ context.Context, id string) error {
	if _, ok := m.playlists[id]; !ok {
		return domain.ErrPlaylistNotFound
	}
	delete(m.playlists, id)
	return nil
}

func (m *mockPlaylistStore) ListPlaylists(_ context.Context) ([]domain.SavedPlaylist, error) {
	playlists := make([]domain.SavedPlaylist, 0, len(m.playlists))
	for _, playlist := range m.playlists {
		playlists = append(playlists, playlist.Clone())
	}
	slices.SortFunc(playlists, func(a, b domain.SavedPlaylist) int {
		return strings.Compare(a.ID, b.ID)
	})
	return playlists, nil
}

type mockTrackLoader struct {
	mu      sync.Mutex
	results map[string]*ports.LoadResult
	errs    map[string]error
	queries []string
}

func newMockTrackLoader() *mockTrackLoader {
	return &mockTrackLoader{
		results: make(map[string]*ports.LoadResult),
		errs:    make(map[string]error),
	}
}

func (m *mockTrackLoader) LoadTracks(_ context.Context, query string) (*ports.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if err := m.errs[query]; err != nil {
		return nil, err
	}
	if result, ok := m.results[query]; ok {
		return result, nil
	}
	return &ports.LoadResult{Type: ports.LoadTypeEmpty}, nil
}

type mockEnricher struct {
	name   string
	result *domain.Enrichment
	err    error
	delay  time.Duration // zero answers immediately
	block  bool          // never answers before ctx is done
}

func (m *mockEnricher) Name() string {
	return m.name
}

func (m *mockEnricher) Lookup(ctx context.Context, _ domain.TrackDescriptor) (*domain.Enrichment, error) {
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.result, m.err
}

type mockGuildSettings struct {
	defaults ports.GuildSettings
	guilds   map[snowflake.ID]ports.GuildSettings
}

func (m *mockGuildSettings) GuildSettings(guildID snowflake.ID) ports.GuildSettings {
	if s, ok := m.guilds[guildID]; ok {
		return s
	}
	return m.defaults
}

type mockVoiceStateProvider struct {
	mu        sync.Mutex
	users     map[snowflake.ID]snowflake.ID // userID -> channelID
	channels  []ports.VoiceChannelInfo
	listeners map[snowflake.ID]int // channelID -> listeners
	err       error
}

func newMockVoiceStateProvider() *mockVoiceStateProvider {
	return &mockVoiceStateProvider{
		users:     make(map[snowflake.ID]snowflake.ID),
		listeners: make(map[snowflake.ID]int),
	}
}

func (m *mockVoiceStateProvider) GetUserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.users[userID], nil
}

func (m *mockVoiceStateProvider) VoiceChannels(_ snowflake.ID) ([]ports.VoiceChannelInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.channels, nil
}

func (m *mockVoiceStateProvider) CountListeners(_, channelID snowflake.ID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.listeners[channelID], nil
}

func (m *mockVoiceStateProvider) setListeners(channelID snowflake.ID, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[channelID] = n
}

type mockPresenceUpdater struct {
	names []string
	err   error
}

func (m *mockPresenceUpdater) UpdateListening(name string) error {
	if m.err != nil {
		return m.err
	}
	m.names = append(m.names, name)
	return nil
}

// serviceFixture wires the services on top of shared mocks.
type serviceFixture struct {
	backend    *mockBackend
	publisher  *mockEventPublisher
	store      *mockStateStore
	playlists  *mockPlaylistStore
	loader     *mockTrackLoader
	voiceState *mockVoiceStateProvider
	settings   *mockGuildSettings

	players  *PlayerManager
	channels *NotificationChannelService
	resolver *ResolverService
	voice    *VoiceChannelService
	queue    *QueueService
	playback *PlaybackService
	playlist *PlaylistService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		backend:    &mockBackend{},
		publisher:  &mockEventPublisher{},
		store:      newMockStateStore(),
		playlists:  newMockPlaylistStore(),
		loader:     newMockTrackLoader(),
		voiceState: newMockVoiceStateProvider(),
		settings: &mockGuildSettings{
			defaults: ports.GuildSettings{
				Volume:       DefaultVolume,
				MaxVolume:    1,
				HistoryLimit: domain.DefaultHistoryLimit,
				AutoPause:    true,
			},
		},
	}
	f.voiceState.users[testUserID] = testVoiceChannelID
	f.voiceState.listeners[testVoiceChannelID] = 1

	f.players = NewPlayerManager(f.backend, f.publisher, f.store, f.settings)
	f.channels = NewNotificationChannelService()
	f.resolver = NewResolverService(f.loader, 0)
	f.voice = NewVoiceChannelService(f.players, f.voiceState, f.settings, f.channels)
	f.queue = NewQueueService(f.players, f.resolver, f.voice, f.channels)
	f.playback = NewPlaybackService(f.players, f.channels)
	f.playlist = NewPlaylistService(f.playlists, f.players, f.resolver, f.voice, f.channels)
	return f
}

// addTrack makes a search for query resolve to the track with the given identifier.
func (f *serviceFixture) addTrack(query, id string) {
	f.loader.results["ytsearch:"+query] = &ports.LoadResult{
		Type:   ports.LoadTypeSearch,
		Tracks: []domain.TrackDescriptor{testTrack(id)},
	}
}

// connectedPlayer returns a connected player for testGuildID.
func (f *serviceFixture) connectedPlayer(t *testing.T) *GieselaPlayer {
	t.Helper()
	player := f.players.GetOrCreate(testGuildID, testVoiceChannelID)
	if err := player.Connect(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return player
}

// playingPlayer returns a connected player for testGuildID playing current
// with queued pending.
func (f *serviceFixture) playingPlayer(t *testing.T, current domain.QueueEntry, queued ...domain.QueueEntry) *GieselaPlayer {
	t.Helper()
	player := f.connectedPlayer(t)
	entries := append([]domain.QueueEntry{current}, queued...)
	if _, err := player.Enqueue(context.Background(), entries, domain.PlacementEnd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return player
}
