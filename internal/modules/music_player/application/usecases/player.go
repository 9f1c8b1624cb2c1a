package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// DefaultVolume is the volume of a new player when no setting overrides it.
const DefaultVolume = 0.6

// PlayerConfig holds the per-guild settings a player is created with.
type PlayerConfig struct {
	Volume       float64
	MaxVolume    float64 // upper bound for SetVolume, 1.0 if unset
	HistoryLimit int     // domain.DefaultHistoryLimit if unset
}

func (c PlayerConfig) normalized() PlayerConfig {
	if c.MaxVolume <= 0 {
		c.MaxVolume = 1
	}
	if c.Volume < 0 {
		c.Volume = DefaultVolume
	}
	c.Volume = min(c.Volume, c.MaxVolume)
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = domain.DefaultHistoryLimit
	}
	return c
}

// playback identifies one Play call handed to the backend.
type playback struct {
	epoch  uint64
	handle string
}

// EnqueueResult describes where Enqueue put the entries.
type EnqueueResult struct {
	Position int  // position of the first entry, -1 for random batches
	Count    int  // number of entries added
	Started  bool // the player started one of the entries right away
}

// GieselaPlayer drives the playback of a single guild.
//
// Every operation holds the player lock until it completes, including the
// backend calls it makes, so operations on one player never interleave.
// Backend events are matched against the playback they belong to: every
// Play call bumps the epoch and records the handle, and playbacks that were
// replaced or stopped are remembered until their end event has arrived.
type GieselaPlayer struct {
	mu sync.Mutex

	guildID        snowflake.ID
	voiceChannelID snowflake.ID
	state          domain.PlayerState
	queue          *domain.EntryQueue
	current        *domain.QueueEntry
	position       *domain.PlaybackPosition
	volume         float64
	maxVolume      float64

	epoch      uint64
	active     *playback
	superseded []playback

	backend   ports.AudioBackend
	publisher ports.EventPublisher
	now       func() time.Time
}

// NewGieselaPlayer creates a disconnected player bound to voiceChannelID
// (zero if unbound). A nil publisher disables notifications.
func NewGieselaPlayer(
	guildID, voiceChannelID snowflake.ID,
	cfg PlayerConfig,
	backend ports.AudioBackend,
	publisher ports.EventPublisher,
) *GieselaPlayer {
	cfg = cfg.normalized()

	var sink domain.QueueEventSink
	if publisher != nil {
		sink = publisher
	}

	return &GieselaPlayer{
		guildID:        guildID,
		voiceChannelID: voiceChannelID,
		state:          domain.PlayerStateDisconnected,
		queue:          domain.NewEntryQueue(guildID, cfg.HistoryLimit, sink),
		volume:         cfg.Volume,
		maxVolume:      cfg.MaxVolume,
		backend:        backend,
		publisher:      publisher,
		now:            time.Now,
	}
}

// SetClock replaces the time source used for progress estimation.
func (p *GieselaPlayer) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

// GuildID returns the guild the player belongs to.
func (p *GieselaPlayer) GuildID() snowflake.ID {
	return p.guildID
}

// Queue returns the player's entry queue.
func (p *GieselaPlayer) Queue() *domain.EntryQueue {
	return p.queue
}

// State returns the current player state.
func (p *GieselaPlayer) State() domain.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// VoiceChannelID returns the bound voice channel, zero if unbound.
func (p *GieselaPlayer) VoiceChannelID() snowflake.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiceChannelID
}

// SetVoiceChannel rebinds the player, e.g. after the bot was moved.
func (p *GieselaPlayer) SetVoiceChannel(channelID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voiceChannelID = channelID
}

// Current returns a copy of the entry being played, or nil.
func (p *GieselaPlayer) Current() *domain.QueueEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	entry := *p.current
	return &entry
}

// Volume returns the current volume.
func (p *GieselaPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// MaxVolume returns the highest volume SetVolume accepts.
func (p *GieselaPlayer) MaxVolume() float64 {
	return p.maxVolume
}

// Progress returns the elapsed time of the current entry relative to its trim start.
func (p *GieselaPlayer) Progress() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progressLocked()
}

// Remaining returns the time left on the current entry.
func (p *GieselaPlayer) Remaining() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0
	}
	return max(p.current.Track.PlayableDuration()-p.progressLocked(), 0)
}

// Connect joins channelID, or the bound channel when channelID is zero.
func (p *GieselaPlayer) Connect(ctx context.Context, channelID snowflake.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked(ctx, channelID)
}

// Disconnect drops the current entry and leaves the voice channel.
func (p *GieselaPlayer) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.state.IsConnected() {
		return nil
	}

	from := p.state
	p.epoch++
	p.current = nil
	p.position = nil
	p.active = nil
	p.superseded = nil

	err := p.backend.LeaveChannel(ctx, p.guildID)
	p.state = domain.PlayerStateDisconnected
	p.publishLocked(p.eventLocked(domain.PlayerDisconnected, from, nil))

	if err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Play starts entry, or the next queued entry when entry is nil.
// The player connects first if needed. With nothing to play it stops.
func (p *GieselaPlayer) Play(ctx context.Context, entry *domain.QueueEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playLocked(ctx, entry, 0)
}

// Pause pauses the current entry.
func (p *GieselaPlayer) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != domain.PlayerStatePlaying {
		return ErrNotPlaying
	}
	if err := p.backend.Pause(ctx, p.guildID); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}

	p.position = &domain.PlaybackPosition{Position: p.positionLocked(), Time: p.now()}
	p.state = domain.PlayerStatePaused
	p.publishLocked(p.eventLocked(domain.PlayerPause, domain.PlayerStatePlaying, p.current))
	return nil
}

// Resume resumes a paused entry.
func (p *GieselaPlayer) Resume(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != domain.PlayerStatePaused {
		return ErrNotPaused
	}
	if err := p.backend.Resume(ctx, p.guildID); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}

	if p.position != nil {
		p.position.Time = p.now()
	}
	p.state = domain.PlayerStatePlaying
	p.publishLocked(p.eventLocked(domain.PlayerResume, domain.PlayerStatePaused, p.current))
	return nil
}

// Seek moves the current entry to progress, measured from its trim start.
func (p *GieselaPlayer) Seek(ctx context.Context, progress time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return errNothingToSeek
	}
	track := p.current.Track
	if !track.IsSeekable() {
		return ErrNotSeekable
	}

	target := track.StartOffset + max(progress, 0)
	if end := trackEnd(track); end > 0 && target > end {
		target = end
	}
	if err := p.backend.Seek(ctx, p.guildID, target); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	p.position = &domain.PlaybackPosition{Position: target, Time: p.now()}
	p.publishLocked(p.eventLocked(domain.PlayerSeek, p.state, p.current))
	return nil
}

// Skip records the current entry in the history and plays the next one.
func (p *GieselaPlayer) Skip(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.state.IsConnected() {
		return ErrNotConnected
	}
	return p.skipLocked(ctx)
}

// Stop drops the current entry without advancing the queue.
func (p *GieselaPlayer) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked(ctx)
}

// SetVolume clamps volume to [0, MaxVolume] and applies it.
// Returns the volume that was applied.
func (p *GieselaPlayer) SetVolume(ctx context.Context, volume float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	volume = min(max(volume, 0), p.maxVolume)
	if p.state.IsConnected() {
		if err := p.backend.SetVolume(ctx, p.guildID, volumePercent(volume)); err != nil {
			return p.volume, fmt.Errorf("failed to set volume: %w", err)
		}
	}

	old := p.volume
	p.volume = volume
	event := p.eventLocked(domain.PlayerVolume, p.state, p.current)
	event.OldVolume = old
	p.publishLocked(event)
	return volume, nil
}

// Replay puts a fresh copy of the current entry (index nil) or of the
// history entry at *index at the front of the queue. With revert the
// current entry is skipped so the copy starts right away.
func (p *GieselaPlayer) Replay(ctx context.Context, index *int, revert bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ok bool
	if index == nil {
		ok = p.queue.ReplayCurrent(p.current)
	} else {
		ok = p.queue.ReplayHistory(*index)
	}
	if !ok {
		return ErrNothingToReplay
	}

	if revert && p.current != nil {
		return p.skipLocked(ctx)
	}
	if p.current == nil {
		return p.playLocked(ctx, nil, 0)
	}
	return nil
}

// Enqueue adds entries to the queue and starts playing when the player has
// no current entry.
func (p *GieselaPlayer) Enqueue(
	ctx context.Context,
	entries []domain.QueueEntry,
	placement domain.Placement,
) (EnqueueResult, error) {
	if len(entries) == 0 {
		return EnqueueResult{Position: -1}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result := EnqueueResult{Count: len(entries)}
	if len(entries) == 1 {
		result.Position = p.queue.Add(entries[0], placement, false)
	} else {
		switch placement {
		case domain.PlacementFront:
			result.Position = 0
		case domain.PlacementRandom:
			result.Position = -1
		default:
			result.Position = p.queue.Len()
		}
		p.queue.AddAll(entries, placement)
	}

	if p.current != nil {
		return result, nil
	}

	if err := p.playLocked(ctx, nil, 0); err != nil {
		return result, err
	}
	if p.current != nil && slices.ContainsFunc(entries, func(e domain.QueueEntry) bool {
		return e.ID == p.current.ID
	}) {
		result.Started = true
	}
	return result, nil
}

// HandleBackendEvent applies an event reported by the audio backend.
func (p *GieselaPlayer) HandleBackendEvent(ctx context.Context, event domain.BackendEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Kind {
	case domain.BackendPlayerUpdate:
		if p.active == nil || len(p.superseded) > 0 || p.current == nil {
			return nil
		}
		at := event.Time
		if at.IsZero() {
			at = p.now()
		}
		p.position = &domain.PlaybackPosition{Position: event.Position, Time: at}

	case domain.BackendTrackStarted:
		if p.active != nil && p.active.handle == event.Handle {
			p.superseded = nil
			slog.Debug("track started", "guild", p.guildID, "epoch", p.active.epoch)
		}

	case domain.BackendTrackException:
		slog.Error("backend reported track exception",
			"guild", p.guildID,
			"track", p.trackTitleLocked(event.Handle),
			"error", event.Error,
		)

	case domain.BackendTrackStuck:
		slog.Warn("backend reported stuck track",
			"guild", p.guildID,
			"track", p.trackTitleLocked(event.Handle),
		)

	case domain.BackendTrackEnded:
		return p.handleTrackEndedLocked(ctx, event)
	}

	return nil
}

// Snapshot captures the persisted form of the player.
func (p *GieselaPlayer) Snapshot() domain.PlayerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := domain.PlayerSnapshot{
		GuildID:        p.guildID,
		VoiceChannelID: p.voiceChannelID,
		Queue:          p.queue.Entries(),
	}
	if p.current != nil {
		current := *p.current
		snapshot.Current = &current
		snapshot.Progress = p.progressLocked()
	}
	return snapshot
}

// Restore reloads a snapshot: the queue is appended, the player reconnects
// and the current entry resumes at its recorded progress. If the current
// entry cannot be started it is put back at the front of the queue.
func (p *GieselaPlayer) Restore(ctx context.Context, snapshot domain.PlayerSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snapshot.VoiceChannelID != 0 {
		p.voiceChannelID = snapshot.VoiceChannelID
	}
	p.queue.LoadPlaylist(snapshot.Queue)

	if err := p.connectLocked(ctx, 0); err != nil {
		if snapshot.Current != nil {
			p.queue.Add(*snapshot.Current, domain.PlacementFront, false)
		}
		return err
	}
	if snapshot.Current == nil {
		return nil
	}

	entry := *snapshot.Current
	resumeAt := entry.Track.StartOffset
	if entry.Track.IsSeekable() {
		resumeAt += max(snapshot.Progress, 0)
		if end := trackEnd(entry.Track); end > 0 && resumeAt >= end {
			resumeAt = entry.Track.StartOffset
		}
	}
	return p.playLocked(ctx, &entry, resumeAt)
}

func (p *GieselaPlayer) connectLocked(ctx context.Context, channelID snowflake.ID) error {
	if p.backend == nil {
		return ErrNotConnected
	}
	if channelID == 0 {
		channelID = p.voiceChannelID
	}
	if channelID == 0 {
		return ErrNoVoiceChannel
	}
	if p.state.IsConnected() && channelID == p.voiceChannelID {
		return nil
	}

	if err := p.backend.JoinChannel(ctx, p.guildID, channelID); err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	from := p.state
	p.voiceChannelID = channelID
	if !from.IsConnected() {
		p.state = domain.PlayerStateIdle
		if err := p.backend.SetVolume(ctx, p.guildID, volumePercent(p.volume)); err != nil {
			slog.Warn("failed to apply volume after connecting",
				"guild", p.guildID,
				"error", err,
			)
		}
	}

	p.publishLocked(p.eventLocked(domain.PlayerConnected, from, p.current))
	return nil
}

// playLocked starts entry (or the next queued entry) at start, an absolute
// track position. A zero start uses the track's trim start.
func (p *GieselaPlayer) playLocked(
	ctx context.Context,
	entry *domain.QueueEntry,
	start time.Duration,
) error {
	if !p.state.IsConnected() {
		if err := p.connectLocked(ctx, 0); err != nil {
			return err
		}
	}

	var next domain.QueueEntry
	if entry != nil {
		next = *entry
	} else {
		dequeued, ok := p.queue.DequeueNext()
		if !ok {
			return p.stopLocked(ctx)
		}
		next = dequeued
	}

	if start <= 0 {
		start = next.Track.StartOffset
	}

	from := p.state
	p.supersedeLocked()
	p.epoch++

	err := p.backend.Play(ctx, p.guildID, next.Track, start, next.Track.EndOffset)
	if err != nil {
		p.current = nil
		p.position = nil
		p.state = domain.PlayerStateIdle
		p.queue.Add(next, domain.PlacementFront, false)
		p.publishLocked(p.eventLocked(domain.PlayerStop, from, nil))
		return fmt.Errorf("failed to play track: %w", err)
	}

	p.current = &next
	p.active = &playback{epoch: p.epoch, handle: next.Track.Handle}
	p.position = &domain.PlaybackPosition{Position: start, Time: p.now()}
	p.state = domain.PlayerStatePlaying

	slog.Debug("playing track",
		"guild", p.guildID,
		"track", next.Track.DisplayName(),
		"epoch", p.epoch,
	)
	p.publishLocked(p.eventLocked(domain.PlayerPlay, from, p.current))
	return nil
}

func (p *GieselaPlayer) skipLocked(ctx context.Context) error {
	from := p.state
	skipped := p.current
	if skipped != nil {
		p.queue.PushHistory(*skipped, p.now())
	}

	p.current = nil
	p.position = nil
	p.state = domain.PlayerStateIdle
	p.publishLocked(p.eventLocked(domain.PlayerSkip, from, skipped))

	return p.playLocked(ctx, nil, 0)
}

func (p *GieselaPlayer) stopLocked(ctx context.Context) error {
	if !p.state.IsConnected() {
		return nil
	}

	from := p.state
	streaming := p.active != nil
	p.supersedeLocked()
	p.epoch++
	p.current = nil
	p.position = nil
	p.state = domain.PlayerStateIdle

	var err error
	if streaming {
		err = p.backend.Stop(ctx, p.guildID)
	}
	if streaming || from != domain.PlayerStateIdle {
		p.publishLocked(p.eventLocked(domain.PlayerStop, from, nil))
	}

	if err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

func (p *GieselaPlayer) handleTrackEndedLocked(ctx context.Context, event domain.BackendEvent) error {
	if i := slices.IndexFunc(p.superseded, func(pb playback) bool {
		return pb.handle == event.Handle
	}); i >= 0 {
		slog.Debug("ignoring end of superseded track",
			"guild", p.guildID,
			"reason", event.Reason,
			"epoch", p.superseded[i].epoch,
		)
		p.superseded = slices.Delete(p.superseded, i, i+1)
		return nil
	}

	// The explicit skip path already recorded the entry.
	if event.Reason == domain.TrackEndReplaced {
		return nil
	}

	if p.active == nil || p.current == nil || p.active.handle != event.Handle {
		slog.Debug("ignoring stale track end",
			"guild", p.guildID,
			"reason", event.Reason,
		)
		return nil
	}

	return p.finishLocked(ctx, event.Reason.StartNext())
}

func (p *GieselaPlayer) finishLocked(ctx context.Context, advance bool) error {
	from := p.state
	finished := p.current
	p.queue.PushHistory(*finished, p.now())

	p.active = nil
	p.epoch++
	p.current = nil
	p.position = nil
	p.state = domain.PlayerStateIdle
	p.publishLocked(p.eventLocked(domain.PlayerFinished, from, finished))

	if !advance {
		return nil
	}
	return p.playLocked(ctx, nil, 0)
}

func (p *GieselaPlayer) supersedeLocked() {
	if p.active == nil {
		return
	}
	p.superseded = append(p.superseded, *p.active)
	p.active = nil
}

// positionLocked estimates the absolute position in the current track.
func (p *GieselaPlayer) positionLocked() time.Duration {
	if p.current == nil {
		return 0
	}
	if p.position == nil {
		return p.current.Track.StartOffset
	}

	position := p.position.Position
	if p.state == domain.PlayerStatePlaying {
		position += p.now().Sub(p.position.Time)
	}
	if end := trackEnd(p.current.Track); end > 0 {
		position = min(position, end)
	}
	return position
}

func (p *GieselaPlayer) progressLocked() time.Duration {
	if p.current == nil {
		return 0
	}
	return max(p.positionLocked()-p.current.Track.StartOffset, 0)
}

func (p *GieselaPlayer) trackTitleLocked(handle string) string {
	if p.current != nil && p.current.Track.Handle == handle {
		return p.current.Track.DisplayName()
	}
	return ""
}

func (p *GieselaPlayer) eventLocked(
	kind domain.PlayerEventKind,
	from domain.PlayerState,
	entry *domain.QueueEntry,
) domain.PlayerStateChangedEvent {
	var copied *domain.QueueEntry
	if entry != nil {
		e := *entry
		copied = &e
	}
	return domain.PlayerStateChangedEvent{
		GuildID:        p.guildID,
		VoiceChannelID: p.voiceChannelID,
		Kind:           kind,
		From:           from,
		To:             p.state,
		Entry:          copied,
		Progress:       p.progressLocked(),
		Volume:         p.volume,
		OldVolume:      p.volume,
	}
}

func (p *GieselaPlayer) publishLocked(event domain.PlayerStateChangedEvent) {
	if p.publisher == nil {
		return
	}
	p.publisher.PublishPlayerStateChanged(event)
}

// trackEnd returns the absolute position where playback of track stops,
// or zero if unknown.
func trackEnd(track domain.TrackDescriptor) time.Duration {
	if track.EndOffset > 0 {
		return track.EndOffset
	}
	if track.IsStream {
		return 0
	}
	return track.Duration
}

func volumePercent(volume float64) int {
	return int(math.Round(volume * 100))
}
