package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// QueueChangeKind identifies a queue mutation.
type QueueChangeKind string

const (
	QueueEntryAdded    QueueChangeKind = "added"
	QueueEntriesAdded  QueueChangeKind = "batch_added"
	QueueEntryRemoved  QueueChangeKind = "removed"
	QueueEntryMoved    QueueChangeKind = "moved"
	QueueEntryPromoted QueueChangeKind = "promoted"
	QueueShuffled      QueueChangeKind = "shuffled"
	QueueCleared       QueueChangeKind = "cleared"
	QueueHistoryPushed QueueChangeKind = "history"
)

// QueueSnapshot is a consistent copy of a queue taken right after a mutation.
type QueueSnapshot struct {
	Entries       []QueueEntry
	History       []QueueEntry
	TotalDuration time.Duration
}

// QueueChangedEvent is published after every queue mutation.
type QueueChangedEvent struct {
	GuildID  snowflake.ID
	Kind     QueueChangeKind
	Entry    *QueueEntry // the entry the mutation was about, if any
	Count    int         // number of entries affected
	Snapshot QueueSnapshot
}

// PlayerEventKind identifies a player transition.
type PlayerEventKind string

const (
	PlayerConnected    PlayerEventKind = "connect"
	PlayerDisconnected PlayerEventKind = "disconnect"
	PlayerPlay         PlayerEventKind = "play"
	PlayerPause        PlayerEventKind = "pause"
	PlayerResume       PlayerEventKind = "resume"
	PlayerSeek         PlayerEventKind = "seek"
	PlayerSkip         PlayerEventKind = "skip"
	PlayerStop         PlayerEventKind = "stop"
	PlayerFinished     PlayerEventKind = "finished"
	PlayerVolume       PlayerEventKind = "volume"
)

// PlayerStateChangedEvent is published after every player transition.
type PlayerStateChangedEvent struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
	Kind           PlayerEventKind
	From           PlayerState
	To             PlayerState
	Entry          *QueueEntry // current entry after the transition, or the finished entry
	Progress       time.Duration
	Volume         float64
	OldVolume      float64
}

// BackendEventKind identifies an event emitted by the audio backend.
type BackendEventKind string

const (
	BackendTrackStarted   BackendEventKind = "track_started"
	BackendTrackEnded     BackendEventKind = "track_ended"
	BackendTrackException BackendEventKind = "track_exception"
	BackendTrackStuck     BackendEventKind = "track_stuck"
	BackendPlayerUpdate   BackendEventKind = "player_update"
)

// BackendEvent is a guild-scoped event reported by the audio backend.
type BackendEvent struct {
	GuildID  snowflake.ID
	Kind     BackendEventKind
	Handle   string         // encoded track the event refers to
	Reason   TrackEndReason // track_ended only
	Position time.Duration  // player_update only
	Time     time.Time      // when the backend measured Position
	Error    string         // track_exception only
}

// PlaybackPosition is the last position reported by the backend.
type PlaybackPosition struct {
	Position time.Duration
	Time     time.Time
}
