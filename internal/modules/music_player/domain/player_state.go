package domain

// PlayerState is the lifecycle state of a guild's player.
type PlayerState int

const (
	PlayerStateDisconnected PlayerState = iota
	PlayerStatePlaying
	PlayerStatePaused
	PlayerStateIdle
)

// String returns the lowercase state name.
func (s PlayerState) String() string {
	switch s {
	case PlayerStateDisconnected:
		return "disconnected"
	case PlayerStatePlaying:
		return "playing"
	case PlayerStatePaused:
		return "paused"
	case PlayerStateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// IsConnected returns true if a backend session exists.
func (s PlayerState) IsConnected() bool {
	return s != PlayerStateDisconnected
}

// HasCurrent returns true if the state requires a current entry.
func (s PlayerState) HasCurrent() bool {
	return s == PlayerStatePlaying || s == PlayerStatePaused
}

// TrackEndReason represents why the backend ended a track.
type TrackEndReason string

const (
	// TrackEndFinished means the track finished normally.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the track failed to load.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means the track was stopped.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means another track was started in its place.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the backend cleaned up an idle player.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// StartNext returns true if the backend expects the next track to be started.
func (r TrackEndReason) StartNext() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed
}
