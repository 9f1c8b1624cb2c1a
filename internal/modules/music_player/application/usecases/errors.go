package usecases

import (
	"errors"
	"fmt"
)

// Errors returned by the music player use cases.
var (
	// ErrResolution is returned when a query cannot be matched to playable content.
	ErrResolution = errors.New("no playable content found")

	// ErrWrongContentType is returned when a playlist is given where a single
	// track was expected, or the other way around.
	ErrWrongContentType = errors.New("unexpected content type")

	// ErrNotSeekable is returned when seeking a track that does not support it.
	ErrNotSeekable = errors.New("the current track is not seekable")

	// ErrNoVoiceChannel is returned when no voice channel could be determined.
	ErrNoVoiceChannel = errors.New("no usable voice channel")

	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrNothingToReplay is returned when there is no current or history entry to replay.
	ErrNothingToReplay = errors.New("nothing to replay")

	// ErrNoPlayer is returned when the guild has no player.
	ErrNoPlayer = errors.New("no player for this guild")

	// ErrNotPlaylistAuthor is returned when someone else tries to change a playlist.
	ErrNotPlaylistAuthor = errors.New("only the author can change this playlist")

	// ErrPlaylistEmpty is returned when playing a playlist without tracks.
	ErrPlaylistEmpty = errors.New("the playlist has no tracks")
)

// errNothingToSeek is returned when seeking without a current entry.
// It matches both ErrNotSeekable and ErrNotPlaying.
var errNothingToSeek = fmt.Errorf("%w: %w", ErrNotSeekable, ErrNotPlaying)
