package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// PlaylistCreateInput contains the input for the PlaylistCreate use case.
type PlaylistCreateInput struct {
	Name        string
	Description string
	AuthorID    snowflake.ID
}

// PlaylistDeleteInput contains the input for the PlaylistDelete use case.
type PlaylistDeleteInput struct {
	Name   string
	UserID snowflake.ID
}

// PlaylistAddInput contains the input for the PlaylistAdd use case.
type PlaylistAddInput struct {
	GuildID snowflake.ID
	UserID  snowflake.ID
	Name    string
	Query   string // empty saves the entry that is playing now
}

// PlaylistAddOutput contains the result of the PlaylistAdd use case.
type PlaylistAddOutput struct {
	Playlist   domain.SavedPlaylist
	Added      []domain.TrackDescriptor
	Duplicates int // resolved tracks that were already saved
}

// PlaylistRemoveInput contains the input for the PlaylistRemove use case.
type PlaylistRemoveInput struct {
	UserID   snowflake.ID
	Name     string
	Position int // 0-indexed
}

// PlaylistRemoveOutput contains the result of the PlaylistRemove use case.
type PlaylistRemoveOutput struct {
	Playlist domain.SavedPlaylist
	Removed  domain.TrackDescriptor
}

// PlaylistShowInput contains the input for the PlaylistShow use case.
type PlaylistShowInput struct {
	Name     string
	Page     int
	PageSize int
}

// PlaylistShowOutput contains the result of the PlaylistShow use case.
type PlaylistShowOutput struct {
	Playlist    domain.SavedPlaylist
	Tracks      []domain.TrackDescriptor
	Offset      int
	CurrentPage int
	TotalPages  int
}

// PlaylistPlayInput contains the input for the PlaylistPlay use case.
type PlaylistPlayInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	Name                  string
	Shuffle               bool
	NotificationChannelID snowflake.ID
}

// PlaylistPlayOutput contains the result of the PlaylistPlay use case.
type PlaylistPlayOutput struct {
	Playlist domain.SavedPlaylist
	Count    int
	Started  bool
}

// PlaylistService manages saved playlists and loads them into players.
type PlaylistService struct {
	store    ports.PlaylistStore
	players  *PlayerManager
	resolver *ResolverService
	voice    *VoiceChannelService
	channels *NotificationChannelService
	now      func() time.Time
}

// NewPlaylistService creates a new PlaylistService.
func NewPlaylistService(
	store ports.PlaylistStore,
	players *PlayerManager,
	resolver *ResolverService,
	voice *VoiceChannelService,
	channels *NotificationChannelService,
) *PlaylistService {
	return &PlaylistService{
		store:    store,
		players:  players,
		resolver: resolver,
		voice:    voice,
		channels: channels,
		now:      time.Now,
	}
}

// Create saves a new empty playlist.
func (s *PlaylistService) Create(ctx context.Context, input PlaylistCreateInput) (*domain.SavedPlaylist, error) {
	playlist, err := domain.NewSavedPlaylist(input.Name, input.AuthorID, s.now())
	if err != nil {
		return nil, err
	}
	playlist.Description = input.Description

	_, err = s.store.LoadPlaylist(ctx, playlist.ID)
	switch {
	case err == nil:
		return nil, domain.ErrPlaylistExists
	case !errors.Is(err, domain.ErrPlaylistNotFound):
		return nil, fmt.Errorf("failed to look up playlist: %w", err)
	}

	if err := s.store.SavePlaylist(ctx, playlist); err != nil {
		return nil, err
	}
	slog.Info("created playlist", "playlist", playlist.ID, "author", playlist.AuthorID)
	return &playlist, nil
}

// Delete removes a playlist. Only its author may delete it.
func (s *PlaylistService) Delete(ctx context.Context, input PlaylistDeleteInput) (*domain.SavedPlaylist, error) {
	playlist, err := s.editable(ctx, input.Name, input.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeletePlaylist(ctx, playlist.ID); err != nil {
		return nil, err
	}
	slog.Info("deleted playlist", "playlist", playlist.ID)
	return &playlist, nil
}

// AddTrack saves the resolved query, or the entry playing in the guild when
// no query is given. Tracks already in the playlist are skipped.
func (s *PlaylistService) AddTrack(ctx context.Context, input PlaylistAddInput) (*PlaylistAddOutput, error) {
	playlist, err := s.editable(ctx, input.Name, input.UserID)
	if err != nil {
		return nil, err
	}

	tracks, err := s.tracksToAdd(ctx, input)
	if err != nil {
		return nil, err
	}

	added := playlist.AddTracks(tracks)
	output := &PlaylistAddOutput{
		Added:      added,
		Duplicates: len(tracks) - len(added),
	}
	if len(added) > 0 {
		if err := s.store.SavePlaylist(ctx, playlist); err != nil {
			return nil, err
		}
	}
	output.Playlist = playlist
	return output, nil
}

func (s *PlaylistService) tracksToAdd(ctx context.Context, input PlaylistAddInput) ([]domain.TrackDescriptor, error) {
	if input.Query == "" {
		player := s.players.Get(input.GuildID)
		if player == nil {
			return nil, ErrNotPlaying
		}
		current := player.Current()
		if current == nil {
			return nil, ErrNotPlaying
		}
		// saved playlists keep whole tracks
		return []domain.TrackDescriptor{current.Track.WithTrim(0, 0)}, nil
	}

	result, err := s.resolver.Resolve(ctx, input.Query)
	if err != nil {
		return nil, err
	}
	return result.Tracks, nil
}

// RemoveTrack removes the track at a playlist position.
func (s *PlaylistService) RemoveTrack(ctx context.Context, input PlaylistRemoveInput) (*PlaylistRemoveOutput, error) {
	playlist, err := s.editable(ctx, input.Name, input.UserID)
	if err != nil {
		return nil, err
	}

	removed, err := playlist.RemoveTrack(input.Position)
	if err != nil {
		return nil, err
	}
	if err := s.store.SavePlaylist(ctx, playlist); err != nil {
		return nil, err
	}
	return &PlaylistRemoveOutput{Playlist: playlist, Removed: removed}, nil
}

// List returns all saved playlists ordered by name.
func (s *PlaylistService) List(ctx context.Context) ([]domain.SavedPlaylist, error) {
	return s.store.ListPlaylists(ctx)
}

// Show returns one page of a playlist's tracks.
func (s *PlaylistService) Show(ctx context.Context, input PlaylistShowInput) (*PlaylistShowOutput, error) {
	playlist, err := s.store.LoadPlaylist(ctx, domain.PlaylistID(input.Name))
	if err != nil {
		return nil, err
	}

	page, totalPages, start, end := paginate(len(playlist.Tracks), input.Page, input.PageSize)
	return &PlaylistShowOutput{
		Playlist:    playlist,
		Tracks:      playlist.Tracks[start:end],
		Offset:      start,
		CurrentPage: page,
		TotalPages:  totalPages,
	}, nil
}

// Play joins the user's voice channel if needed and appends every track of
// the playlist to the queue, shuffled on request.
func (s *PlaylistService) Play(ctx context.Context, input PlaylistPlayInput) (*PlaylistPlayOutput, error) {
	s.channels.Set(SetNotificationChannelInput{
		GuildID:   input.GuildID,
		ChannelID: input.NotificationChannelID,
	})

	playlist, err := s.store.LoadPlaylist(ctx, domain.PlaylistID(input.Name))
	if err != nil {
		return nil, err
	}
	if len(playlist.Tracks) == 0 {
		return nil, ErrPlaylistEmpty
	}

	player, err := joinedPlayer(ctx, s.players, s.voice, input.GuildID, input.UserID)
	if err != nil {
		return nil, err
	}

	entries := playlist.Entries(input.UserID)
	if input.Shuffle {
		entries = lo.Shuffle(entries)
	}

	result, err := player.Enqueue(ctx, entries, domain.PlacementEnd)
	output := &PlaylistPlayOutput{Playlist: playlist, Count: result.Count, Started: result.Started}
	if err != nil {
		return output, err
	}

	playlist.Replays++
	if err := s.store.SavePlaylist(ctx, playlist); err != nil {
		slog.Warn("failed to update playlist replay count", "playlist", playlist.ID, "error", err)
	} else {
		output.Playlist = playlist
	}
	return output, nil
}

// editable loads a playlist and checks that userID may change it.
func (s *PlaylistService) editable(ctx context.Context, name string, userID snowflake.ID) (domain.SavedPlaylist, error) {
	playlist, err := s.store.LoadPlaylist(ctx, domain.PlaylistID(name))
	if err != nil {
		return domain.SavedPlaylist{}, err
	}
	if playlist.AuthorID != userID {
		return domain.SavedPlaylist{}, ErrNotPlaylistAuthor
	}
	return playlist, nil
}
