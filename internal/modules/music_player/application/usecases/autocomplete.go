package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// DefaultAutocompleteLimit leaves room for the "add whole playlist" choice
// within Discord's 25 choices.
const DefaultAutocompleteLimit = 24

// SearchTracksInput contains the input for the SearchTracks use case.
type SearchTracksInput struct {
	Query string
	Limit int
}

// SearchTracksOutput contains the result of the SearchTracks use case.
type SearchTracksOutput struct {
	IsPlaylist   bool
	PlaylistName string
	PlaylistURL  string // original query, used for the "add all" option
	TrackCount   int    // total tracks found
	Tracks       []domain.TrackDescriptor
}

// AutocompleteService handles autocomplete-related operations.
type AutocompleteService struct {
	players  *PlayerManager
	resolver *ResolverService
}

// NewAutocompleteService creates a new AutocompleteService.
func NewAutocompleteService(players *PlayerManager, resolver *ResolverService) *AutocompleteService {
	return &AutocompleteService{
		players:  players,
		resolver: resolver,
	}
}

// QueueEntries returns the pending entries of a guild, nil without a player.
func (s *AutocompleteService) QueueEntries(guildID snowflake.ID) []domain.QueueEntry {
	player := s.players.Get(guildID)
	if player == nil {
		return nil
	}
	return player.Queue().Entries()
}

// HistoryEntries returns the history of a guild, nil without a player.
func (s *AutocompleteService) HistoryEntries(guildID snowflake.ID) []domain.QueueEntry {
	player := s.players.Get(guildID)
	if player == nil {
		return nil
	}
	return player.Queue().History()
}

// SearchTracks loads candidates for the play command.
// For playlists it returns the playlist metadata and a limited list of tracks.
func (s *AutocompleteService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	if s.resolver == nil || input.Query == "" {
		return &SearchTracksOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultAutocompleteLimit
	}

	result, err := s.resolver.Search(ctx, input.Query, 0)
	if err != nil {
		return nil, err
	}

	tracks := result.Tracks
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}

	output := &SearchTracksOutput{
		IsPlaylist:   result.IsPlaylist,
		PlaylistName: result.PlaylistName,
		TrackCount:   len(result.Tracks),
		Tracks:       tracks,
	}
	if result.IsPlaylist {
		output.PlaylistURL = input.Query
	}
	return output, nil
}
