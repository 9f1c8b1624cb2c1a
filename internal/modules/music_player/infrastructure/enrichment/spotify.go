package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// spotifySearcher is the part of *spotify.Client the enricher needs.
type spotifySearcher interface {
	Search(
		ctx context.Context,
		query string,
		t spotify.SearchType,
		opts ...spotify.RequestOption,
	) (*spotify.SearchResult, error)
}

// Spotify enriches tracks with the best Spotify search hit.
type Spotify struct {
	client spotifySearcher
}

// NewSpotify creates a Spotify enricher authenticated with the client
// credentials flow. No user login is required.
func NewSpotify(ctx context.Context, clientID, clientSecret string) *Spotify {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return &Spotify{client: spotify.New(config.Client(ctx))}
}

// Name identifies the enricher in logs.
func (s *Spotify) Name() string {
	return "spotify"
}

// Lookup searches Spotify for the track.
func (s *Spotify) Lookup(ctx context.Context, track domain.TrackDescriptor) (*domain.Enrichment, error) {
	query := SearchQuery(track)
	if query == "" {
		return nil, nil
	}

	results, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to search spotify: %w", err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, nil
	}

	found := results.Tracks.Tracks[0]
	artists := make([]string, 0, 2)
	for _, artist := range found.Artists {
		if len(artists) == 2 {
			break
		}
		artists = append(artists, artist.Name)
	}

	enrichment := &domain.Enrichment{
		Source: s.Name(),
		Title:  found.Name,
		Artist: strings.Join(artists, " & "),
		Album:  found.Album.Name,
	}
	if len(found.Album.Images) > 0 {
		enrichment.ArtworkURL = found.Album.Images[0].URL
	}
	if len(artists) > 0 {
		enrichment.Certainty = Certainty(query, artists[0], found.Name)
	}

	return enrichment, nil
}

var _ ports.Enricher = (*Spotify)(nil)
