package enrichment

import (
	"context"
	"fmt"

	"github.com/shkh/lastfm-go/lastfm"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// lastfmCandidate is one track match of a Last.fm search.
type lastfmCandidate struct {
	Name     string
	Artist   string
	ImageURL string
}

// LastFM enriches tracks with Last.fm track search results.
type LastFM struct {
	search func(query string) ([]lastfmCandidate, error)
}

// NewLastFM creates a Last.fm enricher. Searching needs no user session.
func NewLastFM(apiKey, apiSecret string) *LastFM {
	api := lastfm.New(apiKey, apiSecret)
	return &LastFM{
		search: func(query string) ([]lastfmCandidate, error) {
			result, err := api.Track.Search(lastfm.P{
				"track": query,
				"limit": 1,
			})
			if err != nil {
				return nil, err
			}

			candidates := make([]lastfmCandidate, 0, len(result.Tracks))
			for _, track := range result.Tracks {
				candidate := lastfmCandidate{Name: track.Name, Artist: track.Artist}
				// images are ordered small to extralarge
				if n := len(track.Images); n > 0 {
					candidate.ImageURL = track.Images[n-1].Url
				}
				candidates = append(candidates, candidate)
			}
			return candidates, nil
		},
	}
}

// Name identifies the enricher in logs.
func (l *LastFM) Name() string {
	return "lastfm"
}

// Lookup searches Last.fm for the track. The client library is blocking,
// so the search runs in its own goroutine and ctx only bounds the wait.
func (l *LastFM) Lookup(ctx context.Context, track domain.TrackDescriptor) (*domain.Enrichment, error) {
	query := SearchQuery(track)
	if query == "" {
		return nil, nil
	}

	type outcome struct {
		candidates []lastfmCandidate
		err        error
	}
	done := make(chan outcome, 1)
	go func() {
		candidates, err := l.search(query)
		done <- outcome{candidates: candidates, err: err}
	}()

	var result outcome
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result = <-done:
	}

	if result.err != nil {
		return nil, fmt.Errorf("failed to search last.fm: %w", result.err)
	}
	if len(result.candidates) == 0 {
		return nil, nil
	}

	found := result.candidates[0]
	return &domain.Enrichment{
		Source:     l.Name(),
		Title:      found.Name,
		Artist:     found.Artist,
		ArtworkURL: found.ImageURL,
		Certainty:  Certainty(query, found.Artist, found.Name),
	}, nil
}

var _ ports.Enricher = (*LastFM)(nil)
