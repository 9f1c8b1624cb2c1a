package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

const (
	// MinEnrichmentCertainty is the certainty an enrichment needs to be applied.
	MinEnrichmentCertainty = 0.6

	// DefaultEnrichmentTimeout bounds the enrichment phase of a resolution.
	DefaultEnrichmentTimeout = 3 * time.Second
)

// ResolveResult is the outcome of resolving one query.
type ResolveResult struct {
	Tracks       []domain.TrackDescriptor
	IsPlaylist   bool
	PlaylistName string
}

// ResolveOutcome is the per-query result of ResolveMany.
type ResolveOutcome struct {
	Query  string
	Result *ResolveResult
	Err    error
}

// ResolverService turns user queries into track descriptors.
type ResolverService struct {
	loader    ports.TrackLoader
	enrichers []ports.Enricher
	timeout   time.Duration
}

// NewResolverService creates a new ResolverService.
// A non-positive timeout uses DefaultEnrichmentTimeout.
func NewResolverService(
	loader ports.TrackLoader,
	timeout time.Duration,
	enrichers ...ports.Enricher,
) *ResolverService {
	if timeout <= 0 {
		timeout = DefaultEnrichmentTimeout
	}
	return &ResolverService{
		loader:    loader,
		enrichers: enrichers,
		timeout:   timeout,
	}
}

// Resolve loads a URL or search query. Searches take the first hit.
// Single tracks are enriched, playlists are returned as loaded.
func (r *ResolverService) Resolve(ctx context.Context, query string) (*ResolveResult, error) {
	if r.loader == nil {
		return nil, ErrNotConnected
	}
	q := domain.NewSearchQuery(query)
	if !q.IsValid() {
		return nil, ErrResolution
	}

	result, err := r.loader.LoadTracks(ctx, q.LoaderQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	resolved := &ResolveResult{}
	switch result.Type {
	case ports.LoadTypePlaylist:
		resolved.IsPlaylist = true
		resolved.PlaylistName = result.PlaylistName
		resolved.Tracks = result.Tracks
	case ports.LoadTypeTrack, ports.LoadTypeSearch:
		if len(result.Tracks) > 0 {
			resolved.Tracks = []domain.TrackDescriptor{result.Tracks[0]}
		}
	case ports.LoadTypeError:
		return nil, fmt.Errorf("%w: %s", ErrResolution, result.Error)
	}

	if len(resolved.Tracks) == 0 {
		return nil, ErrResolution
	}
	if !resolved.IsPlaylist {
		resolved.Tracks[0] = r.enrich(ctx, resolved.Tracks[0])
	}

	return resolved, nil
}

// ResolveTrack resolves a query that must name a single track.
func (r *ResolverService) ResolveTrack(ctx context.Context, query string) (domain.TrackDescriptor, error) {
	result, err := r.Resolve(ctx, query)
	if err != nil {
		return domain.TrackDescriptor{}, err
	}
	if result.IsPlaylist {
		return domain.TrackDescriptor{}, ErrWrongContentType
	}
	return result.Tracks[0], nil
}

// ResolvePlaylist resolves a query that must name a playlist.
func (r *ResolverService) ResolvePlaylist(ctx context.Context, query string) (*ResolveResult, error) {
	result, err := r.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	if !result.IsPlaylist {
		return nil, ErrWrongContentType
	}
	return result, nil
}

// ResolveMany resolves every query in order. A failing query does not
// affect the others.
func (r *ResolverService) ResolveMany(ctx context.Context, queries []string) []ResolveOutcome {
	outcomes := make([]ResolveOutcome, 0, len(queries))
	for _, query := range queries {
		result, err := r.Resolve(ctx, query)
		outcomes = append(outcomes, ResolveOutcome{Query: query, Result: result, Err: err})
	}
	return outcomes
}

// Search returns up to limit candidates for a query without enrichment.
// Failures yield no candidates.
func (r *ResolverService) Search(ctx context.Context, query string, limit int) (*ResolveResult, error) {
	if r.loader == nil {
		return nil, ErrNotConnected
	}
	q := domain.NewSearchQuery(query)
	if !q.IsValid() {
		return &ResolveResult{}, nil
	}

	result, err := r.loader.LoadTracks(ctx, q.LoaderQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	if result.Type == ports.LoadTypeEmpty || result.Type == ports.LoadTypeError {
		return &ResolveResult{}, nil
	}

	tracks := result.Tracks
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return &ResolveResult{
		Tracks:       tracks,
		IsPlaylist:   result.Type == ports.LoadTypePlaylist,
		PlaylistName: result.PlaylistName,
	}, nil
}

// enrich races all enrichers and applies the first confident answer.
// Lookups still running at the deadline are abandoned.
func (r *ResolverService) enrich(ctx context.Context, track domain.TrackDescriptor) domain.TrackDescriptor {
	if len(r.enrichers) == 0 || track.IsStream {
		return track
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results := make(chan *domain.Enrichment, len(r.enrichers))
	for _, enricher := range r.enrichers {
		go func() {
			found, err := enricher.Lookup(ctx, track)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					slog.Debug("enrichment lookup failed",
						"enricher", enricher.Name(),
						"track", track.Title,
						"error", err,
					)
				}
				found = nil
			}
			results <- found
		}()
	}

	for range r.enrichers {
		select {
		case found := <-results:
			if found != nil && found.Certainty >= MinEnrichmentCertainty {
				slog.Debug("enriched track",
					"track", track.Title,
					"source", found.Source,
					"certainty", found.Certainty,
				)
				return track.WithEnrichment(*found)
			}
		case <-ctx.Done():
			slog.Debug("enrichment timed out", "track", track.Title)
			return track
		}
	}
	return track
}
