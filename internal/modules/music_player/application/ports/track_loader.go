package ports

import (
	"context"

	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// TrackLoader defines the interface for loading/searching tracks.
type TrackLoader interface {
	// LoadTracks resolves a URL or prefixed search query.
	LoadTracks(ctx context.Context, query string) (*LoadResult, error)
}

// Enricher looks up descriptive metadata for a track.
// Implementations must honor ctx cancellation.
type Enricher interface {
	// Name identifies the enricher in logs.
	Name() string

	// Lookup returns nil without error when nothing matched.
	Lookup(ctx context.Context, track domain.TrackDescriptor) (*domain.Enrichment, error)
}
