package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

const (
	artworkProbeTimeout = 5 * time.Second
	artworkCacheSize    = 512
)

var youtubeThumbnailQualities = []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"}

// artworkResolver finds the largest available artwork of a track. Probed
// results are cached per track so replays and restarts of the same entry
// do not repeat the requests.
type artworkResolver struct {
	exists func(ctx context.Context, url string) bool

	mu    sync.Mutex
	cache map[string]string
}

func newArtworkResolver(client *http.Client) *artworkResolver {
	return &artworkResolver{
		exists: func(ctx context.Context, url string) bool {
			return urlExists(ctx, client, url)
		},
		cache: make(map[string]string),
	}
}

// Resolve returns the best artwork URL, falling back to the track's own artwork.
func (a *artworkResolver) Resolve(track domain.TrackDescriptor) string {
	if a == nil {
		return track.ArtworkURL
	}

	key := track.Key()
	a.mu.Lock()
	cached, ok := a.cache[key]
	a.mu.Unlock()
	if ok {
		return cached
	}

	ctx, cancel := context.WithTimeout(context.Background(), artworkProbeTimeout)
	defer cancel()

	best := track.ArtworkURL
	for _, candidate := range artworkCandidates(track) {
		if a.exists(ctx, candidate) {
			best = candidate
			break
		}
	}

	a.mu.Lock()
	if len(a.cache) >= artworkCacheSize {
		clear(a.cache)
	}
	a.cache[key] = best
	a.mu.Unlock()

	return best
}

// artworkCandidates lists larger variants of a track's artwork, best first.
func artworkCandidates(track domain.TrackDescriptor) []string {
	switch track.Source() {
	case domain.TrackSourceYouTube:
		if track.Identifier == "" {
			return nil
		}
		candidates := make([]string, len(youtubeThumbnailQualities))
		for i, quality := range youtubeThumbnailQualities {
			candidates[i] = fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", track.Identifier, quality)
		}
		return candidates
	case domain.TrackSourceTwitch:
		return upscaled(track.ArtworkURL, "440x248", "1280x720")
	case domain.TrackSourceSoundCloud:
		return upscaled(track.ArtworkURL, "-large.", "-t500x500.")
	default:
		return nil
	}
}

func upscaled(artworkURL, small, large string) []string {
	if artworkURL == "" || !strings.Contains(artworkURL, small) {
		return nil
	}
	return []string{strings.Replace(artworkURL, small, large, 1)}
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func urlExists(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}
