package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/disgoorg/json"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
	"golang.org/x/time/rate"
)

const (
	musicBrainzBaseURL   = "https://musicbrainz.org/ws/2"
	coverArtArchiveURL   = "https://coverartarchive.org/release"
	musicBrainzUserAgent = "Giesela/1.0 (https://github.com/sglre6355/giesela)"
)

type recordingSearchResponse struct {
	Recordings []recording `json:"recordings"`
}

type recording struct {
	ID           string         `json:"id"`
	Score        int            `json:"score"`
	Title        string         `json:"title"`
	ArtistCredit []artistCredit `json:"artist-credit"`
	Releases     []release      `json:"releases"`
}

type artistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
}

type release struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MusicBrainz enriches tracks with MusicBrainz recording search results.
type MusicBrainz struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewMusicBrainz creates a MusicBrainz enricher limited to one request per
// second, as the service requires.
func NewMusicBrainz() *MusicBrainz {
	return &MusicBrainz{
		baseURL:    musicBrainzBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Name identifies the enricher in logs.
func (m *MusicBrainz) Name() string {
	return "musicbrainz"
}

// Lookup searches MusicBrainz recordings for the track.
func (m *MusicBrainz) Lookup(ctx context.Context, track domain.TrackDescriptor) (*domain.Enrichment, error) {
	query := SearchQuery(track)
	if query == "" {
		return nil, nil
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("fmt", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/recording?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", musicBrainzUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query musicbrainz: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("musicbrainz returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var result recordingSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Recordings) == 0 {
		return nil, nil
	}

	found := result.Recordings[0]
	artist := joinArtistCredit(found.ArtistCredit)

	enrichment := &domain.Enrichment{
		Source: m.Name(),
		Title:  found.Title,
		Artist: artist,
		// the search score says how well the query matched, not whether it is the same song
		Certainty: Certainty(query, artist, found.Title) * float64(found.Score) / 100,
	}
	if len(found.Releases) > 0 {
		enrichment.Album = found.Releases[0].Title
		enrichment.ArtworkURL = fmt.Sprintf("%s/%s/front-250", coverArtArchiveURL, found.Releases[0].ID)
	}

	return enrichment, nil
}

func joinArtistCredit(credits []artistCredit) string {
	var b strings.Builder
	for _, credit := range credits {
		b.WriteString(credit.Name)
		b.WriteString(credit.JoinPhrase)
	}
	return strings.TrimSpace(b.String())
}

var _ ports.Enricher = (*MusicBrainz)(nil)
