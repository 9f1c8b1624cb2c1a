package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
	"golang.org/x/time/rate"
)

const recordingResponse = `{
	"recordings": [{
		"id": "8f3471b5-7e6a-48da-86a9-c1c07a0f47ae",
		"score": 100,
		"title": "Midnight City",
		"artist-credit": [{"name": "M83", "joinphrase": ""}],
		"releases": [{"id": "0c4c4b3d-2bb7-4a1b-9b47-6f4f3ed5d0a2", "title": "Hurry Up, We're Dreaming"}]
	}]
}`

func newTestMusicBrainz(handler http.HandlerFunc) (*MusicBrainz, *httptest.Server) {
	server := httptest.NewServer(handler)
	enricher := NewMusicBrainz()
	enricher.baseURL = server.URL
	enricher.limiter = rate.NewLimiter(rate.Inf, 1)
	return enricher, server
}

func TestMusicBrainz_Lookup(t *testing.T) {
	var gotQuery, gotAgent string
	enricher, server := newTestMusicBrainz(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotAgent = r.Header.Get("User-Agent")
		if r.URL.Path != "/recording" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(recordingResponse))
	})
	defer server.Close()

	enrichment, err := enricher.Lookup(context.Background(), domain.TrackDescriptor{
		Title:      "Midnight City",
		Artist:     "M83",
		SourceName: "soundcloud",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery != "M83 Midnight City" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if gotAgent == "" {
		t.Error("expected a user agent")
	}
	if enrichment.Album != "Hurry Up, We're Dreaming" {
		t.Errorf("unexpected album %q", enrichment.Album)
	}
	if enrichment.ArtworkURL != coverArtArchiveURL+"/0c4c4b3d-2bb7-4a1b-9b47-6f4f3ed5d0a2/front-250" {
		t.Errorf("unexpected artwork %q", enrichment.ArtworkURL)
	}
	if enrichment.Certainty != 1 {
		t.Errorf("expected certainty 1, got %v", enrichment.Certainty)
	}
}

func TestMusicBrainz_LookupNoMatch(t *testing.T) {
	enricher, server := newTestMusicBrainz(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"recordings": []}`))
	})
	defer server.Close()

	enrichment, err := enricher.Lookup(context.Background(), domain.TrackDescriptor{Title: "nothing"})
	if err != nil || enrichment != nil {
		t.Errorf("expected no result and no error, got %+v, %v", enrichment, err)
	}
}

func TestMusicBrainz_LookupErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"recordings": [`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enricher, server := newTestMusicBrainz(tt.handler)
			defer server.Close()

			if _, err := enricher.Lookup(context.Background(), domain.TrackDescriptor{Title: "anything"}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestJoinArtistCredit(t *testing.T) {
	credits := []artistCredit{
		{Name: "Daft Punk", JoinPhrase: " feat. "},
		{Name: "Romanthony"},
	}
	if got := joinArtistCredit(credits); got != "Daft Punk feat. Romanthony" {
		t.Errorf("expected %q, got %q", "Daft Punk feat. Romanthony", got)
	}
}
