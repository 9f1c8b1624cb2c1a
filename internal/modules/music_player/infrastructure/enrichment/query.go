// Package enrichment looks up descriptive metadata for loaded tracks on
// Spotify, Last.fm and MusicBrainz.
package enrichment

import (
	"regexp"
	"strings"

	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

var (
	bracketed   = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|<[^>]*>|【[^】]*】`)
	whitespace  = regexp.MustCompile(`\s+`)
	cutMarkers  = []string{"|", " download", " ft.", " ft ", " feat", " lyric", " official"}
	titleQuotes = strings.NewReplacer(`"`, "", "'", "", "“", "", "”", "")
)

// SearchQuery turns a track into a search string for metadata services.
// Video titles carry noise like "(Official Video)" or "| Lyrics" which is cut off.
func SearchQuery(track domain.TrackDescriptor) string {
	title := cleanTitle(track.Title)
	if strings.Contains(title, " - ") || track.Artist == "" || track.Source() == domain.TrackSourceYouTube {
		// YouTube uploaders are rarely the artist; the title usually names both.
		return strings.Replace(title, " - ", " ", 1)
	}
	return cleanTitle(track.Artist) + " " + title
}

func cleanTitle(title string) string {
	title = bracketed.ReplaceAllString(title, "")
	title = titleQuotes.Replace(title)

	lower := strings.ToLower(title)
	for _, marker := range cutMarkers {
		// keep at least a few characters so titles starting with a marker survive
		if i := strings.Index(lower, marker); i > 3 {
			title = title[:i]
			lower = lower[:i]
		}
	}

	return strings.TrimSpace(whitespace.ReplaceAllString(title, " "))
}

// Certainty rates how well a found artist and title match the query.
func Certainty(query, artist, title string) float64 {
	query = strings.ToLower(query)
	artist = strings.ToLower(artist)
	title = strings.ToLower(cleanTitle(title))

	return max(
		domain.Similarity(query, artist+" "+title),
		domain.Similarity(query, title+" "+artist),
	)
}
