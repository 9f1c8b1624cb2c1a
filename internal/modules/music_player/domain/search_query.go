package domain

import (
	"strings"
)

// SearchSource is the Lavalink search prefix used for free-text queries.
type SearchSource string

const (
	// SourceYouTube searches YouTube.
	SourceYouTube SearchSource = "ytsearch"
	// SourceYouTubeMusic searches YouTube Music.
	SourceYouTubeMusic SearchSource = "ytmsearch"
	// SourceSoundCloud searches SoundCloud.
	SourceSoundCloud SearchSource = "scsearch"
	// SourceDirect indicates a direct URL (no search prefix).
	SourceDirect SearchSource = ""
)

// SearchQuery is a user query normalized for the track loader.
type SearchQuery struct {
	Query  string       // The search term or URL
	Source SearchSource // The search source
	IsURL  bool         // Whether the query is a direct URL
}

// NewSearchQuery creates a SearchQuery from user input, searching YouTube
// unless the input is a URL.
func NewSearchQuery(input string) SearchQuery {
	return NewSearchQueryWithSource(input, SourceYouTube)
}

// NewSearchQueryWithSource creates a SearchQuery with a specific search source.
func NewSearchQueryWithSource(input string, source SearchSource) SearchQuery {
	input = strings.Trim(strings.TrimSpace(input), "<>")

	if isURL(input) {
		return SearchQuery{Query: input, Source: SourceDirect, IsURL: true}
	}
	return SearchQuery{Query: input, Source: source}
}

// LoaderQuery returns the query string formatted for Lavalink.
func (q SearchQuery) LoaderQuery() string {
	if q.IsURL || q.Source == SourceDirect {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// IsValid returns true if the query is not empty.
func (q SearchQuery) IsValid() bool {
	return q.Query != ""
}

// SplitQueries splits pasted input into separate queries when every
// whitespace-separated part is a URL. Anything else is a single query.
func SplitQueries(input string) []string {
	fields := strings.Fields(input)
	if len(fields) < 2 {
		return []string{strings.TrimSpace(input)}
	}
	for _, field := range fields {
		if !isURL(strings.Trim(field, "<>")) {
			return []string{strings.TrimSpace(input)}
		}
	}
	return fields
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}
