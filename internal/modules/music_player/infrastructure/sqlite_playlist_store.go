package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// SavePlaylist inserts or replaces a playlist.
func (s *SQLiteStateStore) SavePlaylist(ctx context.Context, playlist domain.SavedPlaylist) error {
	tracks := playlist.Tracks
	if tracks == nil {
		tracks = []domain.TrackDescriptor{}
	}
	data, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("failed to encode playlist tracks: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_playlists (id, name, author_id, description, replays, created_at, tracks)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			author_id = excluded.author_id,
			description = excluded.description,
			replays = excluded.replays,
			tracks = excluded.tracks`,
		playlist.ID,
		playlist.Name,
		playlist.AuthorID.String(),
		playlist.Description,
		playlist.Replays,
		playlist.CreatedAt.Unix(),
		string(data),
	); err != nil {
		return fmt.Errorf("failed to save playlist %s: %w", playlist.ID, err)
	}
	return nil
}

// LoadPlaylist returns the playlist with the given ID.
func (s *SQLiteStateStore) LoadPlaylist(ctx context.Context, id string) (domain.SavedPlaylist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, author_id, description, replays, created_at, tracks
		FROM saved_playlists
		WHERE id = ?`,
		id,
	)

	playlist, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SavedPlaylist{}, domain.ErrPlaylistNotFound
	}
	return playlist, err
}

// DeletePlaylist removes a playlist.
func (s *SQLiteStateStore) DeletePlaylist(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM saved_playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrPlaylistNotFound
	}
	return nil
}

// ListPlaylists returns all playlists ordered by name.
func (s *SQLiteStateStore) ListPlaylists(ctx context.Context) ([]domain.SavedPlaylist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, author_id, description, replays, created_at, tracks
		FROM saved_playlists
		ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []domain.SavedPlaylist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row rowScanner) (domain.SavedPlaylist, error) {
	var (
		playlist    domain.SavedPlaylist
		rawAuthorID string
		createdAt   int64
		rawTracks   string
	)
	err := row.Scan(
		&playlist.ID,
		&playlist.Name,
		&rawAuthorID,
		&playlist.Description,
		&playlist.Replays,
		&createdAt,
		&rawTracks,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SavedPlaylist{}, err
	}
	if err != nil {
		return domain.SavedPlaylist{}, fmt.Errorf("failed to scan playlist: %w", err)
	}

	authorID, err := snowflake.Parse(rawAuthorID)
	if err != nil {
		return domain.SavedPlaylist{}, fmt.Errorf("invalid author id %q: %w", rawAuthorID, err)
	}
	playlist.AuthorID = authorID
	playlist.CreatedAt = time.Unix(createdAt, 0).UTC()

	if err := json.Unmarshal([]byte(rawTracks), &playlist.Tracks); err != nil {
		return domain.SavedPlaylist{}, fmt.Errorf("failed to decode playlist tracks: %w", err)
	}
	return playlist, nil
}

var _ ports.PlaylistStore = (*SQLiteStateStore)(nil)
