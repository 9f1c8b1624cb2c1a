package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStateStore persists player snapshots and saved playlists in a SQLite database.
type SQLiteStateStore struct {
	db *sql.DB
}

// NewSQLiteStateStore opens (or creates) the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStateStore(path string) (*SQLiteStateStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared between calls
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStateStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS voice_bindings (
			guild_id   TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS player_states (
			guild_id TEXT PRIMARY KEY,
			current  TEXT,
			progress REAL NOT NULL DEFAULT 0,
			queue    TEXT NOT NULL DEFAULT '[]'
		);
		CREATE TABLE IF NOT EXISTS saved_playlists (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			author_id   TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			replays     INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			tracks      TEXT NOT NULL DEFAULT '[]'
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize state schema: %w", err)
	}
	return nil
}

// withTx runs fn within a transaction, rolling back on error.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// SavePlayers replaces all persisted state in a single transaction.
func (s *SQLiteStateStore) SavePlayers(ctx context.Context, snapshots []domain.PlayerSnapshot) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM voice_bindings`); err != nil {
			return fmt.Errorf("failed to clear voice bindings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM player_states`); err != nil {
			return fmt.Errorf("failed to clear player states: %w", err)
		}

		for _, snapshot := range snapshots {
			guildID := snapshot.GuildID.String()

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO voice_bindings (guild_id, channel_id) VALUES (?, ?)`,
				guildID, snapshot.VoiceChannelID.String(),
			); err != nil {
				return fmt.Errorf("failed to save voice binding of guild %s: %w", guildID, err)
			}

			var current sql.NullString
			if snapshot.Current != nil {
				data, err := json.Marshal(snapshot.Current)
				if err != nil {
					return fmt.Errorf("failed to encode current entry: %w", err)
				}
				current = sql.NullString{String: string(data), Valid: true}
			}

			queue := snapshot.Queue
			if queue == nil {
				queue = []domain.QueueEntry{}
			}
			queueData, err := json.Marshal(queue)
			if err != nil {
				return fmt.Errorf("failed to encode queue: %w", err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO player_states (guild_id, current, progress, queue) VALUES (?, ?, ?, ?)`,
				guildID, current, snapshot.Progress.Seconds(), string(queueData),
			); err != nil {
				return fmt.Errorf("failed to save player state of guild %s: %w", guildID, err)
			}
		}
		return nil
	})
}

// LoadBindings returns the persisted guild -> voice channel mapping.
func (s *SQLiteStateStore) LoadBindings(ctx context.Context) (map[snowflake.ID]snowflake.ID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, channel_id FROM voice_bindings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query voice bindings: %w", err)
	}
	defer rows.Close()

	bindings := make(map[snowflake.ID]snowflake.ID)
	for rows.Next() {
		var rawGuildID, rawChannelID string
		if err := rows.Scan(&rawGuildID, &rawChannelID); err != nil {
			return nil, fmt.Errorf("failed to scan voice binding: %w", err)
		}
		guildID, err := snowflake.Parse(rawGuildID)
		if err != nil {
			return nil, fmt.Errorf("invalid guild id %q: %w", rawGuildID, err)
		}
		channelID, err := snowflake.Parse(rawChannelID)
		if err != nil {
			return nil, fmt.Errorf("invalid channel id %q: %w", rawChannelID, err)
		}
		bindings[guildID] = channelID
	}
	return bindings, rows.Err()
}

// LoadPlayer returns the persisted snapshot of one guild.
func (s *SQLiteStateStore) LoadPlayer(ctx context.Context, guildID snowflake.ID) (domain.PlayerSnapshot, error) {
	var (
		rawChannelID string
		current      sql.NullString
		progress     float64
		rawQueue     string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT b.channel_id, p.current, p.progress, p.queue
		FROM player_states p
		JOIN voice_bindings b ON b.guild_id = p.guild_id
		WHERE p.guild_id = ?`,
		guildID.String(),
	).Scan(&rawChannelID, &current, &progress, &rawQueue)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PlayerSnapshot{}, ErrPlayerStateNotFound
	}
	if err != nil {
		return domain.PlayerSnapshot{}, fmt.Errorf("failed to query player state: %w", err)
	}

	channelID, err := snowflake.Parse(rawChannelID)
	if err != nil {
		return domain.PlayerSnapshot{}, fmt.Errorf("invalid channel id %q: %w", rawChannelID, err)
	}

	snapshot := domain.PlayerSnapshot{
		GuildID:        guildID,
		VoiceChannelID: channelID,
		Progress:       time.Duration(math.Round(progress * float64(time.Second))),
	}
	if current.Valid {
		var entry domain.QueueEntry
		if err := json.Unmarshal([]byte(current.String), &entry); err != nil {
			return domain.PlayerSnapshot{}, fmt.Errorf("failed to decode current entry: %w", err)
		}
		snapshot.Current = &entry
	}
	if err := json.Unmarshal([]byte(rawQueue), &snapshot.Queue); err != nil {
		return domain.PlayerSnapshot{}, fmt.Errorf("failed to decode queue: %w", err)
	}

	return snapshot, nil
}

// Close closes the underlying database.
func (s *SQLiteStateStore) Close() error {
	return s.db.Close()
}

var _ ports.PlayerStateStore = (*SQLiteStateStore)(nil)
