package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

func testTrack(id string) domain.TrackDescriptor {
	return domain.TrackDescriptor{
		Handle:     "encoded-" + id,
		Identifier: id,
		Title:      "Track " + id,
		Artist:     "Artist",
		SourceName: "youtube",
		Duration:   3 * time.Minute,
		Seekable:   true,
	}
}

func testSnapshot(guildID, channelID snowflake.ID) domain.PlayerSnapshot {
	current := domain.NewQueueEntry(testTrack("current"), 1)
	return domain.PlayerSnapshot{
		GuildID:        guildID,
		VoiceChannelID: channelID,
		Current:        &current,
		Progress:       50 * time.Second,
		Queue: []domain.QueueEntry{
			domain.NewQueueEntry(testTrack("a"), 1),
			domain.NewQueueEntry(testTrack("b"), 2),
		},
	}
}

func TestMemoryStateStore_SaveAndLoad(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	snapshot := testSnapshot(10, 100)
	if err := store.SavePlayers(ctx, []domain.PlayerSnapshot{snapshot, testSnapshot(20, 200)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bindings, err := store.LoadBindings(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bindings) != 2 || bindings[10] != 100 || bindings[20] != 200 {
		t.Errorf("unexpected bindings %v", bindings)
	}

	loaded, err := store.LoadPlayer(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Current == nil || loaded.Current.ID != snapshot.Current.ID {
		t.Errorf("expected current entry %s, got %+v", snapshot.Current.ID, loaded.Current)
	}
	if loaded.Progress != snapshot.Progress {
		t.Errorf("expected progress %v, got %v", snapshot.Progress, loaded.Progress)
	}
	if len(loaded.Queue) != 2 {
		t.Errorf("expected 2 queued entries, got %d", len(loaded.Queue))
	}
}

func TestMemoryStateStore_SaveReplacesEverything(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	_ = store.SavePlayers(ctx, []domain.PlayerSnapshot{testSnapshot(10, 100), testSnapshot(20, 200)})
	_ = store.SavePlayers(ctx, []domain.PlayerSnapshot{testSnapshot(30, 300)})

	if store.Count() != 1 {
		t.Errorf("expected 1 snapshot, got %d", store.Count())
	}
	if _, err := store.LoadPlayer(ctx, 10); !errors.Is(err, ErrPlayerStateNotFound) {
		t.Errorf("expected ErrPlayerStateNotFound, got %v", err)
	}
}

func TestMemoryStateStore_IsolatesCallers(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	snapshot := testSnapshot(10, 100)
	_ = store.SavePlayers(ctx, []domain.PlayerSnapshot{snapshot})

	snapshot.Current.Track.Title = "changed"
	snapshot.Queue[0].Track.Title = "changed"

	loaded, _ := store.LoadPlayer(ctx, 10)
	if loaded.Current.Track.Title == "changed" || loaded.Queue[0].Track.Title == "changed" {
		t.Error("expected stored snapshot to be unaffected by caller mutations")
	}

	loaded.Queue[1].Track.Title = "changed"
	again, _ := store.LoadPlayer(ctx, 10)
	if again.Queue[1].Track.Title == "changed" {
		t.Error("expected loaded snapshots to be copies")
	}
}
