package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

func TestPresenceService_Refresh(t *testing.T) {
	backend := &mockBackend{}
	manager := NewPlayerManager(backend, nil, newMockStateStore(), nil)
	presence := &mockPresenceUpdater{}
	service := NewPresenceService(manager, presence)
	ctx := context.Background()

	play := func(guildID snowflake.ID, id string) *GieselaPlayer {
		player := manager.GetOrCreate(guildID, testVoiceChannelID)
		if _, err := player.Enqueue(ctx, []domain.QueueEntry{testEntry(id)}, domain.PlacementEnd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return player
	}
	refresh := func() {
		t.Helper()
		if err := service.Refresh(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	refresh()
	if len(presence.names) != 0 {
		t.Errorf("expected no update while nothing changed, got %v", presence.names)
	}

	first := play(10, "a")
	refresh()
	if len(presence.names) != 1 || presence.names[0] != "Artist - Track a" {
		t.Fatalf("expected the playing track, got %v", presence.names)
	}

	refresh()
	if len(presence.names) != 1 {
		t.Errorf("expected an unchanged presence not to be sent again, got %v", presence.names)
	}

	play(20, "b")
	refresh()
	if presence.names[len(presence.names)-1] != PresenceAllGuilds {
		t.Errorf("expected %q with two guilds playing, got %v", PresenceAllGuilds, presence.names)
	}

	if err := first.Pause(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refresh()
	if presence.names[len(presence.names)-1] != "Artist - Track b" {
		t.Errorf("expected the only playing track, got %v", presence.names)
	}

	if err := manager.Get(20).Stop(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refresh()
	if presence.names[len(presence.names)-1] != "" {
		t.Errorf("expected the presence to be cleared, got %v", presence.names)
	}
}

func TestPresenceService_RefreshError(t *testing.T) {
	manager := NewPlayerManager(&mockBackend{}, nil, newMockStateStore(), nil)
	presence := &mockPresenceUpdater{err: errors.New("gateway closed")}
	service := NewPresenceService(manager, presence)

	player := manager.GetOrCreate(testGuildID, testVoiceChannelID)
	if _, err := player.Enqueue(context.Background(), []domain.QueueEntry{testEntry("a")}, domain.PlacementEnd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.Refresh(); err == nil {
		t.Error("expected error")
	}

	// the failed update is retried on the next refresh
	presence.err = nil
	if err := service.Refresh(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(presence.names) != 1 {
		t.Errorf("expected the presence to be sent, got %v", presence.names)
	}
}
