package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

func TestVoiceChannelService_FindVoiceChannel(t *testing.T) {
	stateErr := errors.New("state cache unavailable")

	tests := []struct {
		name    string
		setup   func(*serviceFixture)
		userID  snowflake.ID
		want    snowflake.ID
		wantErr error
	}{
		{
			name:   "user's channel",
			userID: testUserID,
			want:   testVoiceChannelID,
		},
		{
			name: "configured channel",
			setup: func(f *serviceFixture) {
				f.settings.defaults.VoiceChannelID = 50
			},
			want: 50,
		},
		{
			name: "previous channel",
			setup: func(f *serviceFixture) {
				f.players.GetOrCreate(testGuildID, 60)
			},
			want: 60,
		},
		{
			name: "channel named like a music channel",
			setup: func(f *serviceFixture) {
				f.voiceState.channels = []ports.VoiceChannelInfo{
					{ID: 70, Name: "Lobby"},
					{ID: 71, Name: "Music Room"},
				}
			},
			want: 71,
		},
		{
			name: "first channel",
			setup: func(f *serviceFixture) {
				f.voiceState.channels = []ports.VoiceChannelInfo{
					{ID: 80, Name: "Lobby"},
					{ID: 81, Name: "AFK"},
				}
			},
			want: 80,
		},
		{
			name:    "no voice channels",
			wantErr: ErrNoVoiceChannel,
		},
		{
			name: "voice state failure",
			setup: func(f *serviceFixture) {
				f.voiceState.err = stateErr
			},
			userID:  testUserID,
			wantErr: stateErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			if tt.setup != nil {
				tt.setup(f)
			}

			got, err := f.voice.FindVoiceChannel(testGuildID, tt.userID)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected channel %d, got %d", tt.want, got)
			}
		})
	}
}

func TestVoiceChannelService_JoinLeave(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	if err := f.voice.Leave(ctx, LeaveInput{GuildID: testGuildID}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	output, err := f.voice.Join(ctx, JoinInput{
		GuildID:               testGuildID,
		UserID:                testUserID,
		NotificationChannelID: testTextChannelID,
		VoiceChannelID:        90,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.VoiceChannelID != 90 {
		t.Errorf("expected the requested channel 90, got %d", output.VoiceChannelID)
	}

	player := f.players.Get(testGuildID)
	if player == nil || player.State() != domain.PlayerStateIdle {
		t.Fatal("expected an idle connected player")
	}
	if f.channels.Get(testGuildID) != testTextChannelID {
		t.Error("expected the notification channel to be remembered")
	}

	if err := f.voice.Leave(ctx, LeaveInput{GuildID: testGuildID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if player.State() != domain.PlayerStateDisconnected {
		t.Errorf("expected disconnected, got %s", player.State())
	}
}

func TestVoiceChannelService_AutoPause(t *testing.T) {
	f := newServiceFixture()
	player := f.playingPlayer(t, testEntry("a"))
	ctx := context.Background()

	f.voiceState.setListeners(testVoiceChannelID, 0)
	f.voice.HandleListenersChanged(ctx, testGuildID)
	if player.State() != domain.PlayerStatePaused {
		t.Fatalf("expected the player to pause in an empty channel, got %s", player.State())
	}

	f.voiceState.setListeners(testVoiceChannelID, 2)
	f.voice.HandleListenersChanged(ctx, testGuildID)
	if player.State() != domain.PlayerStatePlaying {
		t.Errorf("expected the player to resume, got %s", player.State())
	}

	// a player paused by a user stays paused
	if err := player.Pause(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.voice.HandleListenersChanged(ctx, testGuildID)
	if player.State() != domain.PlayerStatePaused {
		t.Errorf("expected a manual pause to be kept, got %s", player.State())
	}
}

func TestVoiceChannelService_AutoPauseDisabled(t *testing.T) {
	f := newServiceFixture()
	f.settings.defaults.AutoPause = false
	player := f.playingPlayer(t, testEntry("a"))

	f.voiceState.setListeners(testVoiceChannelID, 0)
	f.voice.HandleListenersChanged(context.Background(), testGuildID)

	if player.State() != domain.PlayerStatePlaying {
		t.Errorf("expected the player to keep playing, got %s", player.State())
	}
}

func TestVoiceChannelService_AutoDisconnect(t *testing.T) {
	f := newServiceFixture()
	f.settings.defaults.AutoDisconnect = 20 * time.Millisecond
	player := f.playingPlayer(t, testEntry("a"))
	defer f.voice.Close()

	f.voiceState.setListeners(testVoiceChannelID, 0)
	f.voice.HandleListenersChanged(context.Background(), testGuildID)

	deadline := time.Now().Add(2 * time.Second)
	for player.State() != domain.PlayerStateDisconnected && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if player.State() != domain.PlayerStateDisconnected {
		t.Errorf("expected the player to leave the empty channel, got %s", player.State())
	}
}

func TestVoiceChannelService_AutoDisconnectCancelled(t *testing.T) {
	f := newServiceFixture()
	f.settings.defaults.AutoDisconnect = 50 * time.Millisecond
	player := f.playingPlayer(t, testEntry("a"))
	defer f.voice.Close()
	ctx := context.Background()

	f.voiceState.setListeners(testVoiceChannelID, 0)
	f.voice.HandleListenersChanged(ctx, testGuildID)
	f.voiceState.setListeners(testVoiceChannelID, 1)
	f.voice.HandleListenersChanged(ctx, testGuildID)

	time.Sleep(150 * time.Millisecond)
	if player.State() != domain.PlayerStatePlaying {
		t.Errorf("expected the player to stay, got %s", player.State())
	}
}

func TestVoiceChannelService_HandleBotVoiceStateChange(t *testing.T) {
	f := newServiceFixture()
	player := f.playingPlayer(t, testEntry("a"))
	ctx := context.Background()

	moved := snowflake.ID(95)
	f.voiceState.setListeners(moved, 1)
	f.voice.HandleBotVoiceStateChange(ctx, BotVoiceStateChangeInput{GuildID: testGuildID, NewChannelID: &moved})
	if player.VoiceChannelID() != moved {
		t.Errorf("expected the player to follow the move, got %d", player.VoiceChannelID())
	}
	if player.State() != domain.PlayerStatePlaying {
		t.Errorf("expected playing, got %s", player.State())
	}

	f.voice.HandleBotVoiceStateChange(ctx, BotVoiceStateChangeInput{GuildID: testGuildID})
	if player.State() != domain.PlayerStateDisconnected {
		t.Errorf("expected disconnected, got %s", player.State())
	}
}

func TestVoiceChannelService_WithoutBackend(t *testing.T) {
	players := NewPlayerManager(nil, nil, newMockStateStore(), nil)
	voice := NewVoiceChannelService(players, nil, nil, NewNotificationChannelService())
	ctx := context.Background()

	tests := []struct {
		name  string
		input JoinInput
	}{
		{name: "find a channel", input: JoinInput{GuildID: testGuildID, UserID: testUserID}},
		{name: "explicit channel", input: JoinInput{GuildID: testGuildID, VoiceChannelID: testVoiceChannelID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := voice.Join(ctx, tt.input); !errors.Is(err, ErrNotConnected) {
				t.Errorf("expected ErrNotConnected, got %v", err)
			}
		})
	}

	resolver := NewResolverService(nil, 0)
	if _, err := resolver.Resolve(ctx, "never gonna give you up"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected from Resolve, got %v", err)
	}
	if _, err := resolver.Search(ctx, "never gonna give you up", 5); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected from Search, got %v", err)
	}
}
