package usecases

import (
	"fmt"
	"sync"

	"github.com/samber/lo"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// PresenceAllGuilds is shown when more than one guild is playing.
const PresenceAllGuilds = "Music"

// PresenceService keeps the bot's activity in sync with its players.
type PresenceService struct {
	players  *PlayerManager
	presence ports.PresenceUpdater

	mu   sync.Mutex
	last string
}

// NewPresenceService creates a new PresenceService.
func NewPresenceService(players *PlayerManager, presence ports.PresenceUpdater) *PresenceService {
	return &PresenceService{players: players, presence: presence}
}

// Refresh shows the current entry when exactly one guild is playing,
// PresenceAllGuilds when several are and nothing otherwise.
func (s *PresenceService) Refresh() error {
	playing := lo.Filter(s.players.Players(), func(p *GieselaPlayer, _ int) bool {
		return p.State() == domain.PlayerStatePlaying
	})

	var name string
	switch len(playing) {
	case 0:
	case 1:
		if current := playing[0].Current(); current != nil {
			name = current.Track.DisplayName()
		}
	default:
		name = PresenceAllGuilds
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if name == s.last {
		return nil
	}
	if err := s.presence.UpdateListening(name); err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	s.last = name
	return nil
}
