package ports

import (
	"context"

	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// EventSubscriber defines the interface for subscribing to events.
// Handlers for one event stream run sequentially in publish order.
type EventSubscriber interface {
	OnQueueChanged(handler func(context.Context, domain.QueueChangedEvent))
	OnPlayerStateChanged(handler func(context.Context, domain.PlayerStateChangedEvent))
	OnBackendEvent(handler func(context.Context, domain.BackendEvent))
}
