package ports

import "github.com/sglre6355/giesela/internal/modules/music_player/domain"

// EventPublisher defines the interface for publishing events asynchronously.
// Publishing never blocks and never fails the caller.
type EventPublisher interface {
	domain.QueueEventSink

	PublishPlayerStateChanged(event domain.PlayerStateChangedEvent)
	PublishBackendEvent(event domain.BackendEvent)
}
