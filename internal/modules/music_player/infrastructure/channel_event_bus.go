package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

// eventStream is one buffered channel with the handlers subscribed to it.
// A single dispatcher goroutine runs the handlers in publish order.
type eventStream[T any] struct {
	name     string
	events   chan T
	handlers []func(context.Context, T)
}

func newEventStream[T any](name string, bufferSize int) *eventStream[T] {
	return &eventStream[T]{
		name:   name,
		events: make(chan T, bufferSize),
	}
}

// guildMailbox holds the backend events of one guild until its goroutine
// hands them to the handlers. Lifecycle events are never dropped; only
// player updates are coalesced or shed when the mailbox is backed up.
type guildMailbox struct {
	mu      sync.Mutex
	pending []domain.BackendEvent
	wake    chan struct{}
}

func newGuildMailbox() *guildMailbox {
	return &guildMailbox{wake: make(chan struct{}, 1)}
}

// push reports false if the event was shed.
func (m *guildMailbox) push(event domain.BackendEvent, limit int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.Kind == domain.BackendPlayerUpdate {
		// only the latest position matters
		if n := len(m.pending); n > 0 && m.pending[n-1].Kind == domain.BackendPlayerUpdate {
			m.pending[n-1] = event
			return true
		}
		if len(m.pending) >= limit {
			return false
		}
	}

	m.pending = append(m.pending, event)
	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

func (m *guildMailbox) pop() (domain.BackendEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) == 0 {
		return domain.BackendEvent{}, false
	}
	event := m.pending[0]
	m.pending[0] = domain.BackendEvent{}
	m.pending = m.pending[1:]
	return event, true
}

// ChannelEventBus provides a channel-based event bus for async event handling.
// It implements both EventPublisher and EventSubscriber interfaces.
//
// Queue and player events share one dispatcher per stream. Backend events are
// delivered per guild: every guild gets its own ordered mailbox so a slow
// handler in one guild never delays or drops another guild's track events.
type ChannelEventBus struct {
	queue  *eventStream[domain.QueueChangedEvent]
	player *eventStream[domain.PlayerStateChangedEvent]

	backendHandlers []func(context.Context, domain.BackendEvent)
	mailboxes       map[snowflake.ID]*guildMailbox
	bufferSize      int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		queue:   newEventStream[domain.QueueChangedEvent]("QueueChanged", bufferSize),
		player:  newEventStream[domain.PlayerStateChangedEvent]("PlayerStateChanged", bufferSize),
		mailboxes:  make(map[snowflake.ID]*guildMailbox),
		bufferSize: bufferSize,
		ctx:        ctx,
		cancel:     cancel,
	}

	bus.wg.Add(2)
	go dispatch(bus, bus.queue)
	go dispatch(bus, bus.player)

	return bus
}

func dispatch[T any](b *ChannelEventBus, stream *eventStream[T]) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-stream.events:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := stream.handlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				runHandler(b.ctx, stream.name, handler, event)
			}
		}
	}
}

// runHandler keeps a panicking handler from taking the dispatcher down.
func runHandler[T any](ctx context.Context, name string, handler func(context.Context, T), event T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "type", name, "panic", r)
		}
	}()
	handler(ctx, event)
}

// publish sends without blocking: if the buffer is full, the event is dropped with a warning.
func publish[T any](b *ChannelEventBus, stream *eventStream[T], event T, guildID any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", stream.name)
		return
	}

	select {
	case stream.events <- event:
		slog.Debug("published event", "type", stream.name, "guild", guildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", stream.name, "guild", guildID)
	}
}

// deliverBackend drains one guild's mailbox until the bus is closed.
func (b *ChannelEventBus) deliverBackend(box *guildMailbox) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-box.wake:
		}

		for {
			event, ok := box.pop()
			if !ok {
				break
			}
			if b.ctx.Err() != nil {
				return
			}
			b.mu.RLock()
			handlers := b.backendHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				runHandler(b.ctx, "Backend", handler, event)
			}
		}
	}
}

func subscribe[T any](b *ChannelEventBus, stream *eventStream[T], handler func(context.Context, T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stream.handlers = append(stream.handlers, handler)
}

// --- EventPublisher interface ---

// PublishQueueChanged publishes a QueueChangedEvent.
func (b *ChannelEventBus) PublishQueueChanged(event domain.QueueChangedEvent) {
	publish(b, b.queue, event, event.GuildID)
}

// PublishPlayerStateChanged publishes a PlayerStateChangedEvent.
func (b *ChannelEventBus) PublishPlayerStateChanged(event domain.PlayerStateChangedEvent) {
	publish(b, b.player, event, event.GuildID)
}

// PublishBackendEvent publishes an event reported by the audio backend.
// Events of one guild are delivered in publish order.
func (b *ChannelEventBus) PublishBackendEvent(event domain.BackendEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "Backend")
		return
	}

	box, ok := b.mailboxes[event.GuildID]
	if !ok {
		box = newGuildMailbox()
		b.mailboxes[event.GuildID] = box
		b.wg.Add(1)
		go b.deliverBackend(box)
	}

	if !box.push(event, b.bufferSize) {
		slog.Warn("backend mailbox full, dropping player update", "guild", event.GuildID)
		return
	}
	slog.Debug("published event", "type", "Backend", "guild", event.GuildID, "event", event.Kind)
}

// --- EventSubscriber interface ---

// OnQueueChanged registers a handler for QueueChangedEvent.
func (b *ChannelEventBus) OnQueueChanged(handler func(context.Context, domain.QueueChangedEvent)) {
	subscribe(b, b.queue, handler)
}

// OnPlayerStateChanged registers a handler for PlayerStateChangedEvent.
func (b *ChannelEventBus) OnPlayerStateChanged(
	handler func(context.Context, domain.PlayerStateChangedEvent),
) {
	subscribe(b, b.player, handler)
}

// OnBackendEvent registers a handler for backend events.
func (b *ChannelEventBus) OnBackendEvent(handler func(context.Context, domain.BackendEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backendHandlers = append(b.backendHandlers, handler)
}

// Close closes all event channels and stops dispatchers.
// After calling Close, publishing will no longer send events.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()

	close(b.queue.events)
	close(b.player.events)

	b.wg.Wait()

	slog.Debug("channel event bus closed")
}
