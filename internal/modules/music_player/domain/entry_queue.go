package domain

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
)

// DefaultHistoryLimit is the number of finished entries kept when no limit is configured.
const DefaultHistoryLimit = 200

// Placement selects where Add inserts an entry.
type Placement int

const (
	PlacementEnd Placement = iota
	PlacementFront
	PlacementRandom
)

// ParsePlacement converts "end", "front"/"next" or "random" to a Placement.
// Unknown values fall back to PlacementEnd.
func ParsePlacement(s string) Placement {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front", "next":
		return PlacementFront
	case "random":
		return PlacementRandom
	default:
		return PlacementEnd
	}
}

// QueueEventSink receives queue change notifications.
type QueueEventSink interface {
	PublishQueueChanged(event QueueChangedEvent)
}

// EntryQueue holds the pending entries of a guild plus a bounded,
// most-recent-first history of finished entries.
// The entry currently being played is never part of the queue.
type EntryQueue struct {
	mu           sync.Mutex
	guildID      snowflake.ID
	entries      []QueueEntry
	history      []QueueEntry
	historyLimit int
	sink         QueueEventSink
	intN         func(n int) int
	shuffle      func(n int, swap func(i, j int))
}

// NewEntryQueue creates an empty queue for the guild.
// A nil sink disables notifications.
func NewEntryQueue(guildID snowflake.ID, historyLimit int, sink QueueEventSink) *EntryQueue {
	if historyLimit < 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &EntryQueue{
		guildID:      guildID,
		entries:      make([]QueueEntry, 0),
		history:      make([]QueueEntry, 0),
		historyLimit: historyLimit,
		sink:         sink,
		intN:         rand.IntN,
		shuffle:      rand.Shuffle,
	}
}

// SetRandom replaces the random sources used for random placement and shuffling.
func (q *EntryQueue) SetRandom(intN func(n int) int, shuffle func(n int, swap func(i, j int))) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.intN = intN
	q.shuffle = shuffle
}

// SetHistoryLimit changes the history cap, evicting the oldest entries if needed.
func (q *EntryQueue) SetHistoryLimit(limit int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.historyLimit = max(limit, 0)
	if len(q.history) > q.historyLimit {
		q.history = q.history[:q.historyLimit]
	}
}

// Len returns the number of pending entries.
func (q *EntryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// IsEmpty returns true if there are no pending entries.
func (q *EntryQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Entries returns a copy of the pending entries, next first.
func (q *EntryQueue) Entries() []QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.entries)
}

// History returns a copy of the history, most recent first.
func (q *EntryQueue) History() []QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.history)
}

// Snapshot returns a consistent copy of pending entries and history.
func (q *EntryQueue) Snapshot() QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Contains reports whether an entry for the same track is pending.
func (q *EntryQueue) Contains(track TrackDescriptor) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	key := track.Key()
	return lo.ContainsBy(q.entries, func(e QueueEntry) bool {
		return e.Track.Key() == key
	})
}

// Add inserts an entry and returns its position.
// When moreToCome is set the notification is suppressed; the caller is
// expected to finish the batch with a call that does notify.
func (q *EntryQueue) Add(entry QueueEntry, placement Placement, moreToCome bool) int {
	q.mu.Lock()
	pos := q.insertLocked(entry, placement)
	if moreToCome {
		q.mu.Unlock()
		return pos
	}
	event := q.eventLocked(QueueEntryAdded, &entry, 1)
	q.mu.Unlock()

	q.publish(event)
	return pos
}

// AddAll inserts entries keeping their relative order and emits a single
// aggregated notification. Returns the number of entries added.
func (q *EntryQueue) AddAll(entries []QueueEntry, placement Placement) int {
	if len(entries) == 0 {
		return 0
	}

	q.mu.Lock()
	if placement == PlacementFront {
		for i := len(entries) - 1; i >= 0; i-- {
			q.insertLocked(entries[i], placement)
		}
	} else {
		for _, entry := range entries {
			q.insertLocked(entry, placement)
		}
	}
	last := entries[len(entries)-1]
	event := q.eventLocked(QueueEntriesAdded, &last, len(entries))
	q.mu.Unlock()

	q.publish(event)
	return len(entries)
}

// LoadPlaylist appends every entry of an expanded playlist with one notification.
func (q *EntryQueue) LoadPlaylist(entries []QueueEntry) int {
	return q.AddAll(entries, PlacementEnd)
}

// Remove removes and returns the entry at index.
func (q *EntryQueue) Remove(index int) (QueueEntry, error) {
	q.mu.Lock()
	if !q.validIndexLocked(index) {
		q.mu.Unlock()
		return QueueEntry{}, ErrIndexOutOfRange
	}
	entry := q.entries[index]
	q.entries = slices.Delete(q.entries, index, index+1)
	event := q.eventLocked(QueueEntryRemoved, &entry, 1)
	q.mu.Unlock()

	q.publish(event)
	return entry, nil
}

// Move takes the entry at from and reinserts it at to, preserving the
// relative order of all other entries.
func (q *EntryQueue) Move(from, to int) (QueueEntry, error) {
	q.mu.Lock()
	if !q.validIndexLocked(from) || !q.validIndexLocked(to) {
		q.mu.Unlock()
		return QueueEntry{}, ErrIndexOutOfRange
	}
	entry := q.entries[from]
	q.entries = slices.Delete(q.entries, from, from+1)
	q.entries = slices.Insert(q.entries, to, entry)
	event := q.eventLocked(QueueEntryMoved, &entry, 1)
	q.mu.Unlock()

	q.publish(event)
	return entry, nil
}

// PromoteToFront moves the entry at index to position 0.
func (q *EntryQueue) PromoteToFront(index int) (QueueEntry, error) {
	q.mu.Lock()
	if !q.validIndexLocked(index) {
		q.mu.Unlock()
		return QueueEntry{}, ErrIndexOutOfRange
	}
	entry := q.entries[index]
	q.entries = slices.Delete(q.entries, index, index+1)
	q.entries = slices.Insert(q.entries, 0, entry)
	event := q.eventLocked(QueueEntryPromoted, &entry, 1)
	q.mu.Unlock()

	q.publish(event)
	return entry, nil
}

// PromoteLast moves the last entry to position 0.
func (q *EntryQueue) PromoteLast() (QueueEntry, error) {
	q.mu.Lock()
	n := len(q.entries)
	q.mu.Unlock()
	if n == 0 {
		return QueueEntry{}, ErrEmptyQueue
	}
	return q.PromoteToFront(n - 1)
}

// Shuffle randomizes the order of pending entries. History is untouched.
func (q *EntryQueue) Shuffle() {
	q.mu.Lock()
	q.shuffle(len(q.entries), func(i, j int) {
		q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	})
	event := q.eventLocked(QueueShuffled, nil, len(q.entries))
	q.mu.Unlock()

	q.publish(event)
}

// Clear removes all pending entries and returns how many were removed.
// History is untouched.
func (q *EntryQueue) Clear() int {
	q.mu.Lock()
	n := len(q.entries)
	q.entries = make([]QueueEntry, 0)
	event := q.eventLocked(QueueCleared, nil, n)
	q.mu.Unlock()

	q.publish(event)
	return n
}

// Peek returns the next entry without removing it.
func (q *EntryQueue) Peek() (QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return QueueEntry{}, false
	}
	return q.entries[0], true
}

// DequeueNext pops the next playable entry. Entries without a playable
// handle are dropped on the way. A removal is published whenever entries
// were consumed, even if none of them was playable.
func (q *EntryQueue) DequeueNext() (QueueEntry, bool) {
	q.mu.Lock()
	var (
		entry    QueueEntry
		found    bool
		consumed int
	)
	for len(q.entries) > 0 {
		entry = q.entries[0]
		q.entries = q.entries[1:]
		consumed++
		if entry.Track.IsValid() {
			found = true
			break
		}
	}
	if consumed == 0 {
		q.mu.Unlock()
		return QueueEntry{}, false
	}

	var event QueueChangedEvent
	if found {
		event = q.eventLocked(QueueEntryRemoved, &entry, consumed)
	} else {
		event = q.eventLocked(QueueEntryRemoved, nil, consumed)
	}
	q.mu.Unlock()

	q.publish(event)
	if !found {
		return QueueEntry{}, false
	}
	return entry, true
}

// PushHistory records a finished entry at the front of the history,
// evicting the oldest entries beyond the limit.
func (q *EntryQueue) PushHistory(entry QueueEntry, finishedAt time.Time) {
	q.mu.Lock()
	if q.historyLimit == 0 {
		q.mu.Unlock()
		return
	}
	finished := finishedAt.UTC()
	entry.Meta.FinishedAt = &finished
	q.history = slices.Insert(q.history, 0, entry)
	if len(q.history) > q.historyLimit {
		q.history = q.history[:q.historyLimit]
	}
	event := q.eventLocked(QueueHistoryPushed, &entry, 1)
	q.mu.Unlock()

	q.publish(event)
}

// ReplayCurrent puts a fresh copy of current at the front of the queue.
// Returns false if there is no current entry.
func (q *EntryQueue) ReplayCurrent(current *QueueEntry) bool {
	if current == nil {
		return false
	}
	q.Add(current.Copy(), PlacementFront, false)
	return true
}

// ReplayHistory puts a fresh copy of history[index] at the front of the queue.
// Returns false if index is not in the history.
func (q *EntryQueue) ReplayHistory(index int) bool {
	q.mu.Lock()
	if index < 0 || index >= len(q.history) {
		q.mu.Unlock()
		return false
	}
	entry := q.history[index].Copy()
	q.mu.Unlock()

	q.Add(entry, PlacementFront, false)
	return true
}

// EstimateTimeUntil estimates how long until the entry at position starts,
// given the remaining time of the current entry.
func (q *EntryQueue) EstimateTimeUntil(position int, remainingCurrent time.Duration) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	position = min(max(position, 0), len(q.entries))
	return max(remainingCurrent, 0) + lo.SumBy(q.entries[:position], func(e QueueEntry) time.Duration {
		return e.Track.PlayableDuration()
	})
}

func (q *EntryQueue) insertLocked(entry QueueEntry, placement Placement) int {
	var pos int
	switch placement {
	case PlacementFront:
		pos = 0
	case PlacementRandom:
		if len(q.entries) > 0 {
			pos = q.intN(len(q.entries))
		}
	default:
		pos = len(q.entries)
	}
	q.entries = slices.Insert(q.entries, pos, entry)
	return pos
}

func (q *EntryQueue) validIndexLocked(index int) bool {
	return 0 <= index && index < len(q.entries)
}

func (q *EntryQueue) snapshotLocked() QueueSnapshot {
	return QueueSnapshot{
		Entries: slices.Clone(q.entries),
		History: slices.Clone(q.history),
		TotalDuration: lo.SumBy(q.entries, func(e QueueEntry) time.Duration {
			return e.Track.PlayableDuration()
		}),
	}
}

func (q *EntryQueue) eventLocked(kind QueueChangeKind, entry *QueueEntry, count int) QueueChangedEvent {
	return QueueChangedEvent{
		GuildID:  q.guildID,
		Kind:     kind,
		Entry:    entry,
		Count:    count,
		Snapshot: q.snapshotLocked(),
	}
}

func (q *EntryQueue) publish(event QueueChangedEvent) {
	if q.sink == nil {
		return
	}
	q.sink.PublishQueueChanged(event)
}
