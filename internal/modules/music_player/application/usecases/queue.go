package usecases

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

const DefaultPageSize = 10

// QueueAddInput contains the input for the QueueAdd use case.
type QueueAddInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	Query                 string
	Placement             domain.Placement
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueAddOutput contains the result of the QueueAdd use case.
type QueueAddOutput struct {
	Entries       []domain.QueueEntry
	PlaylistName  string
	Position      int  // 0-indexed queue position of the first entry, -1 if unknown
	Started       bool // one of the entries is playing now
	EstimatedWait time.Duration
	Failed        []ResolveOutcome // queries that could not be resolved
}

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID  snowflake.ID
	Page     int // 1-indexed page number
	PageSize int // Items per page (optional, defaults to 10)
}

// QueueListOutput contains the result of the QueueList use case.
type QueueListOutput struct {
	Current       *domain.QueueEntry
	Progress      time.Duration
	Entries       []domain.QueueEntry
	Offset        int // queue position of Entries[0]
	TotalEntries  int
	TotalDuration time.Duration
	CurrentPage   int
	TotalPages    int
}

// QueueRemoveInput contains the input for the QueueRemove use case.
type QueueRemoveInput struct {
	GuildID  snowflake.ID
	Position int // 0-indexed
}

// QueueRemoveOutput contains the result of the QueueRemove use case.
type QueueRemoveOutput struct {
	Removed domain.QueueEntry
}

// QueueMoveInput contains the input for the QueueMove use case.
type QueueMoveInput struct {
	GuildID snowflake.ID
	From    int // 0-indexed
	To      int // 0-indexed
}

// QueuePromoteInput contains the input for the QueuePromote use case.
type QueuePromoteInput struct {
	GuildID  snowflake.ID
	Position int // 0-indexed, negative promotes the last entry
}

// QueueEntryOutput carries the entry an operation was about.
type QueueEntryOutput struct {
	Entry domain.QueueEntry
}

// QueueClearOutput contains the result of the QueueClear use case.
type QueueClearOutput struct {
	ClearedCount int
}

// QueueReplayInput contains the input for the QueueReplay use case.
type QueueReplayInput struct {
	GuildID      snowflake.ID
	HistoryIndex *int // nil replays the current entry
	Revert       bool // skip the current entry so the replay starts now
}

// QueueHistoryInput contains the input for the QueueHistory use case.
type QueueHistoryInput struct {
	GuildID  snowflake.ID
	Page     int
	PageSize int
}

// QueueHistoryOutput contains the result of the QueueHistory use case.
type QueueHistoryOutput struct {
	Entries      []domain.QueueEntry
	Offset       int
	TotalEntries int
	CurrentPage  int
	TotalPages   int
}

// QueueService handles queue operations.
type QueueService struct {
	players  *PlayerManager
	resolver *ResolverService
	voice    *VoiceChannelService
	channels *NotificationChannelService
}

// NewQueueService creates a new QueueService.
func NewQueueService(
	players *PlayerManager,
	resolver *ResolverService,
	voice *VoiceChannelService,
	channels *NotificationChannelService,
) *QueueService {
	return &QueueService{
		players:  players,
		resolver: resolver,
		voice:    voice,
		channels: channels,
	}
}

// Add resolves the query, joins the user's voice channel if needed and
// enqueues the result. Pasting several URLs adds each of them; URLs that fail
// to resolve are reported in Failed without affecting the others.
func (q *QueueService) Add(ctx context.Context, input QueueAddInput) (*QueueAddOutput, error) {
	q.channels.Set(SetNotificationChannelInput{
		GuildID:   input.GuildID,
		ChannelID: input.NotificationChannelID,
	})

	outcomes := q.resolver.ResolveMany(ctx, domain.SplitQueries(input.Query))

	output := &QueueAddOutput{Position: -1}
	var firstErr error
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			output.Failed = append(output.Failed, outcome)
			if firstErr == nil {
				firstErr = outcome.Err
			}
			continue
		}
		if outcome.Result.IsPlaylist && output.PlaylistName == "" {
			output.PlaylistName = outcome.Result.PlaylistName
		}
		for _, track := range outcome.Result.Tracks {
			entry := domain.NewQueueEntry(track, input.UserID)
			entry.Meta.Playlist = outcome.Result.PlaylistName
			output.Entries = append(output.Entries, entry)
		}
	}
	if len(output.Entries) == 0 {
		if firstErr == nil {
			firstErr = ErrResolution
		}
		return nil, firstErr
	}

	player, err := joinedPlayer(ctx, q.players, q.voice, input.GuildID, input.UserID)
	if err != nil {
		return nil, err
	}

	result, err := player.Enqueue(ctx, output.Entries, input.Placement)
	output.Position = result.Position
	output.Started = result.Started
	if err != nil {
		return output, err
	}

	if !output.Started && output.Position >= 0 {
		output.EstimatedWait = player.Queue().EstimateTimeUntil(output.Position, player.Remaining())
	}
	return output, nil
}

// List returns the current queue with pagination.
func (q *QueueService) List(input QueueListInput) (*QueueListOutput, error) {
	player := q.players.Get(input.GuildID)
	if player == nil {
		return nil, ErrNotConnected
	}

	snapshot := player.Queue().Snapshot()
	page, totalPages, start, end := paginate(len(snapshot.Entries), input.Page, input.PageSize)

	return &QueueListOutput{
		Current:       player.Current(),
		Progress:      player.Progress(),
		Entries:       snapshot.Entries[start:end],
		Offset:        start,
		TotalEntries:  len(snapshot.Entries),
		TotalDuration: snapshot.TotalDuration,
		CurrentPage:   page,
		TotalPages:    totalPages,
	}, nil
}

// Remove removes the entry at a queue position.
func (q *QueueService) Remove(input QueueRemoveInput) (*QueueRemoveOutput, error) {
	player := q.players.Get(input.GuildID)
	if player == nil {
		return nil, ErrNotConnected
	}

	removed, err := player.Queue().Remove(input.Position)
	if err != nil {
		return nil, err
	}
	return &QueueRemoveOutput{Removed: removed}, nil
}

// Move moves an entry to another queue position.
func (q *QueueService) Move(input QueueMoveInput) (*QueueEntryOutput, error) {
	player := q.players.Get(input.GuildID)
	if player == nil {
		return nil, ErrNotConnected
	}

	moved, err := player.Queue().Move(input.From, input.To)
	if err != nil {
		return nil, err
	}
	return &QueueEntryOutput{Entry: moved}, nil
}

// Promote moves an entry to the front of the queue.
func (q *QueueService) Promote(input QueuePromoteInput) (*QueueEntryOutput, error) {
	player := q.players.Get(input.GuildID)
	if player == nil {
		return nil, ErrNotConnected
	}

	var (
		promoted domain.QueueEntry
		err      error
	)
	if input.Position < 0 {
		promoted, err = player.Queue().PromoteLast()
	} else {
		promoted, err = player.Queue().PromoteToFront(input.Position)
	}
	if err != nil {
		return nil, err
	}
	return &QueueEntryOutput{Entry: promoted}, nil
}

// Shuffle shuffles the queue.
func (q *QueueService) Shuffle(guildID snowflake.ID) error {
	player := q.players.Get(guildID)
	if player == nil {
		return ErrNotConnected
	}
	if player.Queue().IsEmpty() {
		return domain.ErrEmptyQueue
	}

	player.Queue().Shuffle()
	return nil
}

// Clear removes all pending entries. History is kept.
func (q *QueueService) Clear(guildID snowflake.ID) (*QueueClearOutput, error) {
	player := q.players.Get(guildID)
	if player == nil {
		return nil, ErrNotConnected
	}

	count := player.Queue().Clear()
	if count == 0 {
		return nil, domain.ErrEmptyQueue
	}
	return &QueueClearOutput{ClearedCount: count}, nil
}

// Replay puts a fresh copy of the current or a history entry at the front of the queue.
func (q *QueueService) Replay(ctx context.Context, input QueueReplayInput) error {
	player := q.players.Get(input.GuildID)
	if player == nil {
		return ErrNotConnected
	}

	return player.Replay(ctx, input.HistoryIndex, input.Revert)
}

// History returns the finished entries, most recent first, with pagination.
func (q *QueueService) History(input QueueHistoryInput) (*QueueHistoryOutput, error) {
	player := q.players.Get(input.GuildID)
	if player == nil {
		return nil, ErrNotConnected
	}

	history := player.Queue().History()
	page, totalPages, start, end := paginate(len(history), input.Page, input.PageSize)

	return &QueueHistoryOutput{
		Entries:      history[start:end],
		Offset:       start,
		TotalEntries: len(history),
		CurrentPage:  page,
		TotalPages:   totalPages,
	}, nil
}

// joinedPlayer returns the guild's player, joining the user's voice channel
// first when the bot is not connected.
func joinedPlayer(
	ctx context.Context,
	players *PlayerManager,
	voice *VoiceChannelService,
	guildID, userID snowflake.ID,
) (*GieselaPlayer, error) {
	player := players.Get(guildID)
	if player != nil && player.State().IsConnected() {
		return player, nil
	}

	if _, err := voice.Join(ctx, JoinInput{GuildID: guildID, UserID: userID}); err != nil {
		return nil, err
	}
	return players.Get(guildID), nil
}

// paginate clamps page to the available pages and returns the slice bounds.
func paginate(total, page, pageSize int) (currentPage, totalPages, start, end int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	totalPages = max((total+pageSize-1)/pageSize, 1)
	currentPage = min(max(page, 1), totalPages)

	start = min((currentPage-1)*pageSize, total)
	end = min(start+pageSize, total)
	return currentPage, totalPages, start, end
}
