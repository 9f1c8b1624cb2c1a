package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/bot"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/usecases"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
	colorInfo    = 0x3498DB
)

// playTimeout bounds resolving and enqueueing a play request.
const playTimeout = 30 * time.Second

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	voiceChannel *usecases.VoiceChannelService
	playback     *usecases.PlaybackService
	queue        *usecases.QueueService
	playlist     *usecases.PlaylistService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	voiceChannel *usecases.VoiceChannelService,
	playback *usecases.PlaybackService,
	queue *usecases.QueueService,
	playlist *usecases.PlaylistService,
) *CommandHandlers {
	return &CommandHandlers{
		voiceChannel: voiceChannel,
		playback:     playback,
		queue:        queue,
		playlist:     playlist,
	}
}

// Handlers maps command names to their handlers.
func (h *CommandHandlers) Handlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":     h.HandleJoin,
		"leave":    h.HandleLeave,
		"play":     h.HandlePlay,
		"stop":     h.HandleStop,
		"pause":    h.HandlePause,
		"resume":   h.HandleResume,
		"skip":     h.HandleSkip,
		"seek":     h.HandleSeek,
		"forward":  h.HandleForward,
		"rewind":   h.HandleRewind,
		"volume":   h.HandleVolume,
		"np":       h.HandleNowPlaying,
		"queue":    h.HandleQueue,
		"playlist": h.HandlePlaylist,
	}
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	target, problem := parseTarget(i)
	if problem != "" {
		return respondError(r, problem)
	}

	var voiceChannelID snowflake.ID
	if opt, ok := optionMap(i.ApplicationCommandData().Options)["channel"]; ok {
		id, err := snowflake.Parse(opt.ChannelValue(s).ID)
		if err != nil {
			return respondError(r, "Invalid voice channel")
		}
		voiceChannelID = id
	}

	output, err := h.voiceChannel.Join(context.Background(), usecases.JoinInput{
		GuildID:               target.guildID,
		UserID:                target.userID,
		NotificationChannelID: target.channelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID))
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	target, problem := parseTarget(i)
	if problem != "" {
		return respondError(r, problem)
	}

	if err := h.voiceChannel.Leave(context.Background(), usecases.LeaveInput{
		GuildID: target.guildID,
	}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Disconnected.")
}

// HandlePlay handles the /play command.
// Resolving may outlast Discord's response deadline, so the reply is deferred.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	target, problem := parseTarget(i)
	if problem != "" {
		return respondError(r, problem)
	}

	options := optionMap(i.ApplicationCommandData().Options)
	var query string
	if opt, ok := options["query"]; ok {
		query = strings.TrimSpace(opt.StringValue())
	}
	if query == "" {
		return respondError(r, "Please provide a URL or search term.")
	}
	placement := usecases.ParsePlacement("")
	if opt, ok := options["placement"]; ok {
		placement = usecases.ParsePlacement(opt.StringValue())
	}

	if err := r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	output, err := h.queue.Add(ctx, usecases.QueueAddInput{
		GuildID:               target.guildID,
		UserID:                target.userID,
		Query:                 query,
		Placement:             placement,
		NotificationChannelID: target.channelID,
	})
	if err != nil {
		slog.Warn("failed to add to queue", "guild", target.guildID, "query", query, "error", err)
		return editError(r, errorMessage(err))
	}

	return editEmbed(r, &discordgo.MessageEmbed{
		Description: describeAdded(output),
		Color:       colorSuccess,
	})
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handlePlayback(i, r, h.playback.Stop, "Stopped playback.")
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handlePlayback(i, r, h.playback.Pause, "Paused playback.")
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handlePlayback(i, r, h.playback.Resume, "Resumed playback.")
}

func (h *CommandHandlers) handlePlayback(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	op func(context.Context, usecases.PlaybackInput) error,
	success string,
) error {
	target, problem := parseTarget(i)
	if problem != "" {
		return respondError(r, problem)
	}

	if err := op(context.Background(), usecases.PlaybackInput{
		GuildID:               target.guildID,
		NotificationChannelID: target.channelID,
	}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, success)
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	target, problem := parseTarget(i)
	if problem != "" {
		return respondError(r, problem)
	}

	output, err := h.playback.Skip(context.Background(), usecases.PlaybackInput{
		GuildID:               target.guildID,
		NotificationChannelID: target.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	// "Now Playing" for the next entry is posted by the notification handler.
	return respondSuccess(r, fmt.Sprintf("Skipped %s.", trackLink(output.Skipped.Track)))
}

// HandleSeek handles the /seek command.
func (h *CommandHandlers) HandleSeek(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleSeek(i, r, h.playback.Seek)
}

// HandleForward handles the /forward command.
func (h *CommandHandlers) HandleForward(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleSeek(i, r, h.playback.Forward)
}

// HandleRewind handles the /rewind command.
func (h *CommandHandlers) HandleRewind(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleSeek(i, r, h.playback.Rewind)
}

func (h *CommandHandlers) handleSeek(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	op func(context.Context, usecases.SeekInput) (*usecases.SeekOutput, error),
) error {
	target, problem := parseTarget(i)
	if problem != "" {
		return respondError(r, problem)
	}

	var raw string
	if opt, ok := optionMap(i.ApplicationCommandData().Options)["timestamp"]; ok {
		raw = opt.StringValue()
	}
	position, err := parseTimestamp(raw)
	if err != nil {
		return respondError(r, "Invalid timestamp. Use seconds, mm:ss or hh:mm:ss.")
	}

	output, err := op(context.Background(), usecases.SeekInput{
		GuildID:               target.guildID,
		Position:              position,
		NotificationChannelID: target.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf(
		"Jumped to `%s / %s`.",
		usecases.FormatDuration(output.Progress),
		usecases.FormatDuration(output.Duration),
	))
}

// HandleVolume handles the /volume command.
func (h *CommandHandlers) HandleVolume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	target, problem := parseTarget(i)
	if problem != "" {
		return respondError(r, problem)
	}

	opt, ok := optionMap(i.ApplicationCommandData().Options)["value"]
	if !ok {
		volume, err := h.playback.Volume(target.guildID)
		if err != nil {
			return respondError(r, errorMessage(err))
		}
		return respondSuccess(r, fmt.Sprintf("Volume is **%s**.", formatPercent(volume)))
	}

	volume, relative, err := parseVolume(opt.StringValue())
	if err != nil {
		return respondError(r, "Invalid volume. Use a percentage like 50, or +10 / -10.")
	}

	output, err := h.playback.SetVolume(context.Background(), usecases.VolumeInput{
		GuildID:               target.guildID,
		Volume:                volume,
		Relative:              relative,
		NotificationChannelID: target.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf(
		"Volume changed from **%s** to **%s**.",
		formatPercent(output.OldVolume),
		formatPercent(output.Volume),
	))
}

// HandleNowPlaying handles the /np command.
func (h *CommandHandlers) HandleNowPlaying(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	target, problem := parseTarget(i)
	if problem != "" {
		return respondError(r, problem)
	}

	output, err := h.playback.NowPlaying(target.guildID)
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondEmbed(r, nowPlayingEmbed(output))
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	target, problem := parseTarget(i)
	if problem != "" {
		return respondError(r, problem)
	}

	subCmd := options[0]
	subOptions := optionMap(subCmd.Options)
	switch subCmd.Name {
	case "list":
		return h.handleQueueList(r, target, subOptions)
	case "remove":
		return h.handleQueueRemove(r, target, subOptions)
	case "move":
		return h.handleQueueMove(r, target, subOptions)
	case "promote":
		return h.handleQueuePromote(r, target, subOptions)
	case "shuffle":
		return h.handleQueueShuffle(r, target)
	case "clear":
		return h.handleQueueClear(r, target)
	case "replay":
		return h.handleQueueReplay(r, target, subOptions)
	case "history":
		return h.handleQueueHistory(r, target, subOptions)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *CommandHandlers) handleQueueList(
	r bot.Responder,
	target interactionTarget,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) error {
	output, err := h.queue.List(usecases.QueueListInput{
		GuildID: target.guildID,
		Page:    intOption(options, "page", 1),
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondEmbed(r, queueListEmbed(output))
}

func (h *CommandHandlers) handleQueueRemove(
	r bot.Responder,
	target interactionTarget,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) error {
	output, err := h.queue.Remove(usecases.QueueRemoveInput{
		GuildID:  target.guildID,
		Position: intOption(options, "position", 1) - 1,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Removed %s.", trackLink(output.Removed.Track)))
}

func (h *CommandHandlers) handleQueueMove(
	r bot.Responder,
	target interactionTarget,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) error {
	to := intOption(options, "to", 1)
	output, err := h.queue.Move(usecases.QueueMoveInput{
		GuildID: target.guildID,
		From:    intOption(options, "from", 1) - 1,
		To:      to - 1,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Moved %s to position %d.", trackLink(output.Entry.Track), to))
}

func (h *CommandHandlers) handleQueuePromote(
	r bot.Responder,
	target interactionTarget,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) error {
	output, err := h.queue.Promote(usecases.QueuePromoteInput{
		GuildID:  target.guildID,
		Position: intOption(options, "position", 0) - 1,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("%s plays next.", trackLink(output.Entry.Track)))
}

func (h *CommandHandlers) handleQueueShuffle(r bot.Responder, target interactionTarget) error {
	if err := h.queue.Shuffle(target.guildID); err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondSuccess(r, "Shuffled the queue.")
}

func (h *CommandHandlers) handleQueueClear(r bot.Responder, target interactionTarget) error {
	output, err := h.queue.Clear(target.guildID)
	if err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondSuccess(r, fmt.Sprintf("Removed %d entries from the queue.", output.ClearedCount))
}

func (h *CommandHandlers) handleQueueReplay(
	r bot.Responder,
	target interactionTarget,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) error {
	input := usecases.QueueReplayInput{GuildID: target.guildID}
	if _, ok := options["index"]; ok {
		index := intOption(options, "index", 1) - 1
		input.HistoryIndex = &index
	}
	if opt, ok := options["now"]; ok {
		input.Revert = opt.BoolValue()
	}

	if err := h.queue.Replay(context.Background(), input); err != nil {
		return respondError(r, errorMessage(err))
	}

	if input.Revert {
		return respondSuccess(r, "Replaying now.")
	}
	return respondSuccess(r, "Queued the replay to play next.")
}

func (h *CommandHandlers) handleQueueHistory(
	r bot.Responder,
	target interactionTarget,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) error {
	output, err := h.queue.History(usecases.QueueHistoryInput{
		GuildID: target.guildID,
		Page:    intOption(options, "page", 1),
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondEmbed(r, historyEmbed(output))
}

// interactionTarget identifies where a command was used and by whom.
type interactionTarget struct {
	guildID   snowflake.ID
	userID    snowflake.ID
	channelID snowflake.ID
}

// parseTarget returns a user-facing problem description when the
// interaction did not come from a guild member.
func parseTarget(i *discordgo.InteractionCreate) (interactionTarget, string) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return interactionTarget{}, "Invalid guild"
	}

	if i.Member == nil || i.Member.User == nil {
		return interactionTarget{}, "Invalid user"
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return interactionTarget{}, "Invalid user"
	}

	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return interactionTarget{}, "Invalid notification channel"
	}

	return interactionTarget{guildID: guildID, userID: userID, channelID: channelID}, ""
}

func optionMap(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func intOption(
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
	name string,
	fallback int,
) int {
	if opt, ok := options[name]; ok {
		return int(opt.IntValue())
	}
	return fallback
}

// errorMessage turns use case errors into messages for users.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, usecases.ErrNotConnected):
		return "I'm not connected to a voice channel."
	case errors.Is(err, usecases.ErrNoVoiceChannel):
		return "I couldn't find a voice channel to join. Join one first or pick one with /join."
	case errors.Is(err, usecases.ErrNotPlaying):
		return "Nothing is playing right now."
	case errors.Is(err, usecases.ErrNotPaused):
		return "Playback is not paused."
	case errors.Is(err, usecases.ErrNotSeekable):
		return "The current track can't be seeked."
	case errors.Is(err, usecases.ErrResolution):
		return "I couldn't find anything playable for that."
	case errors.Is(err, usecases.ErrWrongContentType):
		return "That link doesn't point to what I expected."
	case errors.Is(err, usecases.ErrNothingToReplay):
		return "There is nothing to replay."
	case errors.Is(err, usecases.ErrIndexOutOfRange):
		return "There is no entry at that position."
	case errors.Is(err, usecases.ErrEmptyQueue):
		return "The queue is empty."
	case errors.Is(err, usecases.ErrPlaylistNotFound):
		return "There is no playlist with that name."
	case errors.Is(err, usecases.ErrPlaylistExists):
		return "A playlist with that name already exists."
	case errors.Is(err, usecases.ErrInvalidPlaylistName):
		return "That is not a valid playlist name."
	case errors.Is(err, usecases.ErrNotPlaylistAuthor):
		return "Only the author of the playlist can change it."
	case errors.Is(err, usecases.ErrPlaylistEmpty):
		return "That playlist has no tracks yet."
	case errors.Is(err, context.DeadlineExceeded):
		return "That took too long, please try again."
	default:
		return err.Error()
	}
}
