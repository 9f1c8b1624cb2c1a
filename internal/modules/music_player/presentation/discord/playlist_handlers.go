package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/giesela/internal/bot"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/usecases"
)

// HandlePlaylist handles the /playlist command.
func (h *CommandHandlers) HandlePlaylist(
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
	name := stringOption(subOptions, "name")

	if subCmd.Name == "list" {
		return h.handlePlaylistList(r)
	}
	if name == "" {
		return respondError(r, "Please provide a playlist name.")
	}

	switch subCmd.Name {
	case "create":
		return h.handlePlaylistCreate(r, target, name, stringOption(subOptions, "description"))
	case "delete":
		return h.handlePlaylistDelete(r, target, name)
	case "add":
		return h.handlePlaylistAdd(r, target, name, stringOption(subOptions, "query"))
	case "remove":
		return h.handlePlaylistRemove(r, target, name, intOption(subOptions, "position", 1)-1)
	case "show":
		return h.handlePlaylistShow(r, name, intOption(subOptions, "page", 1))
	case "play":
		shuffle := false
		if opt, ok := subOptions["shuffle"]; ok {
			shuffle = opt.BoolValue()
		}
		return h.handlePlaylistPlay(r, target, name, shuffle)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *CommandHandlers) handlePlaylistList(r bot.Responder) error {
	playlists, err := h.playlist.List(context.Background())
	if err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondEmbed(r, playlistListEmbed(playlists))
}

func (h *CommandHandlers) handlePlaylistCreate(
	r bot.Responder,
	target interactionTarget,
	name, description string,
) error {
	playlist, err := h.playlist.Create(context.Background(), usecases.PlaylistCreateInput{
		Name:        name,
		Description: description,
		AuthorID:    target.userID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondSuccess(r, fmt.Sprintf("Created playlist **%s**.", playlist.Name))
}

func (h *CommandHandlers) handlePlaylistDelete(r bot.Responder, target interactionTarget, name string) error {
	playlist, err := h.playlist.Delete(context.Background(), usecases.PlaylistDeleteInput{
		Name:   name,
		UserID: target.userID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondSuccess(r, fmt.Sprintf("Deleted playlist **%s**.", playlist.Name))
}

// handlePlaylistAdd defers the reply since resolving a query may be slow.
func (h *CommandHandlers) handlePlaylistAdd(
	r bot.Responder,
	target interactionTarget,
	name, query string,
) error {
	if err := r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	output, err := h.playlist.AddTrack(ctx, usecases.PlaylistAddInput{
		GuildID: target.guildID,
		UserID:  target.userID,
		Name:    name,
		Query:   query,
	})
	if err != nil {
		slog.Warn("failed to add to playlist", "guild", target.guildID, "playlist", name, "error", err)
		return editError(r, errorMessage(err))
	}

	return editEmbed(r, &discordgo.MessageEmbed{
		Description: describePlaylistAdd(output),
		Color:       colorSuccess,
	})
}

func (h *CommandHandlers) handlePlaylistRemove(
	r bot.Responder,
	target interactionTarget,
	name string,
	position int,
) error {
	output, err := h.playlist.RemoveTrack(context.Background(), usecases.PlaylistRemoveInput{
		UserID:   target.userID,
		Name:     name,
		Position: position,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondSuccess(r, fmt.Sprintf(
		"Removed %s from **%s**.", trackLink(output.Removed), output.Playlist.Name,
	))
}

func (h *CommandHandlers) handlePlaylistShow(r bot.Responder, name string, page int) error {
	output, err := h.playlist.Show(context.Background(), usecases.PlaylistShowInput{
		Name: name,
		Page: page,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondEmbed(r, playlistShowEmbed(output))
}

// handlePlaylistPlay defers the reply since joining voice may be slow.
func (h *CommandHandlers) handlePlaylistPlay(
	r bot.Responder,
	target interactionTarget,
	name string,
	shuffle bool,
) error {
	if err := r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	output, err := h.playlist.Play(ctx, usecases.PlaylistPlayInput{
		GuildID:               target.guildID,
		UserID:                target.userID,
		Name:                  name,
		Shuffle:               shuffle,
		NotificationChannelID: target.channelID,
	})
	if err != nil {
		slog.Warn("failed to play playlist", "guild", target.guildID, "playlist", name, "error", err)
		return editError(r, errorMessage(err))
	}

	return editEmbed(r, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("Loaded **%d tracks** from playlist **%s**.", output.Count, output.Playlist.Name),
		Color:       colorSuccess,
	})
}

func stringOption(options map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := options[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}
