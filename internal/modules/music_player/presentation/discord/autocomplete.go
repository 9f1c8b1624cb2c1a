package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/usecases"
)

const (
	// maxChoices is Discord's limit of autocomplete choices.
	maxChoices = 25
	// maxChoiceLength is Discord's limit for choice names and string values.
	maxChoiceLength = 100
	// minSearchLength avoids searching for very short queries.
	minSearchLength = 2
	// searchTimeout keeps autocomplete within Discord's response deadline.
	searchTimeout = 2500 * time.Millisecond
)

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	autocomplete *usecases.AutocompleteService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(autocomplete *usecases.AutocompleteService) *AutocompleteHandler {
	return &AutocompleteHandler{autocomplete: autocomplete}
}

// HandleInteractionCreate routes autocomplete interactions to the matching handler.
func (h *AutocompleteHandler) HandleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete {
		return
	}

	data := i.ApplicationCommandData()
	focused := focusedOption(data.Options)
	if focused == nil {
		return
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	switch data.Name {
	case "play":
		choices = h.playChoices(focused.StringValue())
	case "queue":
		guildID, err := snowflake.Parse(i.GuildID)
		if err != nil {
			slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guild", i.GuildID)
			return
		}
		typed := focusedText(focused)
		if len(data.Options) > 0 && data.Options[0].Name == "replay" {
			choices = entryChoices(h.autocomplete.HistoryEntries(guildID), typed)
		} else {
			choices = entryChoices(h.autocomplete.QueueEntries(guildID), typed)
		}
	default:
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	}); err != nil {
		slog.Debug("failed to respond to autocomplete", "command", data.Name, "error", err)
	}
}

func (h *AutocompleteHandler) playChoices(query string) []*discordgo.ApplicationCommandOptionChoice {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return []*discordgo.ApplicationCommandOptionChoice{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	output, err := h.autocomplete.SearchTracks(ctx, usecases.SearchTracksInput{
		Query: query,
		Limit: usecases.DefaultAutocompleteLimit,
	})
	if err != nil {
		slog.Debug("failed to search tracks for autocomplete", "query", query, "error", err)
		return []*discordgo.ApplicationCommandOptionChoice{}
	}

	return searchChoices(output, query)
}

// searchChoices lists the found tracks, headed by a whole-playlist option.
func searchChoices(
	output *usecases.SearchTracksOutput,
	query string,
) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(output.Tracks)+1)

	if output.IsPlaylist && len([]rune(output.PlaylistURL)) <= maxChoiceLength {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name: truncate(
				fmt.Sprintf("📋 %s (%d tracks)", output.PlaylistName, output.TrackCount),
				maxChoiceLength,
			),
			Value: output.PlaylistURL,
		})
	}

	for idx, track := range output.Tracks {
		if len(choices) == maxChoices {
			break
		}
		// Values longer than Discord allows cannot be offered.
		if track.URI == "" || len([]rune(track.URI)) > maxChoiceLength {
			continue
		}

		var name string
		if output.IsPlaylist {
			name = fmt.Sprintf("🎵 %d. %s", idx+1, track.DisplayName())
		} else {
			name = fmt.Sprintf("🎵 %s", track.DisplayName())
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(name+" ["+track.FormattedDuration()+"]", maxChoiceLength),
			Value: track.URI,
		})
	}

	if len(choices) == 0 && len([]rune(query)) <= maxChoiceLength {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate("🔍 "+query, maxChoiceLength),
			Value: query,
		})
	}

	return choices
}

// entryChoices offers 1-indexed positions of entries, filtered by what was typed.
func entryChoices(entries []usecases.QueueEntry, typed string) []*discordgo.ApplicationCommandOptionChoice {
	typed = strings.ToLower(strings.TrimSpace(typed))

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(entries), maxChoices))
	for idx, entry := range entries {
		if len(choices) == maxChoices {
			break
		}

		position := idx + 1
		name := entry.Track.DisplayName()
		if typed != "" &&
			!strings.HasPrefix(strconv.Itoa(position), typed) &&
			!strings.Contains(strings.ToLower(name), typed) {
			continue
		}

		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%d. %s", position, truncate(name, maxChoiceLength-8)),
			Value: position,
		})
	}
	return choices
}

// focusedOption finds the option being typed, looking into subcommands.
func focusedOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Focused {
			return opt
		}
		if found := focusedOption(opt.Options); found != nil {
			return found
		}
	}
	return nil
}

// focusedText returns the raw text typed into an option. Integer options
// arrive as partial input and may not be numbers yet.
func focusedText(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	switch v := opt.Value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
