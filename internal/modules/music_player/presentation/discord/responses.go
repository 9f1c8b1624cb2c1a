package discord

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/giesela/internal/bot"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/usecases"
)

const progressBarWidth = 18

var (
	errInvalidTimestamp = errors.New("invalid timestamp")
	errInvalidVolume    = errors.New("invalid volume")
)

// Response helpers.

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondSuccess(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	})
}

func respondError(r bot.Responder, message string) error {
	return respondEmbed(r, errorEmbed(message))
}

func editEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
}

func editError(r bot.Responder, message string) error {
	return editEmbed(r, errorEmbed(message))
}

func errorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: message,
		Color:       colorError,
	}
}

// describeAdded summarizes a play request for the reply.
func describeAdded(output *usecases.QueueAddOutput) string {
	var sb strings.Builder

	switch {
	case output.PlaylistName != "":
		fmt.Fprintf(&sb, "Added **%d tracks** from playlist **%s** to the queue.",
			len(output.Entries), output.PlaylistName)
	case len(output.Entries) == 1:
		fmt.Fprintf(&sb, "Added %s to the queue.", trackLink(output.Entries[0].Track))
	default:
		fmt.Fprintf(&sb, "Added **%d tracks** to the queue.", len(output.Entries))
	}

	switch {
	case output.Started:
		sb.WriteString(" Starting playback.")
	case output.Position >= 0:
		fmt.Fprintf(&sb, "\nPosition **#%d**, playing in about `%s`.",
			output.Position+1, usecases.FormatDuration(output.EstimatedWait))
	}

	for _, failed := range output.Failed {
		fmt.Fprintf(&sb, "\nCouldn't load `%s`: %s", failed.Query, errorMessage(failed.Err))
	}

	return sb.String()
}

func nowPlayingEmbed(output *usecases.NowPlayingOutput) *discordgo.MessageEmbed {
	track := output.Entry.Track

	status := "Now Playing"
	if output.State == usecases.PlayerStatePaused {
		status = "Paused"
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: status},
		Title:  truncate(track.Title, 256),
		URL:    track.URI,
		Color:  colorInfo,
	}
	if track.Artist != "" {
		embed.Description = track.Artist
	}
	if track.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.ArtworkURL}
	}

	progress := formatElapsed(output.Progress, track)
	if !track.IsStream {
		progress = progressBar(output.Progress, track.PlayableDuration(), progressBarWidth) + " " + progress
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Progress", Value: progress},
		&discordgo.MessageEmbedField{Name: "Volume", Value: formatPercent(output.Volume), Inline: true},
		&discordgo.MessageEmbedField{Name: "Up Next", Value: upNext(output), Inline: true},
	)
	if requester := output.Entry.Meta.RequesterID; requester != 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Requested by",
			Value:  fmt.Sprintf("<@%d>", requester),
			Inline: true,
		})
	}

	return embed
}

func upNext(output *usecases.NowPlayingOutput) string {
	if output.Next == nil {
		return "Nothing"
	}
	next := truncate(output.Next.Track.DisplayName(), 100)
	if more := output.QueueLength - 1; more > 0 {
		return fmt.Sprintf("%s (+%d more)", next, more)
	}
	return next
}

func queueListEmbed(output *usecases.QueueListOutput) *discordgo.MessageEmbed {
	var sb strings.Builder

	if output.Current != nil {
		sb.WriteString("### Now Playing\n")
		fmt.Fprintf(&sb, "%s `%s`\n",
			trackLink(output.Current.Track), formatElapsed(output.Progress, output.Current.Track))
	}

	if output.TotalEntries == 0 {
		sb.WriteString("Queue is empty.")
	} else {
		sb.WriteString("### Up Next\n")
		for idx, entry := range output.Entries {
			writeEntryLine(&sb, output.Offset+idx+1, entry)
		}
	}

	return &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: sb.String(),
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d · %d entries · %s total",
				output.CurrentPage,
				output.TotalPages,
				output.TotalEntries,
				usecases.FormatDuration(output.TotalDuration),
			),
		},
	}
}

func historyEmbed(output *usecases.QueueHistoryOutput) *discordgo.MessageEmbed {
	var sb strings.Builder

	if output.TotalEntries == 0 {
		sb.WriteString("Nothing has been played yet.")
	}
	for idx, entry := range output.Entries {
		writeEntryLine(&sb, output.Offset+idx+1, entry)
	}

	return &discordgo.MessageEmbed{
		Title:       "History",
		Description: sb.String(),
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d", output.CurrentPage, output.TotalPages),
		},
	}
}

func playlistListEmbed(playlists []usecases.SavedPlaylist) *discordgo.MessageEmbed {
	var sb strings.Builder

	if len(playlists) == 0 {
		sb.WriteString("No playlists yet. Create one with /playlist create.")
	}
	for _, playlist := range playlists {
		fmt.Fprintf(&sb, "**%s** by <@%d> · %d tracks · `%s`\n",
			playlist.Name,
			playlist.AuthorID,
			len(playlist.Tracks),
			usecases.FormatDuration(playlist.Duration()),
		)
	}

	return &discordgo.MessageEmbed{
		Title:       "Playlists",
		Description: sb.String(),
		Color:       colorInfo,
	}
}

func playlistShowEmbed(output *usecases.PlaylistShowOutput) *discordgo.MessageEmbed {
	var sb strings.Builder

	playlist := output.Playlist
	if playlist.Description != "" {
		sb.WriteString(playlist.Description)
		sb.WriteString("\n\n")
	}
	if len(playlist.Tracks) == 0 {
		sb.WriteString("This playlist has no tracks yet.")
	}
	for idx, track := range output.Tracks {
		fmt.Fprintf(&sb, "%d\\. %s `%s`\n", output.Offset+idx+1, trackLink(track), track.FormattedDuration())
	}

	return &discordgo.MessageEmbed{
		Title:       playlist.Name,
		Description: sb.String(),
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d · %d tracks · %s total · played %d times",
				output.CurrentPage,
				output.TotalPages,
				len(playlist.Tracks),
				usecases.FormatDuration(playlist.Duration()),
				playlist.Replays,
			),
		},
	}
}

// describePlaylistAdd summarizes a playlist addition for the reply.
func describePlaylistAdd(output *usecases.PlaylistAddOutput) string {
	var sb strings.Builder

	switch len(output.Added) {
	case 0:
		fmt.Fprintf(&sb, "Everything is already in **%s**.", output.Playlist.Name)
	case 1:
		fmt.Fprintf(&sb, "Added %s to **%s**.", trackLink(output.Added[0]), output.Playlist.Name)
	default:
		fmt.Fprintf(&sb, "Added **%d tracks** to **%s**.", len(output.Added), output.Playlist.Name)
	}
	if output.Duplicates > 0 && len(output.Added) > 0 {
		fmt.Fprintf(&sb, "\nSkipped %d already saved.", output.Duplicates)
	}
	return sb.String()
}

// trackLink renders a track as a markdown link when it has a URI.
func trackLink(track usecases.TrackDescriptor) string {
	if track.URI != "" {
		return fmt.Sprintf("[%s](%s)", track.DisplayName(), track.URI)
	}
	return fmt.Sprintf("**%s**", track.DisplayName())
}

// writeEntryLine writes a single queue entry line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeEntryLine(sb *strings.Builder, displayIndex int, entry usecases.QueueEntry) {
	fmt.Fprintf(sb, "%d\\. %s `%s`\n", displayIndex, trackLink(entry.Track), entry.Track.FormattedDuration())
}

func formatElapsed(progress time.Duration, track usecases.TrackDescriptor) string {
	if track.IsStream {
		return "LIVE"
	}
	return usecases.FormatDuration(progress) + " / " + track.FormattedDuration()
}

func formatPercent(volume float64) string {
	return strconv.Itoa(int(math.Round(volume*100))) + "%"
}

// progressBar draws a bar of width cells with a marker at the current position.
func progressBar(progress, duration time.Duration, width int) string {
	pos := 0
	if duration > 0 {
		pos = int(float64(width-1) * min(max(progress.Seconds()/duration.Seconds(), 0), 1))
	}
	return strings.Repeat("▬", pos) + "🔘" + strings.Repeat("▬", width-1-pos)
}

// parseTimestamp accepts plain seconds, mm:ss, hh:mm:ss or Go durations like 1m30s.
func parseTimestamp(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errInvalidTimestamp
	}

	if strings.ContainsAny(s, "hms") {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			return 0, errInvalidTimestamp
		}
		return d, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, errInvalidTimestamp
	}

	total := 0
	for idx, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || (idx > 0 && n >= 60) {
			return 0, errInvalidTimestamp
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}

// parseVolume accepts a percentage ("50", "50%") or a change ("+10", "-10")
// and returns it as a fraction.
func parseVolume(s string) (volume float64, relative bool, err error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, false, errInvalidVolume
	}

	relative = s[0] == '+' || s[0] == '-'
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, errInvalidVolume
	}
	return v / 100, relative, nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
