package infrastructure

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
	"github.com/sglre6355/giesela/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed = 0xE74C3C
)

// Notifier sends notifications to Discord channels and sets the bot's presence.
type Notifier struct {
	session *discordgo.Session
	artwork *artworkResolver
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session: session,
		artwork: newArtworkResolver(&http.Client{Timeout: artworkProbeTimeout}),
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(
	channelID snowflake.ID,
	info *ports.NowPlayingInfo,
) (snowflake.ID, error) {
	embed := n.nowPlayingEmbed(info)

	msg, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	if err != nil {
		return 0, err
	}
	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return 0, err
	}
	return messageID, nil
}

func (n *Notifier) nowPlayingEmbed(info *ports.NowPlayingInfo) *discordgo.MessageEmbed {
	track := info.Track
	source := track.Source()

	author := "Now Playing"
	if info.Paused {
		author = "Paused"
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    author,
			IconURL: source.IconURL(),
		},
		Title: track.Title,
		URL:   track.URI,
		Color: source.Color(),
	}
	if !info.RequestedAt.IsZero() {
		embed.Timestamp = info.RequestedAt.UTC().Format(time.RFC3339)
	}

	if track.Artist != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Artist",
			Value:  track.Artist,
			Inline: true,
		})
	}
	if track.Album != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Album",
			Value:  track.Album,
			Inline: true,
		})
	}

	// Only show duration for non-stream tracks
	if !track.IsStream {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Duration",
			Value:  formatProgress(info.Progress, track.PlayableDuration()),
			Inline: true,
		})
	}
	if info.QueueLength > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Up Next",
			Value:  fmt.Sprintf("%d in queue", info.QueueLength),
			Inline: true,
		})
	}

	if info.RequesterName != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("Requested by %s", info.RequesterName),
			IconURL: info.RequesterAvatarURL,
		}
	}

	if artworkURL := n.artwork.Resolve(track); artworkURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: artworkURL}
	}

	return embed
}

// formatProgress renders "elapsed / total", or just the total before playback started.
func formatProgress(progress, duration time.Duration) string {
	if progress <= 0 {
		return domain.FormatDuration(duration)
	}
	return domain.FormatDuration(progress) + " / " + domain.FormatDuration(duration)
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error {
	return n.session.ChannelMessageDelete(channelID.String(), messageID.String())
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// UpdateListening shows "Listening to <name>" as the bot's activity,
// or clears it for an empty name.
func (n *Notifier) UpdateListening(name string) error {
	return n.session.UpdateListeningStatus(name)
}

// Ensure Notifier implements the notification ports.
var (
	_ ports.NotificationSender = (*Notifier)(nil)
	_ ports.PresenceUpdater    = (*Notifier)(nil)
)
