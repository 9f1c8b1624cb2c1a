package infrastructure

import (
	"cmp"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/giesela/internal/modules/music_player/application/ports"
)

// VoiceStateProvider provides Discord voice state information from the
// session's state cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(session *discordgo.Session) *VoiceStateProvider {
	return &VoiceStateProvider{
		state: session.State,
	}
}

// GetUserVoiceChannel returns the voice channel ID that the user is currently in.
// Returns 0 if the user is not in a voice channel.
func (v *VoiceStateProvider) GetUserVoiceChannel(
	guildID, userID snowflake.ID,
) (snowflake.ID, error) {
	guild, err := v.state.Guild(guildID.String())
	if err != nil {
		return 0, err
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID.String() && vs.ChannelID != "" {
			return snowflake.Parse(vs.ChannelID)
		}
	}

	return 0, nil
}

// VoiceChannels lists the voice channels of a guild in display order.
func (v *VoiceStateProvider) VoiceChannels(guildID snowflake.ID) ([]ports.VoiceChannelInfo, error) {
	guild, err := v.state.Guild(guildID.String())
	if err != nil {
		return nil, err
	}

	channels := slices.Clone(guild.Channels)
	slices.SortStableFunc(channels, func(a, b *discordgo.Channel) int {
		return cmp.Compare(a.Position, b.Position)
	})

	var result []ports.VoiceChannelInfo
	for _, channel := range channels {
		if channel.Type != discordgo.ChannelTypeGuildVoice && channel.Type != discordgo.ChannelTypeGuildStageVoice {
			continue
		}
		id, err := snowflake.Parse(channel.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, ports.VoiceChannelInfo{ID: id, Name: channel.Name})
	}
	return result, nil
}

// CountListeners counts the non-bot members in a voice channel.
// Members missing from the cache are counted as listeners.
func (v *VoiceStateProvider) CountListeners(guildID, channelID snowflake.ID) (int, error) {
	guild, err := v.state.Guild(guildID.String())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID.String() {
			continue
		}
		if v.isBot(vs) {
			continue
		}
		count++
	}
	return count, nil
}

func (v *VoiceStateProvider) isBot(vs *discordgo.VoiceState) bool {
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	member, err := v.state.Member(vs.GuildID, vs.UserID)
	if err != nil || member.User == nil {
		return false
	}
	return member.User.Bot
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
