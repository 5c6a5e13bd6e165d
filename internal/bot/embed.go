package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	mainEmbedColor    = 0x7289DA
	errorEmbedColor   = 0xED4245
	successEmbedColor = 0x57F287

	embedFooter = "Better Hood Money"
)

func newEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
	}
}

func errorEmbed(description string) *discordgo.MessageEmbed {
	return newEmbed("Error", description, errorEmbedColor)
}

func successEmbed(description string) *discordgo.MessageEmbed {
	return newEmbed("Success", description, successEmbedColor)
}

// replyEmbed answers the invoking message without pinging its author.
func (b *Bot) replyEmbed(m *discordgo.Message, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return b.session.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embed:           embed,
		Reference:       m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{RepliedUser: false},
	})
}

func (b *Bot) editEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageEditEmbed(channelID, messageID, embed); err != nil {
		b.log.Warn("failed to edit message", zap.Error(err))
	}
}
