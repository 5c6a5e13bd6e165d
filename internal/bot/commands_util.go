package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/betterhood/hoodbot/internal/services"
)

func (b *Bot) cmdColor(ctx context.Context, m *discordgo.Message, args []string) error {
	colors := b.cfg.Discord.ColorRoles
	if len(colors) == 0 {
		return services.Reject("No color roles are configured on this server.")
	}
	if len(args) < 1 {
		return services.Reject("Please specify a color.")
	}

	name := strings.ToLower(strings.Join(args, " "))
	roleID, ok := colors[name]
	if !ok {
		options := make([]string, 0, len(colors))
		for color, id := range colors {
			options = append(options, fmt.Sprintf("`%s` - <@&%s>", color, id))
		}
		sort.Strings(options)

		embed := errorEmbed("The color you provided is not valid. Please choose from the following options.")
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Color Options", Value: strings.Join(options, "\n")},
		}
		_, err := b.replyEmbed(m, embed)
		return err
	}

	if m.Member != nil && hasRole(m.Member.Roles, roleID) {
		return services.Reject("You have already selected this color.")
	}

	// Swap out any other configured color role before assigning the new one.
	if m.Member != nil {
		for _, id := range colors {
			if id != roleID && hasRole(m.Member.Roles, id) {
				if err := b.session.GuildMemberRoleRemove(m.GuildID, m.Author.ID, id); err != nil {
					return fmt.Errorf("remove color role: %w", err)
				}
			}
		}
	}
	if err := b.session.GuildMemberRoleAdd(m.GuildID, m.Author.ID, roleID); err != nil {
		return fmt.Errorf("add color role: %w", err)
	}

	_, err := b.replyEmbed(m, successEmbed(
		fmt.Sprintf("Your color has been changed to `%s`.", name)))
	return err
}

func (b *Bot) cmdHowJoined(ctx context.Context, m *discordgo.Message, args []string) error {
	if len(args) < 1 {
		return services.Reject("Please enter a valid user.")
	}
	targetID, ok := parseUserMention(args[0])
	if !ok {
		return services.Reject("Please enter a valid user.")
	}

	record, err := b.tracker.JoinRecord(ctx, m.GuildID, targetID)
	if err != nil {
		return err
	}

	var embed *discordgo.MessageEmbed
	if record != nil {
		embed = newEmbed("Invite Information",
			fmt.Sprintf("<@%s> joined using invite code `%s` created by <@%s>.",
				targetID, record.InviteCode, record.InviterID),
			mainEmbedColor)
	} else {
		embed = newEmbed("Invite Information",
			fmt.Sprintf("No information found for how <@%s> joined.", targetID),
			errorEmbedColor)
	}
	_, err = b.replyEmbed(m, embed)
	return err
}

func (b *Bot) cmdMessages(ctx context.Context, m *discordgo.Message, args []string) error {
	targetID := m.Author.ID
	if len(args) > 0 {
		id, ok := parseUserMention(args[0])
		if !ok {
			return services.Reject("Please enter a valid user.")
		}
		targetID = id
	}

	count, err := b.tracker.MessageCount(ctx, targetID)
	if err != nil {
		return err
	}

	_, err = b.replyEmbed(m, newEmbed("Message Count",
		fmt.Sprintf("<@%s> has sent **%d** messages.", targetID, count),
		mainEmbedColor))
	return err
}

func (b *Bot) cmdMessageLeaderboard(ctx context.Context, m *discordgo.Message, args []string) error {
	board, err := b.tracker.Leaderboard(ctx, 10)
	if err != nil {
		return err
	}
	if len(board) == 0 {
		return services.Reject("Nobody has sent any messages yet.")
	}

	var lines []string
	for i, entry := range board {
		lines = append(lines, fmt.Sprintf("**%d.** <@%s>: %d messages", i+1, entry.UserID, entry.Count))
	}
	_, err = b.replyEmbed(m, newEmbed("Message Leaderboard", strings.Join(lines, "\n"), mainEmbedColor))
	return err
}

// commonPrefixes are treated as other bots' invocations during cleanup.
var commonPrefixes = []string{"!", "?", ".", ",", "-", "!!", "??", "..", ",,", "--"}

func (b *Bot) cmdBotCleanup(ctx context.Context, m *discordgo.Message, args []string) error {
	perms, err := b.session.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		return fmt.Errorf("check permissions: %w", err)
	}
	if perms&discordgo.PermissionAdministrator == 0 {
		return services.Reject("You need the Administrator permission to use this command.")
	}

	limit := 100
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return services.Reject("Invalid message limit specified.")
		}
		if n > 1000 {
			n = 1000
		}
		limit = n
	}

	b.session.MessageReactionAdd(m.ChannelID, m.ID, "👌")

	deleted := 0
	before := ""
	for deleted < limit {
		batch := limit - deleted
		if batch > 100 {
			batch = 100
		}
		messages, err := b.session.ChannelMessages(m.ChannelID, batch, before, "", "")
		if err != nil {
			return fmt.Errorf("fetch messages: %w", err)
		}
		if len(messages) == 0 {
			break
		}
		before = messages[len(messages)-1].ID

		var bulk []string
		var old []string
		horizon := time.Now().Add(-14 * 24 * time.Hour)
		for _, msg := range messages {
			if !b.cleanupTarget(msg) {
				continue
			}
			if msg.Timestamp.After(horizon) {
				bulk = append(bulk, msg.ID)
			} else {
				old = append(old, msg.ID)
			}
		}

		// Bulk delete only works on messages newer than 14 days.
		if len(bulk) > 1 {
			if err := b.session.ChannelMessagesBulkDelete(m.ChannelID, bulk); err != nil {
				return fmt.Errorf("bulk delete: %w", err)
			}
		} else if len(bulk) == 1 {
			old = append(old, bulk[0])
		}
		for _, id := range old {
			if err := b.session.ChannelMessageDelete(m.ChannelID, id); err != nil {
				return fmt.Errorf("delete message: %w", err)
			}
		}
		deleted += len(messages)
	}

	_, err = b.replyEmbed(m, successEmbed("Cleanup complete."))
	return err
}

func (b *Bot) cleanupTarget(msg *discordgo.Message) bool {
	if msg.Author != nil && msg.Author.Bot {
		return true
	}
	for _, prefix := range commonPrefixes {
		if strings.HasPrefix(msg.Content, prefix) {
			return true
		}
	}
	return false
}
