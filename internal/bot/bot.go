// Package bot wires the Discord gateway to the economy and tracking
// services: prefix-command dispatch, the transfer confirmation gate, invite
// and message tracking, and the moderation utilities.
package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/betterhood/hoodbot/internal/config"
	"github.com/betterhood/hoodbot/internal/metrics"
	"github.com/betterhood/hoodbot/internal/services"
)

const commandTimeout = 2 * time.Minute

type handlerFunc func(ctx context.Context, m *discordgo.Message, args []string) error

type command struct {
	name    string
	aliases []string
	run     handlerFunc
}

// Bot owns the Discord session and routes gateway events.
type Bot struct {
	session   *discordgo.Session
	economy   *services.Economy
	cooldowns *services.Cooldowns
	tracker   *services.Tracker
	confirms  *Confirmations
	invites   *InviteCache
	metrics   *metrics.Collector
	cfg       *config.Config
	log       *zap.Logger
	github    *githubClient

	commands  map[string]*command
	startedAt time.Time
}

func New(cfg *config.Config, economy *services.Economy, cooldowns *services.Cooldowns,
	tracker *services.Tracker, collector *metrics.Collector, log *zap.Logger) (*Bot, error) {

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildInvites |
		discordgo.IntentMessageContent

	b := &Bot{
		session:   session,
		economy:   economy,
		cooldowns: cooldowns,
		tracker:   tracker,
		confirms:  NewConfirmations(),
		invites:   NewInviteCache(),
		metrics:   collector,
		cfg:       cfg,
		log:       log,
		github:    newGitHubClient(cfg.Discord.RepoURL),
		commands:  make(map[string]*command),
		startedAt: time.Now(),
	}
	b.registerCommands()

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onReactionAdd)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onInviteCreate)
	session.AddHandler(b.onInviteDelete)
	session.AddHandler(b.onGuildMemberAdd)

	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) register(name string, run handlerFunc, aliases ...string) {
	cmd := &command{name: name, aliases: aliases, run: run}
	b.commands[name] = cmd
	for _, alias := range aliases {
		b.commands[alias] = cmd
	}
}

func (b *Bot) registerCommands() {
	b.register("balance", b.cmdBalance, "bal", "money")
	b.register("deposit", b.cmdDeposit, "dep")
	b.register("withdraw", b.cmdWithdraw, "with")
	b.register("give", b.cmdGive, "pay")
	b.register("transfer", b.cmdTransfer, "send")
	b.register("daily", b.cmdDaily)
	b.register("5050", b.cmdGamble)
	b.register("steal", b.cmdSteal, "rob")
	b.register("color", b.cmdColor, "colour")
	b.register("howjoined", b.cmdHowJoined)
	b.register("messages", b.cmdMessages)
	b.register("messagelb", b.cmdMessageLeaderboard)
	b.register("botcleanup", b.cmdBotCleanup, "bcu")
	b.register("botinfo", b.cmdBotInfo)
	b.register("updates", b.cmdUpdates)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("discord session ready",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if m.GuildID != "" {
		b.trackMessage(m)
	}

	prefix := b.cfg.Discord.Prefix
	if !strings.HasPrefix(m.Content, prefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, prefix))
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	cmd, ok := b.commands[name]
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	err := cmd.run(ctx, m.Message, fields[1:])
	switch {
	case err == nil:
		b.metrics.CommandProcessed(cmd.name, "ok")
	default:
		if message, ok := services.AsRejection(err); ok {
			b.metrics.CommandProcessed(cmd.name, "rejected")
			b.replyEmbed(m.Message, errorEmbed(message))
			return
		}
		// Shared fallback reporter: log and reply with a generic failure,
		// never surface the raw error to the channel.
		b.metrics.CommandProcessed(cmd.name, "error")
		b.log.Error("command failed",
			zap.String("command", cmd.name),
			zap.String("user_id", m.Author.ID),
			zap.Error(err))
		b.replyEmbed(m.Message, errorEmbed("Something went wrong while running that command. Please try again later."))
	}
}

func (b *Bot) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	b.confirms.Resolve(r.MessageID, r.UserID, r.Emoji.Name)
}

// trackMessage counts the message and keeps the sender's reward role in sync
// with the configured thresholds.
func (b *Bot) trackMessage(m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := b.tracker.IncrementMessages(ctx, m.Author.ID)
	if err != nil {
		b.log.Warn("failed to count message", zap.String("user_id", m.Author.ID), zap.Error(err))
		return
	}

	rewards := b.cfg.Rewards.MessageRoles
	if len(rewards) == 0 || m.Member == nil {
		return
	}

	targetRole := highestReward(rewards, count)
	if targetRole == "" || hasRole(m.Member.Roles, targetRole) {
		return
	}

	for _, roleID := range rewards {
		if roleID != targetRole && hasRole(m.Member.Roles, roleID) {
			if err := b.session.GuildMemberRoleRemove(m.GuildID, m.Author.ID, roleID); err != nil {
				b.log.Warn("failed to remove reward role", zap.String("role_id", roleID), zap.Error(err))
			}
		}
	}
	if err := b.session.GuildMemberRoleAdd(m.GuildID, m.Author.ID, targetRole); err != nil {
		b.log.Warn("failed to add reward role", zap.String("role_id", targetRole), zap.Error(err))
	}
}

// highestReward returns the role for the highest threshold count has reached.
func highestReward(rewards map[int64]string, count int64) string {
	thresholds := make([]int64, 0, len(rewards))
	for threshold := range rewards {
		thresholds = append(thresholds, threshold)
	}
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i] > thresholds[j] })

	for _, threshold := range thresholds {
		if count >= threshold {
			return rewards[threshold]
		}
	}
	return ""
}

func hasRole(roles []string, roleID string) bool {
	for _, r := range roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// parseUserMention extracts a user id from a <@id> or <@!id> argument.
func parseUserMention(arg string) (string, bool) {
	if !strings.HasPrefix(arg, "<@") || !strings.HasSuffix(arg, ">") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(arg, "<@"), ">")
	id = strings.TrimPrefix(id, "!")
	if id == "" {
		return "", false
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", false
	}
	return id, true
}

func parseAmount(arg string) (int64, error) {
	amount, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, services.Reject("Invalid amount specified.")
	}
	return amount, nil
}
