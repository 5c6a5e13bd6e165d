package bot

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/betterhood/hoodbot/internal/models"
)

// InviteCache is an owned, guild-keyed snapshot of each guild's invites.
// It is rebuilt when a guild becomes available, patched on invite create and
// delete events, and diffed against the live list when a member joins to
// find the invite they used.
type InviteCache struct {
	mu      sync.RWMutex
	byGuild map[string][]*discordgo.Invite
}

func NewInviteCache() *InviteCache {
	return &InviteCache{byGuild: make(map[string][]*discordgo.Invite)}
}

func (c *InviteCache) Set(guildID string, invites []*discordgo.Invite) {
	c.mu.Lock()
	c.byGuild[guildID] = invites
	c.mu.Unlock()
}

func (c *InviteCache) Add(guildID string, invite *discordgo.Invite) {
	c.mu.Lock()
	c.byGuild[guildID] = append(c.byGuild[guildID], invite)
	c.mu.Unlock()
}

func (c *InviteCache) Remove(guildID, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	invites := c.byGuild[guildID]
	kept := invites[:0]
	for _, invite := range invites {
		if invite.Code != code {
			kept = append(kept, invite)
		}
	}
	c.byGuild[guildID] = kept
}

// FindUsed returns the invite from current whose use count grew past the
// cached snapshot, nil when no cached invite was consumed.
func (c *InviteCache) FindUsed(guildID string, current []*discordgo.Invite) *discordgo.Invite {
	c.mu.RLock()
	cached := c.byGuild[guildID]
	c.mu.RUnlock()

	for _, old := range cached {
		for _, now := range current {
			if old.Code == now.Code && old.Uses < now.Uses {
				return now
			}
		}
	}
	return nil
}

func (b *Bot) refreshInvites(guildID string) {
	invites, err := b.session.GuildInvites(guildID)
	if err != nil {
		b.log.Warn("failed to fetch guild invites",
			zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	b.invites.Set(guildID, invites)
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.refreshInvites(g.ID)
}

func (b *Bot) onInviteCreate(s *discordgo.Session, i *discordgo.InviteCreate) {
	b.invites.Add(i.GuildID, i.Invite)
}

func (b *Bot) onInviteDelete(s *discordgo.Session, i *discordgo.InviteDelete) {
	b.invites.Remove(i.GuildID, i.Code)
}

// onGuildMemberAdd figures out which invite the new member used and records
// it, then rebuilds the guild's snapshot.
func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	current, err := s.GuildInvites(m.GuildID)
	if err != nil {
		b.log.Warn("failed to fetch guild invites on join",
			zap.String("guild_id", m.GuildID), zap.Error(err))
		return
	}

	if used := b.invites.FindUsed(m.GuildID, current); used != nil && used.Inviter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := b.tracker.RecordJoin(ctx, models.InviteUse{
			UserID:     m.User.ID,
			GuildID:    m.GuildID,
			InviteCode: used.Code,
			InviterID:  used.Inviter.ID,
		})
		if err != nil {
			b.log.Warn("failed to record invite use", zap.Error(err))
		}
	}

	b.invites.Set(m.GuildID, current)
}
