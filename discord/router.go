package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/avelor/levelbot/internal/handlers"
	"github.com/avelor/levelbot/internal/models"
	"github.com/avelor/levelbot/pkg/logger"
	"github.com/avelor/levelbot/pkg/utils"
)

func (b *Bot) handleMessage(m *discordgo.MessageCreate) {
	guildCfg, err := b.handlers.GuildRepo.GetOrCreateConfig(m.GuildID)
	if err != nil {
		logger.Error("Failed to load guild config", "guild_id", m.GuildID, "error", err)
		return
	}

	// Active interactive flow takes the message first
	if session := b.getSession(m.ChannelID, m.Author.ID); session != nil {
		if session.Expired(time.Now()) {
			b.clearSession(m.ChannelID, m.Author.ID)
			b.SendMessage(m.ChannelID, handlers.UserMessage(handlers.ErrSessionExpired))
		} else {
			b.handlers.HandleSessionMessage(m.GuildID, m.ChannelID, m.Author.ID, m.Content, session, b)
			if session.State == handlers.StateNone {
				b.clearSession(m.ChannelID, m.Author.ID)
			}
			return
		}
	}

	if strings.HasPrefix(m.Content, guildCfg.Prefix) {
		b.handleCommand(m, guildCfg)
		return
	}

	// Passive XP gain for ordinary chat
	if _, err := b.handlers.Progression.HandleMessage(m.GuildID, m.ChannelID, m.Author.ID, m.Content); err != nil {
		b.reportError(guildCfg, fmt.Errorf("xp gain for user %s: %w", m.Author.ID, err))
	}
}

func (b *Bot) handleCommand(m *discordgo.MessageCreate, guildCfg *models.GuildConfig) {
	if guildCfg.AllowedChannel != "" && m.ChannelID != guildCfg.AllowedChannel {
		logger.Debug("Command outside allowed channel",
			"guild_id", m.GuildID, "channel_id", m.ChannelID)
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, guildCfg.Prefix))
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]

	logger.Debug("Command received",
		"guild_id", m.GuildID, "user_id", m.Author.ID, "command", command)

	isAdmin := b.memberIsAdmin(m)

	switch command {
	case "profile":
		b.handlers.HandleProfile(m.GuildID, m.ChannelID, m.Author.ID, optionalMention(args), b)
	case "rank":
		b.handlers.HandleRank(m.GuildID, m.ChannelID, m.Author.ID, b)
	case "leaderboard":
		b.handlers.HandleLeaderboard(m.GuildID, m.ChannelID, b)
	case "setbio":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(m.Content, guildCfg.Prefix+fields[0]), " "))
		b.handlers.HandleSetBio(m.GuildID, m.ChannelID, m.Author.ID, text, b)
	case "viewbadges":
		b.handlers.HandleViewBadges(m.GuildID, m.ChannelID, m.Author.ID, optionalMention(args), b)

	case "addxp":
		b.handlers.HandleAddXP(m.GuildID, m.ChannelID, m.Author.ID, isAdmin, args, b)
	case "rmxp":
		b.handlers.HandleRemoveXP(m.GuildID, m.ChannelID, m.Author.ID, isAdmin, args, b)
	case "setlevels":
		b.handlers.HandleSetLevels(m.GuildID, m.ChannelID, isAdmin, args, b)
	case "viewsettings":
		b.handlers.HandleViewSettings(m.GuildID, m.ChannelID, isAdmin, b)
	case "setprefix":
		b.handlers.HandleSetPrefix(m.GuildID, m.ChannelID, isAdmin, args, b)
	case "blacklist":
		b.handlers.HandleBlacklist(m.GuildID, m.ChannelID, isAdmin, args, b)
	case "unblacklist":
		b.handlers.HandleUnblacklist(m.GuildID, m.ChannelID, isAdmin, args, b)
	case "setchannel":
		b.handlers.HandleSetChannel(m.GuildID, m.ChannelID, isAdmin, args, b)
	case "setlogging":
		b.handlers.HandleSetLogging(m.GuildID, m.ChannelID, isAdmin, args, b)
	case "exportlevels":
		b.handlers.HandleExportLevels(m.GuildID, m.ChannelID, isAdmin, b)

	case "setroles":
		b.startFlow(m, isAdmin, func(session *handlers.UserSession) {
			b.handlers.StartSetRoles(m.GuildID, m.ChannelID, isAdmin, session, b)
		})
	case "addbadge":
		b.startFlow(m, isAdmin, func(session *handlers.UserSession) {
			b.handlers.StartAddBadge(m.ChannelID, isAdmin, session, b)
		})
	case "rmbadge":
		b.startFlow(m, isAdmin, func(session *handlers.UserSession) {
			b.handlers.StartRmBadge(m.GuildID, m.ChannelID, isAdmin, session, b)
		})
	case "setbadges":
		b.startFlow(m, isAdmin, func(session *handlers.UserSession) {
			b.handlers.StartSetBadges(m.GuildID, m.ChannelID, isAdmin, session, b)
		})

	case "help":
		b.sendHelp(m.ChannelID, guildCfg.Prefix, isAdmin)
	}
}

func (b *Bot) startFlow(m *discordgo.MessageCreate, isAdmin bool, start func(*handlers.UserSession)) {
	session := &handlers.UserSession{}
	start(session)
	if session.State != handlers.StateNone {
		b.putSession(m.ChannelID, m.Author.ID, session)
	}
}

// optionalMention extracts a user ID from an optional first argument.
func optionalMention(args []string) string {
	if len(args) == 0 {
		return ""
	}
	id := utils.StripID(args[0])
	if !utils.IsSnowflake(id) {
		return ""
	}
	return id
}

func (b *Bot) memberIsAdmin(m *discordgo.MessageCreate) bool {
	perms, err := b.session.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		logger.Warn("Failed to resolve permissions",
			"guild_id", m.GuildID, "user_id", m.Author.ID, "error", err)
		return false
	}
	return perms&discordgo.PermissionManageServer != 0 ||
		perms&discordgo.PermissionAdministrator != 0
}

// reportError surfaces an internal failure in the guild's logging
// channel when one is configured, and always logs it.
func (b *Bot) reportError(guildCfg *models.GuildConfig, err error) {
	logger.Error("Internal error", "guild_id", guildCfg.GuildID, "error", err)
	if guildCfg.LoggingChannelID != "" {
		b.SendMessage(guildCfg.LoggingChannelID, fmt.Sprintf("⚠️ Internal error: %v", err))
	}
}

func (b *Bot) sendHelp(channelID, prefix string, isAdmin bool) {
	var sb strings.Builder
	sb.WriteString("📖 **Commands**\n")
	fmt.Fprintf(&sb, "`%sprofile [@user]` — progress card\n", prefix)
	fmt.Fprintf(&sb, "`%srank` — your rank\n", prefix)
	fmt.Fprintf(&sb, "`%sleaderboard` — top members\n", prefix)
	fmt.Fprintf(&sb, "`%ssetbio <text>` — set your bio\n", prefix)
	fmt.Fprintf(&sb, "`%sviewbadges [@user]` — earned badges\n", prefix)

	if isAdmin {
		sb.WriteString("\n**Admin**\n")
		fmt.Fprintf(&sb, "`%saddxp <@user> <amount>` / `%srmxp <@user> <amount>`\n", prefix, prefix)
		fmt.Fprintf(&sb, "`%ssetlevels <l1 l2 ...>` — milestone levels\n", prefix)
		fmt.Fprintf(&sb, "`%ssetroles` / `%ssetbadges` / `%saddbadge` / `%srmbadge` — reward setup\n", prefix, prefix, prefix, prefix)
		fmt.Fprintf(&sb, "`%ssetprefix <p>`, `%sblacklist <#ch>`, `%sunblacklist <#ch>`\n", prefix, prefix, prefix)
		fmt.Fprintf(&sb, "`%ssetchannel <#ch>|off`, `%ssetlogging <#ch>|off`\n", prefix, prefix)
		fmt.Fprintf(&sb, "`%sviewsettings`, `%sexportlevels`\n", prefix, prefix)
	}

	b.SendMessage(channelID, sb.String())
}
