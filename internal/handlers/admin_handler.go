package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avelor/levelbot/internal/export"
	"github.com/avelor/levelbot/internal/models"
	apperrors "github.com/avelor/levelbot/pkg/errors"
	"github.com/avelor/levelbot/pkg/logger"
	"github.com/avelor/levelbot/pkg/utils"
)

const maxMilestoneLevel = 1000

func (h *HandlerManager) requireAdmin(channelID string, isAdmin bool, bot BotInterface) bool {
	if !isAdmin {
		bot.SendMessage(channelID, UserMessage(errNeedManageServer))
		return false
	}
	return true
}

func parseUserAndAmount(args []string) (userID string, amount int64, err error) {
	if len(args) != 2 {
		return "", 0, apperrors.New(apperrors.ErrCodeValidation, "expected a user and an amount")
	}
	userID = utils.StripID(args[0])
	if !utils.IsSnowflake(userID) {
		return "", 0, apperrors.New(apperrors.ErrCodeValidation, "invalid user mention")
	}
	amount, convErr := strconv.ParseInt(args[1], 10, 64)
	if convErr != nil || amount <= 0 {
		return "", 0, apperrors.New(apperrors.ErrCodeValidation, "amount must be a positive number")
	}
	return userID, amount, nil
}

// HandleAddXP grants XP to a member, running the full level-up and
// grant pipeline. Cooldowns do not apply to admin grants.
func (h *HandlerManager) HandleAddXP(guildID, channelID, adminID string, isAdmin bool, args []string, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	targetID, amount, err := parseUserAndAmount(args)
	if err != nil {
		bot.SendMessage(channelID, "❌ Usage: `addxp <@user> <amount>`")
		return
	}

	result, err := h.Progression.AddXP(guildID, channelID, targetID, amount)
	if err != nil {
		logger.Error("Admin XP grant failed", "guild_id", guildID, "admin_id", adminID, "target_id", targetID, "error", err)
		bot.SendMessage(channelID, "❌ Could not grant XP, try again later.")
		return
	}

	logger.Info("Admin granted XP",
		"guild_id", guildID, "admin_id", adminID, "target_id", targetID, "amount", amount)
	bot.SendMessage(channelID, fmt.Sprintf("✅ Granted **%d** XP to %s (now level %d).",
		amount, bot.ResolveDisplayName(guildID, targetID), result.Progress.Level))
}

// HandleRemoveXP takes XP away from a member. Levels drop when the
// remaining XP no longer covers them; roles and badges are kept.
func (h *HandlerManager) HandleRemoveXP(guildID, channelID, adminID string, isAdmin bool, args []string, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	targetID, amount, err := parseUserAndAmount(args)
	if err != nil {
		bot.SendMessage(channelID, "❌ Usage: `rmxp <@user> <amount>`")
		return
	}

	progress, err := h.Progression.RemoveXP(guildID, targetID, amount)
	if err != nil {
		logger.Error("Admin XP removal failed", "guild_id", guildID, "admin_id", adminID, "target_id", targetID, "error", err)
		bot.SendMessage(channelID, "❌ Could not remove XP, try again later.")
		return
	}

	logger.Info("Admin removed XP",
		"guild_id", guildID, "admin_id", adminID, "target_id", targetID, "amount", amount)
	bot.SendMessage(channelID, fmt.Sprintf("✅ Removed **%d** XP from %s (now level %d).",
		amount, bot.ResolveDisplayName(guildID, targetID), progress.Level))
}

// HandleSetLevels replaces the guild's milestone level set.
func (h *HandlerManager) HandleSetLevels(guildID, channelID string, isAdmin bool, args []string, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	if len(args) == 0 {
		bot.SendMessage(channelID, "❌ Usage: `setlevels <level> [level ...]` (e.g. `setlevels 5 10 25`).")
		return
	}

	levels := make([]int, 0, len(args))
	for _, arg := range args {
		level, err := strconv.Atoi(arg)
		if err != nil || level < 1 || level > maxMilestoneLevel {
			bot.SendMessage(channelID, fmt.Sprintf("❌ `%s` is not a valid level (1-%d).", arg, maxMilestoneLevel))
			return
		}
		levels = append(levels, level)
	}

	if err := h.GuildRepo.SetMilestoneLevels(guildID, levels); err != nil {
		logger.Error("Failed to set milestone levels", "guild_id", guildID, "error", err)
		bot.SendMessage(channelID, "❌ Could not save milestone levels, try again later.")
		return
	}

	saved, _ := h.GuildRepo.GetMilestoneLevels(guildID)
	bot.SendMessage(channelID, fmt.Sprintf("✅ Milestone levels set to: %s", joinInts(saved)))
}

// HandleViewSettings prints the guild's current configuration.
func (h *HandlerManager) HandleViewSettings(guildID, channelID string, isAdmin bool, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	cfg, err := h.GuildRepo.GetOrCreateConfig(guildID)
	if err != nil {
		logger.Error("Failed to load guild config", "guild_id", guildID, "error", err)
		bot.SendMessage(channelID, "❌ Could not load settings, try again later.")
		return
	}

	rules, err := h.RoleRuleRepo.GetRules(guildID)
	if err != nil {
		logger.Error("Failed to load role rules", "guild_id", guildID, "error", err)
	}
	badges, err := h.BadgeRepo.GetDefinitions(guildID)
	if err != nil {
		logger.Error("Failed to load badge definitions", "guild_id", guildID, "error", err)
	}

	var trackedMembers int64
	h.DB.Model(&models.UserProgress{}).Where("guild_id = ?", guildID).Count(&trackedMembers)
	var grantedBadges int64
	h.DB.Model(&models.UserBadge{}).Where("guild_id = ?", guildID).Count(&grantedBadges)

	var sb strings.Builder
	sb.WriteString("⚙️ **Server settings**\n")
	fmt.Fprintf(&sb, "Prefix: `%s`\n", cfg.Prefix)
	fmt.Fprintf(&sb, "Tracked members: %d  •  Badges granted: %d\n", trackedMembers, grantedBadges)

	confirm := "off"
	if cfg.RequireConfirm {
		confirm = "on"
	}
	fmt.Fprintf(&sb, "Confirmation prompts: %s\n", confirm)

	if milestones := cfg.MilestoneLevelList(); len(milestones) > 0 {
		fmt.Fprintf(&sb, "Milestone levels: %s\n", joinInts(milestones))
	} else {
		sb.WriteString("Milestone levels: none\n")
	}

	if cfg.AllowedChannel != "" {
		fmt.Fprintf(&sb, "Commands restricted to: <#%s>\n", cfg.AllowedChannel)
	}
	if cfg.LoggingChannelID != "" {
		fmt.Fprintf(&sb, "Logging channel: <#%s>\n", cfg.LoggingChannelID)
	}
	if blacklist := cfg.BlacklistedChannelList(); len(blacklist) > 0 {
		mentions := make([]string, len(blacklist))
		for i, id := range blacklist {
			mentions[i] = "<#" + id + ">"
		}
		fmt.Fprintf(&sb, "No-XP channels: %s\n", strings.Join(mentions, " "))
	}

	if len(rules) > 0 {
		sb.WriteString("Role rewards:\n")
		for _, r := range rules {
			fmt.Fprintf(&sb, "  • level %d → <@&%s>\n", r.LevelRequired, r.RoleID)
		}
	} else {
		sb.WriteString("Role rewards: none\n")
	}

	if len(badges) > 0 {
		sb.WriteString("Badges:\n")
		for _, b := range badges {
			icon := b.Icon
			if icon == "" {
				icon = "•"
			}
			fmt.Fprintf(&sb, "  %s **%s** at level %d\n", icon, b.Name, b.Level)
		}
	} else {
		sb.WriteString("Badges: none\n")
	}

	bot.SendMessage(channelID, sb.String())
}

const maxPrefixLength = 5

// HandleSetPrefix changes the guild's command prefix.
func (h *HandlerManager) HandleSetPrefix(guildID, channelID string, isAdmin bool, args []string, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	if len(args) != 1 || args[0] == "" || len(args[0]) > maxPrefixLength || strings.ContainsAny(args[0], " \t\n") {
		bot.SendMessage(channelID, fmt.Sprintf("❌ Usage: `setprefix <prefix>` (max %d characters, no spaces).", maxPrefixLength))
		return
	}

	if err := h.GuildRepo.SetPrefix(guildID, args[0]); err != nil {
		logger.Error("Failed to set prefix", "guild_id", guildID, "error", err)
		bot.SendMessage(channelID, "❌ Could not save the prefix, try again later.")
		return
	}

	bot.SendMessage(channelID, fmt.Sprintf("✅ Prefix changed to `%s`", args[0]))
}

func parseChannelArg(args []string) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	id := utils.StripID(args[0])
	if !utils.IsSnowflake(id) {
		return "", false
	}
	return id, true
}

// HandleBlacklist excludes a channel from XP gain.
func (h *HandlerManager) HandleBlacklist(guildID, channelID string, isAdmin bool, args []string, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	target, ok := parseChannelArg(args)
	if !ok {
		bot.SendMessage(channelID, "❌ Usage: `blacklist <#channel>`")
		return
	}

	if err := h.GuildRepo.AddBlacklistedChannel(guildID, target); err != nil {
		logger.Error("Failed to blacklist channel", "guild_id", guildID, "channel_id", target, "error", err)
		bot.SendMessage(channelID, "❌ Could not update the blacklist, try again later.")
		return
	}

	bot.SendMessage(channelID, fmt.Sprintf("✅ <#%s> no longer grants XP.", target))
}

// HandleUnblacklist re-enables XP gain in a channel.
func (h *HandlerManager) HandleUnblacklist(guildID, channelID string, isAdmin bool, args []string, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	target, ok := parseChannelArg(args)
	if !ok {
		bot.SendMessage(channelID, "❌ Usage: `unblacklist <#channel>`")
		return
	}

	if err := h.GuildRepo.RemoveBlacklistedChannel(guildID, target); err != nil {
		logger.Error("Failed to unblacklist channel", "guild_id", guildID, "channel_id", target, "error", err)
		bot.SendMessage(channelID, "❌ Could not update the blacklist, try again later.")
		return
	}

	bot.SendMessage(channelID, fmt.Sprintf("✅ <#%s> grants XP again.", target))
}

// HandleSetChannel restricts bot commands to a single channel, or
// lifts the restriction with "off".
func (h *HandlerManager) HandleSetChannel(guildID, channelID string, isAdmin bool, args []string, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	if len(args) == 1 && strings.EqualFold(args[0], "off") {
		if err := h.GuildRepo.SetAllowedChannel(guildID, ""); err != nil {
			logger.Error("Failed to clear allowed channel", "guild_id", guildID, "error", err)
			bot.SendMessage(channelID, "❌ Could not update the setting, try again later.")
			return
		}
		bot.SendMessage(channelID, "✅ Commands are now allowed in every channel.")
		return
	}

	target, ok := parseChannelArg(args)
	if !ok {
		bot.SendMessage(channelID, "❌ Usage: `setchannel <#channel>` or `setchannel off`")
		return
	}

	if err := h.GuildRepo.SetAllowedChannel(guildID, target); err != nil {
		logger.Error("Failed to set allowed channel", "guild_id", guildID, "channel_id", target, "error", err)
		bot.SendMessage(channelID, "❌ Could not update the setting, try again later.")
		return
	}

	bot.SendMessage(channelID, fmt.Sprintf("✅ Commands restricted to <#%s>.", target))
}

// HandleSetLogging points error reports at a channel, or disables them
// with "off".
func (h *HandlerManager) HandleSetLogging(guildID, channelID string, isAdmin bool, args []string, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	if len(args) == 1 && strings.EqualFold(args[0], "off") {
		if err := h.GuildRepo.SetLoggingChannel(guildID, ""); err != nil {
			logger.Error("Failed to clear logging channel", "guild_id", guildID, "error", err)
			bot.SendMessage(channelID, "❌ Could not update the setting, try again later.")
			return
		}
		bot.SendMessage(channelID, "✅ Logging channel disabled.")
		return
	}

	target, ok := parseChannelArg(args)
	if !ok {
		bot.SendMessage(channelID, "❌ Usage: `setlogging <#channel>` or `setlogging off`")
		return
	}

	if err := h.GuildRepo.SetLoggingChannel(guildID, target); err != nil {
		logger.Error("Failed to set logging channel", "guild_id", guildID, "channel_id", target, "error", err)
		bot.SendMessage(channelID, "❌ Could not update the setting, try again later.")
		return
	}

	bot.SendMessage(channelID, fmt.Sprintf("✅ Errors will be reported to <#%s>.", target))
}

// HandleExportLevels uploads the full guild standings as an XLSX file.
func (h *HandlerManager) HandleExportLevels(guildID, channelID string, isAdmin bool, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	entries, err := h.ProgressRepo.GetAll(guildID)
	if err != nil {
		logger.Error("Failed to load standings for export", "guild_id", guildID, "error", err)
		bot.SendMessage(channelID, "❌ Could not build the export, try again later.")
		return
	}
	if len(entries) == 0 {
		bot.SendMessage(channelID, "🏆 Nobody has earned XP here yet.")
		return
	}

	buf, err := export.BuildLeaderboardWorkbook(entries, func(userID string) string {
		return bot.ResolveDisplayName(guildID, userID)
	})
	if err != nil {
		logger.Error("Failed to build export workbook", "guild_id", guildID, "error", err)
		bot.SendMessage(channelID, "❌ Could not build the export, try again later.")
		return
	}

	logger.Info("Exported guild standings", "guild_id", guildID, "rows", len(entries))
	bot.SendFile(channelID, "leaderboard.xlsx", buf)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
