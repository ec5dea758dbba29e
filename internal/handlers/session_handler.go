package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avelor/levelbot/internal/security"
	apperrors "github.com/avelor/levelbot/pkg/errors"
	"github.com/avelor/levelbot/pkg/logger"
	"github.com/avelor/levelbot/pkg/utils"
)

const badgeNameMaxLength = 100

func (h *HandlerManager) beginSession(session *UserSession, state string) {
	session.State = state
	session.Data = make(map[string]interface{})
	session.Deadline = time.Now().Add(h.Config.GetSessionTimeout())
}

func (h *HandlerManager) advanceSession(session *UserSession, state string) {
	session.State = state
	session.Deadline = time.Now().Add(h.Config.GetSessionTimeout())
}

func endSession(session *UserSession) {
	session.State = StateNone
	session.Data = nil
}

// StartSetRoles opens the interactive role-reward editor.
func (h *HandlerManager) StartSetRoles(guildID, channelID string, isAdmin bool, session *UserSession, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	rules, err := h.RoleRuleRepo.GetRules(guildID)
	if err != nil {
		logger.Error("Failed to load role rules", "guild_id", guildID, "error", err)
		bot.SendMessage(channelID, "❌ Could not load role rewards, try again later.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎭 **Role rewards**\n")
	if len(rules) == 0 {
		sb.WriteString("No role rewards configured yet.\n")
	} else {
		for _, r := range rules {
			fmt.Fprintf(&sb, "  • level %d → <@&%s>\n", r.LevelRequired, r.RoleID)
		}
	}
	sb.WriteString("\nReply with a level to add or change its reward, ")
	sb.WriteString("`remove <level>` to drop one, `clear` to drop all, or `done` to finish.")

	h.beginSession(session, StateSetRolesLevel)
	bot.SendMessage(channelID, sb.String())
}

// StartAddBadge opens the interactive badge creation flow.
func (h *HandlerManager) StartAddBadge(channelID string, isAdmin bool, session *UserSession, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	h.beginSession(session, StateAddBadgeLevel)
	bot.SendMessage(channelID, "🎖 Which level should earn the new badge? Reply with a number, or `cancel`.")
}

// StartRmBadge opens the interactive badge removal flow.
func (h *HandlerManager) StartRmBadge(guildID, channelID string, isAdmin bool, session *UserSession, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	badges, err := h.BadgeRepo.GetDefinitions(guildID)
	if err != nil {
		logger.Error("Failed to load badge definitions", "guild_id", guildID, "error", err)
		bot.SendMessage(channelID, "❌ Could not load badges, try again later.")
		return
	}
	if len(badges) == 0 {
		bot.SendMessage(channelID, "🎖 No badges are configured yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎖 **Configured badges**\n")
	for _, b := range badges {
		icon := b.Icon
		if icon == "" {
			icon = "•"
		}
		fmt.Fprintf(&sb, "  %s **%s** at level %d\n", icon, b.Name, b.Level)
	}
	sb.WriteString("\nReply with the level of the badge to remove, or `cancel`.")

	h.beginSession(session, StateRmBadgeLevel)
	bot.SendMessage(channelID, sb.String())
}

// StartSetBadges opens the badge management menu.
func (h *HandlerManager) StartSetBadges(guildID, channelID string, isAdmin bool, session *UserSession, bot BotInterface) {
	if !h.requireAdmin(channelID, isAdmin, bot) {
		return
	}

	badges, err := h.BadgeRepo.GetDefinitions(guildID)
	if err != nil {
		logger.Error("Failed to load badge definitions", "guild_id", guildID, "error", err)
		bot.SendMessage(channelID, "❌ Could not load badges, try again later.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎖 **Configured badges**\n")
	if len(badges) == 0 {
		sb.WriteString("No badges configured yet.\n")
	} else {
		for _, b := range badges {
			icon := b.Icon
			if icon == "" {
				icon = "•"
			}
			fmt.Fprintf(&sb, "  %s **%s** at level %d\n", icon, b.Name, b.Level)
		}
	}
	sb.WriteString("\nReply `add` to create a badge, `remove` to delete one, or `done` to finish.")

	h.beginSession(session, StateBadgesMenu)
	bot.SendMessage(channelID, sb.String())
}

// HandleSessionMessage routes a message into the caller's active flow.
// On return the session may have reached StateNone, which means the
// flow ended and the gateway should drop the session.
func (h *HandlerManager) HandleSessionMessage(guildID, channelID, userID, content string, session *UserSession, bot BotInterface) {
	text := strings.TrimSpace(content)

	if strings.EqualFold(text, "cancel") {
		endSession(session)
		bot.SendMessage(channelID, "🚫 Cancelled.")
		return
	}

	switch session.State {
	case StateSetRolesLevel:
		h.handleSetRolesLevel(guildID, channelID, text, session, bot)
	case StateSetRolesRole:
		h.handleSetRolesRole(guildID, channelID, text, session, bot)
	case StateAddBadgeLevel:
		h.handleAddBadgeLevel(channelID, text, session, bot)
	case StateAddBadgeName:
		h.handleAddBadgeName(channelID, text, session, bot)
	case StateAddBadgeIcon:
		h.handleAddBadgeIcon(guildID, channelID, text, session, bot)
	case StateRmBadgeLevel:
		h.handleRmBadgeLevel(guildID, channelID, text, session, bot)
	case StateBadgesMenu:
		h.handleBadgesMenu(guildID, channelID, text, session, bot)
	default:
		logger.Warn("Message routed to unknown session state",
			"guild_id", guildID, "user_id", userID, "state", session.State)
		endSession(session)
	}
}

func parseLevelInput(text string) (int, bool) {
	level, err := strconv.Atoi(text)
	if err != nil || level < 1 || level > maxMilestoneLevel {
		return 0, false
	}
	return level, true
}

func (h *HandlerManager) handleSetRolesLevel(guildID, channelID, text string, session *UserSession, bot BotInterface) {
	switch {
	case strings.EqualFold(text, "done"):
		endSession(session)
		bot.SendMessage(channelID, "✅ Role rewards saved.")
		return

	case strings.EqualFold(text, "clear"):
		if err := h.RoleRuleRepo.ClearRules(guildID); err != nil {
			logger.Error("Failed to clear role rules", "guild_id", guildID, "error", err)
			bot.SendMessage(channelID, "❌ Could not clear role rewards, try again later.")
			return
		}
		h.advanceSession(session, StateSetRolesLevel)
		bot.SendMessage(channelID, "✅ All role rewards removed. Reply with a level to add one, or `done`.")
		return

	case strings.HasPrefix(strings.ToLower(text), "remove "):
		level, ok := parseLevelInput(strings.TrimSpace(text[len("remove "):]))
		if !ok {
			bot.SendMessage(channelID, "❌ Usage: `remove <level>`")
			return
		}
		if err := h.RoleRuleRepo.DeleteRule(guildID, level); err != nil {
			if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
				bot.SendMessage(channelID, fmt.Sprintf("❌ No role reward at level %d.", level))
				return
			}
			logger.Error("Failed to delete role rule", "guild_id", guildID, "level", level, "error", err)
			bot.SendMessage(channelID, "❌ Could not remove that reward, try again later.")
			return
		}
		h.advanceSession(session, StateSetRolesLevel)
		bot.SendMessage(channelID, fmt.Sprintf("✅ Removed the reward at level %d. Another level, or `done`?", level))
		return
	}

	level, ok := parseLevelInput(text)
	if !ok {
		bot.SendMessage(channelID, fmt.Sprintf("❌ Reply with a level between 1 and %d, `remove <level>`, `clear`, or `done`.", maxMilestoneLevel))
		return
	}

	session.Data["level"] = level
	h.advanceSession(session, StateSetRolesRole)
	bot.SendMessage(channelID, fmt.Sprintf("Which role should level %d grant? Mention it or paste its ID.", level))
}

func (h *HandlerManager) handleSetRolesRole(guildID, channelID, text string, session *UserSession, bot BotInterface) {
	roleID := utils.StripID(text)
	if !utils.IsSnowflake(roleID) {
		bot.SendMessage(channelID, "❌ That does not look like a role. Mention it or paste its ID.")
		return
	}

	level, _ := session.Data["level"].(int)
	if err := h.RoleRuleRepo.UpsertRule(guildID, level, roleID); err != nil {
		logger.Error("Failed to upsert role rule", "guild_id", guildID, "level", level, "error", err)
		bot.SendMessage(channelID, "❌ Could not save that reward, try again later.")
		return
	}

	h.advanceSession(session, StateSetRolesLevel)
	bot.SendMessage(channelID, fmt.Sprintf("✅ Level %d now grants <@&%s>. Another level, or `done`?", level, roleID))
}

func (h *HandlerManager) handleAddBadgeLevel(channelID, text string, session *UserSession, bot BotInterface) {
	level, ok := parseLevelInput(text)
	if !ok {
		bot.SendMessage(channelID, fmt.Sprintf("❌ Reply with a level between 1 and %d, or `cancel`.", maxMilestoneLevel))
		return
	}

	session.Data["level"] = level
	h.advanceSession(session, StateAddBadgeName)
	bot.SendMessage(channelID, "What should the badge be called?")
}

func (h *HandlerManager) handleAddBadgeName(channelID, text string, session *UserSession, bot BotInterface) {
	name := security.SanitizeString(text, badgeNameMaxLength)
	if name == "" {
		bot.SendMessage(channelID, "❌ The badge needs a name (plain text).")
		return
	}

	session.Data["name"] = name
	h.advanceSession(session, StateAddBadgeIcon)
	bot.SendMessage(channelID, "Pick an emoji for the badge, or reply `skip`.")
}

func (h *HandlerManager) handleAddBadgeIcon(guildID, channelID, text string, session *UserSession, bot BotInterface) {
	icon := ""
	if !strings.EqualFold(text, "skip") {
		icon = security.SanitizeString(text, badgeNameMaxLength)
	}

	level, _ := session.Data["level"].(int)
	name, _ := session.Data["name"].(string)

	if err := h.BadgeRepo.UpsertDefinition(guildID, level, name, icon); err != nil {
		logger.Error("Failed to save badge definition",
			"guild_id", guildID, "level", level, "name", name, "error", err)
		bot.SendMessage(channelID, "❌ Could not save the badge, try again later.")
		return
	}

	endSession(session)
	display := name
	if icon != "" {
		display = icon + " " + name
	}
	bot.SendMessage(channelID, fmt.Sprintf("✅ Badge **%s** will be awarded at level %d.", display, level))
}

func (h *HandlerManager) handleRmBadgeLevel(guildID, channelID, text string, session *UserSession, bot BotInterface) {
	level, ok := parseLevelInput(text)
	if !ok {
		bot.SendMessage(channelID, "❌ Reply with the level of the badge to remove, or `cancel`.")
		return
	}

	if err := h.BadgeRepo.DeleteDefinition(guildID, level); err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			bot.SendMessage(channelID, fmt.Sprintf("❌ No badge is configured at level %d.", level))
			return
		}
		logger.Error("Failed to delete badge definition", "guild_id", guildID, "level", level, "error", err)
		bot.SendMessage(channelID, "❌ Could not remove the badge, try again later.")
		return
	}

	endSession(session)
	bot.SendMessage(channelID, fmt.Sprintf("✅ Removed the badge at level %d. Existing holders keep theirs.", level))
}

func (h *HandlerManager) handleBadgesMenu(guildID, channelID, text string, session *UserSession, bot BotInterface) {
	switch strings.ToLower(text) {
	case "add":
		h.advanceSession(session, StateAddBadgeLevel)
		session.Data = make(map[string]interface{})
		bot.SendMessage(channelID, "🎖 Which level should earn the new badge? Reply with a number, or `cancel`.")
	case "remove":
		h.advanceSession(session, StateRmBadgeLevel)
		bot.SendMessage(channelID, "Which level's badge should be removed?")
	case "done":
		endSession(session)
		bot.SendMessage(channelID, "✅ Done.")
	default:
		bot.SendMessage(channelID, "❌ Reply `add`, `remove`, or `done`.")
	}
}
