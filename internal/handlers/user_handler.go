package handlers

import (
	"fmt"
	"strings"

	"github.com/avelor/levelbot/internal/leveling"
	"github.com/avelor/levelbot/internal/security"
	"github.com/avelor/levelbot/pkg/logger"
)

// HandleProfile shows a user's progress card. targetID may differ from
// userID when someone looks up another member.
func (h *HandlerManager) HandleProfile(guildID, channelID, userID, targetID string, bot BotInterface) {
	if targetID == "" {
		targetID = userID
	}

	progress, err := h.ProgressRepo.GetOrCreate(guildID, targetID)
	if err != nil {
		logger.Error("Failed to load profile", "guild_id", guildID, "user_id", targetID, "error", err)
		bot.SendMessage(channelID, "❌ Could not load that profile, try again later.")
		return
	}

	rank, err := h.ProgressRepo.GetRank(guildID, targetID)
	if err != nil {
		logger.Error("Failed to compute rank", "guild_id", guildID, "user_id", targetID, "error", err)
		rank = 0
	}

	badges, err := h.BadgeRepo.GetUserBadges(guildID, targetID)
	if err != nil {
		logger.Error("Failed to load badges", "guild_id", guildID, "user_id", targetID, "error", err)
	}

	span := leveling.Span(progress.Level)
	name := bot.ResolveDisplayName(guildID, targetID)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📇 **%s**\n", name)
	fmt.Fprintf(&sb, "🏅 Level %d", progress.Level)
	if rank > 0 {
		fmt.Fprintf(&sb, "  •  Rank #%d", rank)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "✨ XP: %d / %d  (total %d)\n", progress.XP, span, progress.TotalXP)
	fmt.Fprintf(&sb, "%s\n", progress.ProgressBar(span))
	if progress.Bio != "" {
		fmt.Fprintf(&sb, "📝 %s\n", progress.Bio)
	}
	if len(badges) > 0 {
		icons := make([]string, 0, len(badges))
		for _, b := range badges {
			if b.Icon != "" {
				icons = append(icons, b.Icon)
			} else {
				icons = append(icons, b.BadgeName)
			}
		}
		fmt.Fprintf(&sb, "🎖 %s", strings.Join(icons, " "))
	}

	bot.SendMessage(channelID, sb.String())
}

// HandleRank shows only the caller's rank and level.
func (h *HandlerManager) HandleRank(guildID, channelID, userID string, bot BotInterface) {
	progress, err := h.ProgressRepo.GetOrCreate(guildID, userID)
	if err != nil {
		logger.Error("Failed to load progress", "guild_id", guildID, "user_id", userID, "error", err)
		bot.SendMessage(channelID, "❌ Could not load your rank, try again later.")
		return
	}

	rank := 0
	if h.Leaderboard != nil {
		rank, err = h.Leaderboard.Rank(guildID, userID)
		if err != nil {
			logger.Warn("Rank cache miss", "guild_id", guildID, "user_id", userID, "error", err)
			rank = 0
		}
	}
	if rank == 0 {
		rank, err = h.ProgressRepo.GetRank(guildID, userID)
		if err != nil {
			logger.Error("Failed to compute rank", "guild_id", guildID, "user_id", userID, "error", err)
			bot.SendMessage(channelID, "❌ Could not load your rank, try again later.")
			return
		}
	}

	bot.SendMessage(channelID, fmt.Sprintf("📊 You are rank **#%d** at level **%d** (%d total XP).",
		rank, progress.Level, progress.TotalXP))
}

const leaderboardSize = 10

// HandleLeaderboard shows the top members by lifetime XP. The Redis
// cache answers when available; the database is the fallback.
func (h *HandlerManager) HandleLeaderboard(guildID, channelID string, bot BotInterface) {
	type row struct {
		userID  string
		totalXP int64
	}

	var rows []row
	if h.Leaderboard != nil {
		entries, err := h.Leaderboard.Top(guildID, leaderboardSize)
		if err != nil {
			logger.Warn("Leaderboard cache miss", "guild_id", guildID, "error", err)
		} else {
			for _, e := range entries {
				rows = append(rows, row{userID: e.UserID, totalXP: e.TotalXP})
			}
		}
	}

	if len(rows) == 0 {
		entries, err := h.ProgressRepo.GetLeaderboard(guildID, leaderboardSize)
		if err != nil {
			logger.Error("Failed to load leaderboard", "guild_id", guildID, "error", err)
			bot.SendMessage(channelID, "❌ Could not load the leaderboard, try again later.")
			return
		}
		for _, e := range entries {
			rows = append(rows, row{userID: e.UserID, totalXP: e.TotalXP})
		}
	}

	if len(rows) == 0 {
		bot.SendMessage(channelID, "🏆 Nobody has earned XP here yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 **Leaderboard**\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, r := range rows {
		marker := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			marker = medals[i]
		}
		fmt.Fprintf(&sb, "%s %s — %d XP\n", marker, bot.ResolveDisplayName(guildID, r.userID), r.totalXP)
	}

	bot.SendMessage(channelID, sb.String())
}

// HandleSetBio updates the caller's profile bio after sanitization.
func (h *HandlerManager) HandleSetBio(guildID, channelID, userID, text string, bot BotInterface) {
	bio := security.SanitizeBio(text)
	if bio == "" {
		bot.SendMessage(channelID, "❌ Usage: `setbio <text>` (plain text only).")
		return
	}

	if err := h.ProgressRepo.SetBio(guildID, userID, bio); err != nil {
		logger.Error("Failed to set bio", "guild_id", guildID, "user_id", userID, "error", err)
		bot.SendMessage(channelID, "❌ Could not save your bio, try again later.")
		return
	}

	bot.SendMessage(channelID, "✅ Bio updated!")
}

// HandleViewBadges lists badges a member has earned.
func (h *HandlerManager) HandleViewBadges(guildID, channelID, userID, targetID string, bot BotInterface) {
	if targetID == "" {
		targetID = userID
	}

	badges, err := h.BadgeRepo.GetUserBadges(guildID, targetID)
	if err != nil {
		logger.Error("Failed to load badges", "guild_id", guildID, "user_id", targetID, "error", err)
		bot.SendMessage(channelID, "❌ Could not load badges, try again later.")
		return
	}

	name := bot.ResolveDisplayName(guildID, targetID)
	if len(badges) == 0 {
		bot.SendMessage(channelID, fmt.Sprintf("🎖 %s has no badges yet.", name))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎖 Badges for **%s**:\n", name)
	for _, b := range badges {
		icon := b.Icon
		if icon == "" {
			icon = "•"
		}
		fmt.Fprintf(&sb, "%s **%s** (level %d)\n", icon, b.BadgeName, b.Level)
	}

	bot.SendMessage(channelID, sb.String())
}
