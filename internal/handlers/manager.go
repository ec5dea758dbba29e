package handlers

import (
	"io"
	"time"

	"github.com/avelor/levelbot/internal/cache"
	"github.com/avelor/levelbot/internal/config"
	"github.com/avelor/levelbot/internal/repositories"
	"github.com/avelor/levelbot/internal/services"
	"gorm.io/gorm"
)

// Bot interface to avoid circular dependency with the gateway package.
type BotInterface interface {
	SendMessage(channelID, content string)
	SendFile(channelID, filename string, r io.Reader)
	ResolveDisplayName(guildID, userID string) string
}

type HandlerManager struct {
	Config       *config.Config
	DB           *gorm.DB
	ProgressRepo *repositories.ProgressRepository
	GuildRepo    *repositories.GuildRepository
	RoleRuleRepo *repositories.RoleRuleRepository
	BadgeRepo    *repositories.BadgeRepository
	Progression  *services.ProgressionService
	Leaderboard  *cache.LeaderboardCache
}

func NewHandlerManager(
	cfg *config.Config,
	db *gorm.DB,
	progressRepo *repositories.ProgressRepository,
	guildRepo *repositories.GuildRepository,
	roleRuleRepo *repositories.RoleRuleRepository,
	badgeRepo *repositories.BadgeRepository,
	progression *services.ProgressionService,
	leaderboard *cache.LeaderboardCache,
) *HandlerManager {
	return &HandlerManager{
		Config:       cfg,
		DB:           db,
		ProgressRepo: progressRepo,
		GuildRepo:    guildRepo,
		RoleRuleRepo: roleRuleRepo,
		BadgeRepo:    badgeRepo,
		Progression:  progression,
		Leaderboard:  leaderboard,
	}
}

// UserSession holds conversation state for interactive admin flows.
// The gateway keeps one per (channel, user) and prunes expired ones.
type UserSession struct {
	State    string
	Data     map[string]interface{}
	Deadline time.Time
}

func (s *UserSession) Expired(now time.Time) bool {
	return now.After(s.Deadline)
}

const (
	StateNone = ""

	StateSetRolesLevel = "setroles_level"
	StateSetRolesRole  = "setroles_role"

	StateAddBadgeLevel = "addbadge_level"
	StateAddBadgeName  = "addbadge_name"
	StateAddBadgeIcon  = "addbadge_icon"

	StateRmBadgeLevel = "rmbadge_level"

	StateBadgesMenu = "badges_menu"
)
