package services

import (
	"strings"

	"github.com/avelor/levelbot/internal/cache"
	"github.com/avelor/levelbot/internal/config"
	"github.com/avelor/levelbot/internal/leveling"
	"github.com/avelor/levelbot/internal/middleware"
	"github.com/avelor/levelbot/internal/models"
	"github.com/avelor/levelbot/internal/repositories"
	"github.com/avelor/levelbot/pkg/errors"
	"github.com/avelor/levelbot/pkg/logger"
	"github.com/avelor/levelbot/pkg/utils"
)

// Notifier delivers progression messages to a guild channel. The
// Discord adapter implements it; tests stub it.
type Notifier interface {
	LevelUp(channelID, userID string, level int, milestone bool)
	BadgeEarned(channelID, userID string, badge *models.BadgeDefinition)
	RoleGrantFailed(channelID, roleID string, cause error)
}

// RoleGranter is the platform capability to assign roles.
type RoleGranter interface {
	AddRole(guildID, userID, roleID string) error
	HeldRoles(guildID, userID string) ([]string, error)
}

// GainResult describes the outcome of one XP application.
type GainResult struct {
	Progress     *models.UserProgress
	OldLevel     int
	LeveledUp    bool
	Milestone    bool
	Badge        *models.BadgeDefinition
	GrantedRoles []string
}

type ProgressionService struct {
	cfg          *config.Config
	progressRepo *repositories.ProgressRepository
	guildRepo    *repositories.GuildRepository
	roleRuleRepo *repositories.RoleRuleRepository
	badgeRepo    *repositories.BadgeRepository
	cooldown     *middleware.XPCooldown
	leaderboard  *cache.LeaderboardCache
	notifier     Notifier
	granter      RoleGranter
}

func NewProgressionService(
	cfg *config.Config,
	progressRepo *repositories.ProgressRepository,
	guildRepo *repositories.GuildRepository,
	roleRuleRepo *repositories.RoleRuleRepository,
	badgeRepo *repositories.BadgeRepository,
	cooldown *middleware.XPCooldown,
	leaderboard *cache.LeaderboardCache,
	notifier Notifier,
	granter RoleGranter,
) *ProgressionService {
	return &ProgressionService{
		cfg:          cfg,
		progressRepo: progressRepo,
		guildRepo:    guildRepo,
		roleRuleRepo: roleRuleRepo,
		badgeRepo:    badgeRepo,
		cooldown:     cooldown,
		leaderboard:  leaderboard,
		notifier:     notifier,
		granter:      granter,
	}
}

// HandleMessage is the passive-gain entry point for one qualifying chat
// message. Command-prefixed messages, blacklisted channels and members
// inside the cooldown window earn nothing.
func (s *ProgressionService) HandleMessage(guildID, channelID, userID, content string) (*GainResult, error) {
	guildCfg, err := s.guildRepo.GetOrCreateConfig(guildID)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(content, guildCfg.Prefix) {
		return nil, nil
	}
	if guildCfg.IsChannelBlacklisted(channelID) {
		return nil, nil
	}
	if !s.cooldown.Allow(guildID, userID) {
		return nil, nil
	}

	gain := int64(utils.RandomInt(s.cfg.XPGainMin, s.cfg.XPGainMax))
	return s.applyGain(guildCfg, channelID, userID, gain)
}

// AddXP applies an admin-specified XP amount and runs the full level-up
// pipeline, identical to a passive gain apart from the cooldown gate.
func (s *ProgressionService) AddXP(guildID, channelID, userID string, amount int64) (*GainResult, error) {
	if amount <= 0 {
		return nil, errors.New(errors.ErrCodeValidation, "XP amount must be positive")
	}

	guildCfg, err := s.guildRepo.GetOrCreateConfig(guildID)
	if err != nil {
		return nil, err
	}

	return s.applyGain(guildCfg, channelID, userID, amount)
}

// RemoveXP removes XP, de-leveling symmetrically. Roles and badges are
// never revoked on regression; only the numbers move.
func (s *ProgressionService) RemoveXP(guildID, userID string, amount int64) (*models.UserProgress, error) {
	if amount <= 0 {
		return nil, errors.New(errors.ErrCodeValidation, "XP amount must be positive")
	}

	prog, err := s.progressRepo.UpdateWithLock(guildID, userID, func(p *models.UserProgress) error {
		p.Level, p.XP, p.TotalXP = leveling.ApplyXPRemoval(p.Level, p.XP, p.TotalXP, amount)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.updateLeaderboard(guildID, userID, prog.TotalXP)
	return prog, nil
}

func (s *ProgressionService) applyGain(guildCfg *models.GuildConfig, channelID, userID string, gain int64) (*GainResult, error) {
	guildID := guildCfg.GuildID

	var oldLevel int
	prog, err := s.progressRepo.UpdateWithLock(guildID, userID, func(p *models.UserProgress) error {
		oldLevel = p.Level
		p.Level, p.XP, p.TotalXP = leveling.ApplyXP(p.Level, p.XP, p.TotalXP, gain)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.updateLeaderboard(guildID, userID, prog.TotalXP)

	result := &GainResult{
		Progress:  prog,
		OldLevel:  oldLevel,
		LeveledUp: prog.Level > oldLevel,
	}

	if !result.LeveledUp {
		return result, nil
	}

	// Milestone congratulation and plain level-up are mutually exclusive
	result.Milestone = guildCfg.IsMilestone(prog.Level)
	if s.notifier != nil {
		s.notifier.LevelUp(channelID, userID, prog.Level, result.Milestone)
	}

	// Grant failures are reported but never abort: XP is already saved
	// and the resolver recomputes the same set on the next level-up.
	result.GrantedRoles = s.syncRoleGrants(guildID, channelID, userID, prog.Level)
	result.Badge = s.grantBadge(guildID, channelID, userID, prog.Level)

	return result, nil
}

// syncRoleGrants brings the member's roles up to what their level
// entitles them to. Returns the roles actually added.
func (s *ProgressionService) syncRoleGrants(guildID, channelID, userID string, level int) []string {
	rules, err := s.roleRuleRepo.GetRules(guildID)
	if err != nil {
		logger.Error("Failed to load role rules", "guild_id", guildID, "error", err)
		return nil
	}
	if len(rules) == 0 {
		return nil
	}

	entitled := ResolveRoleGrants(rules, level)

	held, err := s.granter.HeldRoles(guildID, userID)
	if err != nil {
		logger.Error("Failed to load member roles", "guild_id", guildID, "user_id", userID, "error", err)
		return nil
	}

	var granted []string
	for _, roleID := range MissingRoles(entitled, held) {
		if err := s.granter.AddRole(guildID, userID, roleID); err != nil {
			grantErr := errors.Wrap(err, errors.ErrCodeGrantFailed, "failed to grant role "+roleID)
			logger.Warn("Role grant failed", "guild_id", guildID, "role_id", roleID, "error", grantErr)
			if s.notifier != nil {
				s.notifier.RoleGrantFailed(channelID, roleID, grantErr)
			}
			continue
		}
		granted = append(granted, roleID)
	}

	return granted
}

// grantBadge awards the badge defined for exactly the reached level, if
// any and not already held.
func (s *ProgressionService) grantBadge(guildID, channelID, userID string, level int) *models.BadgeDefinition {
	def, err := s.badgeRepo.GetDefinitionByLevel(guildID, level)
	if err != nil {
		logger.Error("Failed to load badge definition", "guild_id", guildID, "level", level, "error", err)
		return nil
	}
	if def == nil {
		return nil
	}

	held, err := s.badgeRepo.GetUserBadges(guildID, userID)
	if err != nil {
		logger.Error("Failed to load user badges", "guild_id", guildID, "user_id", userID, "error", err)
		return nil
	}
	heldNames := make([]string, 0, len(held))
	for _, b := range held {
		heldNames = append(heldNames, b.BadgeName)
	}

	badge := ResolveBadgeGrant(def, heldNames)
	if badge == nil {
		return nil
	}

	if err := s.badgeRepo.GrantBadge(guildID, userID, badge.Name, badge.Icon, badge.Level); err != nil {
		logger.Error("Failed to grant badge", "guild_id", guildID, "user_id", userID, "badge", badge.Name, "error", err)
		return nil
	}

	if s.notifier != nil {
		s.notifier.BadgeEarned(channelID, userID, badge)
	}

	return badge
}

func (s *ProgressionService) updateLeaderboard(guildID, userID string, totalXP int64) {
	if s.leaderboard == nil {
		return
	}
	if err := s.leaderboard.SetScore(guildID, userID, totalXP); err != nil {
		logger.Warn("Leaderboard cache update failed", "guild_id", guildID, "error", err)
	}
}
