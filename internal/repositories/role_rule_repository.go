package repositories

import (
	"github.com/avelor/levelbot/internal/models"
	"github.com/avelor/levelbot/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRuleRepository struct {
	db *gorm.DB
}

func NewRoleRuleRepository(db *gorm.DB) *RoleRuleRepository {
	return &RoleRuleRepository{db: db}
}

// GetRules returns the guild's role rules ordered by required level.
func (r *RoleRuleRepository) GetRules(guildID string) ([]models.RoleRule, error) {
	var rules []models.RoleRule
	result := r.db.Where("guild_id = ?", guildID).
		Order("level_required ASC").
		Find(&rules)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get role rules")
	}

	return rules, nil
}

// UpsertRule creates or replaces the rule for a required level.
func (r *RoleRuleRepository) UpsertRule(guildID string, levelRequired int, roleID string) error {
	rule := models.RoleRule{
		GuildID:       guildID,
		LevelRequired: levelRequired,
		RoleID:        roleID,
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}, {Name: "level_required"}},
		DoUpdates: clause.AssignmentColumns([]string{"role_id"}),
	}).Create(&rule)

	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to upsert role rule")
	}

	return nil
}

// DeleteRule removes the rule for a required level.
func (r *RoleRuleRepository) DeleteRule(guildID string, levelRequired int) error {
	result := r.db.Where("guild_id = ? AND level_required = ?", guildID, levelRequired).
		Delete(&models.RoleRule{})

	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to delete role rule")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "no role rule for that level")
	}

	return nil
}

// ClearRules removes every role rule of a guild.
func (r *RoleRuleRepository) ClearRules(guildID string) error {
	result := r.db.Where("guild_id = ?", guildID).Delete(&models.RoleRule{})
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to clear role rules")
	}
	return nil
}
