package repositories

import (
	"github.com/avelor/levelbot/internal/models"
	"github.com/avelor/levelbot/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// GetDefinitions returns the guild's badge definitions ordered by level.
func (r *BadgeRepository) GetDefinitions(guildID string) ([]models.BadgeDefinition, error) {
	var defs []models.BadgeDefinition
	result := r.db.Where("guild_id = ?", guildID).
		Order("level ASC").
		Find(&defs)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get badge definitions")
	}

	return defs, nil
}

// GetDefinitionByLevel returns the badge defined for an exact level, or
// nil if none exists.
func (r *BadgeRepository) GetDefinitionByLevel(guildID string, level int) (*models.BadgeDefinition, error) {
	var def models.BadgeDefinition
	result := r.db.Where("guild_id = ? AND level = ?", guildID, level).First(&def)

	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get badge definition")
	}

	return &def, nil
}

// UpsertDefinition creates or replaces the badge for a level. At most
// one badge per (guild, level).
func (r *BadgeRepository) UpsertDefinition(guildID string, level int, name, icon string) error {
	def := models.BadgeDefinition{
		GuildID: guildID,
		Level:   level,
		Name:    name,
		Icon:    icon,
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}, {Name: "level"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "icon"}),
	}).Create(&def)

	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to upsert badge definition")
	}

	return nil
}

// DeleteDefinition removes the badge defined for a level.
func (r *BadgeRepository) DeleteDefinition(guildID string, level int) error {
	result := r.db.Where("guild_id = ? AND level = ?", guildID, level).
		Delete(&models.BadgeDefinition{})

	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to delete badge definition")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "no badge defined for that level")
	}

	return nil
}

// GetUserBadges returns the badges a member holds, oldest first.
func (r *BadgeRepository) GetUserBadges(guildID, userID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	result := r.db.Where("guild_id = ? AND user_id = ?", guildID, userID).
		Order("created_at ASC").
		Find(&badges)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get user badges")
	}

	return badges, nil
}

// GrantBadge records a badge grant. Granting an already-held badge is a
// no-op, enforced by the unique index.
func (r *BadgeRepository) GrantBadge(guildID, userID, badgeName, icon string, level int) error {
	badge := models.UserBadge{
		GuildID:   guildID,
		UserID:    userID,
		BadgeName: badgeName,
		Icon:      icon,
		Level:     level,
	}

	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&badge)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to grant badge")
	}

	return nil
}
