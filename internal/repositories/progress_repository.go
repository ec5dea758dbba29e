package repositories

import (
	"github.com/avelor/levelbot/internal/models"
	"github.com/avelor/levelbot/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GetOrCreate returns the progress row for a member, creating the
// default row (level 1, zero XP) on first sight.
func (r *ProgressRepository) GetOrCreate(guildID, userID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	result := r.db.Where("guild_id = ? AND user_id = ?", guildID, userID).First(&prog)

	if result.Error == gorm.ErrRecordNotFound {
		prog = models.UserProgress{
			GuildID: guildID,
			UserID:  userID,
			Level:   1,
		}
		if err := r.db.Create(&prog).Error; err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to create progress")
		}
		return &prog, nil
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get progress")
	}

	return &prog, nil
}

// UpdateWithLock runs mutate on the member's progress row inside a
// transaction holding a row lock, so two concurrent messages from the
// same user cannot both read stale XP and race to write. The row is
// created first if absent.
func (r *ProgressRepository) UpdateWithLock(guildID, userID string, mutate func(*models.UserProgress) error) (*models.UserProgress, error) {
	var updated *models.UserProgress

	err := r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Where("guild_id = ? AND user_id = ?", guildID, userID)
		if tx.Dialector.Name() == "postgres" {
			// SQLite (used in tests) has no row locks; its writes are
			// serialized by the engine anyway
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var prog models.UserProgress
		if err := query.First(&prog).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return errors.Wrap(err, errors.ErrCodeInternalError, "failed to get progress")
			}
			prog = models.UserProgress{
				GuildID: guildID,
				UserID:  userID,
				Level:   1,
			}
			if err := tx.Create(&prog).Error; err != nil {
				return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create progress")
			}
		}

		if err := mutate(&prog); err != nil {
			return err
		}

		if err := tx.Save(&prog).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save progress")
		}

		updated = &prog
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// SetBio updates the member's profile bio.
func (r *ProgressRepository) SetBio(guildID, userID, bio string) error {
	_, err := r.UpdateWithLock(guildID, userID, func(p *models.UserProgress) error {
		p.Bio = bio
		return nil
	})
	return err
}

// GetLeaderboard returns the guild's top members by lifetime XP.
func (r *ProgressRepository) GetLeaderboard(guildID string, limit int) ([]models.UserProgress, error) {
	var entries []models.UserProgress
	result := r.db.Where("guild_id = ?", guildID).
		Order("total_xp DESC").
		Limit(limit).
		Find(&entries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get leaderboard")
	}

	return entries, nil
}

// GetRank returns the member's 1-based position by lifetime XP.
func (r *ProgressRepository) GetRank(guildID, userID string) (int, error) {
	prog, err := r.GetOrCreate(guildID, userID)
	if err != nil {
		return 0, err
	}

	var ahead int64
	result := r.db.Model(&models.UserProgress{}).
		Where("guild_id = ? AND total_xp > ?", guildID, prog.TotalXP).
		Count(&ahead)

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get rank")
	}

	return int(ahead) + 1, nil
}

// GetAll returns every progress row of a guild ordered by lifetime XP,
// for exports.
func (r *ProgressRepository) GetAll(guildID string) ([]models.UserProgress, error) {
	var entries []models.UserProgress
	result := r.db.Where("guild_id = ?", guildID).
		Order("total_xp DESC").
		Find(&entries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get progress rows")
	}

	return entries, nil
}
