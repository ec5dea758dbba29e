package repositories

import (
	"github.com/avelor/levelbot/internal/models"
	"github.com/avelor/levelbot/pkg/errors"
	"gorm.io/gorm"
)

type GuildRepository struct {
	db *gorm.DB
}

func NewGuildRepository(db *gorm.DB) *GuildRepository {
	return &GuildRepository{db: db}
}

// GetOrCreateConfig returns the guild config, creating the default row
// lazily on first interaction.
func (r *GuildRepository) GetOrCreateConfig(guildID string) (*models.GuildConfig, error) {
	var cfg models.GuildConfig
	result := r.db.Where("guild_id = ?", guildID).First(&cfg)

	if result.Error == gorm.ErrRecordNotFound {
		cfg = models.GuildConfig{
			GuildID:             guildID,
			Prefix:              models.DefaultPrefix,
			BlacklistedChannels: "[]",
			MilestoneLevels:     "[]",
		}
		if err := r.db.Create(&cfg).Error; err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to create guild config")
		}
		return &cfg, nil
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get guild config")
	}

	return &cfg, nil
}

// SaveConfig persists a modified guild config.
func (r *GuildRepository) SaveConfig(cfg *models.GuildConfig) error {
	if err := r.db.Save(cfg).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save guild config")
	}
	return nil
}

// SetPrefix updates the guild command prefix.
func (r *GuildRepository) SetPrefix(guildID, prefix string) error {
	cfg, err := r.GetOrCreateConfig(guildID)
	if err != nil {
		return err
	}
	cfg.Prefix = prefix
	return r.SaveConfig(cfg)
}

// SetMilestoneLevels replaces the guild's milestone level set.
func (r *GuildRepository) SetMilestoneLevels(guildID string, levels []int) error {
	cfg, err := r.GetOrCreateConfig(guildID)
	if err != nil {
		return err
	}
	cfg.SetMilestoneLevels(levels)
	return r.SaveConfig(cfg)
}

// GetMilestoneLevels returns the guild's configured milestone levels.
func (r *GuildRepository) GetMilestoneLevels(guildID string) ([]int, error) {
	cfg, err := r.GetOrCreateConfig(guildID)
	if err != nil {
		return nil, err
	}
	return cfg.MilestoneLevelList(), nil
}

// AddBlacklistedChannel excludes a channel from XP accrual. Adding an
// already excluded channel is a no-op.
func (r *GuildRepository) AddBlacklistedChannel(guildID, channelID string) error {
	cfg, err := r.GetOrCreateConfig(guildID)
	if err != nil {
		return err
	}
	if cfg.IsChannelBlacklisted(channelID) {
		return nil
	}
	cfg.SetBlacklistedChannels(append(cfg.BlacklistedChannelList(), channelID))
	return r.SaveConfig(cfg)
}

// RemoveBlacklistedChannel re-enables XP accrual in a channel.
func (r *GuildRepository) RemoveBlacklistedChannel(guildID, channelID string) error {
	cfg, err := r.GetOrCreateConfig(guildID)
	if err != nil {
		return err
	}

	channels := cfg.BlacklistedChannelList()
	kept := channels[:0]
	for _, id := range channels {
		if id != channelID {
			kept = append(kept, id)
		}
	}
	cfg.SetBlacklistedChannels(kept)
	return r.SaveConfig(cfg)
}

// SetAllowedChannel restricts community command output to one channel;
// empty clears the restriction.
func (r *GuildRepository) SetAllowedChannel(guildID, channelID string) error {
	cfg, err := r.GetOrCreateConfig(guildID)
	if err != nil {
		return err
	}
	cfg.AllowedChannel = channelID
	return r.SaveConfig(cfg)
}

// SetLoggingChannel sets the channel for operational notices; empty
// clears it.
func (r *GuildRepository) SetLoggingChannel(guildID, channelID string) error {
	cfg, err := r.GetOrCreateConfig(guildID)
	if err != nil {
		return err
	}
	cfg.LoggingChannelID = channelID
	return r.SaveConfig(cfg)
}
