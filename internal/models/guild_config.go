package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

const DefaultPrefix = "!"

// GuildConfig holds per-guild settings. Channel and milestone lists are
// stored as JSON text; everything above the persistence boundary works
// with the decoded slices.
type GuildConfig struct {
	ID                  uint      `gorm:"primaryKey"`
	GuildID             string    `gorm:"type:varchar(32);uniqueIndex;not null"`
	Prefix              string    `gorm:"type:varchar(8);default:'!';not null"`
	BlacklistedChannels string    `gorm:"type:text;default:'[]'"`
	AllowedChannel      string    `gorm:"type:varchar(32)"`
	LoggingChannelID    string    `gorm:"type:varchar(32)"`
	RequireConfirm      bool      `gorm:"default:false"`
	MilestoneLevels     string    `gorm:"type:text;default:'[]'"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

// BlacklistedChannelList decodes the stored channel ID list.
func (c *GuildConfig) BlacklistedChannelList() []string {
	var channels []string
	if c.BlacklistedChannels == "" {
		return channels
	}
	_ = json.Unmarshal([]byte(c.BlacklistedChannels), &channels)
	return channels
}

// SetBlacklistedChannels encodes the channel ID list for storage.
func (c *GuildConfig) SetBlacklistedChannels(channels []string) {
	if channels == nil {
		channels = []string{}
	}
	data, _ := json.Marshal(channels)
	c.BlacklistedChannels = string(data)
}

// IsChannelBlacklisted reports whether a channel is excluded from XP.
func (c *GuildConfig) IsChannelBlacklisted(channelID string) bool {
	for _, id := range c.BlacklistedChannelList() {
		if id == channelID {
			return true
		}
	}
	return false
}

// MilestoneLevelList decodes the stored milestone level list.
func (c *GuildConfig) MilestoneLevelList() []int {
	var levels []int
	if c.MilestoneLevels == "" {
		return levels
	}
	_ = json.Unmarshal([]byte(c.MilestoneLevels), &levels)
	return levels
}

// SetMilestoneLevels encodes the milestone list, deduplicated and
// preserving first-seen order.
func (c *GuildConfig) SetMilestoneLevels(levels []int) {
	seen := make(map[int]bool)
	deduped := []int{}
	for _, l := range levels {
		if !seen[l] {
			seen[l] = true
			deduped = append(deduped, l)
		}
	}
	data, _ := json.Marshal(deduped)
	c.MilestoneLevels = string(data)
}

// IsMilestone reports whether a level is flagged for milestone
// treatment. An unconfigured set is never a milestone.
func (c *GuildConfig) IsMilestone(level int) bool {
	for _, l := range c.MilestoneLevelList() {
		if l == level {
			return true
		}
	}
	return false
}

// BeforeSave hook for validation
func (c *GuildConfig) BeforeSave(tx *gorm.DB) error {
	if c.GuildID == "" {
		return gorm.ErrInvalidData
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	return nil
}

// TableName specifies the table name
func (GuildConfig) TableName() string {
	return "guild_configs"
}
