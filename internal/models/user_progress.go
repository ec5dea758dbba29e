package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UserProgress is the per-guild XP state of a single member. xp counts
// toward the next level and resets on level-up; total_xp is lifetime
// and only shrinks through explicit admin removal.
type UserProgress struct {
	ID        uint      `gorm:"primaryKey"`
	GuildID   string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_guild_user"`
	UserID    string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_guild_user"`
	XP        int64     `gorm:"default:0;not null"`
	TotalXP   int64     `gorm:"default:0;not null"`
	Level     int       `gorm:"default:1;not null"`
	Bio       string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// ProgressBar returns a visual XP bar toward the next level.
func (p *UserProgress) ProgressBar(required int64) string {
	if required <= 0 {
		return "[□□□□□□□□□□] 0%"
	}

	percentage := int(float64(p.XP) / float64(required) * 100)
	if percentage > 100 {
		percentage = 100
	}

	filledCount := percentage / 10
	emptyCount := 10 - filledCount

	bar := "["
	for i := 0; i < filledCount; i++ {
		bar += "■"
	}
	for i := 0; i < emptyCount; i++ {
		bar += "□"
	}
	bar += fmt.Sprintf("] %d%%", percentage)

	return bar
}

// BeforeSave hook for validation
func (p *UserProgress) BeforeSave(tx *gorm.DB) error {
	if p.GuildID == "" || p.UserID == "" {
		return gorm.ErrInvalidData
	}
	if p.Level < 1 || p.XP < 0 || p.TotalXP < 0 {
		return gorm.ErrInvalidData
	}
	return nil
}

// TableName specifies the table name
func (UserProgress) TableName() string {
	return "user_progress"
}
