package models

import "time"

// BadgeDefinition awards a badge on reaching an exact level. Unlike
// role rules, badge lookups are level-exact, and a guild may define at
// most one badge per level.
type BadgeDefinition struct {
	ID        uint      `gorm:"primaryKey"`
	GuildID   string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_guild_badge_level"`
	Level     int       `gorm:"not null;uniqueIndex:idx_guild_badge_level"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Icon      string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name
func (BadgeDefinition) TableName() string {
	return "badge_definitions"
}

// UserBadge records a granted badge. Existence of a row means the user
// holds the badge; grants are idempotent.
type UserBadge struct {
	ID        uint      `gorm:"primaryKey"`
	GuildID   string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_guild_user_badge"`
	UserID    string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_guild_user_badge"`
	BadgeName string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_guild_user_badge"`
	Icon      string    `gorm:"type:varchar(100)"`
	Level     int       `gorm:"default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name
func (UserBadge) TableName() string {
	return "user_badges"
}
