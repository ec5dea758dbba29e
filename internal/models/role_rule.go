package models

import "time"

// RoleRule grants a role to every member at or above level_required.
// Rules stack: a member at level 20 holds every role ruled at 20 or
// below.
type RoleRule struct {
	ID            uint      `gorm:"primaryKey"`
	GuildID       string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_guild_level_req"`
	LevelRequired int       `gorm:"not null;uniqueIndex:idx_guild_level_req"`
	RoleID        string    `gorm:"type:varchar(32);not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name
func (RoleRule) TableName() string {
	return "role_rules"
}
