package services

import (
	"github.com/avelor/levelbot/internal/models"
	"github.com/avelor/levelbot/pkg/utils"
)

// ResolveRoleGrants returns the role IDs a member at the given level is
// entitled to: every rule whose required level is at or below it. The
// result grows monotonically with level and is safe to recompute at any
// time; the caller adds missing roles and never removes held ones.
func ResolveRoleGrants(rules []models.RoleRule, level int) []string {
	var roleIDs []string
	for _, rule := range rules {
		if rule.LevelRequired <= level {
			roleIDs = append(roleIDs, utils.StripID(rule.RoleID))
		}
	}
	return roleIDs
}

// MissingRoles returns the entitled roles the member does not hold yet.
func MissingRoles(entitled, held []string) []string {
	heldSet := make(map[string]bool, len(held))
	for _, id := range held {
		heldSet[id] = true
	}

	var missing []string
	for _, id := range entitled {
		if !heldSet[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// ResolveBadgeGrant returns the badge to grant for reaching exactly the
// definition's level, or nil when the member already holds it. Badges
// are level-exact, so at most one badge comes out of a level-up event.
func ResolveBadgeGrant(def *models.BadgeDefinition, heldNames []string) *models.BadgeDefinition {
	if def == nil {
		return nil
	}
	for _, name := range heldNames {
		if name == def.Name {
			return nil
		}
	}
	return def
}
