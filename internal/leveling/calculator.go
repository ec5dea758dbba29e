package leveling

import "math"

// XPNeededForLevel returns the XP threshold attached to a level:
// floor(level * 100 * 1.1^level). Thresholds are strictly increasing.
func XPNeededForLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(float64(level) * 100 * math.Pow(1.1, float64(level))))
}

// Span returns the XP needed to advance from level to level+1.
func Span(level int) int64 {
	return XPNeededForLevel(level+1) - XPNeededForLevel(level)
}

// ApplyXP applies a positive XP gain and resolves any level-ups,
// including multi-level jumps from a single large grant. The returned xp
// is always below the span of the returned level.
func ApplyXP(level int, xp, totalXP, gain int64) (newLevel int, newXP, newTotalXP int64) {
	if level < 1 {
		level = 1
	}
	if gain < 0 {
		gain = 0
	}

	newXP = xp + gain
	newTotalXP = totalXP + gain

	for newXP >= Span(level) {
		newXP -= Span(level)
		level++
	}

	return level, newXP, newTotalXP
}

// ApplyXPRemoval removes XP symmetrically to ApplyXP, de-leveling with
// the same span formula. Level never drops below 1; xp and total XP
// floor at zero.
func ApplyXPRemoval(level int, xp, totalXP, loss int64) (newLevel int, newXP, newTotalXP int64) {
	if level < 1 {
		level = 1
	}
	if loss < 0 {
		loss = 0
	}

	newXP = xp - loss
	newTotalXP = totalXP - loss

	for newXP < 0 && level > 1 {
		level--
		newXP += Span(level)
	}

	if newXP < 0 {
		newXP = 0
	}
	if newTotalXP < 0 {
		newTotalXP = 0
	}

	return level, newXP, newTotalXP
}
