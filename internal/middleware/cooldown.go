package middleware

import (
	"sync"
	"time"
)

// XPCooldown gates passive XP gains: one gain per (guild, user) per
// window. The store lives for the whole process and expired entries are
// pruned on a timer, so the map never grows with inactive users.
type XPCooldown struct {
	lastGain map[cooldownKey]time.Time
	mu       sync.Mutex

	window time.Duration
	now    func() time.Time
}

type cooldownKey struct {
	guildID string
	userID  string
}

// NewXPCooldown creates a cooldown store with the given window.
func NewXPCooldown(window time.Duration) *XPCooldown {
	c := &XPCooldown{
		lastGain: make(map[cooldownKey]time.Time),
		window:   window,
		now:      time.Now,
	}

	// Start cleanup goroutine
	go c.cleanup()

	return c
}

// Allow reports whether the user may gain XP now, and records the gain
// timestamp if so. Check and record are a single atomic step relative
// to other callers.
func (c *XPCooldown) Allow(guildID, userID string) bool {
	if c.window <= 0 {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	key := cooldownKey{guildID: guildID, userID: userID}

	if last, exists := c.lastGain[key]; exists && now.Sub(last) < c.window {
		return false
	}

	c.lastGain[key] = now
	return true
}

// Remaining returns how long until the user may gain XP again.
func (c *XPCooldown) Remaining(guildID, userID string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, exists := c.lastGain[cooldownKey{guildID: guildID, userID: userID}]
	if !exists {
		return 0
	}

	remaining := c.window - c.now().Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// cleanup removes expired entries
func (c *XPCooldown) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := c.now()
		for key, last := range c.lastGain {
			if now.Sub(last) >= c.window {
				delete(c.lastGain, key)
			}
		}
		c.mu.Unlock()
	}
}

// Reset clears all cooldowns (useful for testing)
func (c *XPCooldown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastGain = make(map[cooldownKey]time.Time)
}
