package discord

import (
	"fmt"
	"hash/fnv"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/avelor/levelbot/internal/cache"
	"github.com/avelor/levelbot/internal/config"
	"github.com/avelor/levelbot/internal/handlers"
	"github.com/avelor/levelbot/internal/middleware"
	"github.com/avelor/levelbot/internal/models"
	"github.com/avelor/levelbot/internal/repositories"
	"github.com/avelor/levelbot/internal/services"
	"github.com/avelor/levelbot/pkg/logger"
	"gorm.io/gorm"
)

const (
	workerCount       = 10
	workerQueueSize   = 100
	sessionPruneEvery = time.Minute
)

type sessionKey struct {
	ChannelID string
	UserID    string
}

type Bot struct {
	session  *discordgo.Session
	config   *config.Config
	db       *gorm.DB
	handlers *handlers.HandlerManager

	// Conversation state for interactive admin flows
	sessions map[sessionKey]*handlers.UserSession
	mu       sync.RWMutex

	// Worker pool for per-user ordered processing
	workerChans []chan *discordgo.MessageCreate

	done chan struct{}
}

func InitBot(cfg *config.Config, db *gorm.DB, leaderboard *cache.LeaderboardCache) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	bot := &Bot{
		session:     session,
		config:      cfg,
		db:          db,
		sessions:    make(map[sessionKey]*handlers.UserSession),
		workerChans: make([]chan *discordgo.MessageCreate, workerCount),
		done:        make(chan struct{}),
	}

	// Initialize repositories
	progressRepo := repositories.NewProgressRepository(db)
	guildRepo := repositories.NewGuildRepository(db)
	roleRuleRepo := repositories.NewRoleRuleRepository(db)
	badgeRepo := repositories.NewBadgeRepository(db)

	cooldown := middleware.NewXPCooldown(cfg.GetXPCooldown())

	progression := services.NewProgressionService(
		cfg, progressRepo, guildRepo, roleRuleRepo, badgeRepo,
		cooldown, leaderboard, bot, bot)

	bot.handlers = handlers.NewHandlerManager(
		cfg, db, progressRepo, guildRepo, roleRuleRepo, badgeRepo,
		progression, leaderboard)

	for i := 0; i < workerCount; i++ {
		bot.workerChans[i] = make(chan *discordgo.MessageCreate, workerQueueSize)
		go bot.startWorker(bot.workerChans[i])
	}

	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Info("Gateway ready", "username", r.User.Username, "guilds", len(r.Guilds))
	})

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open gateway: %w", err)
	}

	go bot.startSessionPruner()

	return bot, nil
}

// Stop closes the gateway connection and the background jobs.
func (b *Bot) Stop() {
	close(b.done)
	if err := b.session.Close(); err != nil {
		logger.Error("Failed to close gateway", "error", err)
	}
}

// onMessageCreate runs on the gateway goroutine. Messages are hashed by
// author to a fixed worker so each user's messages stay ordered.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	h := fnv.New32a()
	h.Write([]byte(m.Author.ID))
	idx := int(h.Sum32()) % len(b.workerChans)
	if idx < 0 {
		idx = -idx
	}
	b.workerChans[idx] <- m
}

func (b *Bot) startWorker(ch chan *discordgo.MessageCreate) {
	for {
		select {
		case m := <-ch:
			b.safeHandleMessage(m)
		case <-b.done:
			return
		}
	}
}

func (b *Bot) safeHandleMessage(m *discordgo.MessageCreate) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in message handler", "error", r, "guild_id", m.GuildID)
		}
	}()
	b.handleMessage(m)
}

// startSessionPruner expires abandoned interactive flows.
func (b *Bot) startSessionPruner() {
	ticker := time.NewTicker(sessionPruneEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.pruneSessions()
		case <-b.done:
			return
		}
	}
}

func (b *Bot) pruneSessions() {
	now := time.Now()

	b.mu.Lock()
	var expired []sessionKey
	for key, session := range b.sessions {
		if session.Expired(now) {
			delete(b.sessions, key)
			expired = append(expired, key)
		}
	}
	b.mu.Unlock()

	for _, key := range expired {
		b.SendMessage(key.ChannelID, handlers.UserMessage(handlers.ErrSessionExpired))
	}
	if len(expired) > 0 {
		logger.Debug("Pruned expired sessions", "count", len(expired))
	}
}

func (b *Bot) getSession(channelID, userID string) *handlers.UserSession {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessions[sessionKey{ChannelID: channelID, UserID: userID}]
}

func (b *Bot) putSession(channelID, userID string, session *handlers.UserSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[sessionKey{ChannelID: channelID, UserID: userID}] = session
}

func (b *Bot) clearSession(channelID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionKey{ChannelID: channelID, UserID: userID})
}

// SendMessage implements handlers.BotInterface.
func (b *Bot) SendMessage(channelID, content string) {
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		logger.Error("Failed to send message", "channel_id", channelID, "error", err)
	}
}

// SendFile implements handlers.BotInterface.
func (b *Bot) SendFile(channelID, filename string, r io.Reader) {
	if _, err := b.session.ChannelFileSend(channelID, filename, r); err != nil {
		logger.Error("Failed to send file", "channel_id", channelID, "filename", filename, "error", err)
	}
}

// ResolveDisplayName implements handlers.BotInterface. State cache
// first, REST fallback, raw ID as a last resort.
func (b *Bot) ResolveDisplayName(guildID, userID string) string {
	member, err := b.session.State.Member(guildID, userID)
	if err != nil {
		member, err = b.session.GuildMember(guildID, userID)
	}
	if err != nil || member == nil || member.User == nil {
		return userID
	}
	if member.Nick != "" {
		return member.Nick
	}
	return member.User.Username
}

// LevelUp implements services.Notifier.
func (b *Bot) LevelUp(channelID, userID string, level int, milestone bool) {
	if milestone {
		b.SendMessage(channelID, fmt.Sprintf("🏆 <@%s> hit **level %d**, a server milestone! 🎊", userID, level))
		return
	}
	b.SendMessage(channelID, fmt.Sprintf("🎉 <@%s> reached **level %d**!", userID, level))
}

// BadgeEarned implements services.Notifier.
func (b *Bot) BadgeEarned(channelID, userID string, badge *models.BadgeDefinition) {
	icon := badge.Icon
	if icon == "" {
		icon = "🎖"
	}
	b.SendMessage(channelID, fmt.Sprintf("%s <@%s> earned the **%s** badge!", icon, userID, badge.Name))
}

// RoleGrantFailed implements services.Notifier.
func (b *Bot) RoleGrantFailed(channelID, roleID string, cause error) {
	b.SendMessage(channelID, fmt.Sprintf(
		"⚠️ I could not assign <@&%s>. Check that my role sits above it and that I have **Manage Roles**.", roleID))
	logger.Warn("Role grant failed", "role_id", roleID, "error", cause)
}

// AddRole implements services.RoleGranter.
func (b *Bot) AddRole(guildID, userID, roleID string) error {
	return b.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

// HeldRoles implements services.RoleGranter.
func (b *Bot) HeldRoles(guildID, userID string) ([]string, error) {
	member, err := b.session.State.Member(guildID, userID)
	if err != nil {
		member, err = b.session.GuildMember(guildID, userID)
		if err != nil {
			return nil, err
		}
	}
	return member.Roles, nil
}
