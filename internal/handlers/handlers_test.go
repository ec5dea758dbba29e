package handlers

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/avelor/levelbot/internal/config"
	"github.com/avelor/levelbot/internal/middleware"
	"github.com/avelor/levelbot/internal/models"
	"github.com/avelor/levelbot/internal/repositories"
	"github.com/avelor/levelbot/internal/services"
	apperrors "github.com/avelor/levelbot/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type mockBot struct {
	messages []string
	files    []string
}

func (m *mockBot) SendMessage(channelID, content string) {
	m.messages = append(m.messages, content)
}

func (m *mockBot) SendFile(channelID, filename string, r io.Reader) {
	m.files = append(m.files, filename)
}

func (m *mockBot) ResolveDisplayName(guildID, userID string) string {
	return "user-" + userID
}

func (m *mockBot) last() string {
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1]
}

type nopNotifier struct{}

func (nopNotifier) LevelUp(channelID, userID string, level int, milestone bool)            {}
func (nopNotifier) BadgeEarned(channelID, userID string, badge *models.BadgeDefinition)   {}
func (nopNotifier) RoleGrantFailed(channelID, roleID string, cause error)                 {}

type nopGranter struct{}

func (nopGranter) AddRole(guildID, userID, roleID string) error        { return nil }
func (nopGranter) HeldRoles(guildID, userID string) ([]string, error)  { return nil, nil }

func newTestManager(t *testing.T) *HandlerManager {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.UserProgress{},
		&models.GuildConfig{},
		&models.RoleRule{},
		&models.BadgeDefinition{},
		&models.UserBadge{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		XPGainMin:             5,
		XPGainMax:             10,
		XPCooldownSeconds:     60,
		SessionTimeoutSeconds: 60,
	}

	progressRepo := repositories.NewProgressRepository(db)
	guildRepo := repositories.NewGuildRepository(db)
	roleRuleRepo := repositories.NewRoleRuleRepository(db)
	badgeRepo := repositories.NewBadgeRepository(db)
	cooldown := middleware.NewXPCooldown(0)

	progression := services.NewProgressionService(
		cfg, progressRepo, guildRepo, roleRuleRepo, badgeRepo,
		cooldown, nil, nopNotifier{}, nopGranter{})

	return NewHandlerManager(cfg, db, progressRepo, guildRepo, roleRuleRepo, badgeRepo, progression, nil)
}

const (
	testGuild   = "100000000000000001"
	testChannel = "100000000000000002"
	testUser    = "100000000000000003"
	testAdmin   = "100000000000000004"
	testRole    = "100000000000000005"
)

func TestHandleSetBio(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	h.HandleSetBio(testGuild, testChannel, testUser, "<script>x</script>hello there", bot)
	if !strings.Contains(bot.last(), "✅") {
		t.Fatalf("expected success message, got %q", bot.last())
	}

	prog, err := h.ProgressRepo.GetOrCreate(testGuild, testUser)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if prog.Bio != "hello there" {
		t.Errorf("bio = %q, want sanitized %q", prog.Bio, "hello there")
	}
}

func TestHandleSetBioEmptyAfterSanitize(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	h.HandleSetBio(testGuild, testChannel, testUser, "<script></script>", bot)
	if !strings.Contains(bot.last(), "Usage") {
		t.Errorf("expected usage message, got %q", bot.last())
	}
}

func TestHandleProfileShowsLevelAndBio(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	if _, err := h.Progression.AddXP(testGuild, testChannel, testUser, 250); err != nil {
		t.Fatalf("AddXP failed: %v", err)
	}
	h.HandleSetBio(testGuild, testChannel, testUser, "resident lurker", bot)

	bot.messages = nil
	h.HandleProfile(testGuild, testChannel, testUser, "", bot)

	out := bot.last()
	if !strings.Contains(out, "Level 2") {
		t.Errorf("profile missing level, got %q", out)
	}
	if !strings.Contains(out, "resident lurker") {
		t.Errorf("profile missing bio, got %q", out)
	}
	if !strings.Contains(out, "user-"+testUser) {
		t.Errorf("profile missing display name, got %q", out)
	}
}

func TestHandleLeaderboardOrdering(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	users := []struct {
		id string
		xp int64
	}{
		{"100000000000000010", 50},
		{"100000000000000011", 500},
		{"100000000000000012", 200},
	}
	for _, u := range users {
		if _, err := h.Progression.AddXP(testGuild, testChannel, u.id, u.xp); err != nil {
			t.Fatalf("AddXP failed: %v", err)
		}
	}

	h.HandleLeaderboard(testGuild, testChannel, bot)
	out := bot.last()

	first := strings.Index(out, "100000000000000011")
	second := strings.Index(out, "100000000000000012")
	third := strings.Index(out, "100000000000000010")
	if first == -1 || second == -1 || third == -1 {
		t.Fatalf("leaderboard missing entries: %q", out)
	}
	if !(first < second && second < third) {
		t.Errorf("leaderboard out of order: %q", out)
	}
}

func TestHandleAddXPRequiresAdmin(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	h.HandleAddXP(testGuild, testChannel, testUser, false, []string{"<@" + testUser + ">", "100"}, bot)
	if !strings.Contains(bot.last(), "Manage Server") {
		t.Errorf("expected permission refusal, got %q", bot.last())
	}

	prog, _ := h.ProgressRepo.GetOrCreate(testGuild, testUser)
	if prog.TotalXP != 0 {
		t.Errorf("XP granted despite missing permission: %d", prog.TotalXP)
	}
}

func TestHandleAddXPAndRemoveXP(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	h.HandleAddXP(testGuild, testChannel, testAdmin, true, []string{"<@!" + testUser + ">", "132"}, bot)
	if !strings.Contains(bot.last(), "level 2") {
		t.Fatalf("expected level 2 confirmation, got %q", bot.last())
	}

	h.HandleRemoveXP(testGuild, testChannel, testAdmin, true, []string{"<@" + testUser + ">", "132"}, bot)
	if !strings.Contains(bot.last(), "level 1") {
		t.Fatalf("expected level 1 confirmation, got %q", bot.last())
	}

	prog, _ := h.ProgressRepo.GetOrCreate(testGuild, testUser)
	if prog.TotalXP != 0 || prog.Level != 1 {
		t.Errorf("progress = level %d / total %d, want level 1 / total 0", prog.Level, prog.TotalXP)
	}
}

func TestHandleAddXPValidation(t *testing.T) {
	h := newTestManager(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"bad mention", []string{"not-a-user", "10"}},
		{"bad amount", []string{"<@" + testUser + ">", "ten"}},
		{"negative amount", []string{"<@" + testUser + ">", "-5"}},
		{"zero amount", []string{"<@" + testUser + ">", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := &mockBot{}
			h.HandleAddXP(testGuild, testChannel, testAdmin, true, tt.args, bot)
			if !strings.Contains(bot.last(), "Usage") {
				t.Errorf("expected usage message, got %q", bot.last())
			}
		})
	}
}

func TestHandleSetLevels(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	h.HandleSetLevels(testGuild, testChannel, true, []string{"5", "10", "5", "25"}, bot)
	if !strings.Contains(bot.last(), "5, 10, 25") {
		t.Fatalf("expected deduplicated confirmation, got %q", bot.last())
	}

	levels, err := h.GuildRepo.GetMilestoneLevels(testGuild)
	if err != nil {
		t.Fatalf("GetMilestoneLevels failed: %v", err)
	}
	if len(levels) != 3 {
		t.Errorf("milestones = %v, want 3 deduplicated entries", levels)
	}
}

func TestHandleSetLevelsRejectsGarbage(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	h.HandleSetLevels(testGuild, testChannel, true, []string{"5", "abc"}, bot)
	if !strings.Contains(bot.last(), "not a valid level") {
		t.Errorf("expected validation message, got %q", bot.last())
	}
}

func TestHandleSetPrefix(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	h.HandleSetPrefix(testGuild, testChannel, true, []string{"?"}, bot)
	if !strings.Contains(bot.last(), "`?`") {
		t.Fatalf("expected prefix confirmation, got %q", bot.last())
	}

	cfg, _ := h.GuildRepo.GetOrCreateConfig(testGuild)
	if cfg.Prefix != "?" {
		t.Errorf("prefix = %q, want %q", cfg.Prefix, "?")
	}

	h.HandleSetPrefix(testGuild, testChannel, true, []string{"waytoolong"}, bot)
	if !strings.Contains(bot.last(), "Usage") {
		t.Errorf("expected usage message for long prefix, got %q", bot.last())
	}
}

func TestHandleBlacklistRoundTrip(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}
	blocked := "100000000000000020"

	h.HandleBlacklist(testGuild, testChannel, true, []string{"<#" + blocked + ">"}, bot)
	cfg, _ := h.GuildRepo.GetOrCreateConfig(testGuild)
	if !cfg.IsChannelBlacklisted(blocked) {
		t.Fatal("channel not blacklisted after command")
	}

	h.HandleUnblacklist(testGuild, testChannel, true, []string{"<#" + blocked + ">"}, bot)
	cfg, _ = h.GuildRepo.GetOrCreateConfig(testGuild)
	if cfg.IsChannelBlacklisted(blocked) {
		t.Fatal("channel still blacklisted after unblacklist")
	}
}

func TestHandleSetChannelOff(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}
	allowed := "100000000000000021"

	h.HandleSetChannel(testGuild, testChannel, true, []string{"<#" + allowed + ">"}, bot)
	cfg, _ := h.GuildRepo.GetOrCreateConfig(testGuild)
	if cfg.AllowedChannel != allowed {
		t.Fatalf("allowed channel = %q, want %q", cfg.AllowedChannel, allowed)
	}

	h.HandleSetChannel(testGuild, testChannel, true, []string{"off"}, bot)
	cfg, _ = h.GuildRepo.GetOrCreateConfig(testGuild)
	if cfg.AllowedChannel != "" {
		t.Errorf("allowed channel = %q after off, want empty", cfg.AllowedChannel)
	}
}

func TestHandleViewSettings(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	h.HandleSetPrefix(testGuild, testChannel, true, []string{"?"}, bot)
	h.HandleSetLevels(testGuild, testChannel, true, []string{"5", "10"}, bot)
	if err := h.RoleRuleRepo.UpsertRule(testGuild, 5, testRole); err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}
	if _, err := h.Progression.AddXP(testGuild, testChannel, testUser, 50); err != nil {
		t.Fatalf("AddXP failed: %v", err)
	}

	bot.messages = nil
	h.HandleViewSettings(testGuild, testChannel, true, bot)

	out := bot.last()
	for _, want := range []string{"`?`", "5, 10", testRole, "Tracked members: 1", "Confirmation prompts: off"} {
		if !strings.Contains(out, want) {
			t.Errorf("settings output missing %q: %q", want, out)
		}
	}
}

func TestHandleExportLevels(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}

	if _, err := h.Progression.AddXP(testGuild, testChannel, testUser, 300); err != nil {
		t.Fatalf("AddXP failed: %v", err)
	}

	h.HandleExportLevels(testGuild, testChannel, true, bot)
	if len(bot.files) != 1 || bot.files[0] != "leaderboard.xlsx" {
		t.Fatalf("expected one xlsx upload, got %v", bot.files)
	}
}

func TestSetRolesFlow(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}
	session := &UserSession{}

	h.StartSetRoles(testGuild, testChannel, true, session, bot)
	if session.State != StateSetRolesLevel {
		t.Fatalf("state = %q, want %q", session.State, StateSetRolesLevel)
	}

	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "12", session, bot)
	if session.State != StateSetRolesRole {
		t.Fatalf("state = %q after level, want %q", session.State, StateSetRolesRole)
	}

	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "<@&"+testRole+">", session, bot)
	if session.State != StateSetRolesLevel {
		t.Fatalf("state = %q after role, want back at %q", session.State, StateSetRolesLevel)
	}

	rules, err := h.RoleRuleRepo.GetRules(testGuild)
	if err != nil {
		t.Fatalf("GetRules failed: %v", err)
	}
	if len(rules) != 1 || rules[0].LevelRequired != 12 || rules[0].RoleID != testRole {
		t.Fatalf("rules = %+v, want one rule level 12 -> %s", rules, testRole)
	}

	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "done", session, bot)
	if session.State != StateNone {
		t.Errorf("state = %q after done, want cleared", session.State)
	}
}

func TestSetRolesFlowRejectsBadInput(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}
	session := &UserSession{}

	h.StartSetRoles(testGuild, testChannel, true, session, bot)
	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "not-a-level", session, bot)
	if session.State != StateSetRolesLevel {
		t.Errorf("state = %q, want unchanged on bad input", session.State)
	}

	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "cancel", session, bot)
	if session.State != StateNone {
		t.Errorf("state = %q after cancel, want cleared", session.State)
	}
}

func TestAddBadgeFlow(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}
	session := &UserSession{}

	h.StartAddBadge(testChannel, true, session, bot)
	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "10", session, bot)
	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "Veteran", session, bot)
	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "🏆", session, bot)

	if session.State != StateNone {
		t.Fatalf("state = %q after icon, want cleared", session.State)
	}

	def, err := h.BadgeRepo.GetDefinitionByLevel(testGuild, 10)
	if err != nil {
		t.Fatalf("GetDefinitionByLevel failed: %v", err)
	}
	if def == nil || def.Name != "Veteran" || def.Icon != "🏆" {
		t.Fatalf("definition = %+v, want Veteran/🏆 at level 10", def)
	}
}

func TestRmBadgeFlowMissingLevel(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}
	session := &UserSession{}

	if err := h.BadgeRepo.UpsertDefinition(testGuild, 5, "Regular", ""); err != nil {
		t.Fatalf("UpsertDefinition failed: %v", err)
	}

	h.StartRmBadge(testGuild, testChannel, true, session, bot)
	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "99", session, bot)
	if !strings.Contains(bot.last(), "No badge") {
		t.Fatalf("expected not-found message, got %q", bot.last())
	}
	if session.State != StateRmBadgeLevel {
		t.Errorf("state = %q, want flow still open after miss", session.State)
	}

	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "5", session, bot)
	if session.State != StateNone {
		t.Errorf("state = %q after removal, want cleared", session.State)
	}

	def, err := h.BadgeRepo.GetDefinitionByLevel(testGuild, 5)
	if err != nil {
		t.Fatalf("GetDefinitionByLevel failed: %v", err)
	}
	if def != nil {
		t.Errorf("definition still present after removal: %+v", def)
	}
}

func TestSetBadgesMenu(t *testing.T) {
	h := newTestManager(t)
	bot := &mockBot{}
	session := &UserSession{}

	h.StartSetBadges(testGuild, testChannel, true, session, bot)
	if session.State != StateBadgesMenu {
		t.Fatalf("state = %q, want %q", session.State, StateBadgesMenu)
	}

	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "add", session, bot)
	if session.State != StateAddBadgeLevel {
		t.Fatalf("state = %q after add, want %q", session.State, StateAddBadgeLevel)
	}

	h.HandleSessionMessage(testGuild, testChannel, testAdmin, "cancel", session, bot)
	if session.State != StateNone {
		t.Errorf("state = %q after cancel, want cleared", session.State)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"forbidden", errNeedManageServer, "Manage Server"},
		{"timeout", ErrSessionExpired, "timed out"},
		{"validation", apperrors.New(apperrors.ErrCodeValidation, "amount must be a positive number"), "amount must be"},
		{"not found", apperrors.New(apperrors.ErrCodeNotFound, "no badge at that level"), "no badge"},
		{"internal hides details", apperrors.New(apperrors.ErrCodeInternalError, "pq: connection refused"), "Something went wrong"},
		{"untyped hides details", errors.New("raw failure"), "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if !strings.Contains(got, tt.want) {
				t.Errorf("UserMessage() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestSessionExpired(t *testing.T) {
	session := &UserSession{
		State:    StateSetRolesLevel,
		Deadline: time.Now().Add(-time.Second),
	}
	if !session.Expired(time.Now()) {
		t.Error("session past deadline not reported expired")
	}

	session.Deadline = time.Now().Add(time.Minute)
	if session.Expired(time.Now()) {
		t.Error("live session reported expired")
	}
}
