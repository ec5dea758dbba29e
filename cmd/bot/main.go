package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/avelor/levelbot/discord"
	"github.com/avelor/levelbot/internal/cache"
	"github.com/avelor/levelbot/internal/config"
	"github.com/avelor/levelbot/internal/database"
	"github.com/avelor/levelbot/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize logger
	logger.Init()
	defer logger.Sync()

	logger.Info("Starting leveling bot...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}

	// Validate production security settings
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
		logger.Info("Production security validation passed")
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}

	// Run GORM auto-migration
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Optional Redis leaderboard cache
	var leaderboard *cache.LeaderboardCache
	if cfg.RedisEnabled() {
		leaderboard, err = cache.NewLeaderboardCache(cfg)
		if err != nil {
			logger.Warn("Leaderboard cache unavailable, serving from database", "error", err)
			leaderboard = nil
		} else {
			defer leaderboard.Close()
			logger.Info("Leaderboard cache connected", "addr", cfg.RedisAddr)
		}
	}

	// Connect to the Discord gateway
	bot, err := discord.InitBot(cfg, db, leaderboard)
	if err != nil {
		logger.Fatal("Failed to initialize bot", err)
	}

	logger.Info("Bot started successfully", "env", cfg.AppEnv)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")
	bot.Stop()
	logger.Info("Bot stopped")
}
