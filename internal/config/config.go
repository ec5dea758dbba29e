package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Discord
	BotToken string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (leaderboard cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Application
	AppEnv   string
	LogLevel string

	// Progression
	XPGainMin         int
	XPGainMax         int
	XPCooldownSeconds int

	// Interactive command flows
	SessionTimeoutSeconds int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		BotToken: getEnv("DISCORD_BOT_TOKEN", ""),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "levelbot"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "levelbot_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		XPGainMin:         getEnvInt("XP_GAIN_MIN", 5),
		XPGainMax:         getEnvInt("XP_GAIN_MAX", 10),
		XPCooldownSeconds: getEnvInt("XP_COOLDOWN_SECONDS", 60),

		SessionTimeoutSeconds: getEnvInt("SESSION_TIMEOUT_SECONDS", 60),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.XPGainMin < 1 {
		return fmt.Errorf("XP_GAIN_MIN must be at least 1")
	}
	if c.XPGainMax < c.XPGainMin {
		return fmt.Errorf("XP_GAIN_MAX must not be below XP_GAIN_MIN")
	}
	if c.XPCooldownSeconds < 0 {
		return fmt.Errorf("XP_COOLDOWN_SECONDS must not be negative")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) GetXPCooldown() time.Duration {
	return time.Duration(c.XPCooldownSeconds) * time.Second
}

func (c *Config) GetSessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
