// Package config loads server settings from the environment. A .env file in
// the working directory is read first when present; real environment
// variables take precedence over it.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     int
	DBPath   string
	LogLevel slog.Level

	// Sessions
	JWTSecret string
	TokenTTL  time.Duration

	// GitHub sign-in, enabled when client id and secret are set
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// Redis token revocation, enabled when RedisAddr is set
	RedisAddr     string
	RedisPassword string

	// Image storage on S3 or MinIO, enabled when S3Bucket is set
	AWSRegion          string
	AWSEndpoint        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string
	S3UseSSL           bool

	// Upper bound on a handle availability lookup
	CheckTimeout time.Duration
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:             getEnv("DB_PATH", "data/livme.db"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		AWSRegion:          getEnv("AWS_REGION", "ap-northeast-1"),
		AWSEndpoint:        getEnv("AWS_ENDPOINT", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = getLevel("LOG_LEVEL", slog.LevelInfo); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.S3UseSSL, err = getBool("S3_USE_SSL", true); err != nil {
		return nil, err
	}
	if cfg.CheckTimeout, err = getDuration("CHECK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	cfg.GitHubCallbackURL = getEnv("GITHUB_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port))

	return cfg, nil
}

func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive duration such as 500ms or 24h, got %q", key, raw)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: %s must be true or false, got %q", key, raw)
	}
	return v, nil
}

func getLevel(key string, defaultValue slog.Level) (slog.Level, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
		return 0, fmt.Errorf("config: %s must be debug, info, warn or error, got %q", key, raw)
	}
	return level, nil
}
