// Command server runs the LIVME API.
//
// Configuration comes from the environment (see internal/config). Redis and
// S3 are optional: without Redis, revoked tokens are tracked in memory; without
// S3, image uploads answer 503.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/livme/livme/internal/auth"
	"github.com/livme/livme/internal/config"
	"github.com/livme/livme/internal/server"
	"github.com/livme/livme/internal/storage"
	"github.com/livme/livme/internal/storage/s3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run owns every resource it opens, so deferred cleanup runs on both the
// error and the shutdown path.
func run(cfg *config.Config, logger *slog.Logger) error {
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("creating database directory %s: %w", dbDir, err)
		}
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret = hex.EncodeToString(buf)
		logger.Warn("JWT_SECRET not set; using a random secret, sessions end on restart")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var images storage.ObjectStore
	if cfg.S3Enabled() {
		client, err := s3.New(ctx, s3.Config{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.AWSEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.S3Bucket,
			UseSSL:          cfg.S3UseSSL,
		}, logger)
		if err != nil {
			logger.Warn("object storage unavailable, image uploads disabled",
				slog.String("bucket", cfg.S3Bucket),
				slog.String("error", err.Error()),
			)
		} else {
			images = client
		}
	} else {
		logger.Warn("S3_BUCKET not set, image uploads disabled")
	}

	var revoker auth.Revoker
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, revoked tokens kept in memory",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			revoker = auth.NewRedisRevoker(rdb)
		}
	}

	srv, err := server.New(server.Config{
		Port:               cfg.Port,
		DBPath:             cfg.DBPath,
		JWTSecret:          jwtSecret,
		TokenTTL:           cfg.TokenTTL,
		CheckTimeout:       cfg.CheckTimeout,
		SecureCookies:      strings.HasPrefix(cfg.GitHubCallbackURL, "https://"),
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		GitHubCallbackURL:  cfg.GitHubCallbackURL,
	}, logger, images, revoker)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT or SIGTERM.
	return srv.Start()
}
