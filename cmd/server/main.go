// Command server runs the HTTP API surface: auth, feed CRUD, force-run,
// and entry listing/status updates.
package main

import (
	"context"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"feedcloud/internal/auth"
	"feedcloud/internal/config"
	"feedcloud/internal/database"
	"feedcloud/internal/handlers"
	"feedcloud/internal/queue"
)

func main() {
	cfg := config.Load()
	configureLogging(cfg.LogLevel)

	if err := config.Validate(cfg, true); err != nil {
		log.Fatalf("configuration invalid: %v", err)
	}

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	broker, err := newBroker(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect to broker: %v", err)
	}
	defer func() { _ = broker.Close() }()

	tokens := auth.NewTokenManager(db, cfg.AuthTokenTTL)
	router := handlers.NewRouter(db, tokens, broker)

	logrus.WithField("port", cfg.HTTPPort).Info("server: listening")
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func newBroker(ctx context.Context, cfg *config.Config) (queue.Broker, error) {
	if cfg.IsTesting {
		return queue.NewMemoryBroker(), nil
	}
	return queue.NewRedisBroker(ctx, cfg.BrokerURL)
}

func configureLogging(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	logrus.SetOutput(os.Stdout)
}
