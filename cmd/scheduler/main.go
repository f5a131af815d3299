// Command scheduler runs the ticker-driven due-feed selection loop,
// enqueueing one download_feed task per due feed each cycle.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"feedcloud/internal/config"
	"feedcloud/internal/database"
	"feedcloud/internal/queue"
	"feedcloud/internal/scheduler"
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

	s := scheduler.New(db, broker, cfg.TaskSchedulerInterval)
	if err := s.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	logrus.Info("scheduler: running")
	waitForShutdown()
	s.Stop()
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

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
