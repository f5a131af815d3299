// Command worker runs WorkerConcurrency consumer goroutines that dequeue
// download_feed and notify_user_on_failure tasks from the broker.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"feedcloud/internal/config"
	"feedcloud/internal/database"
	"feedcloud/internal/downloader"
	"feedcloud/internal/feedfetch"
	"feedcloud/internal/metrics"
	"feedcloud/internal/notifier"
	"feedcloud/internal/queue"
	"feedcloud/internal/worker"
)

func main() {
	cfg := config.Load()
	configureLogging(cfg.LogLevel)

	if err := config.Validate(cfg, true); err != nil {
		log.Fatalf("configuration invalid: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	var dl downloader.Downloader = feedfetch.New(cfg.FeedFetchTimeout, cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurstSize)

	feedWorker := worker.New(db, dl, broker, worker.Config{
		FeedMaxFailureCount: cfg.FeedMaxFailureCount,
		BackoffMinSeconds:   cfg.BackoffMinSeconds,
		BackoffMultiplier:   cfg.BackoffMultiplier,
		BackoffMaxSeconds:   cfg.BackoffMaxSeconds,
	})
	failureNotifier := notifier.New(db, nil)

	go serveMetrics(cfg.MetricsPort)

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		wg.Add(1)
		go consume(ctx, &wg, broker, feedWorker, failureNotifier)
	}

	logrus.WithField("concurrency", cfg.WorkerConcurrency).Info("worker: running")
	waitForShutdown()
	cancel()
	wg.Wait()
}

func consume(ctx context.Context, wg *sync.WaitGroup, broker queue.Broker, feedWorker *worker.FeedWorker, failureNotifier *notifier.FailureNotifier) {
	defer wg.Done()

	for {
		msg, err := broker.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Error("worker: dequeue failed")
			continue
		}

		switch msg.Kind {
		case queue.KindDownloadFeed:
			if err := feedWorker.Run(ctx, msg.FeedID); err != nil {
				logrus.WithError(err).WithField("feed_id", msg.FeedID).Error("worker: run failed")
			}
		case queue.KindNotifyUserOnFailure:
			if err := failureNotifier.Notify(ctx, msg.FeedID); err != nil {
				logrus.WithError(err).WithField("feed_id", msg.FeedID).Error("worker: notification failed")
			}
		default:
			logrus.WithField("kind", msg.Kind).Warn("worker: unknown message kind")
		}
	}
}

func newBroker(ctx context.Context, cfg *config.Config) (queue.Broker, error) {
	if cfg.IsTesting {
		return queue.NewMemoryBroker(), nil
	}
	return queue.NewRedisBroker(ctx, cfg.BrokerURL)
}

func serveMetrics(port string) {
	if err := http.ListenAndServe(":"+port, metrics.Handler()); err != nil {
		logrus.WithError(err).Error("worker: metrics server exited")
	}
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
