// Package scheduler periodically identifies feeds due for refresh and
// enqueues one download_feed task per feed. It does not download anything
// itself.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"feedcloud/internal/database"
	"feedcloud/internal/metrics"
	"feedcloud/internal/queue"
)

// Scheduler runs a ticker-driven loop that selects due feeds and enqueues a
// download_feed task for each.
type Scheduler struct {
	db       database.Database
	broker   queue.Broker
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
}

func New(db database.Database, broker queue.Broker, interval time.Duration) *Scheduler {
	return &Scheduler{
		db:       db,
		broker:   broker,
		interval: interval,
		now:      time.Now,
	}
}

// Start begins the ticker-driven loop in a background goroutine. It is an
// error to call Start twice without an intervening Stop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	go s.loop()

	logrus.WithField("interval", s.interval).Info("scheduler: started")
	return nil
}

// Stop halts the loop. Safe to call even if Start was never called.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopChan)
	logrus.Info("scheduler: stopped")
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if err := s.RunCycle(context.Background()); err != nil {
				logrus.WithError(err).Error("scheduler: cycle failed")
			}
		}
	}
}

// RunCycle runs a single due-feed selection and enqueue pass. The loop
// calls it on every tick; it is exported so tests can drive it without
// waiting on the ticker.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	start := s.now()
	due, err := s.db.FindDueFeeds(ctx, start)
	if err != nil {
		return fmt.Errorf("find due feeds: %w", err)
	}

	for _, feed := range due {
		if err := s.broker.Enqueue(ctx, queue.KindDownloadFeed, feed.ID); err != nil {
			logrus.WithError(err).WithField("feed_id", feed.ID).Error("scheduler: failed to enqueue download task")
			continue
		}
	}

	metrics.SchedulerDueFeeds.Set(float64(len(due)))
	metrics.SchedulerCycleDuration.Observe(s.now().Sub(start).Seconds())
	logrus.WithField("due_count", len(due)).Debug("scheduler: cycle complete")
	return nil
}
