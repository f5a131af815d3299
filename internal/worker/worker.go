// Package worker implements the Feed Worker: one refresh attempt for one
// feed, dispatched from internal/queue's download_feed consumers.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"feedcloud/internal/database"
	"feedcloud/internal/downloader"
	"feedcloud/internal/metrics"
	"feedcloud/internal/queue"
)

// Config carries the subset of internal/config.Config the worker needs,
// kept narrow so tests can construct it without the full process config.
type Config struct {
	FeedMaxFailureCount int
	BackoffMinSeconds   int
	BackoffMultiplier   int
	BackoffMaxSeconds   int
}

// FeedWorker executes download_feed tasks against a Database, a Downloader,
// and a Broker (for the terminal-failure fan-out).
type FeedWorker struct {
	db         database.Database
	downloader downloader.Downloader
	broker     queue.Broker
	cfg        Config
	now        func() time.Time
}

func New(db database.Database, dl downloader.Downloader, broker queue.Broker, cfg Config) *FeedWorker {
	return &FeedWorker{db: db, downloader: dl, broker: broker, cfg: cfg, now: time.Now}
}

// Run executes exactly one refresh attempt for feedID. A feed that no
// longer exists is a silent success: a racing delete is not an error.
func (w *FeedWorker) Run(ctx context.Context, feedID int) error {
	feed, err := w.db.GetFeedByID(ctx, feedID)
	if errors.Is(err, database.ErrNotFound) {
		logrus.WithField("feed_id", feedID).Debug("worker: feed no longer exists, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	entries, fetchErr := w.downloader.Download(ctx, feed.URL)
	if fetchErr != nil {
		return w.recordFailure(ctx, feed.ID, fetchErr)
	}
	return w.recordSuccess(ctx, feed.ID, entries)
}

func (w *FeedWorker) recordSuccess(ctx context.Context, feedID int, entries []downloader.RawEntry) error {
	now := w.now().UTC()
	var nDownloaded, nIgnored int

	err := w.db.RunFeedUpdate(ctx, feedID, func(ctx context.Context, tx database.FeedUpdateTx) error {
		for _, e := range entries {
			inserted, err := tx.InsertEntryIfAbsent(ctx, feedID, database.EntryInsert{
				OriginalID:  e.OriginalID,
				Title:       e.Title,
				Summary:     e.Summary,
				Link:        e.Link,
				PublishedAt: e.PublishedAt.UTC(),
			})
			if err != nil {
				return err
			}
			if inserted {
				nDownloaded++
			} else {
				nIgnored++
			}
		}

		return tx.RecordRun(ctx, &database.FeedUpdateRun{
			FeedID:          feedID,
			Timestamp:       now,
			Status:          database.RunSuccess,
			FailureCount:    0,
			NextRunSchedule: nil,
			NDownloaded:     nDownloaded,
			NIgnored:        nIgnored,
		})
	})
	if err != nil {
		logrus.WithError(err).WithField("feed_id", feedID).Error("worker: success-path transaction failed")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"feed_id":      feedID,
		"n_downloaded": nDownloaded,
		"n_ignored":    nIgnored,
	}).Info("worker: feed refreshed")
	metrics.WorkerRunsTotal.WithLabelValues("success").Inc()
	return nil
}

func (w *FeedWorker) recordFailure(ctx context.Context, feedID int, fetchErr error) error {
	now := w.now().UTC()

	prior, err := w.db.GetLatestRun(ctx, feedID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}

	failureCount := 1
	if prior != nil && prior.Status == database.RunFailed {
		failureCount = prior.FailureCount + 1
	}

	nextRun := nextRunTime(now, failureCount, w.cfg.FeedMaxFailureCount, w.cfg.BackoffMinSeconds, w.cfg.BackoffMultiplier, w.cfg.BackoffMaxSeconds)

	txErr := w.db.RunFeedUpdate(ctx, feedID, func(ctx context.Context, tx database.FeedUpdateTx) error {
		return tx.RecordRun(ctx, &database.FeedUpdateRun{
			FeedID:          feedID,
			Timestamp:       now,
			Status:          database.RunFailed,
			FailureCount:    failureCount,
			NextRunSchedule: nextRun,
			NDownloaded:     0,
			NIgnored:        0,
		})
	})
	if txErr != nil {
		logrus.WithError(txErr).WithField("feed_id", feedID).Error("worker: failure-path transaction failed")
		return txErr
	}

	logrus.WithError(fetchErr).WithFields(logrus.Fields{
		"feed_id":       feedID,
		"failure_count": failureCount,
		"terminal":      nextRun == nil,
	}).Warn("worker: feed download failed")

	if nextRun == nil {
		metrics.WorkerRunsTotal.WithLabelValues("terminal").Inc()
		if failureCount == w.cfg.FeedMaxFailureCount {
			if err := w.broker.Enqueue(ctx, queue.KindNotifyUserOnFailure, feedID); err != nil {
				logrus.WithError(err).WithField("feed_id", feedID).Error("worker: failed to enqueue terminal-failure notification")
				return err
			}
		}
	} else {
		metrics.WorkerRunsTotal.WithLabelValues("failed").Inc()
	}

	return nil
}
