// Package notifier implements the Failure Notifier: a side-effecting
// consumer of notify_user_on_failure messages with its own transport-level
// retry policy, distinct from and independent of the worker's domain-level
// exponential backoff state machine.
package notifier

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"feedcloud/internal/database"
)

// Sender delivers the actual notification. The default implementation logs;
// a production deployment would swap in an email/webhook sender.
type Sender interface {
	Send(ctx context.Context, user *database.User, feed *database.Feed) error
}

// LogSender is the default Sender: it logs the notification rather than
// delivering it anywhere.
type LogSender struct{}

func (LogSender) Send(_ context.Context, user *database.User, feed *database.Feed) error {
	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"feed_id": feed.ID,
		"feed_url": feed.URL,
	}).Warn("notifier: feed has exhausted its retries and is now terminal")
	return nil
}

// FailureNotifier handles notify_user_on_failure messages, retrying
// transport-level failures up to 3 times with exponential backoff.
type FailureNotifier struct {
	db     database.Database
	sender Sender
}

func New(db database.Database, sender Sender) *FailureNotifier {
	if sender == nil {
		sender = LogSender{}
	}
	return &FailureNotifier{db: db, sender: sender}
}

// Notify looks up the feed and its owning user and delivers the
// notification, retrying the send up to 3 times on transport failure.
func (n *FailureNotifier) Notify(ctx context.Context, feedID int) error {
	feed, err := n.db.GetFeedByID(ctx, feedID)
	if err != nil {
		return fmt.Errorf("notifier: load feed %d: %w", feedID, err)
	}

	user, err := n.db.GetUserByID(ctx, feed.UserID)
	if err != nil {
		return fmt.Errorf("notifier: load user %d: %w", feed.UserID, err)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	policy = backoff.WithContext(policy, ctx)

	err = backoff.Retry(func() error {
		return n.sender.Send(ctx, user, feed)
	}, policy)
	if err != nil {
		return fmt.Errorf("notifier: send failed after retries: %w", err)
	}
	return nil
}
