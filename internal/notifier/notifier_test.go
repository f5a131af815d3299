package notifier

import (
	"context"
	"errors"
	"testing"

	"feedcloud/internal/database"
)

type fakeSender struct {
	failuresBeforeSuccess int
	calls                 int
}

func (f *fakeSender) Send(context.Context, *database.User, *database.Feed) error {
	f.calls++
	if f.calls <= f.failuresBeforeSuccess {
		return errors.New("smtp: connection refused")
	}
	return nil
}

func setupFeed(t *testing.T, db *database.MemoryDB) int {
	t.Helper()
	user := &database.User{Username: "carol", PasswordHash: "x"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	feed := &database.Feed{URL: "https://example.com/dead.xml", UserID: user.ID}
	if err := db.CreateFeed(context.Background(), feed); err != nil {
		t.Fatalf("create feed: %v", err)
	}
	return feed.ID
}

func TestFailureNotifier_RetriesTransientFailures(t *testing.T) {
	db := database.NewMemoryDB()
	feedID := setupFeed(t, db)

	sender := &fakeSender{failuresBeforeSuccess: 2}
	n := New(db, sender)

	if err := n.Notify(context.Background(), feedID); err != nil {
		t.Fatalf("Notify() = %v, want nil after eventual success", err)
	}
	if sender.calls != 3 {
		t.Fatalf("sender called %d times, want 3 (2 failures + 1 success)", sender.calls)
	}
}

func TestFailureNotifier_GivesUpAfterMaxRetries(t *testing.T) {
	db := database.NewMemoryDB()
	feedID := setupFeed(t, db)

	sender := &fakeSender{failuresBeforeSuccess: 999}
	n := New(db, sender)

	if err := n.Notify(context.Background(), feedID); err == nil {
		t.Fatal("Notify() = nil, want error after exhausting retries")
	}
}

func TestFailureNotifier_UnknownFeedReturnsError(t *testing.T) {
	db := database.NewMemoryDB()
	n := New(db, &fakeSender{})

	if err := n.Notify(context.Background(), 12345); err == nil {
		t.Fatal("Notify() = nil for a nonexistent feed, want error")
	}
}
