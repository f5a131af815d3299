package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedcloud/internal/database"
	"feedcloud/internal/downloader"
	"feedcloud/internal/queue"
)

func testConfig() Config {
	return Config{
		FeedMaxFailureCount: 3,
		BackoffMinSeconds:   5,
		BackoffMultiplier:   10,
		BackoffMaxSeconds:   3600,
	}
}

func mustCreateUserAndFeed(t *testing.T, db *database.MemoryDB, url string) int {
	t.Helper()
	user := &database.User{Username: "alice", PasswordHash: "x"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	feed := &database.Feed{URL: url, UserID: user.ID}
	if err := db.CreateFeed(context.Background(), feed); err != nil {
		t.Fatalf("create feed: %v", err)
	}
	return feed.ID
}

func TestFeedWorker_MissingFeedIsSilentSuccess(t *testing.T) {
	db := database.NewMemoryDB()
	broker := queue.NewMemoryBroker()
	w := New(db, downloader.Func(func(context.Context, string) ([]downloader.RawEntry, error) {
		t.Fatal("downloader should not be called for a missing feed")
		return nil, nil
	}), broker, testConfig())

	if err := w.Run(context.Background(), 999); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
}

func TestFeedWorker_SuccessDedupesAgainstExistingEntries(t *testing.T) {
	db := database.NewMemoryDB()
	broker := queue.NewMemoryBroker()
	feedID := mustCreateUserAndFeed(t, db, "https://example.com/feed.xml")

	entries := []downloader.RawEntry{
		{OriginalID: "a", Title: "first", PublishedAt: time.Now().UTC()},
		{OriginalID: "b", Title: "second", PublishedAt: time.Now().UTC()},
	}
	dl := downloader.Func(func(context.Context, string) ([]downloader.RawEntry, error) {
		return entries, nil
	})
	w := New(db, dl, broker, testConfig())

	if err := w.Run(context.Background(), feedID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := w.Run(context.Background(), feedID); err != nil {
		t.Fatalf("second run: %v", err)
	}

	got, err := db.ListEntriesForFeed(context.Background(), 1, feedID, "")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries after two identical runs, want 2 (deduped)", len(got))
	}

	run, err := db.GetLatestRun(context.Background(), feedID)
	if err != nil {
		t.Fatalf("get latest run: %v", err)
	}
	if run.Status != database.RunSuccess || run.NDownloaded != 0 || run.NIgnored != 2 {
		t.Fatalf("second run = %+v, want success with n_downloaded=0 n_ignored=2", run)
	}
}

func TestFeedWorker_BackoffProgressionAndSingleNotification(t *testing.T) {
	db := database.NewMemoryDB()
	broker := queue.NewMemoryBroker()
	feedID := mustCreateUserAndFeed(t, db, "https://example.com/broken.xml")

	failing := downloader.Func(func(context.Context, string) ([]downloader.RawEntry, error) {
		return nil, &downloader.ParseError{FeedURL: "https://example.com/broken.xml", Err: errors.New("connection refused")}
	})
	w := New(db, failing, broker, testConfig())

	for i := 1; i <= 3; i++ {
		if err := w.Run(context.Background(), feedID); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	run, err := db.GetLatestRun(context.Background(), feedID)
	if err != nil {
		t.Fatalf("get latest run: %v", err)
	}
	if run.FailureCount != 3 {
		t.Fatalf("failure_count = %d, want 3", run.FailureCount)
	}
	if !run.IsTerminal() {
		t.Fatalf("expected run to be terminal after reaching FeedMaxFailureCount, got %+v", run)
	}

	if broker.Len() != 1 {
		t.Fatalf("broker has %d messages, want exactly 1 terminal-failure notification", broker.Len())
	}
	msg, err := broker.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if msg.Kind != queue.KindNotifyUserOnFailure || msg.FeedID != feedID {
		t.Fatalf("got %+v, want notify_user_on_failure for feed %d", msg, feedID)
	}
}

func TestFeedWorker_ForceRunOnAlreadyTerminalFeedDoesNotRenotify(t *testing.T) {
	db := database.NewMemoryDB()
	broker := queue.NewMemoryBroker()
	feedID := mustCreateUserAndFeed(t, db, "https://example.com/still-broken.xml")

	failing := downloader.Func(func(context.Context, string) ([]downloader.RawEntry, error) {
		return nil, &downloader.ParseError{FeedURL: "https://example.com/still-broken.xml", Err: errors.New("connection refused")}
	})
	w := New(db, failing, broker, testConfig())

	for i := 1; i <= 3; i++ {
		if err := w.Run(context.Background(), feedID); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	run, err := db.GetLatestRun(context.Background(), feedID)
	if err != nil {
		t.Fatalf("get latest run: %v", err)
	}
	if !run.IsTerminal() {
		t.Fatalf("expected terminal state after 3 failures, got %+v", run)
	}
	if broker.Len() != 1 {
		t.Fatalf("broker has %d messages after reaching terminal, want exactly 1", broker.Len())
	}
	// Drain the first notification so Len() below only reflects the force-run.
	if _, err := broker.Dequeue(context.Background()); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	// A force-run against an already-terminal feed fails again, pushing
	// failure_count to 4. This must not re-enqueue a notification: the
	// feed already made its terminal transition at failure_count=3.
	if err := w.Run(context.Background(), feedID); err != nil {
		t.Fatalf("force-run: %v", err)
	}

	run, err = db.GetLatestRun(context.Background(), feedID)
	if err != nil {
		t.Fatalf("get latest run: %v", err)
	}
	if run.FailureCount != 4 || !run.IsTerminal() {
		t.Fatalf("run after re-terminal force-run = %+v, want failure_count=4 terminal", run)
	}
	if broker.Len() != 0 {
		t.Fatalf("broker has %d messages after re-terminal force-run, want 0 (no re-notification)", broker.Len())
	}
}

func TestFeedWorker_RecoveryFromTerminalViaForceRun(t *testing.T) {
	db := database.NewMemoryDB()
	broker := queue.NewMemoryBroker()
	feedID := mustCreateUserAndFeed(t, db, "https://example.com/recovering.xml")

	calls := 0
	dl := downloader.Func(func(context.Context, string) ([]downloader.RawEntry, error) {
		calls++
		if calls <= 3 {
			return nil, &downloader.ParseError{FeedURL: "x", Err: errors.New("timeout")}
		}
		return []downloader.RawEntry{{OriginalID: "recovered", PublishedAt: time.Now().UTC()}}, nil
	})
	w := New(db, dl, broker, testConfig())

	for i := 0; i < 3; i++ {
		if err := w.Run(context.Background(), feedID); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	run, _ := db.GetLatestRun(context.Background(), feedID)
	if !run.IsTerminal() {
		t.Fatalf("expected terminal state before force-run, got %+v", run)
	}

	if err := w.Run(context.Background(), feedID); err != nil {
		t.Fatalf("force-run: %v", err)
	}

	run, err := db.GetLatestRun(context.Background(), feedID)
	if err != nil {
		t.Fatalf("get latest run: %v", err)
	}
	if run.Status != database.RunSuccess {
		t.Fatalf("run after recovery = %+v, want success", run)
	}
}

func TestNextRunTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("terminal at k=max", func(t *testing.T) {
		if got := nextRunTime(now, 3, 3, 5, 10, 3600); got != nil {
			t.Fatalf("nextRunTime(3, max=3) = %v, want nil", got)
		}
	})

	t.Run("k=1 delay is 25s", func(t *testing.T) {
		got := nextRunTime(now, 1, 3, 5, 10, 3600)
		if got == nil {
			t.Fatal("expected non-nil schedule")
		}
		if want := now.Add(25 * time.Second); !got.Equal(want) {
			t.Fatalf("nextRunTime(1) = %v, want %v", got, want)
		}
	})

	t.Run("k=2 delay is 45s", func(t *testing.T) {
		got := nextRunTime(now, 2, 3, 5, 10, 3600)
		if want := now.Add(45 * time.Second); got == nil || !got.Equal(want) {
			t.Fatalf("nextRunTime(2) = %v, want %v", got, want)
		}
	})

	t.Run("clamped at max_s", func(t *testing.T) {
		got := nextRunTime(now, 1, 100, 5, 10, 20)
		if want := now.Add(20 * time.Second); got == nil || !got.Equal(want) {
			t.Fatalf("nextRunTime clamp = %v, want %v", got, want)
		}
	})
}
