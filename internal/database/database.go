package database

import (
	"context"
	"time"
)

// Database is the storage interface the rest of FeedCloud depends on. The
// pgx-backed DB type and the in-memory MemoryDB fake (database/memory.go,
// used in package tests in place of a real Postgres instance) both
// implement it.
type Database interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id int) (*User, error)

	// Feeds
	CreateFeed(ctx context.Context, feed *Feed) error
	GetFeedByID(ctx context.Context, id int) (*Feed, error)
	GetFeedForUser(ctx context.Context, userID, feedID int) (*Feed, error)
	ListFeedsForUser(ctx context.Context, userID int) ([]Feed, error)
	DeleteFeed(ctx context.Context, userID, feedID int) error

	// Entries
	ListEntriesForFeed(ctx context.Context, userID, feedID int, status EntryStatus) ([]Entry, error)
	ListEntriesForUser(ctx context.Context, userID int, status EntryStatus) ([]Entry, error)
	GetEntryForUser(ctx context.Context, userID, entryID int) (*Entry, error)
	UpdateEntryStatus(ctx context.Context, userID, entryID int, status EntryStatus) error

	// FeedUpdateRuns / worker transaction
	GetLatestRun(ctx context.Context, feedID int) (*FeedUpdateRun, error)
	RunFeedUpdate(ctx context.Context, feedID int, fn FeedUpdateTxFunc) error
	FindDueFeeds(ctx context.Context, now time.Time) ([]Feed, error)

	// Bearer tokens
	CreateToken(ctx context.Context, token string, userID int, expiresAt time.Time) error
	GetTokenUser(ctx context.Context, token string) (*User, error)
	DeleteToken(ctx context.Context, token string) error
	DeleteExpiredTokens(ctx context.Context) error

	Close()
}

// EntryInsert is the shape the worker uses to persist a newly seen entry
// within a FeedUpdateTxFunc.
type EntryInsert struct {
	OriginalID  string
	Title       string
	Summary     string
	Link        string
	PublishedAt time.Time
}

// FeedUpdateTx is the narrow transactional surface the worker uses inside
// RunFeedUpdate: insert entries (idempotent under the (original_id,
// feed_id) unique constraint) and record exactly one outcome row.
type FeedUpdateTx interface {
	// InsertEntryIfAbsent inserts e and returns true, or returns false
	// without error if (e.OriginalID, feedID) already exists.
	InsertEntryIfAbsent(ctx context.Context, feedID int, e EntryInsert) (inserted bool, err error)
	// RecordRun appends the terminal FeedUpdateRun row for this attempt.
	RecordRun(ctx context.Context, run *FeedUpdateRun) error
}

// FeedUpdateTxFunc is invoked by RunFeedUpdate with a transactional handle
// scoped to one feed's refresh attempt. Returning an error rolls back the
// whole attempt: the feed remains in its previous state and is retried by
// the next scheduler cycle.
type FeedUpdateTxFunc func(ctx context.Context, tx FeedUpdateTx) error
