package database

import "time"

// EntryStatus enumerates the values Entry.Status may take.
type EntryStatus string

const (
	EntryUnread EntryStatus = "unread"
	EntryRead   EntryStatus = "read"
)

// RunStatus enumerates the values FeedUpdateRun.Status may take.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// User owns zero or more Feeds. Created by the admin CLI (the HTTP API has
// no user-creation route); never deleted by the core.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Feed is a user's subscription to a syndication URL. De-facto uniqueness
// is (URL, UserID), enforced by a unique index rather than a service-layer
// check, since the database is the single writer of truth here.
type Feed struct {
	ID        int       `json:"id"`
	URL       string    `json:"url"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry is one parsed item from a feed fetch. (OriginalID, FeedID) is
// unique; the worker relies on that constraint to deduplicate.
type Entry struct {
	ID          int         `json:"id"`
	FeedID      int         `json:"feed_id"`
	OriginalID  string      `json:"original_id"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	Link        string      `json:"link"`
	PublishedAt time.Time   `json:"published_at"`
	SavedAt     time.Time   `json:"saved_at"`
	Status      EntryStatus `json:"status"`
}

// FeedUpdateRun is an append-only audit record of one refresh attempt. The
// newest row per feed (by Timestamp, tie-broken by ID) defines the feed's
// current scheduling state (see Database.FindDueFeeds).
type FeedUpdateRun struct {
	ID              int        `json:"id"`
	FeedID          int        `json:"feed_id"`
	Timestamp       time.Time  `json:"timestamp"`
	Status          RunStatus  `json:"status"`
	FailureCount    int        `json:"failure_count"`
	NextRunSchedule *time.Time `json:"next_run_schedule"`
	NDownloaded     int        `json:"n_downloaded"`
	NIgnored        int        `json:"n_ignored"`
}

// IsTerminal reports whether run represents a feed that the scheduler will
// never pick again until a success run supersedes it.
func (r *FeedUpdateRun) IsTerminal() bool {
	return r.Status == RunFailed && r.NextRunSchedule == nil
}
