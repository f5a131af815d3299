package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ListEntriesForFeed returns entries belonging to a feed owned by userID,
// ordered by published_at DESC. An empty status means "all".
func (db *DB) ListEntriesForFeed(ctx context.Context, userID, feedID int, status EntryStatus) ([]Entry, error) {
	const q = `
		SELECT e.id, e.feed_id, e.original_id, e.title, e.summary, e.link, e.published_at, e.saved_at, e.status
		FROM entries e
		JOIN feeds f ON f.id = e.feed_id
		WHERE f.user_id = $1 AND e.feed_id = $2 AND ($3 = '' OR e.status = $3)
		ORDER BY e.published_at DESC`

	return db.queryEntries(ctx, q, userID, feedID, string(status))
}

// ListEntriesForUser returns entries across all of a user's feeds.
func (db *DB) ListEntriesForUser(ctx context.Context, userID int, status EntryStatus) ([]Entry, error) {
	const q = `
		SELECT e.id, e.feed_id, e.original_id, e.title, e.summary, e.link, e.published_at, e.saved_at, e.status
		FROM entries e
		JOIN feeds f ON f.id = e.feed_id
		WHERE f.user_id = $1 AND ($2 = '' OR e.status = $2)
		ORDER BY e.published_at DESC`

	return db.queryEntries(ctx, q, userID, string(status))
}

func (db *DB) queryEntries(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := db.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.ID, &e.FeedID, &e.OriginalID, &e.Title, &e.Summary, &e.Link, &e.PublishedAt, &e.SavedAt, &status); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Status = EntryStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetEntryForUser loads an entry only if it belongs to a feed owned by
// userID.
func (db *DB) GetEntryForUser(ctx context.Context, userID, entryID int) (*Entry, error) {
	const q = `
		SELECT e.id, e.feed_id, e.original_id, e.title, e.summary, e.link, e.published_at, e.saved_at, e.status
		FROM entries e
		JOIN feeds f ON f.id = e.feed_id
		WHERE f.user_id = $1 AND e.id = $2`

	var e Entry
	var status string
	err := db.pool.QueryRow(ctx, q, userID, entryID).
		Scan(&e.ID, &e.FeedID, &e.OriginalID, &e.Title, &e.Summary, &e.Link, &e.PublishedAt, &e.SavedAt, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry for user: %w", err)
	}
	e.Status = EntryStatus(status)
	return &e, nil
}

func (db *DB) UpdateEntryStatus(ctx context.Context, userID, entryID int, status EntryStatus) error {
	const q = `
		UPDATE entries SET status = $1
		WHERE id = $2 AND feed_id IN (SELECT id FROM feeds WHERE user_id = $3)`

	tag, err := db.pool.Exec(ctx, q, string(status), entryID, userID)
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
