package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (db *DB) CreateFeed(ctx context.Context, feed *Feed) error {
	const q = `
		INSERT INTO feeds (url, user_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := db.pool.QueryRow(ctx, q, feed.URL, feed.UserID).Scan(&feed.ID, &feed.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create feed %q for user %d: %w", feed.URL, feed.UserID, ErrConflict)
		}
		return fmt.Errorf("create feed: %w", err)
	}
	return nil
}

func (db *DB) GetFeedByID(ctx context.Context, id int) (*Feed, error) {
	const q = `SELECT id, url, user_id, created_at FROM feeds WHERE id = $1`
	var f Feed
	err := db.pool.QueryRow(ctx, q, id).Scan(&f.ID, &f.URL, &f.UserID, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feed by id: %w", err)
	}
	return &f, nil
}

// GetFeedForUser loads a feed only if it is owned by userID, enforcing
// ownership at the query layer so a feed owned by someone else looks
// identical to one that doesn't exist.
func (db *DB) GetFeedForUser(ctx context.Context, userID, feedID int) (*Feed, error) {
	const q = `SELECT id, url, user_id, created_at FROM feeds WHERE id = $1 AND user_id = $2`
	var f Feed
	err := db.pool.QueryRow(ctx, q, feedID, userID).Scan(&f.ID, &f.URL, &f.UserID, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feed for user: %w", err)
	}
	return &f, nil
}

func (db *DB) ListFeedsForUser(ctx context.Context, userID int) ([]Feed, error) {
	const q = `SELECT id, url, user_id, created_at FROM feeds WHERE user_id = $1 ORDER BY id`
	rows, err := db.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list feeds for user: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var f Feed
		if err := rows.Scan(&f.ID, &f.URL, &f.UserID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

// DeleteFeed deletes a feed owned by userID. Entry and FeedUpdateRun rows
// cascade via the foreign key ON DELETE CASCADE. Returns ErrNotFound if the
// feed does not exist or is not owned by userID.
func (db *DB) DeleteFeed(ctx context.Context, userID, feedID int) error {
	const q = `DELETE FROM feeds WHERE id = $1 AND user_id = $2`
	tag, err := db.pool.Exec(ctx, q, feedID, userID)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
