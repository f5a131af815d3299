package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetLatestRun returns the most recent FeedUpdateRun for a feed (by
// timestamp, tie-broken by id), or ErrNotFound if the feed has never been
// attempted.
func (db *DB) GetLatestRun(ctx context.Context, feedID int) (*FeedUpdateRun, error) {
	row := db.pool.QueryRow(ctx, latestRunQuery, feedID)
	return scanRun(row)
}

const latestRunQuery = `
	SELECT id, feed_id, "timestamp", status, failure_count, next_run_schedule, n_downloaded, n_ignored
	FROM feed_update_runs
	WHERE feed_id = $1
	ORDER BY "timestamp" DESC, id DESC
	LIMIT 1`

func scanRun(row pgx.Row) (*FeedUpdateRun, error) {
	var r FeedUpdateRun
	var status string
	err := row.Scan(&r.ID, &r.FeedID, &r.Timestamp, &status, &r.FailureCount, &r.NextRunSchedule, &r.NDownloaded, &r.NIgnored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan feed update run: %w", err)
	}
	r.Status = RunStatus(status)
	return &r, nil
}

// FindDueFeeds implements the scheduler's selection predicate: a feed is
// due if it has never run, if its latest run succeeded, or if its latest
// run failed with a next_run_schedule in the past. A feed whose latest
// run is failed with next_run_schedule = NULL (terminal) is never
// returned.
//
// The "latest run per feed" lookup uses Postgres's DISTINCT ON; an outer
// join tolerates feeds with no runs at all.
func (db *DB) FindDueFeeds(ctx context.Context, now time.Time) ([]Feed, error) {
	const q = `
		WITH latest_runs AS (
			SELECT DISTINCT ON (feed_id) feed_id, status, next_run_schedule
			FROM feed_update_runs
			ORDER BY feed_id, "timestamp" DESC, id DESC
		)
		SELECT f.id, f.url, f.user_id, f.created_at
		FROM feeds f
		LEFT JOIN latest_runs lr ON lr.feed_id = f.id
		WHERE lr.feed_id IS NULL
		   OR lr.status <> 'failed'
		   OR (lr.status = 'failed' AND lr.next_run_schedule IS NOT NULL AND lr.next_run_schedule < $1)
		ORDER BY f.id`

	rows, err := db.pool.Query(ctx, q, now)
	if err != nil {
		return nil, fmt.Errorf("find due feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var f Feed
		if err := rows.Scan(&f.ID, &f.URL, &f.UserID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan due feed: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

// RunFeedUpdate executes fn inside a single database transaction scoped to
// one feed's refresh attempt, committing on success and rolling back on
// error or panic: no Entry row exists without its run row on the success
// path, and a transient DB failure leaves the feed in its previous state
// entirely.
func (db *DB) RunFeedUpdate(ctx context.Context, feedID int, fn FeedUpdateTxFunc) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin feed update transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgFeedUpdateTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit feed update transaction: %w", err)
	}
	return nil
}

// pgFeedUpdateTx implements FeedUpdateTx over a live pgx.Tx.
type pgFeedUpdateTx struct {
	tx pgx.Tx
}

// InsertEntryIfAbsent uses INSERT ... ON CONFLICT DO NOTHING against the
// (original_id, feed_id) unique index, avoiding the check-then-insert race
// a SELECT-then-INSERT would have under concurrent fetches of the same
// feed.
func (t *pgFeedUpdateTx) InsertEntryIfAbsent(ctx context.Context, feedID int, e EntryInsert) (bool, error) {
	const q = `
		INSERT INTO entries (feed_id, original_id, title, summary, link, published_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'unread')
		ON CONFLICT (original_id, feed_id) DO NOTHING`

	tag, err := t.tx.Exec(ctx, q, feedID, e.OriginalID, e.Title, e.Summary, e.Link, e.PublishedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgFeedUpdateTx) RecordRun(ctx context.Context, run *FeedUpdateRun) error {
	const q = `
		INSERT INTO feed_update_runs (feed_id, "timestamp", status, failure_count, next_run_schedule, n_downloaded, n_ignored)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := t.tx.QueryRow(ctx, q, run.FeedID, run.Timestamp, string(run.Status), run.FailureCount, run.NextRunSchedule, run.NDownloaded, run.NIgnored).
		Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("record feed update run: %w", err)
	}
	return nil
}
