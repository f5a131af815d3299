package database

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryDB is an in-memory Database implementation used by tests. It
// enforces the same uniqueness constraints and ownership filtering as the
// Postgres implementation, so worker/scheduler/handler tests exercise the
// real contract without a live database.
type MemoryDB struct {
	mu sync.Mutex

	nextUserID  int
	nextFeedID  int
	nextEntryID int
	nextRunID   int

	users  map[int]*User
	feeds  map[int]*Feed
	entries map[int]*Entry
	runs   map[int]*FeedUpdateRun
	tokens map[string]memToken
}

type memToken struct {
	userID    int
	expiresAt time.Time
}

// NewMemoryDB creates an empty in-memory database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:   make(map[int]*User),
		feeds:   make(map[int]*Feed),
		entries: make(map[int]*Entry),
		runs:    make(map[int]*FeedUpdateRun),
		tokens:  make(map[string]memToken),
	}
}

func (m *MemoryDB) Close() {}

func (m *MemoryDB) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username {
			return ErrConflict
		}
	}

	m.nextUserID++
	user.ID = m.nextUserID
	user.CreatedAt = time.Now().UTC()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryDB) GetUserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) GetUserByID(_ context.Context, id int) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryDB) CreateFeed(_ context.Context, feed *Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.feeds {
		if f.URL == feed.URL && f.UserID == feed.UserID {
			return ErrConflict
		}
	}

	m.nextFeedID++
	feed.ID = m.nextFeedID
	feed.CreatedAt = time.Now().UTC()
	cp := *feed
	m.feeds[feed.ID] = &cp
	return nil
}

func (m *MemoryDB) GetFeedByID(_ context.Context, id int) (*Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.feeds[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MemoryDB) GetFeedForUser(_ context.Context, userID, feedID int) (*Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.feeds[feedID]
	if !ok || f.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MemoryDB) ListFeedsForUser(_ context.Context, userID int) ([]Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Feed
	for _, f := range m.feeds {
		if f.UserID == userID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryDB) DeleteFeed(_ context.Context, userID, feedID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.feeds[feedID]
	if !ok || f.UserID != userID {
		return ErrNotFound
	}
	delete(m.feeds, feedID)
	for id, e := range m.entries {
		if e.FeedID == feedID {
			delete(m.entries, id)
		}
	}
	for id, r := range m.runs {
		if r.FeedID == feedID {
			delete(m.runs, id)
		}
	}
	return nil
}

func (m *MemoryDB) ListEntriesForFeed(_ context.Context, userID, feedID int, status EntryStatus) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.feeds[feedID]
	if !ok || f.UserID != userID {
		return nil, nil
	}
	return m.filterEntries(feedID, status), nil
}

func (m *MemoryDB) ListEntriesForUser(_ context.Context, userID int, status EntryStatus) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ownedFeeds := map[int]bool{}
	for _, f := range m.feeds {
		if f.UserID == userID {
			ownedFeeds[f.ID] = true
		}
	}

	var out []Entry
	for _, e := range m.entries {
		if ownedFeeds[e.FeedID] && (status == "" || e.Status == status) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}

func (m *MemoryDB) filterEntries(feedID int, status EntryStatus) []Entry {
	var out []Entry
	for _, e := range m.entries {
		if e.FeedID == feedID && (status == "" || e.Status == status) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out
}

func (m *MemoryDB) GetEntryForUser(_ context.Context, userID, entryID int) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[entryID]
	if !ok {
		return nil, ErrNotFound
	}
	f, ok := m.feeds[e.FeedID]
	if !ok || f.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryDB) UpdateEntryStatus(_ context.Context, userID, entryID int, status EntryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[entryID]
	if !ok {
		return ErrNotFound
	}
	f, ok := m.feeds[e.FeedID]
	if !ok || f.UserID != userID {
		return ErrNotFound
	}
	e.Status = status
	return nil
}

func (m *MemoryDB) GetLatestRun(_ context.Context, feedID int) (*FeedUpdateRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *FeedUpdateRun
	for _, r := range m.runs {
		if r.FeedID != feedID {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) || (r.Timestamp.Equal(latest.Timestamp) && r.ID > latest.ID) {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MemoryDB) FindDueFeeds(_ context.Context, now time.Time) ([]Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []Feed
	for _, f := range m.feeds {
		latest := m.latestRunLocked(f.ID)
		if latest == nil {
			due = append(due, *f)
			continue
		}
		if latest.Status != RunFailed {
			due = append(due, *f)
			continue
		}
		if latest.NextRunSchedule != nil && latest.NextRunSchedule.Before(now) {
			due = append(due, *f)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (m *MemoryDB) latestRunLocked(feedID int) *FeedUpdateRun {
	var latest *FeedUpdateRun
	for _, r := range m.runs {
		if r.FeedID != feedID {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) || (r.Timestamp.Equal(latest.Timestamp) && r.ID > latest.ID) {
			latest = r
		}
	}
	return latest
}

// RunFeedUpdate runs fn against an in-memory transactional handle. There is
// no real isolation (the mutex serializes all access), but the interface
// contract (rollback-on-error leaves no partial state) is honored by only
// committing buffered writes once fn returns nil.
func (m *MemoryDB) RunFeedUpdate(ctx context.Context, feedID int, fn FeedUpdateTxFunc) error {
	tx := &memFeedUpdateTx{db: m, feedID: feedID}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memFeedUpdateTx struct {
	db          *MemoryDB
	feedID      int
	newEntries  []*Entry
	runToRecord *FeedUpdateRun
}

func (t *memFeedUpdateTx) InsertEntryIfAbsent(_ context.Context, feedID int, e EntryInsert) (bool, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	for _, existing := range t.db.entries {
		if existing.FeedID == feedID && existing.OriginalID == e.OriginalID {
			return false, nil
		}
	}
	for _, existing := range t.newEntries {
		if existing.FeedID == feedID && existing.OriginalID == e.OriginalID {
			return false, nil
		}
	}

	entry := &Entry{
		FeedID:      feedID,
		OriginalID:  e.OriginalID,
		Title:       e.Title,
		Summary:     e.Summary,
		Link:        e.Link,
		PublishedAt: e.PublishedAt.UTC(),
		SavedAt:     time.Now().UTC(),
		Status:      EntryUnread,
	}
	t.newEntries = append(t.newEntries, entry)
	return true, nil
}

func (t *memFeedUpdateTx) RecordRun(_ context.Context, run *FeedUpdateRun) error {
	t.runToRecord = run
	return nil
}

func (t *memFeedUpdateTx) commit() {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	for _, e := range t.newEntries {
		t.db.nextEntryID++
		e.ID = t.db.nextEntryID
		t.db.entries[e.ID] = e
	}
	if t.runToRecord != nil {
		t.db.nextRunID++
		t.runToRecord.ID = t.db.nextRunID
		cp := *t.runToRecord
		t.db.runs[cp.ID] = &cp
	}
}

func (m *MemoryDB) CreateToken(_ context.Context, token string, userID int, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = memToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *MemoryDB) GetTokenUser(_ context.Context, token string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[token]
	if !ok || time.Now().After(t.expiresAt) {
		return nil, ErrNotFound
	}
	u, ok := m.users[t.userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryDB) DeleteToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *MemoryDB) DeleteExpiredTokens(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for k, t := range m.tokens {
		if now.After(t.expiresAt) {
			delete(m.tokens, k)
		}
	}
	return nil
}
