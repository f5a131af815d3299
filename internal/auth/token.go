package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"feedcloud/internal/database"
)

// cachedUser is one entry in TokenManager's in-process cache.
type cachedUser struct {
	user         *database.User
	cacheExpires time.Time
}

// TokenManager issues and validates opaque bearer tokens, database-backed
// with an in-process TTL cache so that validating a token on every
// request doesn't mean a database round trip on every request.
type TokenManager struct {
	db  database.Database
	ttl time.Duration

	cacheMu  sync.RWMutex
	cache    map[string]*cachedUser
	cacheTTL time.Duration
}

func NewTokenManager(db database.Database, ttl time.Duration) *TokenManager {
	tm := &TokenManager{
		db:       db,
		ttl:      ttl,
		cache:    make(map[string]*cachedUser),
		cacheTTL: 10 * time.Minute,
	}
	go tm.cleanupLoop()
	return tm
}

// IssueToken creates a new bearer token for user, valid for the manager's
// configured TTL.
func (tm *TokenManager) IssueToken(ctx context.Context, user *database.User) (string, time.Time, error) {
	token, err := generateToken()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(tm.ttl)
	if err := tm.db.CreateToken(ctx, token, user.ID, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Authenticate resolves a bearer token to its owning user, checking the
// in-process cache before falling back to the database.
func (tm *TokenManager) Authenticate(ctx context.Context, token string) (*database.User, bool) {
	tm.cacheMu.RLock()
	if cached, ok := tm.cache[token]; ok && time.Now().Before(cached.cacheExpires) {
		tm.cacheMu.RUnlock()
		return cached.user, true
	}
	tm.cacheMu.RUnlock()

	user, err := tm.db.GetTokenUser(ctx, token)
	if err != nil {
		return nil, false
	}

	tm.cacheMu.Lock()
	tm.cache[token] = &cachedUser{user: user, cacheExpires: time.Now().Add(tm.cacheTTL)}
	tm.cacheMu.Unlock()

	return user, true
}

// Revoke deletes a bearer token from the database and the cache.
func (tm *TokenManager) Revoke(ctx context.Context, token string) error {
	tm.cacheMu.Lock()
	delete(tm.cache, token)
	tm.cacheMu.Unlock()

	return tm.db.DeleteToken(ctx, token)
}

func (tm *TokenManager) cleanupLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := tm.db.DeleteExpiredTokens(context.Background()); err != nil {
			logrus.WithError(err).Error("auth: failed to clean up expired tokens")
		}

		now := time.Now()
		tm.cacheMu.Lock()
		for token, cached := range tm.cache {
			if now.After(cached.cacheExpires) {
				delete(tm.cache, token)
			}
		}
		tm.cacheMu.Unlock()
	}
}

func generateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}
