package auth

import (
	"context"
	"testing"
	"time"

	"feedcloud/internal/database"
)

func TestTokenManager_IssueAndAuthenticate(t *testing.T) {
	db := database.NewMemoryDB()
	user := &database.User{Username: "dave", PasswordHash: "x"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	tm := NewTokenManager(db, time.Hour)
	token, expiresAt, err := tm.IssueToken(context.Background(), user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expiresAt = %v, want a future time", expiresAt)
	}

	got, ok := tm.Authenticate(context.Background(), token)
	if !ok {
		t.Fatal("Authenticate() = false, want true for freshly issued token")
	}
	if got.ID != user.ID {
		t.Fatalf("Authenticate() returned user %d, want %d", got.ID, user.ID)
	}
}

func TestTokenManager_AuthenticateUnknownToken(t *testing.T) {
	db := database.NewMemoryDB()
	tm := NewTokenManager(db, time.Hour)

	if _, ok := tm.Authenticate(context.Background(), "not-a-real-token"); ok {
		t.Fatal("Authenticate() = true for unknown token, want false")
	}
}

func TestTokenManager_RevokeInvalidatesToken(t *testing.T) {
	db := database.NewMemoryDB()
	user := &database.User{Username: "erin", PasswordHash: "x"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	tm := NewTokenManager(db, time.Hour)
	token, _, err := tm.IssueToken(context.Background(), user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if err := tm.Revoke(context.Background(), token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, ok := tm.Authenticate(context.Background(), token); ok {
		t.Fatal("Authenticate() = true after Revoke, want false")
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Fatal("VerifyPassword() = false for the correct password")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Fatal("VerifyPassword() = true for an incorrect password")
	}
}
