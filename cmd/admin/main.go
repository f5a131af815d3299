// Command admin is an operator CLI for user management, gated by an
// ADMIN_TOKEN environment variable for sensitive operations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"feedcloud/internal/auth"
	"feedcloud/internal/config"
	"feedcloud/internal/database"
)

func main() {
	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		fmt.Println("ERROR: ADMIN_TOKEN environment variable must be set")
		fmt.Println("This is a security requirement to prevent unauthorized admin access.")
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "create-user" || command == "create-admin" {
		verify := os.Getenv("ADMIN_TOKEN_VERIFY")
		if verify == "" {
			fmt.Println("ERROR: ADMIN_TOKEN_VERIFY environment variable must be set for sensitive operations")
			os.Exit(1)
		}
		if verify != adminToken {
			fmt.Println("ERROR: ADMIN_TOKEN_VERIFY does not match ADMIN_TOKEN")
			os.Exit(1)
		}
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	switch command {
	case "create-user":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin create-user <username> <password>")
			os.Exit(1)
		}
		createUser(ctx, db, os.Args[2], os.Args[3], false)

	case "create-admin":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin create-admin <username> <password>")
			os.Exit(1)
		}
		createUser(ctx, db, os.Args[2], os.Args[3], true)

	case "user-info":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin user-info <username>")
			os.Exit(1)
		}
		userInfo(ctx, db, os.Args[2])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func createUser(ctx context.Context, db database.Database, username, password string, isAdmin bool) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	user := &database.User{Username: username, PasswordHash: hash, IsAdmin: isAdmin}
	if err := db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			log.Fatalf("username %q is already taken", username)
		}
		log.Fatalf("failed to create user: %v", err)
	}

	fmt.Printf("created user %q (id=%d, admin=%v)\n", user.Username, user.ID, user.IsAdmin)
}

func userInfo(ctx context.Context, db database.Database, username string) {
	user, err := db.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Fatalf("no such user: %q", username)
		}
		log.Fatalf("failed to look up user: %v", err)
	}

	feeds, err := db.ListFeedsForUser(ctx, user.ID)
	if err != nil {
		log.Fatalf("failed to list feeds: %v", err)
	}

	fmt.Printf("id:       %d\n", user.ID)
	fmt.Printf("username: %s\n", user.Username)
	fmt.Printf("admin:    %v\n", user.IsAdmin)
	fmt.Printf("joined:   %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("feeds:    %d\n", len(feeds))
}

func printUsage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  create-user <username> <password>  - Create a regular user (REQUIRES ADMIN_TOKEN_VERIFY)")
	fmt.Println("  create-admin <username> <password> - Create an admin user (REQUIRES ADMIN_TOKEN_VERIFY)")
	fmt.Println("  user-info <username>                - Show user information")
}
