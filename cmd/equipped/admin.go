package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tryequipped/equipped/internal/account"
	"github.com/tryequipped/equipped/internal/identity"
	"github.com/tryequipped/equipped/internal/validation"
)

func runAdmin(args []string) int {
	if len(args) == 0 {
		printAdminUsage()
		return 2
	}

	switch args[0] {
	case "create-account":
		return runCreateAccount(args[1:])
	case "grant-owner":
		return runGrantOwner(args[1:])
	case "mint-token":
		return runMintToken(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown admin command: %s\n", args[0])
		printAdminUsage()
		return 2
	}
}

func printAdminUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  equipped admin create-account --name <name> --slug <slug> [--billing-email <email>] [--db-dsn <dsn>]")
	fmt.Fprintln(os.Stderr, "  equipped admin grant-owner --slug <slug> --email <email> [--db-dsn <dsn>]")
	fmt.Fprintln(os.Stderr, "  equipped admin mint-token --user-id <id> --email <email> [--name <name>] [--ttl-hours <n>] [--secret <secret>]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Notes:")
	fmt.Fprintln(os.Stderr, "  - grant-owner requires the user to have signed in once already.")
	fmt.Fprintln(os.Stderr, "  - --db-dsn defaults to EQ_DB_DSN; --secret defaults to EQ_SESSION_SECRET.")
}

func runCreateAccount(args []string) int {
	fs := flag.NewFlagSet("create-account", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var name string
	var slug string
	var billingEmail string
	var dbDSN string

	fs.StringVar(&name, "name", "", "Workspace display name")
	fs.StringVar(&slug, "slug", "", "Workspace slug (becomes the subdomain)")
	fs.StringVar(&billingEmail, "billing-email", "", "Billing contact email")
	fs.StringVar(&dbDSN, "db-dsn", "", "Postgres DSN (defaults to EQ_DB_DSN)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(name) == "" || strings.TrimSpace(slug) == "" {
		fmt.Fprintln(os.Stderr, "--name and --slug are required")
		return 2
	}

	pool, cleanup, code := adminPool(dbDSN)
	if code != 0 {
		return code
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	acct, err := account.NewService(pool).Create(ctx, name, slug, billingEmail)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create workspace: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "Workspace created: %s (%s)\n", acct.Slug, acct.ID)
	return 0
}

func runGrantOwner(args []string) int {
	fs := flag.NewFlagSet("grant-owner", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var slug string
	var email string
	var dbDSN string

	fs.StringVar(&slug, "slug", "", "Workspace slug")
	fs.StringVar(&email, "email", "", "Email of an already-synced user")
	fs.StringVar(&dbDSN, "db-dsn", "", "Postgres DSN (defaults to EQ_DB_DSN)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	slug = validation.NormalizeSlug(slug)
	email = validation.NormalizeEmail(email)
	if slug == "" || email == "" {
		fmt.Fprintln(os.Stderr, "--slug and --email are required")
		return 2
	}

	pool, cleanup, code := adminPool(dbDSN)
	if code != 0 {
		return code
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var accountID string
	if err := pool.QueryRow(ctx, `SELECT id FROM accounts WHERE slug = $1`, slug).Scan(&accountID); err != nil {
		fmt.Fprintf(os.Stderr, "No workspace found with slug %q\n", slug)
		return 1
	}

	var userID string
	if err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&userID); err != nil {
		fmt.Fprintf(os.Stderr, "No user found with email %q (have they signed in yet?)\n", email)
		return 1
	}

	// Upsert so re-running after a partial bootstrap is harmless.
	_, err := pool.Exec(ctx, `
		INSERT INTO account_access (account_id, user_id, role)
		VALUES ($1, $2, 'owner')
		ON CONFLICT (account_id, user_id)
		DO UPDATE SET role = 'owner', updated_at = NOW()
	`, accountID, userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to grant ownership: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "Granted owner on %s to %s\n", slug, email)
	return 0
}

func runMintToken(args []string) int {
	fs := flag.NewFlagSet("mint-token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var userID string
	var email string
	var name string
	var ttlHours int
	var secret string

	fs.StringVar(&userID, "user-id", "", "Identity provider subject")
	fs.StringVar(&email, "email", "", "User email claim")
	fs.StringVar(&name, "name", "", "User display name claim")
	fs.IntVar(&ttlHours, "ttl-hours", 24, "Token lifetime in hours")
	fs.StringVar(&secret, "secret", "", "Session signing secret (defaults to EQ_SESSION_SECRET)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(userID) == "" || strings.TrimSpace(email) == "" {
		fmt.Fprintln(os.Stderr, "--user-id and --email are required")
		return 2
	}

	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("EQ_SESSION_SECRET"))
	}
	if secret == "" {
		fmt.Fprintln(os.Stderr, "--secret is required (or set EQ_SESSION_SECRET)")
		return 2
	}

	token, err := identity.MintSessionToken(userID, email, name, secret, time.Duration(ttlHours)*time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to mint token: %v\n", err)
		return 1
	}

	fmt.Fprintln(os.Stdout, token)
	return 0
}

// adminPool opens a short-lived pool for one admin command. The third
// return is an exit code; nonzero means the pool was not opened.
func adminPool(dbDSN string) (*pgxpool.Pool, func(), int) {
	if dbDSN == "" {
		dbDSN = strings.TrimSpace(os.Getenv("EQ_DB_DSN"))
	}
	if dbDSN == "" {
		fmt.Fprintln(os.Stderr, "--db-dsn is required (or set EQ_DB_DSN)")
		return nil, nil, 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return nil, nil, 1
	}

	return pool, pool.Close, 0
}
