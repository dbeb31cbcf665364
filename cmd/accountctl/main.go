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
	"github.com/joho/godotenv"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/infra"
	"github.com/fraolBatole/AuraLab/internal/sqlinline"
)

// accountctl is the operator's shortcut around the admin API: list accounts,
// reset credit counters, or delete an account, straight against the database.
func main() {
	var (
		listFlag   bool
		resetFlag  bool
		deleteFlag bool
		idFlag     int64
		imageFlag  int
		videoFlag  int
		limitFlag  int
	)

	flag.BoolVar(&listFlag, "list", false, "list the newest accounts")
	flag.BoolVar(&resetFlag, "reset", false, "reset credit counters (all accounts, or one with -id)")
	flag.BoolVar(&deleteFlag, "delete", false, "delete the account given by -id")
	flag.Int64Var(&idFlag, "id", 0, "account id to operate on")
	flag.IntVar(&imageFlag, "image-credits", domain.InitialImageCredits, "image credits to set on reset")
	flag.IntVar(&videoFlag, "video-credits", domain.InitialVideoCredits, "video credits to set on reset")
	flag.IntVar(&limitFlag, "limit", 50, "how many accounts to list")
	flag.Parse()

	if !listFlag && !resetFlag && !deleteFlag {
		exitWithError(errors.New("one of -list, -reset or -delete is required"))
	}
	if deleteFlag && idFlag == 0 {
		exitWithError(errors.New("-delete requires -id"))
	}
	if imageFlag < 0 || videoFlag < 0 {
		exitWithError(errors.New("credit counters must not be negative"))
	}

	_ = godotenv.Load()
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "accountctl").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	switch {
	case listFlag:
		rows, err := runner.Query(ctx, sqlinline.QListAccounts, limitFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to list accounts: %w", err))
		}
		defer rows.Close()
		fmt.Printf("%-12s %-20s %-6s %-6s %-4s %-6s %s\n", "ID", "NAME", "IMG", "VID", "LANG", "PLAN", "CREATED")
		for rows.Next() {
			var (
				id                   int64
				firstName, username  string
				img, vid             int
				lang, iratio, vratio string
				plan                 string
				created              time.Time
			)
			if err := rows.Scan(&id, &firstName, &username, &img, &vid, &lang, &iratio, &vratio, &plan, &created); err != nil {
				exitWithError(fmt.Errorf("failed to scan account: %w", err))
			}
			fmt.Printf("%-12d %-20s %-6d %-6d %-4s %-6s %s\n", id, firstName, img, vid, lang, plan, created.Format(time.RFC3339))
		}
		if err := rows.Err(); err != nil {
			exitWithError(err)
		}

	case resetFlag && idFlag != 0:
		tag, err := runner.Exec(ctx, sqlinline.QResetAccountCredits, idFlag, imageFlag, videoFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to reset credits: %w", err))
		}
		if tag.RowsAffected() == 0 {
			exitWithError(fmt.Errorf("account %d not found", idFlag))
		}
		fmt.Printf("account %d reset to %d image / %d video credits\n", idFlag, imageFlag, videoFlag)

	case resetFlag:
		tag, err := runner.Exec(ctx, sqlinline.QResetAllCredits, imageFlag, videoFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to reset credits: %w", err))
		}
		fmt.Printf("%d accounts reset to %d image / %d video credits\n", tag.RowsAffected(), imageFlag, videoFlag)

	case deleteFlag:
		tag, err := runner.Exec(ctx, sqlinline.QDeleteAccount, idFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to delete account: %w", err))
		}
		if tag.RowsAffected() == 0 {
			exitWithError(fmt.Errorf("account %d not found", idFlag))
		}
		fmt.Printf("account %d deleted\n", idFlag)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "accountctl:", err)
	os.Exit(1)
}
