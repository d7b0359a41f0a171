// Command count prints every verified subscriber address followed by the total.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/labnotes/dailyhi/internal/config"
	"github.com/labnotes/dailyhi/internal/database"
	"github.com/labnotes/dailyhi/internal/modules/subscription"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	flag.Parse()

	if err := run(context.Background(), *configPath, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "count:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg, false)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return report(ctx, subscription.NewStore(db), out)
}

type verifiedLister interface {
	VerifiedEmails(ctx context.Context) ([]string, error)
	CountVerified(ctx context.Context) (int64, error)
}

func report(ctx context.Context, store verifiedLister, out io.Writer) error {
	emails, err := store.VerifiedEmails(ctx)
	if err != nil {
		return fmt.Errorf("list verified: %w", err)
	}
	count, err := store.CountVerified(ctx)
	if err != nil {
		return fmt.Errorf("count verified: %w", err)
	}
	for _, e := range emails {
		fmt.Fprintln(out, e)
	}
	fmt.Fprintln(out, "--------")
	fmt.Fprintln(out, count)
	return nil
}
