// Утилита управления схемой PostgreSQL движка. Движок применяет миграции и
// сам при старте (EnsureSchema), отдельная команда нужна для отката и
// проверки версии на стенде.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Hok1707/intelligent-pos-sub000/internal/storage/postgres"
)

func main() {
	var (
		command string
		steps   int
		dsn     string
		timeout time.Duration
	)

	flag.StringVar(&command, "command", "up", "schema command: up|down|status")
	flag.IntVar(&steps, "steps", 0, "how many migrations to apply or roll back (0 = all up / 1 down)")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN; defaults to POS_POSTGRES_DSN")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "overall command timeout")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("POS_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("POS_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	if err := run(ctx, store, strings.ToLower(strings.TrimSpace(command)), steps); err != nil {
		fail("%v", err)
	}
}

func run(ctx context.Context, store *postgres.Store, command string, steps int) error {
	switch command {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "status":
	default:
		return fmt.Errorf("unknown command %q (use up|down|status)", command)
	}

	version, applied, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("read migration status: %w", err)
	}
	fmt.Printf("schema version %d, %d migrations applied\n", version, applied)
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
