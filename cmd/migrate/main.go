// Command migrate applies or rolls back the SQL migrations in the
// migrations/ directory. Files run in lexical order; down migrations
// run in reverse.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	var (
		dir       = flag.String("dir", "migrations", "directory containing *.up.sql and *.down.sql files")
		direction = flag.String("direction", "up", "migration direction: up or down")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Error("DATABASE_URL is not set")
		os.Exit(1)
	}

	if *direction != "up" && *direction != "down" {
		logger.Error("invalid direction", "direction", *direction)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	files, err := collectMigrations(*dir, *direction)
	if err != nil {
		logger.Error("failed to collect migrations", "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		logger.Warn("no migration files found", "dir", *dir, "direction", *direction)
		return
	}

	for _, path := range files {
		sql, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read migration", "file", path, "error", err)
			os.Exit(1)
		}

		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			logger.Error("failed to apply migration", "file", path, "error", err)
			os.Exit(1)
		}

		logger.Info("applied migration", "file", filepath.Base(path))
	}

	logger.Info("migrations complete", "count", len(files), "direction", *direction)
}

// collectMigrations returns the migration files for the given direction,
// sorted for up and reverse-sorted for down.
func collectMigrations(dir, direction string) ([]string, error) {
	pattern := filepath.Join(dir, fmt.Sprintf("*.%s.sql", direction))
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	sort.Strings(files)
	if direction == "down" {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	// Skip anything that is not a regular file.
	out := files[:0]
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if !strings.HasSuffix(f, ".sql") {
			continue
		}
		out = append(out, f)
	}

	return out, nil
}
