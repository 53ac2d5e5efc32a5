package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	coreconfig "github.com/m3rciful/animbot/core/config"
	"github.com/m3rciful/animbot/core/logger"
)

const previewFiles = 6

// migrationSet is the list of up migrations found in a directory.
type migrationSet struct {
	dir   string
	files []string
}

func loadMigrationSet(dir string) (migrationSet, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return migrationSet{}, fmt.Errorf("resolve migrations dir: %w", err)
	}
	return migrationSet{dir: abs, files: listMigrationFiles(abs)}, nil
}

func (s migrationSet) sourceURL() string { return "file://" + filepath.ToSlash(s.dir) }

// RunMigrations brings the journal schema up to the newest migration in
// cfg.MigrationsDir. A database left dirty by a failed migration is reported
// rather than touched.
func RunMigrations(ctx context.Context, cfg coreconfig.DatabaseConfig) error {
	set, err := loadMigrationSet(cfg.MigrationsDir)
	if err != nil {
		return err
	}
	preview, more := logger.SummarizeStrings(set.files, previewFiles)
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "migrate.resolve",
		slog.String("path", set.dir),
		slog.Int("count", len(set.files)),
		slog.String("files", preview),
		slog.Bool("truncated", more),
	)
	if len(set.files) == 0 {
		return fmt.Errorf("no migrations in %s", set.dir)
	}

	m, err := migrate.New(set.sourceURL(), URL(cfg))
	if err != nil {
		return fmt.Errorf("initialize migrations: %w", err)
	}
	m.Log = migrateLog{ctx: ctx}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.LogEvent(ctx, logger.MIG, slog.LevelWarn, "migrate.close",
				slog.String("status", "fail"),
				logger.Err(errors.Join(srcErr, dbErr)),
			)
		}
	}()

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case dirty:
		return fmt.Errorf("schema version %d is dirty; fix it and run migrate force", from)
	}

	began := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "migrate.apply",
			slog.String("status", "fail"),
			slog.Uint64("from", uint64(from)),
			logger.Err(err),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	to, _, _ := m.Version()

	applied := selectApplied(set.files, uint64(from), uint64(to))
	preview, _ = logger.SummarizeStrings(applied, previewFiles)
	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "migrate.apply",
		slog.String("status", "ok"),
		slog.Uint64("from", uint64(from)),
		slog.Uint64("to", uint64(to)),
		slog.Int("count", len(applied)),
		slog.String("files", preview),
		slog.Duration("duration", time.Since(began)),
	)
	return nil
}

// migrateLog routes golang-migrate's own messages to the db.migrate logger.
type migrateLog struct{ ctx context.Context }

func (l migrateLog) Printf(format string, v ...interface{}) {
	logger.LogEvent(l.ctx, logger.MIG, slog.LevelDebug, "migrate.step",
		slog.String("detail", strings.TrimSpace(fmt.Sprintf(format, v...))),
	)
}

func (migrateLog) Verbose() bool { return logger.MIG.Enabled(context.Background(), slog.LevelDebug) }

// listMigrationFiles returns the sorted *.up.sql names in dir.
func listMigrationFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

// selectApplied returns the files whose numeric prefix lies in (from, to].
func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		prefix, _, _ := strings.Cut(f, "_")
		if v, err := strconv.ParseUint(prefix, 10, 64); err == nil && v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
