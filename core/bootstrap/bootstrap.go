package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pixil98/go-errors"

	coreconfig "github.com/m3rciful/animbot/core/config"
	coredatabase "github.com/m3rciful/animbot/core/database"
	"github.com/m3rciful/animbot/core/journal"
	"github.com/m3rciful/animbot/core/logger"
	"github.com/m3rciful/animbot/core/store"
)

const dbWaitTimeout = 30 * time.Second

// Options control the bootstrap pipeline. Nil hooks use the real implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	OpenStore  func(path string) (*store.Store, error)
	Connect    func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(context.Context, coreconfig.DatabaseConfig) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Store   *store.Store
	Journal journal.Journal
	// DB is nil when the journal is disabled.
	DB *sqlx.DB
}

// Close flushes the snapshot and closes the database pool.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	el := errors.NewErrorList()
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			el.Add(fmt.Errorf("flush snapshot: %w", err))
		}
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			el.Add(fmt.Errorf("close database: %w", err))
		}
	}
	return el.Err()
}

// Run initializes the logger, opens the association store and, when the
// database is enabled, connects and migrates the journal schema.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	openStore := opts.OpenStore
	if openStore == nil {
		openStore = store.Open
	}
	st, err := openStore(cfg.Storage.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: store open failed: %w", err)
	}
	res := &Result{Store: st, Journal: journal.Nop{}}

	if !cfg.Database.Enabled {
		logger.LogEvent(ctx, logger.JRNL, slog.LevelInfo, "journal.disabled")
		return res, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = waitAndConnect
	}
	db, err := connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	res.DB = db
	res.Journal = journal.NewPostgres(db)
	logger.LogEvent(ctx, logger.JRNL, slog.LevelInfo, "journal.enabled", slog.String("db", cfg.Database.Name))
	return res, nil
}

func waitAndConnect(ctx context.Context, cfg coreconfig.DatabaseConfig) (*sqlx.DB, error) {
	if err := coredatabase.WaitForPostgres(ctx, coredatabase.DSN(cfg), dbWaitTimeout); err != nil {
		return nil, err
	}
	return coredatabase.Connect(ctx, cfg)
}
