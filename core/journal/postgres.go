package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/animbot/core/logger"
)

const (
	insertEntry = `INSERT INTO points_journal
		(id, action, player, event, delta, total, actor_id, created_at)
		VALUES (:id, :action, :player, :event, :delta, :total, :actor_id, :created_at)`

	selectRecent = `SELECT id, action, player, event, delta, total, actor_id, created_at
		FROM points_journal
		WHERE player = $1
		ORDER BY created_at DESC
		LIMIT $2`
)

// Postgres is the sqlx-backed journal.
type Postgres struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

// Record inserts e, filling ID and CreatedAt when unset.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = p.now().UTC()
	}
	if _, err := p.db.NamedExecContext(ctx, insertEntry, e); err != nil {
		return fmt.Errorf("journal: insert %s: %w", e.Action, err)
	}
	logger.JRNL.LogAttrs(ctx, slog.LevelDebug, "journal entry recorded",
		slog.String("event", "journal.record"),
		slog.String("action", string(e.Action)),
		slog.String("player", e.Player),
		slog.String("animation", e.Event),
		slog.Int("points", e.Delta),
		slog.Int("total", e.Total),
	)
	return nil
}

// Recent lists the newest entries for player, newest first.
func (p *Postgres) Recent(ctx context.Context, player string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []Entry
	if err := p.db.SelectContext(ctx, &entries, selectRecent, player, limit); err != nil {
		return nil, fmt.Errorf("journal: select recent for %q: %w", player, err)
	}
	return entries, nil
}

// Enabled reports true.
func (p *Postgres) Enabled() bool { return true }
