// Package journal records store mutations performed through the dialogue
// engine in an append-only Postgres table. The snapshot file stays the source
// of truth; the journal only answers "who changed what".
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names a journaled mutation.
type Action string

const (
	ActionPlayerAdded        Action = "player_added"
	ActionPlayerRemoved      Action = "player_removed"
	ActionAssociationAdded   Action = "association_added"
	ActionPointsAdded        Action = "points_added"
	ActionAssociationRemoved Action = "association_removed"
)

// Entry is one journal row.
type Entry struct {
	ID        uuid.UUID `db:"id"`
	Action    Action    `db:"action"`
	Player    string    `db:"player"`
	Event     string    `db:"event"`
	Delta     int       `db:"delta"`
	Total     int       `db:"total"`
	ActorID   int64     `db:"actor_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Journal stores and lists entries.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, player string, limit int) ([]Entry, error)
	Enabled() bool
}

// Nop discards entries; used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error                  { return nil }
func (Nop) Recent(context.Context, string, int) ([]Entry, error) { return nil, nil }
func (Nop) Enabled() bool                                        { return false }
