package journal

import (
	"context"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestNop(t *testing.T) {
	var j Journal = Nop{}
	if err := j.Record(context.Background(), Entry{Action: ActionPlayerAdded, Player: "alice"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	entries, err := j.Recent(context.Background(), "alice", 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	testutil.AssertEqual(t, "entries", len(entries), 0)
	testutil.AssertEqual(t, "enabled", j.Enabled(), false)
}

func TestPostgresImplementsJournal(t *testing.T) {
	var j Journal = NewPostgres(nil)
	testutil.AssertEqual(t, "enabled", j.Enabled(), true)
}
