package store

import (
	"errors"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/pixil98/go-testutil"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storage.csv")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, path
}

func assertSlice[T comparable](t *testing.T, name string, got, want []T) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("%s: got %v, want %v", name, got, want)
	}
}

func assertMap[K, V comparable](t *testing.T, name string, got, want map[K]V) {
	t.Helper()
	if !maps.Equal(got, want) {
		t.Errorf("%s: got %v, want %v", name, got, want)
	}
}

func TestAddAssociationAccumulates(t *testing.T) {
	tests := map[string]struct {
		first, second int
		expTotal      int
		expOutcome    Outcome
	}{
		"zero then points":    {first: 0, second: 42, expTotal: 42, expOutcome: Accumulated},
		"points then points":  {first: 10, second: 5, expTotal: 15, expOutcome: Accumulated},
		"negative correction": {first: 10, second: -3, expTotal: 7, expOutcome: Accumulated},
		"duplicate no delta":  {first: 8, second: 0, expTotal: 8, expOutcome: Unchanged},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := New()
			outcome, total, err := s.AddAssociation("alice", "Chess", tt.first)
			if err != nil {
				t.Fatalf("first add: %v", err)
			}
			testutil.AssertEqual(t, "first outcome", outcome, Created)
			testutil.AssertEqual(t, "first total", total, tt.first)

			outcome, total, err = s.AddAssociation("alice", "Chess", tt.second)
			if err != nil {
				t.Fatalf("second add: %v", err)
			}
			testutil.AssertEqual(t, "outcome", outcome, tt.expOutcome)
			testutil.AssertEqual(t, "total", total, tt.expTotal)

			pts, err := s.Points("alice", "Chess")
			if err != nil {
				t.Fatalf("points: %v", err)
			}
			testutil.AssertEqual(t, "points", pts, tt.expTotal)
		})
	}
}

func TestAddAssociationRegistersPlayerAndEvent(t *testing.T) {
	s := New()
	if _, _, err := s.AddAssociation(" bob ", "  Board Games ", 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	assertSlice(t, "players", s.Players(), []string{"bob"})
	assertSlice(t, "events", s.Events(), []string{"Board Games"})
}

func TestAddPlayerIdempotent(t *testing.T) {
	s := New()
	created, err := s.AddPlayer("carol")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	testutil.AssertEqual(t, "created", created, true)
	created, err = s.AddPlayer("carol")
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	testutil.AssertEqual(t, "created again", created, false)
	assertSlice(t, "players", s.Players(), []string{"carol"})
}

func TestValidationLeavesStoreUntouched(t *testing.T) {
	s := New()
	if _, _, err := s.AddAssociation("alice", "Chess", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, _, err := s.AddAssociation("alice", " , ", 5)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, _, err = s.AddAssociation(" \t", "Chess", 5)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	testutil.AssertEqual(t, "field", ve.Field, KindPlayer)
	assertSlice(t, "players", s.Players(), []string{"alice"})
	assertSlice(t, "events", s.Events(), []string{"Chess"})
}

func TestAddAssociationRejectsOverflow(t *testing.T) {
	tests := map[string]struct {
		start, delta int
	}{
		"above max": {start: math.MaxInt, delta: 1},
		"below min": {start: math.MinInt + 2, delta: -3},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s, path := openTemp(t)
			mustAdd(t, s, "alice", "Chess", tt.start)
			before, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}

			outcome, total, err := s.AddAssociation("alice", "Chess", tt.delta)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			testutil.AssertEqual(t, "field", ve.Field, KindPoints)
			testutil.AssertEqual(t, "outcome", outcome, Unchanged)
			testutil.AssertEqual(t, "total", total, tt.start)

			pts, err := s.Points("alice", "Chess")
			if err != nil {
				t.Fatalf("points: %v", err)
			}
			testutil.AssertEqual(t, "points", pts, tt.start)
			after, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			testutil.AssertEqual(t, "snapshot", string(after), string(before))
		})
	}
}

func TestRemoveAssociationDropsOrphanEvent(t *testing.T) {
	s := New()
	mustAdd(t, s, "alice", "Chess", 3)
	mustAdd(t, s, "bob", "Chess", 4)
	mustAdd(t, s, "bob", "Go", 1)

	if err := s.RemoveAssociation("alice", "Chess"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	players, err := s.EventAssociations("Chess")
	if err != nil {
		t.Fatalf("event associations: %v", err)
	}
	assertMap(t, "chess players", players, map[string]int{"bob": 4})

	if err := s.RemoveAssociation("bob", "Go"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	assertSlice(t, "events", s.Events(), []string{"Chess"})
	_, err = s.EventAssociations("Go")
	if !IsNotFound(err) {
		t.Fatalf("expected not found for orphaned event, got %v", err)
	}
	// alice keeps her player record with no associations
	assertSlice(t, "players", s.Players(), []string{"alice", "bob"})
}

func TestRemoveAssociationNotFound(t *testing.T) {
	s := New()
	mustAdd(t, s, "alice", "Chess", 3)
	mustAdd(t, s, "bob", "Go", 1)

	tests := map[string]struct {
		player, event string
		expKind       string
	}{
		"unknown player": {player: "zoe", event: "Chess", expKind: KindPlayer},
		"unknown event":  {player: "alice", event: "Poker", expKind: KindEvent},
		"not associated": {player: "alice", event: "Go", expKind: KindAssociation},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := s.RemoveAssociation(tt.player, tt.event)
			var nf *NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("expected *NotFoundError, got %v", err)
			}
			testutil.AssertEqual(t, "kind", nf.Kind, tt.expKind)
			assertSlice(t, "players", s.Players(), []string{"alice", "bob"})
			assertSlice(t, "events", s.Events(), []string{"Chess", "Go"})
		})
	}
}

func TestRemovePlayer(t *testing.T) {
	s := New()
	mustAdd(t, s, "alice", "Chess", 3)
	mustAdd(t, s, "alice", "Go", 2)
	mustAdd(t, s, "bob", "Chess", 4)

	err := s.RemovePlayer("zoe")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	assertSlice(t, "players unchanged", s.Players(), []string{"alice", "bob"})

	if err := s.RemovePlayer("alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	assertSlice(t, "players", s.Players(), []string{"bob"})
	assertSlice(t, "events", s.Events(), []string{"Chess"})
	_, err = s.PlayerAssociations("alice")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	mustAdd(t, s, "alice", "Chess", 3)
	assoc, err := s.PlayerAssociations("alice")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	assoc["Chess"] = 1000
	pts, _ := s.Points("alice", "Chess")
	testutil.AssertEqual(t, "points", pts, 3)
}

func TestPointsNotFound(t *testing.T) {
	s := New()
	mustAdd(t, s, "alice", "Chess", 3)
	mustAdd(t, s, "bob", "Go", 3)
	for _, pair := range [][2]string{{"zoe", "Chess"}, {"alice", "Poker"}, {"alice", "Go"}} {
		if _, err := s.Points(pair[0], pair[1]); !IsNotFound(err) {
			t.Fatalf("Points(%s, %s): expected not found, got %v", pair[0], pair[1], err)
		}
	}
}

func TestWriteThroughPersists(t *testing.T) {
	s, path := openTemp(t)
	mustAdd(t, s, "alice", "Chess", 42)
	if _, err := s.AddPlayer("bob"); err != nil {
		t.Fatalf("add player: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	testutil.AssertEqual(t, "snapshot", string(data), "alice,Chess,42\nbob\n")
}

func TestPersistFailureIsReported(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	s, err := Open(filepath.Join(dir, "storage.csv"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}

	_, _, err = s.AddAssociation("alice", "Chess", 1)
	if !IsPersist(err) {
		t.Fatalf("expected persist error, got %v", err)
	}
	// memory keeps the change; the operator is told persistence failed
	pts, _ := s.Points("alice", "Chess")
	testutil.AssertEqual(t, "points", pts, 1)
}

func mustAdd(t *testing.T, s *Store, player, event string, points int) {
	t.Helper()
	if _, _, err := s.AddAssociation(player, event, points); err != nil {
		t.Fatalf("add %s/%s: %v", player, event, err)
	}
}
