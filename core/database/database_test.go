package database

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/pixil98/go-testutil"

	coreconfig "github.com/m3rciful/animbot/core/config"
)

func TestDSN(t *testing.T) {
	cfg := coreconfig.DatabaseConfig{
		Host: "db", Port: "5432", User: "anim", Password: "p a'ss", Name: "points", SSLMode: "disable",
	}
	testutil.AssertEqual(t, "dsn", DSN(cfg), `user=anim password='p a\'ss' host=db port=5432 dbname=points sslmode=disable`)

	u, err := url.Parse(URL(cfg))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	pass, _ := u.User.Password()
	testutil.AssertEqual(t, "password", pass, "p a'ss")
	testutil.AssertEqual(t, "user", u.User.Username(), "anim")
	testutil.AssertEqual(t, "host", u.Host, "db:5432")
	testutil.AssertEqual(t, "path", u.Path, "/points")
	testutil.AssertEqual(t, "sslmode", u.Query().Get("sslmode"), "disable")
}

func TestDSNQuotesEmpty(t *testing.T) {
	cfg := coreconfig.DatabaseConfig{Host: "db", Port: "5432", User: "anim", Name: "points", SSLMode: "disable"}
	testutil.AssertEqual(t, "dsn", DSN(cfg), `user=anim password='' host=db port=5432 dbname=points sslmode=disable`)
}

func TestSelectApplied(t *testing.T) {
	files := []string{"0001_points_journal.up.sql", "0002_actor_index.up.sql", "0003_more.up.sql"}
	tests := map[string]struct {
		from, to uint64
		exp      []string
	}{
		"none":    {from: 3, to: 3, exp: nil},
		"fresh":   {from: 0, to: 3, exp: files},
		"partial": {from: 1, to: 2, exp: []string{"0002_actor_index.up.sql"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assertSlice(t, "applied", selectApplied(files, tt.from, tt.to), tt.exp)
		})
	}
}

func TestListMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.up.sql", "0001_a.up.sql", "0001_a.down.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	assertSlice(t, "files", listMigrationFiles(dir), []string{"0001_a.up.sql", "0002_b.up.sql"})
	testutil.AssertEqual(t, "missing dir", len(listMigrationFiles(filepath.Join(dir, "nope"))), 0)
}

func assertSlice[T comparable](t *testing.T, name string, got, want []T) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("%s: got %v, want %v", name, got, want)
	}
}

func TestLoadMigrationSet(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0001_points_journal.up.sql"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	set, err := loadMigrationSet(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	testutil.AssertEqual(t, "files", len(set.files), 1)
	testutil.AssertEqual(t, "source", set.sourceURL(), "file://"+filepath.ToSlash(dir))
}

func TestRunMigrationsRequiresFiles(t *testing.T) {
	cfg := coreconfig.DatabaseConfig{Host: "db", Name: "points", MigrationsDir: t.TempDir()}
	testutil.AssertErrorContains(t, RunMigrations(context.Background(), cfg), "no migrations")
}
