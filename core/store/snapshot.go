package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/animbot/core/logger"
)

// LoadStats summarizes a snapshot load.
type LoadStats struct {
	Lines   int
	Skipped int
	Players int
	Events  int
}

// Load replaces the store contents with the snapshot at path. A missing file
// loads as an empty store. Lines that cannot be parsed are skipped and counted.
func (s *Store) Load(path string) (LoadStats, error) {
	start := time.Now()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.STORE.Info("snapshot missing, starting empty",
			slog.String("event", "snapshot.load"),
			slog.String("path", path),
		)
		s.mu.Lock()
		s.players = make(map[string]map[string]int)
		s.events = make(map[string]struct{})
		s.mu.Unlock()
		return LoadStats{}, nil
	}
	if err != nil {
		return LoadStats{}, fmt.Errorf("store: open snapshot: %w", err)
	}
	// Ignoring close error - file is read-only
	defer func() { _ = f.Close() }()

	players, events, stats, err := decodeSnapshot(f)
	if err != nil {
		return stats, fmt.Errorf("store: read snapshot %s: %w", path, err)
	}

	s.mu.Lock()
	s.players = players
	s.events = events
	s.mu.Unlock()

	level := slog.LevelInfo
	if stats.Skipped > 0 {
		level = slog.LevelWarn
	}
	logger.STORE.LogAttrs(logger.Background(), level, "snapshot loaded",
		slog.String("event", "snapshot.load"),
		slog.String("path", path),
		slog.Int("count", stats.Lines),
		slog.Int("players", stats.Players),
		slog.Int("animations", stats.Events),
		slog.Int("skipped", stats.Skipped),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return stats, nil
}

// Save writes the full store to path, replacing the file atomically.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	data := encodeSnapshot(s.players)
	s.mu.RUnlock()
	return atomicWrite(path, data, 0o644)
}

// persistLocked writes through to the bound snapshot. Callers hold s.mu.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	if err := atomicWrite(s.path, encodeSnapshot(s.players), 0o644); err != nil {
		logger.STORE.Error("snapshot write failed",
			slog.String("event", "snapshot.write"),
			slog.String("status", "fail"),
			slog.String("path", s.path),
			logger.Err(err),
		)
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}

// decodeSnapshot parses "player[,animation[,points]]" lines.
func decodeSnapshot(r io.Reader) (map[string]map[string]int, map[string]struct{}, LoadStats, error) {
	players := make(map[string]map[string]int)
	events := make(map[string]struct{})
	var stats LoadStats

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		stats.Lines++
		if !decodeLine(line, players, events) {
			stats.Skipped++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, stats, err
	}
	stats.Players = len(players)
	stats.Events = len(events)
	return players, events, stats, nil
}

func decodeLine(line string, players map[string]map[string]int, events map[string]struct{}) bool {
	fields := strings.Split(line, string(Delimiter))
	player, err := SanitizePlayer(fields[0])
	if err != nil {
		return false
	}

	var (
		event  string
		points int
	)
	if len(fields) > 1 && strings.TrimSpace(fields[1]) != "" {
		if event, err = SanitizeEvent(fields[1]); err != nil {
			return false
		}
	}
	if event != "" && len(fields) > 2 {
		if raw := strings.TrimSpace(fields[2]); raw != "" {
			if points, err = strconv.Atoi(raw); err != nil {
				return false
			}
		}
	}

	assoc, ok := players[player]
	if !ok {
		assoc = make(map[string]int)
		players[player] = assoc
	}
	if event != "" {
		assoc[event] = points
		events[event] = struct{}{}
	}
	return true
}

// encodeSnapshot renders players sorted by name; a player without
// associations is written as a bare identifier line.
func encodeSnapshot(players map[string]map[string]int) []byte {
	var buf bytes.Buffer
	for _, player := range slices.Sorted(maps.Keys(players)) {
		assoc := players[player]
		if len(assoc) == 0 {
			buf.WriteString(player)
			buf.WriteByte('\n')
			continue
		}
		for _, event := range slices.Sorted(maps.Keys(assoc)) {
			buf.WriteString(player)
			buf.WriteByte(Delimiter)
			buf.WriteString(event)
			buf.WriteByte(Delimiter)
			buf.WriteString(strconv.Itoa(assoc[event]))
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// atomicWrite writes data to a temp file next to path, syncs it, then renames
// it over path so readers never observe a partial snapshot.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if removeErr := os.Remove(tmpName); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			logger.STORE.Warn("failed to remove temp file",
				slog.String("event", "snapshot.cleanup"),
				slog.String("path", tmpName),
				logger.Err(removeErr),
			)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
