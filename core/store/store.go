package store

import (
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"sync"

	"github.com/m3rciful/animbot/core/logger"
)

// Outcome describes what AddAssociation did.
type Outcome int

const (
	// Unchanged means the pair already existed and no points were added.
	Unchanged Outcome = iota
	// Created means a new (player, animation) pair was registered.
	Created
	// Accumulated means points were added to an existing pair.
	Accumulated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Accumulated:
		return "accumulated"
	default:
		return "unchanged"
	}
}

// Store is the in-memory association table. When opened with a snapshot path,
// every mutation is written through to the snapshot before the lock is released.
type Store struct {
	mu      sync.RWMutex
	path    string
	players map[string]map[string]int
	events  map[string]struct{}
}

// New returns an empty store without a backing snapshot.
func New() *Store {
	return &Store{
		players: make(map[string]map[string]int),
		events:  make(map[string]struct{}),
	}
}

// Open loads the snapshot at path (a missing file yields an empty store) and
// binds the store to it for write-through persistence.
func Open(path string) (*Store, error) {
	s := New()
	if _, err := s.Load(path); err != nil {
		return nil, err
	}
	s.path = path
	return s, nil
}

// Path returns the bound snapshot path, empty for memory-only stores.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Close flushes the current state to the bound snapshot.
func (s *Store) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.path == "" {
		return nil
	}
	return s.persistLocked()
}

// AddPlayer registers the player if unknown. It reports whether a player was created.
func (s *Store) AddPlayer(id string) (bool, error) {
	player, err := SanitizePlayer(id)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player]; ok {
		return false, nil
	}
	s.players[player] = make(map[string]int)
	logger.STORE.Debug("player added", slog.String("event", "player.add"), slog.String("player", player))
	return true, s.persistLocked()
}

// AddAssociation links player and animation, creating either as needed. A new
// pair starts at points; an existing pair accumulates points. Adding an
// existing pair with zero points is a no-op reported as Unchanged.
// The returned total is the pair's points after the call.
func (s *Store) AddAssociation(player, event string, points int) (Outcome, int, error) {
	p, err := SanitizePlayer(player)
	if err != nil {
		return Unchanged, 0, err
	}
	e, err := SanitizeEvent(event)
	if err != nil {
		return Unchanged, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.players[p][e]
	if exists && overflows(current, points) {
		return Unchanged, current, &ValidationError{
			Field:  KindPoints,
			Value:  strconv.Itoa(points),
			Reason: "total out of range",
		}
	}

	assoc, ok := s.players[p]
	if !ok {
		assoc = make(map[string]int)
		s.players[p] = assoc
	}
	s.events[e] = struct{}{}

	outcome := Created
	if exists {
		if points == 0 {
			return Unchanged, current, nil
		}
		outcome = Accumulated
		assoc[e] = current + points
	} else {
		assoc[e] = points
	}
	total := assoc[e]
	logger.STORE.Debug("association updated",
		slog.String("event", "association.add"),
		slog.String("player", p),
		slog.String("animation", e),
		slog.Int("points", points),
		slog.Int("total", total),
		slog.String("outcome", outcome.String()),
	)
	return outcome, total, s.persistLocked()
}

func overflows(current, delta int) bool {
	return (delta > 0 && current > math.MaxInt-delta) || (delta < 0 && current < math.MinInt-delta)
}

// RemovePlayer deletes the player and every association they had. Animations
// left without players disappear.
func (s *Store) RemovePlayer(player string) error {
	p, err := SanitizePlayer(player)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p]; !ok {
		return &NotFoundError{Kind: KindPlayer, Player: p}
	}
	delete(s.players, p)
	s.rebuildEventsLocked()
	logger.STORE.Debug("player removed", slog.String("event", "player.remove"), slog.String("player", p))
	return s.persistLocked()
}

// RemoveAssociation deletes one (player, animation) pair. The animation
// disappears when it was its last association.
func (s *Store) RemoveAssociation(player, event string) error {
	p, err := SanitizePlayer(player)
	if err != nil {
		return err
	}
	e, err := SanitizeEvent(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	assoc, ok := s.players[p]
	if !ok {
		return &NotFoundError{Kind: KindPlayer, Player: p, Event: e}
	}
	if _, ok := s.events[e]; !ok {
		return &NotFoundError{Kind: KindEvent, Player: p, Event: e}
	}
	if _, ok := assoc[e]; !ok {
		return &NotFoundError{Kind: KindAssociation, Player: p, Event: e}
	}
	delete(assoc, e)
	if !s.referencedLocked(e) {
		delete(s.events, e)
	}
	logger.STORE.Debug("association removed",
		slog.String("event", "association.remove"),
		slog.String("player", p),
		slog.String("animation", e),
	)
	return s.persistLocked()
}

// PlayerAssociations returns a copy of the player's animation -> points map.
func (s *Store) PlayerAssociations(player string) (map[string]int, error) {
	p, err := SanitizePlayer(player)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	assoc, ok := s.players[p]
	if !ok {
		return nil, &NotFoundError{Kind: KindPlayer, Player: p}
	}
	return maps.Clone(assoc), nil
}

// EventAssociations returns the player -> points map of everyone registered for the animation.
func (s *Store) EventAssociations(event string) (map[string]int, error) {
	e, err := SanitizeEvent(event)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.events[e]; !ok {
		return nil, &NotFoundError{Kind: KindEvent, Event: e}
	}
	out := make(map[string]int)
	for p, assoc := range s.players {
		if pts, ok := assoc[e]; ok {
			out[p] = pts
		}
	}
	return out, nil
}

// Points returns the accumulated total of one (player, animation) pair.
func (s *Store) Points(player, event string) (int, error) {
	p, err := SanitizePlayer(player)
	if err != nil {
		return 0, err
	}
	e, err := SanitizeEvent(event)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	assoc, ok := s.players[p]
	if !ok {
		return 0, &NotFoundError{Kind: KindPlayer, Player: p, Event: e}
	}
	if _, ok := s.events[e]; !ok {
		return 0, &NotFoundError{Kind: KindEvent, Player: p, Event: e}
	}
	pts, ok := assoc[e]
	if !ok {
		return 0, &NotFoundError{Kind: KindAssociation, Player: p, Event: e}
	}
	return pts, nil
}

// Players lists every known player, sorted.
func (s *Store) Players() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.players))
}

// Events lists every animation with at least one association, sorted.
func (s *Store) Events() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.events))
}

func (s *Store) referencedLocked(event string) bool {
	for _, assoc := range s.players {
		if _, ok := assoc[event]; ok {
			return true
		}
	}
	return false
}

func (s *Store) rebuildEventsLocked() {
	events := make(map[string]struct{}, len(s.events))
	for _, assoc := range s.players {
		for e := range assoc {
			events[e] = struct{}{}
		}
	}
	s.events = events
}
