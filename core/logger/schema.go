package logger

import (
	"slices"
	"strings"
)

// lineOrder is the default key order. Keys not listed follow alphabetically.
var lineOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "update_id", "user_id", "chat_id", "session", "handler",
	"workflow", "step", "next_step", "reason",
	"player", "animation", "points", "total", "outcome", "action",
	"players", "animations", "count", "skipped", "open",
	"duration_ms", "messages", "kb",
	"path", "payload", "username", "mode", "db", "host", "port", "version",
	"err", "err_code", "cause", "attempts",
}

// parseOrder reads a comma separated key list. Empty or "default" yields lineOrder.
func parseOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return slices.Clone(lineOrder)
	}
	var order []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" && !slices.Contains(order, key) {
			order = append(order, key)
		}
	}
	if len(order) == 0 {
		return slices.Clone(lineOrder)
	}
	return order
}

func rankKeys(order []string) map[string]int {
	rank := make(map[string]int, len(order))
	for i, key := range order {
		if _, dup := rank[key]; !dup {
			rank[key] = i
		}
	}
	return rank
}

// sortKeys orders ranked keys first, then the rest by name.
func sortKeys(keys []string, rank map[string]int) {
	slices.SortFunc(keys, func(a, b string) int {
		ra, okA := rank[a]
		rb, okB := rank[b]
		switch {
		case okA && okB:
			return ra - rb
		case okA:
			return -1
		case okB:
			return 1
		}
		return strings.Compare(a, b)
	})
}
