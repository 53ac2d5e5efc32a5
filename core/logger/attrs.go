package logger

import (
	"log/slog"
	"strings"
	"time"
)

const maxErrLen = 256

// Status maps err to the status value used on summary lines.
func Status(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// Err renders err as a bounded, sanitized "err" attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("err", "")
	}
	return slog.String("err", SanitizeLimit(err.Error(), maxErrLen))
}

// RoundMS rounds d to whole milliseconds; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Millis returns d as a whole number of milliseconds.
func Millis(d time.Duration) int {
	return int(RoundMS(d) / time.Millisecond)
}

// SummarizeStrings joins at most limit values and reports whether any were dropped.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
