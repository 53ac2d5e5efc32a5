// Package logger is the structured slog setup shared by every component: one
// ordered line per record, kv or JSON, written asynchronously to stdout and an
// optional file.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/animbot/core/buildinfo"
	coreconfig "github.com/m3rciful/animbot/core/config"
)

const defaultSample = "1/50"

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closed   bool

	out   *lineWriter
	files []io.Closer

	level slog.LevelVar
	debug sampler
	trace bool

	// L is the base logger. It is slog.Default() until InitLogger runs.
	L = slog.Default()

	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs command and route wiring.
	TWire *slog.Logger
	// DB logs database connectivity.
	DB *slog.Logger
	// MIG logs journal schema migrations.
	MIG *slog.Logger
	// STORE logs association store mutations and snapshot IO.
	STORE *slog.Logger
	// DLG logs dialogue workflow transitions.
	DLG *slog.Logger
	// JRNL logs audit journal writes.
	JRNL *slog.Logger
)

var components = []struct {
	dst  **slog.Logger
	name string
}{
	{&TG, "tg"},
	{&TWire, "tg.wire"},
	{&DB, "db"},
	{&MIG, "db.migrate"},
	{&STORE, "store"},
	{&DLG, "dialogue"},
	{&JRNL, "journal"},
}

func init() {
	bindComponents()
	n, d, _ := parseRatio(defaultSample)
	debug.set(n, d)
}

func bindComponents() {
	for _, c := range components {
		*c.dst = L.With("component", c.name)
	}
}

// settings is the resolved logging section of the config.
type settings struct {
	level   slog.Level
	json    bool
	order   []string
	sample  string
	file    string
	profile string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{level: slog.LevelInfo, json: true, order: parseOrder(""), sample: defaultSample, profile: "prod"}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.json = false
	case "json":
	default:
		s.json = s.profile != "debug" && s.profile != "dev"
	}
	s.order = parseOrder(lc.KeysOrder)
	if v := strings.TrimSpace(lc.DebugSample); v != "" {
		s.sample = v
	}
	if dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.File); dir != "" && file != "" {
		s.file = filepath.Join(dir, file)
	}
	return s
}

// InitLogger installs the structured handler as the slog default. Only the
// first call has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		level.Set(s.level)
		n, d, ok := parseRatio(s.sample)
		if !ok {
			n, d, _ = parseRatio(defaultSample)
		}
		debug.set(n, d)
		trace = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		sinks := []io.Writer{os.Stdout}
		if s.file != "" {
			f, ferr := openLogFile(s.file)
			if ferr != nil {
				err = ferr
				return
			}
			sinks = append(sinks, f)
			files = append(files, f)
		}
		out = newLineWriter(sinks...)

		L = slog.New(newLineHandler(handlerOptions{level: &level, out: out, json: s.json, order: s.order}))
		slog.SetDefault(L)
		bindComponents()

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("event", "startup"),
			slog.String("profile", s.profile),
			slog.String("version", buildinfo.Version),
			slog.String("commit", buildinfo.Commit),
			slog.String("built", buildinfo.Date),
			slog.String("go", runtime.Version()),
		)
	})
	return err
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

// Shutdown drains pending lines and closes the log file. Later calls are no-ops.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if out != nil {
		errs = append(errs, out.Flush(), out.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Background is context.Background for call sites outside an update.
func Background() context.Context { return context.Background() }

// LogEvent logs attrs under the given event name. A nil logger means L.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = L
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

func scoped(component string) *slog.Logger {
	if component = strings.TrimSpace(component); component == "" {
		return L
	}
	return L.With("component", component)
}

// Debug logs a debug event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, scoped(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, scoped(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warning event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, scoped(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, scoped(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high volume debug line should be kept.
// TRACE or LOG_TRACE in the environment keeps all of them.
func ShouldSampleDebug() bool {
	return trace || debug.allow()
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
