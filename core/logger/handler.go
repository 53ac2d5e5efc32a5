package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

var errNoWriter = errors.New("logger: writer not initialized")

type field struct {
	key string
	val any
}

// record collects the fields of one line. Later writes win.
type record map[string]any

func (r record) set(f field) {
	if f.key != "" {
		r[f.key] = f.val
	}
}

func (r record) str(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// finish fills required keys and drops empty ones.
func (r record) finish(msg string) {
	if r.str("event") == "" {
		if msg == "" {
			msg = "unknown"
		}
		r["event"] = msg
	}
	if r.str("component") == "" {
		r["component"] = "app"
	}
	for _, key := range []string{"status", "outcome"} {
		if v, ok := r[key]; ok {
			r[key] = strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
		}
	}
	for k, v := range r {
		if v == nil || v == "" {
			delete(r, k)
		}
	}
}

type handlerOptions struct {
	level slog.Leveler
	out   *lineWriter
	json  bool
	order []string
}

// lineHandler prints each record as a single ordered kv or JSON line.
type lineHandler struct {
	opts   handlerOptions
	rank   map[string]int
	preset []field
	prefix string
}

func newLineHandler(opts handlerOptions) *lineHandler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if len(opts.order) == 0 {
		opts.order = lineOrder
	}
	return &lineHandler{opts: opts, rank: rankKeys(opts.order)}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.opts.out == nil {
		return errNoWriter
	}
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	rec := make(record, 16)
	rec["ts"] = ts.UTC().Truncate(time.Millisecond).Format(tsLayout)
	rec["level"] = r.Level.String()
	for _, f := range ScopeFrom(ctx).fields() {
		rec.set(f)
	}
	for _, f := range h.preset {
		rec.set(f)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(h.prefix, a, rec.set)
		return true
	})
	rec.finish(r.Message)

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sortKeys(keys, h.rank)

	var (
		line []byte
		err  error
	)
	if h.opts.json {
		line, err = encodeJSON(keys, rec)
	} else {
		line = encodeKV(keys, rec)
	}
	if err != nil {
		return err
	}
	return h.opts.out.Write(append(line, '\n'))
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = append([]field(nil), h.preset...)
	for _, a := range attrs {
		flatten(h.prefix, a, func(f field) { clone.preset = append(clone.preset, f) })
	}
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// flatten emits group members as dotted keys.
func flatten(prefix string, a slog.Attr, emit func(field)) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			flatten(key, child, emit)
		}
		return
	}
	if key == "" {
		return
	}
	if v.Kind() == slog.KindDuration {
		if !strings.HasSuffix(key, "_ms") {
			key += "_ms"
		}
		emit(field{key, RoundMS(v.Duration()).Milliseconds()})
		return
	}
	emit(field{key, plain(v)})
}

// plain converts v to a JSON friendly Go value.
func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String())
	case slog.KindBool:
		return v.Bool()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return int64(u)
		}
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	}
	switch x := v.Any().(type) {
	case nil:
		return nil
	case error:
		return x.Error()
	case []string:
		return strings.Join(x, ",")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func encodeJSON(keys []string, rec record) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = append(buf, '{')
	for i, key := range keys {
		val, err := json.Marshal(rec[key])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", key, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, key)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

func encodeKV(keys []string, rec record) []byte {
	buf := make([]byte, 0, 256)
	for i, key := range keys {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, key...)
		buf = append(buf, '=')
		s := fmt.Sprint(rec[key])
		if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
			buf = strconv.AppendQuote(buf, s)
		} else {
			buf = append(buf, s...)
		}
	}
	return buf
}
