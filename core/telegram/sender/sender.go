// Package sender runs outbound Telegram calls with retries for network
// failures and flood waits.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/animbot/core/logger"
	"github.com/m3rciful/animbot/core/telegram/netutil"
)

// Options controls retries of outbound Telegram calls.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single call.
	MaxDuration time.Duration
}

// Sender runs calls in the caller's goroutine so replies to one chat keep
// their order.
type Sender struct {
	opts  Options
	sleep func(context.Context, time.Duration) error
	errs  atomic.Uint64
}

// New returns a Sender, filling zeroed options with defaults.
func New(opts Options) *Sender {
	opts.MaxRetries = max(opts.MaxRetries, 0)
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	return &Sender{opts: opts, sleep: netutil.Sleep}
}

// ErrorCount returns the number of calls that failed after all attempts.
func (s *Sender) ErrorCount() uint64 {
	return s.errs.Load()
}

// Do calls run until it succeeds, fails permanently or runs out of attempts.
// run must be safe to repeat.
func (s *Sender) Do(ctx context.Context, action string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	bounded, cancel := context.WithTimeout(ctx, s.opts.MaxDuration)
	defer cancel()

	t := trace{ctx: ctx, action: action, start: time.Now()}
	var err error
	for t.attempt = 1; t.attempt <= s.opts.MaxRetries+1; t.attempt++ {
		if cerr := bounded.Err(); cerr != nil {
			err = errors.Join(err, cerr)
			break
		}
		if err = run(); err == nil {
			t.succeeded()
			return nil
		}
		delay, retry := s.retryDelay(err, t.attempt)
		if !retry || t.attempt > s.opts.MaxRetries {
			break
		}
		t.backingOff(delay)
		if s.sleep(bounded, delay) != nil {
			break
		}
	}
	s.errs.Add(1)
	t.failed(err)
	return err
}

func (s *Sender) retryDelay(err error, attempt int) (time.Duration, bool) {
	if d, ok := netutil.RetryAfter(err); ok {
		return d, true
	}
	if netutil.ShouldRetry(err) {
		return netutil.Backoff(s.opts.RetryBackoff, attempt), true
	}
	return 0, false
}

// trace logs the progress of one Do call.
type trace struct {
	ctx     context.Context
	action  string
	start   time.Time
	attempt int
}

func (t trace) attrs(extra ...slog.Attr) []slog.Attr {
	return append([]slog.Attr{
		slog.String("action", t.action),
		slog.Int("attempt", t.attempt),
		slog.Int("elapsed_ms", logger.Millis(time.Since(t.start))),
	}, extra...)
}

func (t trace) succeeded() {
	if t.attempt > 1 {
		logger.Info(t.ctx, "tg.sender", "send.retry.success", t.attrs()...)
		return
	}
	logger.Debug(t.ctx, "tg.sender", "send.success", t.attrs()...)
}

func (t trace) backingOff(delay time.Duration) {
	logger.Debug(t.ctx, "tg.sender", "send.retry.backoff", t.attrs(slog.Duration("delay", delay))...)
}

func (t trace) failed(err error) {
	logger.Error(t.ctx, "tg.sender", "send.fail", t.attrs(
		slog.String("status", "fail"),
		slog.String("err", redact(err)),
		slog.String("err_kind", errorKind(err)),
	)...)
}
