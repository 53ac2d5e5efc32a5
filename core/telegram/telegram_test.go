package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/animbot/core/config"
)

func TestBuildPoller(t *testing.T) {
	lp, ok := BuildPoller(PollerOptions{RunMode: "LongPoll"}).(*tele.LongPoller)
	testutil.AssertEqual(t, "longpoll", ok, true)
	testutil.AssertEqual(t, "default timeout", lp.Timeout, 10*time.Second)

	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook = coreconfig.WebhookConfig{URL: "https://example.org/hook", Listen: "0.0.0.0", Port: 8443}
	wh, ok := BuildPoller(PollerOptionsFrom(cfg)).(*tele.Webhook)
	testutil.AssertEqual(t, "webhook", ok, true)
	testutil.AssertEqual(t, "listen", wh.Listen, "0.0.0.0:8443")
	testutil.AssertEqual(t, "public url", wh.Endpoint.PublicURL, "https://example.org/hook")
	testutil.AssertEqual(t, "updates", len(wh.AllowedUpdates), 1)
	testutil.AssertEqual(t, "messages only", wh.AllowedUpdates[0], "message")
}

func TestDefaultMiddlewares(t *testing.T) {
	testutil.AssertEqual(t, "nil config", len(DefaultMiddlewares(nil, nil)), 1)

	cfg := &coreconfig.Config{}
	testutil.AssertEqual(t, "no rate limit", len(DefaultMiddlewares(cfg, nil)), 1)

	cfg.RateLimit.IntervalMS = 500
	mws := DefaultMiddlewares(cfg, nil)
	testutil.AssertEqual(t, "with rate limit", len(mws), 2)
	testutil.AssertEqual(t, "name", mws[1].Name, "rate_limit")
}

type flakyTransport struct {
	calls int
	fail  int
}

func (f *flakyTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.fail {
		return nil, &netDialError{}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
}

type netDialError struct{}

func (netDialError) Error() string   { return "dial tcp: i/o timeout" }
func (netDialError) Timeout() bool   { return true }
func (netDialError) Temporary() bool { return true }

func TestRetryTransport(t *testing.T) {
	base := &flakyTransport{fail: 2}
	rt := &retryTransport{base: base, maxRetries: 3}
	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/bot1:x/getMe", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()
	testutil.AssertEqual(t, "calls", base.calls, 3)
}

func TestRetryTransportGivesUp(t *testing.T) {
	base := &flakyTransport{fail: 10}
	rt := &retryTransport{base: base, maxRetries: 1}
	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/bot1:x/getMe", nil)
	_, err := rt.RoundTrip(req)
	var ne *netDialError
	testutil.AssertEqual(t, "net error", errors.As(err, &ne), true)
	testutil.AssertEqual(t, "calls", base.calls, 2)
}

func TestRewindReplaysBody(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendMessage", strings.NewReader("text=hi"))
	first, err := rewind(req, 0)
	if err != nil {
		t.Fatalf("rewind: %v", err)
	}
	testutil.AssertEqual(t, "first attempt reuses request", first == req, true)

	again, err := rewind(req, 1)
	if err != nil {
		t.Fatalf("rewind: %v", err)
	}
	body, _ := io.ReadAll(again.Body)
	testutil.AssertEqual(t, "body", string(body), "text=hi")

	req.GetBody = nil
	_, err = rewind(req, 1)
	testutil.AssertEqual(t, "no replay", errors.Is(err, errNoReplay), true)
}

func TestBuildHTTPClientDefaults(t *testing.T) {
	c := BuildHTTPClient(HTTPOptions{ClientTimeout: time.Minute})
	testutil.AssertEqual(t, "timeout", c.Timeout, time.Minute)
	rt, ok := c.Transport.(*retryTransport)
	testutil.AssertEqual(t, "retrying", ok, true)
	testutil.AssertEqual(t, "retries", rt.maxRetries, 3)
	testutil.AssertEqual(t, "backoff", rt.backoff, 2*time.Second)
}

type fakeBinder struct {
	uses      int
	endpoints []any
}

func (f *fakeBinder) Use(mw ...tele.MiddlewareFunc) { f.uses += len(mw) }

func (f *fakeBinder) Handle(endpoint interface{}, _ tele.HandlerFunc, _ ...tele.MiddlewareFunc) {
	f.endpoints = append(f.endpoints, endpoint)
}

func TestWireSkipsIncompleteEntries(t *testing.T) {
	noop := func(tele.Context) error { return nil }
	passthrough := func(next tele.HandlerFunc) tele.HandlerFunc { return next }
	b := &fakeBinder{}
	n := wire(b, RunOptions{
		Registry:    NewRegistry(),
		Middlewares: []Middleware{{Name: "recover", Use: passthrough}, {Name: "empty"}},
		Routes: func(*Registry) []Route {
			return []Route{
				{Endpoint: "/scores", Handler: noop},
				{Endpoint: nil, Handler: noop},
				{Endpoint: tele.OnText},
			}
		},
	})
	testutil.AssertEqual(t, "bound", n, 1)
	testutil.AssertEqual(t, "middlewares", b.uses, 1)
	testutil.AssertEqual(t, "endpoint", b.endpoints[0], any("/scores"))
}

type blockingRunner struct {
	stop    chan struct{}
	stopped bool
}

func (r *blockingRunner) Start() { <-r.stop }
func (r *blockingRunner) Stop() {
	r.stopped = true
	close(r.stop)
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &blockingRunner{stop: make(chan struct{})}
	cancel()
	err := serve(ctx, r)
	testutil.AssertEqual(t, "canceled", errors.Is(err, context.Canceled), true)
	testutil.AssertEqual(t, "stopped", r.stopped, true)
}

type returningRunner struct{}

func (returningRunner) Start() {}
func (returningRunner) Stop()  {}

func TestServeReturnsWhenStartReturns(t *testing.T) {
	if err := serve(context.Background(), returningRunner{}); err != nil {
		t.Fatalf("serve: %v", err)
	}
}
