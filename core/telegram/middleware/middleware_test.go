package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/animbot/core/config"
)

type fakeContext struct {
	tele.Context
	sent []string
}

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what.(string))
	return nil
}

func newFake(userID int64, updateID int, text string) *fakeContext {
	msg := &tele.Message{Chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate}, Text: text}
	if userID != 0 {
		msg.Sender = &tele.User{ID: userID}
	}
	return &fakeContext{Context: tele.NewContext(nil, tele.Update{ID: updateID, Message: msg})}
}

func ok(tele.Context) error { return nil }

func TestAdminCheck(t *testing.T) {
	rejected := 0
	opts := AdminOptions{AdminID: 7, OnReject: func(tele.Context) error { rejected++; return nil }}
	called := 0
	h := WithAdminCheck(opts, true, func(tele.Context) error { called++; return nil })

	_ = h(newFake(7, 1, "/points"))
	_ = h(newFake(8, 2, "/points"))
	testutil.AssertEqual(t, "admin passes", called, 1)
	testutil.AssertEqual(t, "stranger rejected", rejected, 1)

	open := WithAdminCheck(AdminOptions{}, true, func(tele.Context) error { called++; return nil })
	_ = open(newFake(8, 3, "/points"))
	testutil.AssertEqual(t, "no admin configured", called, 2)

	public := WithAdminCheck(opts, false, func(tele.Context) error { called++; return nil })
	_ = public(newFake(8, 4, "/scores"))
	testutil.AssertEqual(t, "public command", called, 3)
}

func TestRateLimit(t *testing.T) {
	clock := time.Unix(1000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		OnLimited: func(tele.Context) error { limited++; return nil },
		now:       func() time.Time { return clock },
	})
	passed := 0
	h := mw(func(tele.Context) error { passed++; return nil })

	_ = h(newFake(5, 1, "a"))
	_ = h(newFake(5, 2, "b"))
	_ = h(newFake(6, 3, "c"))
	clock = clock.Add(2 * time.Second)
	_ = h(newFake(5, 4, "d"))

	testutil.AssertEqual(t, "passed", passed, 3)
	testutil.AssertEqual(t, "limited", limited, 1)
}

func TestRateLimitExclusions(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{coreconfig.UpdateText: {}},
	})
	passed := 0
	h := mw(func(tele.Context) error { passed++; return nil })
	for i := 0; i < 3; i++ {
		_ = h(newFake(5, i, "x"))
	}
	testutil.AssertEqual(t, "excluded", passed, 3)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newFake(5, 1, "x"))
	testutil.AssertErrorContains(t, err, "boom")
	var pe *PanicError
	testutil.AssertEqual(t, "typed", errors.As(err, &pe), true)
	testutil.AssertEqual(t, "value", pe.Value, any("boom"))

	want := errors.New("plain")
	err = RecoverMiddleware(func(tele.Context) error { return want })(newFake(5, 2, "x"))
	testutil.AssertEqual(t, "passthrough", errors.Is(err, want), true)
}

func TestMessageMetricsCountsReplies(t *testing.T) {
	c := newFake(5, 1, "/scores")
	h := LoggerMiddleware(MessageMetricsMiddleware(func(c tele.Context) error {
		if err := c.Send("one"); err != nil {
			return err
		}
		return c.Send("two", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{RemoveKeyboard: true}})
	}))
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	msgs, kb := GetCounters(c)
	testutil.AssertEqual(t, "messages", msgs, 2)
	testutil.AssertEqual(t, "keyboard", kb, true)
	testutil.AssertEqual(t, "rid", c.Get("rid"), interface{}("1:5:5"))
}

func TestMarkSeen(t *testing.T) {
	s := &updateSet{seen: map[int]time.Time{}, keepFor: time.Second}
	now := time.Unix(0, 0)
	testutil.AssertEqual(t, "first", s.markSeen(1, now), false)
	testutil.AssertEqual(t, "second", s.markSeen(1, now), true)
	testutil.AssertEqual(t, "expired", s.markSeen(1, now.Add(2*time.Second)), false)
}

func TestPayloadAttrsHidesCommandArguments(t *testing.T) {
	attrs := payloadAttrs("/start Ym9iIHNlY3JldA")
	testutil.AssertEqual(t, "count", len(attrs), 1)
	testutil.AssertEqual(t, "key", attrs[0].Key, "cmd")
	testutil.AssertEqual(t, "value", attrs[0].Value.String(), "/start")

	attrs = payloadAttrs("alice")
	testutil.AssertEqual(t, "payload", attrs[0].Key, "payload")
	testutil.AssertEqual(t, "empty", len(payloadAttrs("  ")), 0)
}

func TestLimiterPrunesStaleUsers(t *testing.T) {
	lim := &limiter{interval: time.Second, last: make(map[int64]time.Time)}
	t0 := time.Unix(1000, 0)
	testutil.AssertEqual(t, "first", lim.allow(1, t0), true)
	testutil.AssertEqual(t, "other user", lim.allow(2, t0.Add(100*time.Millisecond)), true)
	testutil.AssertEqual(t, "too soon", lim.allow(1, t0.Add(500*time.Millisecond)), false)

	testutil.AssertEqual(t, "after interval", lim.allow(3, t0.Add(2*time.Second)), true)
	testutil.AssertEqual(t, "tracked", len(lim.last), 1)
}

func TestUpdateKind(t *testing.T) {
	testutil.AssertEqual(t, "command", updateKind(newFake(1, 1, "/points").Update()), coreconfig.UpdateCommand)
	testutil.AssertEqual(t, "text", updateKind(newFake(1, 2, "alice").Update()), coreconfig.UpdateText)
	testutil.AssertEqual(t, "other", updateKind(tele.Update{ID: 3}), "other")
}
