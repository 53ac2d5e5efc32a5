package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// redact renders err with any bot token masked.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// kinds is checked in order; the first match names the failure.
var kinds = []struct {
	name  string
	match func(error) bool
}{
	{"timeout", isTimeout},
	{"dns", func(err error) bool { var e *net.DNSError; return errors.As(err, &e) }},
	{"dial", func(err error) bool { var e *net.OpError; return errors.As(err, &e) && e.Op == "dial" }},
	{"tls", func(err error) bool { var e tls.AlertError; return errors.As(err, &e) }},
	{"http_5xx", func(err error) bool { return statusOf(err) >= 500 }},
	{"http_4xx", func(err error) bool { return statusOf(err) >= 400 }},
}

// errorKind buckets a failed call for the send.fail log line.
func errorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if k.match(err) {
			return k.name
		}
	}
	return "unknown"
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// statusOf finds the HTTP status behind a Bot API error, falling back to a
// trailing "(NNN)" in the message.
func statusOf(err error) int {
	var (
		api   *tele.Error
		flood tele.FloodError
		group tele.GroupError
	)
	switch {
	case errors.As(err, &api):
		return api.Code
	case errors.As(err, &flood):
		return http.StatusTooManyRequests
	case errors.As(err, &group):
		return http.StatusBadRequest
	}
	msg := strings.TrimSpace(err.Error())
	if !strings.HasSuffix(msg, ")") {
		return 0
	}
	open := strings.LastIndexByte(msg, '(')
	if open < 0 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : len(msg)-1]))
	if convErr != nil {
		return 0
	}
	return code
}
