package middleware

import (
	"log/slog"

	"github.com/m3rciful/animbot/core/logger"
	tghelpers "github.com/m3rciful/animbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions restricts commands to one operator account.
type AdminOptions struct {
	// AdminID is the only user allowed through; 0 disables the check.
	AdminID  int64
	OnReject tele.HandlerFunc
}

// IsAdmin reports whether the sender passes the check.
func (o AdminOptions) IsAdmin(c tele.Context) bool {
	if o.AdminID == 0 {
		return true
	}
	u := c.Sender()
	return u != nil && u.ID == o.AdminID
}

// WithAdminCheck guards h when adminOnly is set and an admin is configured.
func WithAdminCheck(opts AdminOptions, adminOnly bool, h tele.HandlerFunc) tele.HandlerFunc {
	if !adminOnly || opts.AdminID == 0 {
		return h
	}
	return AdminOnlyMiddleware(opts)(h)
}

// AdminOnlyMiddleware lets only the admin through. Others get OnReject, if set.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.IsAdmin(c) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.admin_reject",
				slog.String("status", "skip"),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
