package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/animbot/core/logger"
	tghelpers "github.com/m3rciful/animbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const maxStackLog = 4096

// PanicError is returned in place of a handler that panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("telegram: handler panic: %v", e.Value)
}

// RecoverMiddleware turns handler panics into *PanicError and logs the stack.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err = &PanicError{Value: r}
			logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
				logger.Err(err),
				slog.String("stack", logger.SanitizeLimit(string(debug.Stack()), maxStackLog)),
			)
		}()
		return next(c)
	}
}
