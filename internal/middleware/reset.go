package middleware

import (
	"context"
	"log/slog"
	"net/http"
)

// ResetChecker runs the daily reset if the calendar day has changed.
type ResetChecker interface {
	Check(ctx context.Context) (bool, error)
}

// DailyReset makes sure the daily challenges are reset before a request
// reads or writes them. A failed check is logged and the request goes ahead;
// the background scheduler retries.
func DailyReset(checker ResetChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := checker.Check(r.Context()); err != nil {
				logger.Warn("daily reset check failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
