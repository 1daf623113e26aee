package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/pkg/clientip"
	"go.uber.org/zap"
)

// WindowCounter counts hits per key in a fixed window that starts on the
// first hit.
type WindowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// WindowLimit allows max requests per window from each client IP. Keys are
// prefix+ip. When the counter is unavailable the request is let through.
func WindowLimit(counter WindowCounter, prefix string, max int64, window time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientip.RealClientIP(r)
			count, err := counter.Hit(r.Context(), prefix+ip, window)
			if err != nil {
				logger.Warn("rate_limit_counter_unavailable",
					zap.String("prefix", prefix),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			remaining := max - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(max, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > max {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				respondError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
