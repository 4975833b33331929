package middleware

import (
	"net"
	"net/http"
	"strconv"

	"survey-api/internal/service"
	"survey-api/pkg/errors"
	"survey-api/pkg/logger"
)

// RateLimit refuses requests once the client IP exceeds the limiter's window.
// It expects chi's RealIP middleware to have set RemoteAddr.
func RateLimit(limiter *service.RateLimiter, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := limiter.Allow(r.Context(), clientIP(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			remaining := int64(info.Limit) - info.RequestCount
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !info.IsAllowed {
				retryAfter := int(info.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				WriteError(w, r, errors.NewRateLimitError("Too many submissions, please try again later"), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr when there is one
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
