package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	"seedwatch/internal/ratelimit"
	"seedwatch/pkg/errors"
	"seedwatch/pkg/logger"
)

// DefaultExemptPaths are never rate limited
var DefaultExemptPaths = []string{"/", "/health", "/docs", "/redoc", "/metrics"}

// RateLimitObserver records rejected requests
type RateLimitObserver interface {
	RateLimitRejected()
}

// RateLimit admits requests through the sliding-window limiter keyed by
// client IP. Rejected requests get 429 with Retry-After in whole seconds.
// Run after chi's RealIP so proxies are honoured.
func RateLimit(limiter *ratelimit.Limiter, log *logger.Logger, observer RateLimitObserver, exempt ...string) func(http.Handler) http.Handler {
	if len(exempt) == 0 {
		exempt = DefaultExemptPaths
	}
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}
	limit := strconv.Itoa(limiter.MaxRequests())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			clientID := ClientIP(r)
			w.Header().Set("X-RateLimit-Limit", limit)

			if !limiter.Allow(clientID) {
				retryAfter := int(math.Ceil(limiter.ResetTime(clientID).Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				if observer != nil {
					observer.RateLimitRejected()
				}
				log.WithFields(map[string]interface{}{
					"client_ip":   clientID,
					"path":        r.URL.Path,
					"retry_after": retryAfter,
				}).Warn("Rate limit exceeded")

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Remaining", "0")
				WriteError(w, r, errors.NewRateLimitError(
					fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter), retryAfter,
				), log)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(clientID)))
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of the request's remote address
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
