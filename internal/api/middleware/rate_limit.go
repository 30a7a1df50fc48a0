package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"linkroute/internal/pkg/errors"
)

// RateLimit allows perMinute requests per client IP. A non-positive limit
// disables it.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// ReadWriteRateLimit applies separate per-IP budgets to safe and mutating methods.
func ReadWriteRateLimit(readPerMinute, writePerMinute int) func(http.Handler) http.Handler {
	read := RateLimit(readPerMinute)
	write := RateLimit(writePerMinute)
	return func(next http.Handler) http.Handler {
		readNext := read(next)
		writeNext := write(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				readNext.ServeHTTP(w, r)
			default:
				writeNext.ServeHTTP(w, r)
			}
		})
	}
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
}
