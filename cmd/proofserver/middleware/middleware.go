// Package middleware holds the proof server's chi middleware: API-key
// auth and a global token-bucket rate limit.
package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RequireAPIKey rejects any request whose X-API-Key header does not match
// key, unless disabled (local/dev use). health/ready/version stay public
// regardless - callers mount this only on the proving routes.
func RequireAPIKey(key string, disabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if disabled || r.Header.Get("X-API-Key") == key {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "missing or invalid API key", http.StatusUnauthorized)
		})
	}
}

// RateLimit applies one process-wide token bucket, refilling at
// perSecond with a burst of one second's worth of requests plus one.
func RateLimit(perSecond float64) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBody caps the request body at n bytes, matching the configured
// max payload size for proving requests.
func MaxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
