package middleware

import (
	"net/http"

	"golang.org/x/sync/semaphore"
)

// retryAfterSeconds is the back-off hint given to the push source when full
const retryAfterSeconds = "1"

// ConcurrencyLimit admits at most limit requests at a time. Requests over the
// cap are answered 429 with Retry-After so the event source redelivers later.
func (m *Middleware) ConcurrencyLimit(limit int) func(http.Handler) http.Handler {
	sem := semaphore.NewWeighted(int64(max(1, limit)))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sem.TryAcquire(1) {
				if m.metrics != nil {
					m.metrics.IncRejected()
				}
				m.log.Warn().
					Str("request_id", GetRequestID(r.Context())).
					Int("limit", limit).
					Msg("concurrency limit reached")

				w.Header().Set("Retry-After", retryAfterSeconds)
				writeError(w, http.StatusTooManyRequests, "too_many_requests", "Too many concurrent events. Please retry later.")
				return
			}
			defer sem.Release(1)

			if m.metrics != nil {
				m.metrics.InFlight().Inc()
				defer m.metrics.InFlight().Dec()
			}

			next.ServeHTTP(w, r)
		})
	}
}
