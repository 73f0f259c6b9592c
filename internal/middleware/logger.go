package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"shaggydog/internal/infra/geoip"
)

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logger emits one structured line per request. When a country resolver is
// configured the line carries the client's ISO country code; lookups that
// fail are simply omitted.
func Logger(l zerolog.Logger, resolver geoip.CountryResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			event := l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.status).
				Dur("duration", time.Since(start))
			if resolver != nil {
				if country, err := resolver.CountryCode(clientIPForRateLimit(r)); err == nil && country != "" {
					event = event.Str("country", country)
				}
			}
			event.Msg("request")
		})
	}
}
