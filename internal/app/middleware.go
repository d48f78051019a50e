package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"

	"github.com/tryequipped/equipped/internal/apperrors"
)

// LoggingMiddleware logs HTTP requests with structured fields.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Info().
			Str("method", r.Method).
			Str("host", r.Host).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Str("request_id", apperrors.GetRequestID(r.Context())).
			Str("remote_addr", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// RecoveryMiddleware recovers from panics and returns a 500 error.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("request_id", apperrors.GetRequestID(r.Context())).
					Str("path", r.URL.Path).
					Msg("Panic recovered")

				apperrors.WriteInternalError(w, r, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// ContentTypeJSON sets Content-Type to application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// SameOriginMiddleware rejects cookie-authenticated mutations whose
// Origin is not one of ours. Bearer-token clients are unaffected, and
// requests without an Origin header (curl, server-to-server) pass; the
// target is the classic cross-site form post riding the session cookie.
// Entries of the form "https://*.example.com" match any subdomain.
func SameOriginMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	type wildcard struct {
		prefix string
		suffix string
	}

	exact := make(map[string]bool, len(allowedOrigins))
	var wildcards []wildcard
	for _, o := range allowedOrigins {
		if scheme, host, ok := strings.Cut(o, "://*."); ok {
			wildcards = append(wildcards, wildcard{prefix: scheme + "://", suffix: "." + host})
			continue
		}
		exact[o] = true
	}

	originAllowed := func(origin string) bool {
		if exact[origin] {
			return true
		}
		for _, wc := range wildcards {
			if strings.HasPrefix(origin, wc.prefix) && strings.HasSuffix(origin, wc.suffix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mutating := r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodDelete
			if mutating && r.Header.Get("Authorization") == "" {
				if origin := r.Header.Get("Origin"); origin != "" && !originAllowed(origin) {
					log.Warn().
						Str("origin", origin).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("Cross-origin mutation rejected")

					apperrors.WriteForbidden(w, r, "Cross-origin request rejected")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware limits requests per minute per client IP.
func RateLimitMiddleware(rpm int) func(http.Handler) http.Handler {
	return httprate.Limit(
		rpm,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			apperrors.WriteTooManyRequests(w, r, "Too many requests. Try again later.")
		}),
	)
}

// InviteActionRateLimitMiddleware limits invitation accept and decline
// attempts per IP. Invitation ids are guessable enough that probing
// them deserves a ceiling.
func InviteActionRateLimitMiddleware() func(http.Handler) http.Handler {
	return httprate.Limit(
		10,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			apperrors.WriteTooManyRequests(w, r, "Too many invitation attempts. Try again later.")
		}),
	)
}
