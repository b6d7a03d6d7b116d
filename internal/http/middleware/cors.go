package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/rs/cors"

	"github.com/davidbz/ember/internal/config"
)

// relayHeaders are request headers the relay endpoint cannot work without.
var relayHeaders = []string{"Content-Type", "Authorization"}

// exposedHeaders let browser clients correlate a stream with server logs.
var exposedHeaders = []string{"X-Trace-Id", "X-Request-Id"}

// CORS answers cross-origin requests for the relay. Authorization and
// Content-Type are always allowed, whatever the configured header list says.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   withRelayHeaders(cfg.AllowedHeaders),
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}

func withRelayHeaders(configured []string) []string {
	headers := slices.Clone(configured)
	for _, required := range relayHeaders {
		present := slices.ContainsFunc(headers, func(h string) bool {
			return h == "*" || strings.EqualFold(h, required)
		})
		if !present {
			headers = append(headers, required)
		}
	}
	return headers
}
