package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgeflow/forgeflow/internal/config"
)

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health": true,
}

// Auth returns middleware that validates API keys against the configured
// bcrypt hashes. Keys arrive in X-API-Key or as a Bearer token; WebSocket
// clients pass ?token= because browsers cannot set headers on upgrades.
// When auth is disabled every request passes through.
func Auth(cfg config.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := extractKey(r)
			if key == "" {
				unauthorized(w, "authorization required")
				return
			}
			if !matchesAnyHash(key, cfg.APIKeyHashes) {
				unauthorized(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractKey pulls the API key from X-API-Key, Authorization: Bearer, or the
// token query parameter, in that order.
func extractKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token := strings.TrimPrefix(auth, "Bearer "); token != auth {
			return token
		}
	}
	return r.URL.Query().Get("token")
}

// matchesAnyHash compares the key against every configured hash. bcrypt
// comparison is constant-time per hash.
func matchesAnyHash(key string, hashes []string) bool {
	for _, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(key)) == nil {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
