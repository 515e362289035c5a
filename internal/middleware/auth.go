package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"media-catalog/internal/logging"
)

const bearerPrefix = "Bearer "

// RequireToken returns middleware that admits requests carrying
// "Authorization: Bearer <token>". With an empty token every request is
// refused with 500, since the server has nothing to compare against.
func RequireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				logging.Error("Rejected %s %s: API_TOKEN not configured", r.Method, sanitizeLogField(r.URL.Path))
				writeAuthError(w, http.StatusInternalServerError, "API token not configured")
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeAuthError(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			supplied := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.Error("failed to encode auth error: %v", err)
	}
}
