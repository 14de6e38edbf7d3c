package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the userID value.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth is the middleware guarding every protected route.
//
// It reads the "Authorization: Bearer <token>" header, validates the token,
// and stores the user ID in the request context. Any failure (absent
// header, malformed header, invalid or expired token) short-circuits with
// the same generic 401 body, so a caller cannot tell which case it hit.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns (0, false) if the request never passed RequireAuth.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// extractUserID pulls the bearer credential out of the Authorization header
// and validates it. The header is split on whitespace and the second field
// is the token, so "Bearer <token>" and "bearer <token>" both work.
func extractUserID(r *http.Request, tokens *TokenService) (int64, error) {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) < 2 {
		return 0, errors.New("auth: missing bearer token")
	}

	return tokens.Validate(fields[1])
}
