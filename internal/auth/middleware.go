package auth

import (
	"context"
	"net/http"
)

// contextKey is unexported so only this package can read or write session
// identity values in a request context.
type contextKey string

const profileIDKey contextKey = "profileID"

// RequireAuth enforces authentication on protected routes. It reads the
// session cookie, validates it, and stores the profile id in the request
// context. Missing or invalid sessions get 401 and the chain stops.
func RequireAuth(sessions *SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profileID, err := extractProfileID(r, sessions)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), profileIDKey, profileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the identity when a valid session is present but
// never blocks the request. Used on read-only routes where anonymous
// access is allowed.
func OptionalAuth(sessions *SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if profileID, err := extractProfileID(r, sessions); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), profileIDKey, profileID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProfileIDFromContext returns the authenticated profile's id, or
// (0, false) for anonymous requests.
func ProfileIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(profileIDKey).(int64)
	return id, ok && id > 0
}

func extractProfileID(r *http.Request, sessions *SessionService) (int64, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return 0, err
	}
	return sessions.Validate(cookie.Value)
}
