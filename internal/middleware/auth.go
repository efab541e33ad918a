package middleware

import (
	"net/http"

	"github.com/avolkov/picshare/backend/internal/auth"
)

// RequireAuth is middleware that validates the session cookie and
// injects the authenticated user's id into the request context.
func RequireAuth(sessions auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil {
				http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
				return
			}

			userID, ok, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil || !ok {
				http.Error(w, `{"error":"session expired"}`, http.StatusUnauthorized)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
