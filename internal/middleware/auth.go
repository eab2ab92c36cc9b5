package middleware

import (
	"context"
	"net/http"

	"github.com/avelez/duet/internal/auth"
	"github.com/avelez/duet/internal/httpx"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// Auth verifies the session cookie and puts the user id in the request
// context.
func Auth(tokens *auth.Tokens) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.CookieName)
			if err != nil {
				httpx.Error(w, httpx.ErrUnauthorized, "Unauthorized")
				return
			}

			userID, err := tokens.Verify(cookie.Value)
			if err != nil {
				httpx.Error(w, httpx.ErrUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id from the context, or 0 if the
// request did not pass through Auth.
func UserID(ctx context.Context) int {
	id, _ := ctx.Value(UserIDKey).(int)
	return id
}
