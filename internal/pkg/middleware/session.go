package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aptwise/aptwise/internal/pkg/router"
)

type ctxKey struct{}

var userEmailKey ctxKey

// tokenValidator defines the interface for resolving a raw session token to
// its subject email
type tokenValidator interface {
	Validate(raw string) (string, error)
}

// Session authenticates requests by the session token carried in the named
// cookie and stores the subject email in the request context.
func Session(cookieName string, tokens tokenValidator) router.Middleware {
	return func(next http.Handler) http.Handler {
		return sessionMiddleware(next, cookieName, tokens)
	}
}

func sessionMiddleware(next http.Handler, cookieName string, tokens tokenValidator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(cookieName)
		if err != nil || c.Value == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		email, err := tokens.Validate(c.Value)
		if err != nil {
			sessionError("failed to validate session token", w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userEmailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionError(msg string, w http.ResponseWriter, r *http.Request, err error) {
	slog.Error(msg,
		"error", err,
		"method", r.Method,
		"url", r.URL.String(),
		"remote_addr", r.RemoteAddr,
	)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

func UserEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(userEmailKey).(string)
	return email
}
