package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/petrol-logbook/internal/session"
)

// SessionResolver maps a bearer token to a live session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Session, error)
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session placed in ctx by NewAuthHandler.
func SessionFrom(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*session.Session)
	return s, ok && s != nil
}

// NewAuthHandler returns a middleware that requires "Authorization: Bearer
// <token>" and stores the resolved session in the request context.
// Any failure is answered with 401 and the same generic message.
func NewAuthHandler(resolver SessionResolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			sess, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				log.DebugContext(r.Context(), "unauthenticated request", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
