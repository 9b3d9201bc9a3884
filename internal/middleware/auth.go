package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/pkg/client"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Session is the caller of a request: an API client authenticating with the
// forwarded token and the profile it belongs to. Profile is nil for
// anonymous requests.
type Session struct {
	Client  *client.Client
	Profile *domain.UserProfile
}

// SessionAuth resolves the session of every request. Requests without a
// token continue anonymously; an invalid token is refused.
func SessionAuth(base *client.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := base.WithToken(extractToken(r))
			if id := chimw.GetReqID(r.Context()); id != "" {
				c = c.ForRequest(id)
			}

			sess := &Session{Client: c}
			if c.Token() != "" {
				profile, err := c.Me(r.Context())
				if err != nil {
					var authErr *client.AuthError
					if errors.As(err, &authErr) {
						writeError(w, http.StatusUnauthorized, "invalid token")
						return
					}
					slog.Error("failed to load session profile", "error", err)
					writeError(w, http.StatusBadGateway, "failed to load profile")
					return
				}
				sess.Profile = profile
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireProfile refuses anonymous requests.
func RequireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetProfile(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSession retrieves the session from the request context.
func GetSession(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey).(*Session)
	return sess
}

// GetProfile returns the profile of the session, nil when anonymous.
func GetProfile(ctx context.Context) *domain.UserProfile {
	if sess := GetSession(ctx); sess != nil {
		return sess.Profile
	}
	return nil
}

// WithSession stores a session in ctx.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// extractToken accepts both the "Token" scheme of the INVENT API and
// "Bearer".
func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "token") && !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
