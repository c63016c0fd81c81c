// Package auth authenticates requests against the external authentication service. The session
// token is taken from a cookie (or a bearer header), verified per request, and the resulting
// Session is attached to the request context.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gitlab.com/dirk.krummacker/relationship-service/internal/apierr"
)

// ErrUnauthenticated is returned if a token is missing, expired or rejected.
var ErrUnauthenticated = errors.New("unauthenticated")

// Config describes how to reach the authentication service and where to find the token.
type Config struct {
	URL        string        `envconfig:"AUTH_URL" required:"true"`
	APIKey     string        `envconfig:"AUTH_API_KEY"`
	CookieName string        `envconfig:"AUTH_COOKIE_NAME" default:"sb-access-token"`
	CacheTTL   time.Duration `envconfig:"AUTH_CACHE_TTL" default:"60s"`
	Timeout    time.Duration `envconfig:"AUTH_TIMEOUT" default:"10s"`
}

// Session is the authenticated caller of a request.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Verifier resolves a session token into a Session.
type Verifier interface {
	Verify(ctx context.Context, token string) (Session, error)
}

type sessionKey struct{}

// WithSession returns a copy of the context that carries the session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session of the request, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Middleware rejects requests without a valid session with 401. Accepted requests carry their
// Session in the request context.
func Middleware(verifier Verifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c, cookieName)
		if token == "" {
			apierr.Abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		session, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				log.Error().Err(err).Msg("session verification failed")
			}
			apierr.Abort(c, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// tokenFromRequest prefers the session cookie and falls back to an Authorization bearer header.
func tokenFromRequest(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	header := c.GetHeader("Authorization")
	if scheme, token, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
