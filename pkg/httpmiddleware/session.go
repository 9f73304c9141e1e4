package httpmiddleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionHeader carries the session id for clients that do not keep cookies.
const SessionHeader = "X-Session-ID"

// SessionConfig configures the Session middleware.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type sessionKey struct{}

// SessionIDFromContext returns the session id stored by Session.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Session attaches a session id to every request. The id is taken from the
// session cookie, then from the X-Session-ID header; a new one is issued when
// neither holds a valid UUID. The id is echoed back in both the cookie and
// the header, and the cookie expiry slides with every request.
func Session(cfg SessionConfig) Middleware {
	if cfg.CookieName == "" {
		cfg.CookieName = "koi_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := sessionID(r, cfg.CookieName)

			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(SessionHeader, id)

			ctx := context.WithValue(r.Context(), sessionKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionID(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil {
		if id, ok := parseSessionID(c.Value); ok {
			return id
		}
	}
	if id, ok := parseSessionID(r.Header.Get(SessionHeader)); ok {
		return id
	}
	return uuid.NewString()
}

func parseSessionID(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
