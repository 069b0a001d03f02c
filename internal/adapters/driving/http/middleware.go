package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
)

// Context keys
type contextKey string

const sessionContextKey contextKey = "session_id"

// SessionCookieName is the cookie carrying the signed session ID.
const SessionCookieName = "vitalsync_session"

// sessionCookieTTL matches the session credential store horizon.
const sessionCookieTTL = 365 * 24 * time.Hour

// SessionMiddleware resolves the browser session from the signed cookie.
type SessionMiddleware struct {
	tokens driven.SessionTokens
	secure bool
}

// NewSessionMiddleware creates a new SessionMiddleware. secure controls the
// cookie's Secure flag and should be true everywhere except local dev.
func NewSessionMiddleware(tokens driven.SessionTokens, secure bool) *SessionMiddleware {
	return &SessionMiddleware{tokens: tokens, secure: secure}
}

// Ensure resolves the session from the cookie, minting a new session and
// setting the cookie when none exists. Used on the consent flow where a
// first-time visitor is expected.
func (m *SessionMiddleware) Ensure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := m.sessionFromCookie(r)
		if sessionID == "" {
			sessionID = uuid.NewString()
			token, err := m.tokens.Sign(sessionID, sessionCookieTTL)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to create session")
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(sessionCookieTTL.Seconds()),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require resolves the session from the cookie and rejects requests without
// one. Used on endpoints that only make sense after the consent flow.
func (m *SessionMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := m.sessionFromCookie(r)
		if sessionID == "" {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionMiddleware) sessionFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	sessionID, err := m.tokens.Verify(cookie.Value)
	if err != nil {
		return ""
	}
	return sessionID
}

// GetSessionID retrieves the session ID from request context
func GetSessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sessionID, _ := ctx.Value(sessionContextKey).(string)
	return sessionID
}

// CronMiddleware guards the scheduled trigger with a shared bearer secret.
type CronMiddleware struct {
	secret string
}

// NewCronMiddleware creates a new CronMiddleware
func NewCronMiddleware(secret string) *CronMiddleware {
	return &CronMiddleware{secret: secret}
}

// Authorize rejects requests whose bearer token does not match the cron
// secret. The comparison is constant-time.
func (m *CronMiddleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			writeError(w, http.StatusUnauthorized, "scheduled sync is not configured")
			return
		}

		token := extractBearerToken(r)
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken extracts the Bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
