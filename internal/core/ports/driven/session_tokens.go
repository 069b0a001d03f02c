package driven

import "time"

// SessionTokens signs and verifies the opaque browser-session identifier the
// interactive path carries in a cookie. The session ID is the identity key
// for the session-scoped CredentialStore.
type SessionTokens interface {
	// Sign wraps a session ID in a signed token with the given lifetime.
	Sign(sessionID string, ttl time.Duration) (string, error)

	// Verify validates a token and extracts the session ID.
	Verify(token string) (sessionID string, err error)
}
