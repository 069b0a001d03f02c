package driven

import (
	"context"
	"time"
)

// OAuthState is a single-use CSRF token for an in-flight consent flow.
type OAuthState struct {
	State     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// OAuthStateStore manages consent-flow state tokens.
type OAuthStateStore interface {
	// Save stores a new state.
	Save(ctx context.Context, state *OAuthState) error

	// GetAndDelete atomically retrieves and deletes the state, enforcing
	// single use. Returns nil when the state is unknown or expired.
	GetAndDelete(ctx context.Context, state string) (*OAuthState, error)

	// Cleanup removes expired states.
	Cleanup(ctx context.Context) error
}
