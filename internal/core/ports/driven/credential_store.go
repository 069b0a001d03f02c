package driven

import (
	"context"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
)

// CredentialStore persists a provider credential keyed by identity.
//
// Two backing variants exist and are selected by trigger path: a
// session-scoped store (identity = browser session ID, independent lifetimes
// for the access and refresh tokens) used by interactive sync, and a durable
// store (identity = domain.CredentialIdentityDefault, one "latest" row
// overwritten on every refresh) used by scheduled sync.
type CredentialStore interface {
	// Get returns the stored credential, or nil when nothing usable is
	// stored (never authorized, invalidated, or fully expired).
	Get(ctx context.Context, identity string) (*domain.Credential, error)

	// Save overwrites the stored credential wholesale.
	Save(ctx context.Context, identity string, cred *domain.Credential) error

	// Invalidate marks the credential unusable. Called when a refresh is
	// rejected so subsequent syncs fail fast with ErrAuthRequired instead
	// of re-contacting the provider with a dead refresh token.
	Invalidate(ctx context.Context, identity string) error
}
