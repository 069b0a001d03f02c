package domain

import "time"

// RefreshSafetyMargin is how long before the provider-declared expiry a
// credential is treated as stale. Refreshing slightly early avoids racing the
// provider clock with an in-flight request.
const RefreshSafetyMargin = 60 * time.Second

// CredentialIdentityDefault is the identity key for the single durable
// credential. The service is single-tenant by construction; everything is
// still keyed by identity so a second tenant is a data change, not a rewrite.
const CredentialIdentityDefault = "default"

// Credential is a delegated-authority token pair for the fitness provider.
type Credential struct {
	AccessToken  string     `json:"-"` // Never serialize
	RefreshToken string     `json:"-"` // Never serialize
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
	IssuedAt     time.Time  `json:"issued_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Usable reports whether the credential can drive a sync at all. A missing
// access token is fine as long as a refresh token exists.
func (c *Credential) Usable() bool {
	return c != nil && (c.AccessToken != "" || c.RefreshToken != "")
}

// NeedsRefresh reports whether the access token should be refreshed before
// use. The decision tracks the provider-declared expiry with a safety margin;
// a credential with no access token always needs a refresh, and one with no
// recorded expiry is assumed stale rather than trusted indefinitely.
func (c *Credential) NeedsRefresh() bool {
	if c.AccessToken == "" {
		return true
	}
	if c.TokenExpiry == nil {
		return true
	}
	return time.Now().Add(RefreshSafetyMargin).After(*c.TokenExpiry)
}

// IsExpired checks if the access token is past its declared expiry.
func (c *Credential) IsExpired() bool {
	if c.TokenExpiry == nil {
		return false
	}
	return time.Now().After(*c.TokenExpiry)
}

// ExpiryFromNow converts a provider expires_in (seconds) to an absolute
// expiry timestamp. Returns nil when the provider declared nothing.
func ExpiryFromNow(expiresIn int) *time.Time {
	if expiresIn <= 0 {
		return nil
	}
	t := time.Now().Add(time.Duration(expiresIn) * time.Second)
	return &t
}
