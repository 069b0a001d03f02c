// Package redis implements the session-scoped credential store and the
// distributed lock on Redis. Both are optional at deploy time; Postgres
// fallbacks exist for single-instance setups.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CredentialStore = (*CredentialStore)(nil)

const (
	// Key prefixes for Redis
	accessTokenPrefix  = "fit:access:"
	refreshTokenPrefix = "fit:refresh:"
	metaPrefix         = "fit:meta:"

	// refreshTokenTTL keeps the refresh token for the provider's grant
	// horizon. Past that the consent flow has to run again regardless.
	refreshTokenTTL = 365 * 24 * time.Hour

	// accessTokenFloor is the minimum TTL for a stored access token. A
	// token the provider declared already-expired still gets stored
	// briefly so NeedsRefresh sees it rather than an empty credential.
	accessTokenFloor = time.Minute
)

// CredentialStore implements the session-scoped driven.CredentialStore using
// Redis. The access and refresh tokens live under separate keys with
// separate TTLs: the access token expires with the provider's declaration,
// the refresh token with the session itself.
type CredentialStore struct {
	client *redis.Client
}

// NewCredentialStore creates a new Redis-backed CredentialStore
func NewCredentialStore(client *redis.Client) *CredentialStore {
	return &CredentialStore{client: client}
}

// Get retrieves the credential for a session. Returns nil without error when
// every key has expired.
func (s *CredentialStore) Get(ctx context.Context, sessionID string) (*domain.Credential, error) {
	pipe := s.client.Pipeline()
	accessCmd := pipe.Get(ctx, accessTokenPrefix+sessionID)
	refreshCmd := pipe.Get(ctx, refreshTokenPrefix+sessionID)
	metaCmd := pipe.Get(ctx, metaPrefix+sessionID)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	cred := &domain.Credential{}

	if access, err := accessCmd.Result(); err == nil {
		cred.AccessToken = access
		// Reconstruct the expiry from the key's remaining TTL. The
		// safety margin was already applied on save.
		if ttl, err := s.client.TTL(ctx, accessTokenPrefix+sessionID).Result(); err == nil && ttl > 0 {
			expiry := time.Now().Add(ttl)
			cred.TokenExpiry = &expiry
		}
	} else if err != redis.Nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	if refresh, err := refreshCmd.Result(); err == nil {
		cred.RefreshToken = refresh
	} else if err != redis.Nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	if !cred.Usable() {
		return nil, nil
	}

	if data, err := metaCmd.Bytes(); err == nil {
		var meta credentialMeta
		if json.Unmarshal(data, &meta) == nil {
			cred.IssuedAt = meta.IssuedAt
			cred.UpdatedAt = meta.UpdatedAt
		}
	}
	return cred, nil
}

// Save stores the credential under session-scoped keys.
func (s *CredentialStore) Save(ctx context.Context, sessionID string, cred *domain.Credential) error {
	pipe := s.client.Pipeline()

	if cred.AccessToken != "" {
		ttl := accessTokenFloor
		if cred.TokenExpiry != nil {
			if until := time.Until(*cred.TokenExpiry); until > ttl {
				ttl = until
			}
		}
		pipe.Set(ctx, accessTokenPrefix+sessionID, cred.AccessToken, ttl)
	} else {
		pipe.Del(ctx, accessTokenPrefix+sessionID)
	}

	if cred.RefreshToken != "" {
		pipe.Set(ctx, refreshTokenPrefix+sessionID, cred.RefreshToken, refreshTokenTTL)
	}

	meta, err := json.Marshal(credentialMeta{IssuedAt: cred.IssuedAt, UpdatedAt: cred.UpdatedAt})
	if err != nil {
		return fmt.Errorf("marshal credential meta: %w", err)
	}
	pipe.Set(ctx, metaPrefix+sessionID, meta, refreshTokenTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Invalidate removes every key belonging to the session.
func (s *CredentialStore) Invalidate(ctx context.Context, sessionID string) error {
	err := s.client.Del(ctx,
		accessTokenPrefix+sessionID,
		refreshTokenPrefix+sessionID,
		metaPrefix+sessionID,
	).Err()
	if err != nil {
		return fmt.Errorf("invalidate credential: %w", err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// credentialMeta is the non-secret bookkeeping stored next to the tokens.
type credentialMeta struct {
	IssuedAt  time.Time `json:"issued_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
