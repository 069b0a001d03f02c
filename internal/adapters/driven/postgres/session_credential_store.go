package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
)

// Ensure SessionCredentialStore implements the interface.
var _ driven.CredentialStore = (*SessionCredentialStore)(nil)

// DefaultSessionCredentialTTL matches the provider's refresh token horizon:
// a browser session older than this needs the consent flow again anyway.
const DefaultSessionCredentialTTL = 365 * 24 * time.Hour

// SessionCredentialStore implements the session-scoped driven.CredentialStore
// using PostgreSQL. It is the fallback when Redis is not configured; rows
// expire by timestamp instead of by key TTL.
type SessionCredentialStore struct {
	db        *DB
	encryptor *SecretEncryptor
	ttl       time.Duration
}

// NewSessionCredentialStore creates a new PostgreSQL-backed session
// credential store.
func NewSessionCredentialStore(db *DB, encryptor *SecretEncryptor) *SessionCredentialStore {
	return &SessionCredentialStore{
		db:        db,
		encryptor: encryptor,
		ttl:       DefaultSessionCredentialTTL,
	}
}

// Get retrieves the credential for a session. Returns nil without error for
// unknown or expired sessions.
func (s *SessionCredentialStore) Get(ctx context.Context, sessionID string) (*domain.Credential, error) {
	query := `
		SELECT access_token, refresh_token, token_expiry, issued_at, updated_at
		FROM session_credentials
		WHERE session_id = $1 AND expires_at > NOW()
	`

	var (
		accessBlob  []byte
		refreshBlob []byte
		tokenExpiry sql.NullTime
		cred        domain.Credential
	)
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&accessBlob,
		&refreshBlob,
		&tokenExpiry,
		&cred.IssuedAt,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session credential: %w", err)
	}

	cred.TokenExpiry = TimePtr(tokenExpiry)
	if len(accessBlob) > 0 {
		if cred.AccessToken, err = s.encryptor.DecryptString(accessBlob); err != nil {
			return nil, fmt.Errorf("decrypt access token: %w", err)
		}
	}
	if len(refreshBlob) > 0 {
		if cred.RefreshToken, err = s.encryptor.DecryptString(refreshBlob); err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	return &cred, nil
}

// Save upserts the credential for a session and pushes out its expiry.
func (s *SessionCredentialStore) Save(ctx context.Context, sessionID string, cred *domain.Credential) error {
	var (
		accessBlob  []byte
		refreshBlob []byte
		err         error
	)
	if cred.AccessToken != "" {
		if accessBlob, err = s.encryptor.EncryptString(cred.AccessToken); err != nil {
			return fmt.Errorf("encrypt access token: %w", err)
		}
	}
	if cred.RefreshToken != "" {
		if refreshBlob, err = s.encryptor.EncryptString(cred.RefreshToken); err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	issuedAt := cred.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	query := `
		INSERT INTO session_credentials (session_id, access_token, refresh_token, token_expiry, issued_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6)
		ON CONFLICT (session_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			issued_at = EXCLUDED.issued_at,
			updated_at = NOW(),
			expires_at = EXCLUDED.expires_at
	`

	_, err = s.db.ExecContext(ctx, query,
		sessionID,
		accessBlob,
		refreshBlob,
		NullTime(cred.TokenExpiry),
		issuedAt,
		time.Now().Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("save session credential: %w", err)
	}
	return nil
}

// Invalidate removes the session's credential.
func (s *SessionCredentialStore) Invalidate(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_credentials WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("invalidate session credential: %w", err)
	}
	return nil
}

// Cleanup removes expired sessions.
func (s *SessionCredentialStore) Cleanup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_credentials WHERE expires_at < NOW()`)
	if err != nil {
		return fmt.Errorf("cleanup session credentials: %w", err)
	}
	return nil
}
