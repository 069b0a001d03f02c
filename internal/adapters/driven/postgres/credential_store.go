package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements the durable driven.CredentialStore using
// PostgreSQL. Tokens are encrypted at rest; invalidation keeps the row but
// marks it revoked, so a revoked grant is distinguishable from "never
// connected" when debugging.
type CredentialStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewCredentialStore creates a new PostgreSQL-backed credential store.
func NewCredentialStore(db *DB, encryptor *SecretEncryptor) *CredentialStore {
	return &CredentialStore{db: db, encryptor: encryptor}
}

// Get retrieves the credential for an identity. Returns nil without error
// when no usable credential exists.
func (s *CredentialStore) Get(ctx context.Context, identity string) (*domain.Credential, error) {
	query := `
		SELECT access_token, refresh_token, token_expiry, issued_at, updated_at
		FROM provider_credentials
		WHERE identity = $1 AND NOT revoked
	`

	var (
		accessBlob  []byte
		refreshBlob []byte
		tokenExpiry sql.NullTime
		cred        domain.Credential
	)
	err := s.db.QueryRowContext(ctx, query, identity).Scan(
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
		return nil, fmt.Errorf("get credential: %w", err)
	}

	cred.TokenExpiry = TimePtr(tokenExpiry)
	if cred.AccessToken, err = s.decryptToken(accessBlob); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if cred.RefreshToken, err = s.decryptToken(refreshBlob); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	return &cred, nil
}

// Save upserts the credential for an identity, clearing any revocation.
func (s *CredentialStore) Save(ctx context.Context, identity string, cred *domain.Credential) error {
	accessBlob, err := s.encryptToken(cred.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refreshBlob, err := s.encryptToken(cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	issuedAt := cred.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	query := `
		INSERT INTO provider_credentials (identity, access_token, refresh_token, token_expiry, issued_at, updated_at, revoked)
		VALUES ($1, $2, $3, $4, $5, NOW(), FALSE)
		ON CONFLICT (identity) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			issued_at = EXCLUDED.issued_at,
			updated_at = NOW(),
			revoked = FALSE
	`

	_, err = s.db.ExecContext(ctx, query,
		identity,
		accessBlob,
		refreshBlob,
		NullTime(cred.TokenExpiry),
		issuedAt,
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Invalidate marks the credential revoked. The encrypted tokens are wiped;
// a dead grant is not worth keeping decryptable.
func (s *CredentialStore) Invalidate(ctx context.Context, identity string) error {
	query := `
		UPDATE provider_credentials
		SET revoked = TRUE, access_token = NULL, refresh_token = NULL, updated_at = NOW()
		WHERE identity = $1
	`

	_, err := s.db.ExecContext(ctx, query, identity)
	if err != nil {
		return fmt.Errorf("invalidate credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) encryptToken(token string) ([]byte, error) {
	if token == "" {
		return nil, nil
	}
	return s.encryptor.EncryptString(token)
}

func (s *CredentialStore) decryptToken(blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", nil
	}
	return s.encryptor.DecryptString(blob)
}
