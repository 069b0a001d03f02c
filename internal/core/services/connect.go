package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driving"
)

// Ensure connectService implements ConnectService
var _ driving.ConnectService = (*connectService)(nil)

// stateTTL bounds how long a consent flow may stay in flight.
const stateTTL = 10 * time.Minute

// ConnectServiceConfig holds dependencies for the connect service.
type ConnectServiceConfig struct {
	// Provider is the fitness provider client.
	Provider driven.FitnessProvider

	// StateStore manages single-use consent-flow state.
	StateStore driven.OAuthStateStore

	// SessionCredentials is the session-scoped credential store variant.
	SessionCredentials driven.CredentialStore

	// DurableCredentials is the durable credential store variant. The
	// callback mirrors every exchanged credential here so scheduled sync
	// works after one interactive consent.
	DurableCredentials driven.CredentialStore

	Logger *slog.Logger
}

// connectService implements the ConnectService interface.
type connectService struct {
	provider           driven.FitnessProvider
	stateStore         driven.OAuthStateStore
	sessionCredentials driven.CredentialStore
	durableCredentials driven.CredentialStore
	logger             *slog.Logger
}

// NewConnectService creates a new connect service.
func NewConnectService(cfg ConnectServiceConfig) driving.ConnectService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &connectService{
		provider:           cfg.Provider,
		stateStore:         cfg.StateStore,
		sessionCredentials: cfg.SessionCredentials,
		durableCredentials: cfg.DurableCredentials,
		logger:             logger,
	}
}

// BeginAuthorization starts a consent flow.
// It generates CSRF state, stores it, and returns the consent URL.
func (s *connectService) BeginAuthorization(ctx context.Context) (*driving.AuthorizeResponse, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	now := time.Now()
	if err := s.stateStore.Save(ctx, &driven.OAuthState{
		State:     state,
		CreatedAt: now,
		ExpiresAt: now.Add(stateTTL),
	}); err != nil {
		return nil, fmt.Errorf("save oauth state: %w", err)
	}

	return &driving.AuthorizeResponse{
		ConsentURL: s.provider.ConsentURL(state),
		State:      state,
	}, nil
}

// CompleteAuthorization handles the provider callback.
// It validates state, exchanges the one-time code, and persists the
// credential for both trigger paths.
func (s *connectService) CompleteAuthorization(ctx context.Context, req driving.CallbackRequest) error {
	// Validate and consume state (single-use)
	stored, err := s.stateStore.GetAndDelete(ctx, req.State)
	if err != nil {
		return fmt.Errorf("get oauth state: %w", err)
	}
	if stored == nil {
		return domain.ErrInvalidState
	}

	if req.Code == "" {
		return domain.ErrInvalidInput
	}

	pair, err := s.provider.ExchangeCode(ctx, req.Code)
	if err != nil {
		s.logger.Error("code exchange rejected", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrExchangeFailed, err)
	}

	now := time.Now()
	cred := &domain.Credential{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenExpiry:  domain.ExpiryFromNow(pair.ExpiresIn),
		IssuedAt:     now,
		UpdatedAt:    now,
	}

	if err := s.sessionCredentials.Save(ctx, req.SessionID, cred); err != nil {
		return fmt.Errorf("save session credential: %w", err)
	}

	// Mirror into the durable store so the scheduled path has a refresh
	// token without a separate provisioning step.
	if err := s.durableCredentials.Save(ctx, domain.CredentialIdentityDefault, cred); err != nil {
		return fmt.Errorf("save durable credential: %w", err)
	}

	s.logger.Info("provider connected",
		"session_id", req.SessionID,
		"has_refresh_token", pair.RefreshToken != "",
	)
	return nil
}

// Disconnect clears the session-scoped credential. The durable credential
// and the provider-side grant are untouched.
func (s *connectService) Disconnect(ctx context.Context, sessionID string) error {
	if err := s.sessionCredentials.Invalidate(ctx, sessionID); err != nil {
		return fmt.Errorf("invalidate session credential: %w", err)
	}
	s.logger.Info("provider disconnected", "session_id", sessionID)
	return nil
}

// generateRandomString generates a cryptographically secure random string.
func generateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:length], nil
}
