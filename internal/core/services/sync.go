package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driving"
)

// Ensure syncService implements SyncService
var _ driving.SyncService = (*syncService)(nil)

const (
	// refreshLockPrefix namespaces the per-credential refresh lock.
	refreshLockPrefix = "credential-refresh:"

	// refreshLockTTL caps how long a crashed holder can block refreshes.
	refreshLockTTL = 30 * time.Second

	// refreshLockWait is how long a contender waits for the lock before
	// giving up on this pass.
	refreshLockWait = 5 * time.Second

	// refreshLockPoll is the retry interval while waiting for the lock.
	refreshLockPoll = 200 * time.Millisecond
)

// SyncServiceConfig holds dependencies for the sync service.
type SyncServiceConfig struct {
	// Provider is the fitness provider client.
	Provider driven.FitnessProvider

	// RecordStore persists the daily aggregates.
	RecordStore driven.HealthRecordStore

	// Lock serializes token refresh per credential identity across
	// instances. Optional; without it refreshes race and the slower
	// writer wins.
	Lock driven.DistributedLock

	Logger *slog.Logger
}

// syncService implements the SyncService interface. One Sync call walks the
// whole pipeline for a single day: load credential, refresh if stale, fetch
// the provider aggregates, upsert the daily record.
type syncService struct {
	provider    driven.FitnessProvider
	recordStore driven.HealthRecordStore
	lock        driven.DistributedLock
	logger      *slog.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(cfg SyncServiceConfig) driving.SyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &syncService{
		provider:    cfg.Provider,
		recordStore: cfg.RecordStore,
		lock:        cfg.Lock,
		logger:      logger,
	}
}

// Sync runs one synchronization pass for the requested day.
func (s *syncService) Sync(ctx context.Context, req driving.SyncRequest) (*domain.SyncResult, error) {
	if req.Store == nil {
		return s.failSync(req.Identity, domain.SyncPhaseFailed, fmt.Errorf("%w: missing credential store", domain.ErrInvalidInput))
	}
	if req.Identity == "" {
		req.Identity = domain.CredentialIdentityDefault
	}

	day := req.Date
	if day.IsZero() {
		day = time.Now()
	}
	day = domain.DayOf(day)

	cred, err := req.Store.Get(ctx, req.Identity)
	if err != nil {
		return s.failSync(req.Identity, domain.SyncPhaseFailed, fmt.Errorf("load credential: %w", err))
	}
	if !cred.Usable() {
		return s.failSync(req.Identity, domain.SyncPhaseFailed, domain.ErrAuthRequired)
	}

	if cred.NeedsRefresh() {
		s.logger.Info("credential stale, refreshing",
			"identity", req.Identity,
			"phase", domain.SyncPhaseNeedsRefresh,
		)
		cred, err = s.refreshCredential(ctx, req.Store, req.Identity, cred)
		if err != nil {
			return s.failSync(req.Identity, domain.SyncPhaseNeedsRefresh, err)
		}
	}

	activity, err := s.provider.FetchDailyActivity(ctx, cred.AccessToken, day)
	if err != nil {
		return s.failSync(req.Identity, domain.SyncPhaseFetching, err)
	}

	record, err := s.recordStore.UpsertDaily(ctx, day, activity.Steps, activity.Calories)
	if err != nil {
		return s.failSync(req.Identity, domain.SyncPhaseUpserting, fmt.Errorf("upsert daily record: %w", err))
	}

	s.logger.Info("sync complete",
		"identity", req.Identity,
		"date", day.Format("2006-01-02"),
		"steps", record.Steps,
		"calories", record.Calories,
		"no_data", activity.NoData(),
		"phase", domain.SyncPhaseDone,
	)

	return &domain.SyncResult{
		Steps:     record.Steps,
		Calories:  record.Calories,
		NoData:    activity.NoData(),
		Succeeded: true,
		Timestamp: time.Now(),
	}, nil
}

// refreshCredential refreshes the access token under the per-identity lock.
// A provider rejection is terminal for this credential: it is invalidated
// and the caller must re-authorize.
func (s *syncService) refreshCredential(ctx context.Context, store driven.CredentialStore, identity string, cred *domain.Credential) (*domain.Credential, error) {
	if cred.RefreshToken == "" {
		// Nothing to refresh with. The interactive flow must run again.
		return nil, domain.ErrAuthRequired
	}

	lockName := refreshLockPrefix + identity
	acquired, err := s.acquireRefreshLock(ctx, lockName)
	if err != nil {
		return nil, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: refresh lock held too long", domain.ErrRefreshFailed)
	}
	defer func() {
		if s.lock == nil {
			return
		}
		if err := s.lock.Release(ctx, lockName); err != nil {
			s.logger.Warn("failed to release refresh lock", "lock", lockName, "error", err)
		}
	}()

	// Re-read under the lock: a concurrent pass may have refreshed while
	// we waited.
	fresh, err := store.Get(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("reload credential: %w", err)
	}
	if fresh.Usable() && !fresh.NeedsRefresh() {
		return fresh, nil
	}
	if fresh.Usable() {
		cred = fresh
	}

	pair, err := s.provider.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		// The grant is gone (revoked or expired). Drop the credential so
		// later passes fail fast instead of retrying a dead token.
		if invErr := store.Invalidate(ctx, identity); invErr != nil {
			s.logger.Error("failed to invalidate credential after refresh rejection",
				"identity", identity, "error", invErr)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
	}

	now := time.Now()
	updated := &domain.Credential{
		AccessToken:  pair.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenExpiry:  domain.ExpiryFromNow(pair.ExpiresIn),
		IssuedAt:     cred.IssuedAt,
		UpdatedAt:    now,
	}
	// Some providers rotate the refresh token on use.
	if pair.RefreshToken != "" {
		updated.RefreshToken = pair.RefreshToken
	}

	if err := store.Save(ctx, identity, updated); err != nil {
		return nil, fmt.Errorf("save refreshed credential: %w", err)
	}

	s.logger.Info("credential refreshed", "identity", identity, "expires_at", updated.TokenExpiry)
	return updated, nil
}

// acquireRefreshLock polls for the refresh lock until refreshLockWait
// elapses. Without a configured lock it always succeeds.
func (s *syncService) acquireRefreshLock(ctx context.Context, name string) (bool, error) {
	if s.lock == nil {
		return true, nil
	}

	deadline := time.Now().Add(refreshLockWait)
	for {
		acquired, err := s.lock.Acquire(ctx, name, refreshLockTTL)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(refreshLockPoll):
		}
	}
}

// failSync logs the failure and returns a failed result alongside the error.
func (s *syncService) failSync(identity string, phase domain.SyncPhase, err error) (*domain.SyncResult, error) {
	s.logger.Error("sync failed",
		"identity", identity,
		"phase", phase,
		"error", err,
	)
	return &domain.SyncResult{
		Succeeded: false,
		Timestamp: time.Now(),
	}, err
}
