package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven/mocks"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driving"
)

// syncWorld carries scenario state between steps.
type syncWorld struct {
	provider *mocks.MockFitnessProvider
	records  *mocks.MockHealthRecordStore
	creds    *mocks.MockCredentialStore
	svc      driving.SyncService

	result  *domain.SyncResult
	syncErr error
}

func (w *syncWorld) reset() {
	w.provider = mocks.NewMockFitnessProvider()
	w.records = mocks.NewMockHealthRecordStore()
	w.creds = mocks.NewMockCredentialStore()
	w.svc = NewSyncService(SyncServiceConfig{
		Provider:    w.provider,
		RecordStore: w.records,
		Lock:        mocks.NewMockDistributedLock(),
		Logger:      testLogger(),
	})
	w.result = nil
	w.syncErr = nil
}

func (w *syncWorld) aConnectedAccountWithFreshToken(ctx context.Context) error {
	return w.creds.Save(ctx, domain.CredentialIdentityDefault, freshCredential())
}

func (w *syncWorld) accessTokenExpiredMinutesAgo(ctx context.Context, minutes int) error {
	cred, err := w.creds.Get(ctx, domain.CredentialIdentityDefault)
	if err != nil {
		return err
	}
	expiry := time.Now().Add(-time.Duration(minutes) * time.Minute)
	cred.TokenExpiry = &expiry
	return w.creds.Save(ctx, domain.CredentialIdentityDefault, cred)
}

func (w *syncWorld) providerReports(steps, calories int) error {
	w.provider.Activity = domain.DailyActivity{
		Steps:            steps,
		Calories:         calories,
		StepsRecorded:    true,
		CaloriesRecorded: true,
	}
	return nil
}

func (w *syncWorld) providerHasNoData() error {
	w.provider.Activity = domain.DailyActivity{}
	return nil
}

func (w *syncWorld) providerRejectsRefreshes() error {
	w.provider.RefreshErr = errors.New("invalid_grant")
	return nil
}

func (w *syncWorld) aSyncRunsForToday(ctx context.Context) error {
	w.result, w.syncErr = w.svc.Sync(ctx, driving.SyncRequest{
		Identity: domain.CredentialIdentityDefault,
		Store:    w.creds,
	})
	return nil
}

func (w *syncWorld) theSyncSucceeds() error {
	if w.syncErr != nil {
		return fmt.Errorf("sync failed: %w", w.syncErr)
	}
	if w.result == nil || !w.result.Succeeded {
		return errors.New("sync did not succeed")
	}
	return nil
}

func (w *syncWorld) theSyncSucceedsWithNoData() error {
	if err := w.theSyncSucceeds(); err != nil {
		return err
	}
	if !w.result.NoData {
		return errors.New("expected no-data result")
	}
	return nil
}

func (w *syncWorld) theSyncFailsRequiringReauthorization() error {
	if w.syncErr == nil {
		return errors.New("expected sync to fail")
	}
	if !errors.Is(w.syncErr, domain.ErrRefreshFailed) {
		return fmt.Errorf("expected refresh failure, got: %v", w.syncErr)
	}
	if !w.creds.Invalidated(domain.CredentialIdentityDefault) {
		return errors.New("credential was not invalidated")
	}
	return nil
}

func (w *syncWorld) recordForTodayShows(ctx context.Context, steps, calories int) error {
	record, err := w.records.GetByDate(ctx, domain.DayOf(time.Now()))
	if err != nil {
		return fmt.Errorf("record for today: %w", err)
	}
	if record.Steps != steps || record.Calories != calories {
		return fmt.Errorf("got %d steps / %d calories, want %d / %d",
			record.Steps, record.Calories, steps, calories)
	}
	return nil
}

func (w *syncWorld) exactlyNRecords(n int) error {
	if got := w.records.Count(); got != n {
		return fmt.Errorf("got %d records, want %d", got, n)
	}
	return nil
}

func (w *syncWorld) tokenWasRefreshed() error {
	if w.provider.RefreshCalls == 0 {
		return errors.New("expected a token refresh")
	}
	return nil
}

func (w *syncWorld) noFetchWasMade() error {
	if w.provider.FetchCalls != 0 {
		return fmt.Errorf("expected no fetch, got %d", w.provider.FetchCalls)
	}
	return nil
}

func InitializeScenario(sc *godog.ScenarioContext) {
	w := &syncWorld{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w.reset()
		return ctx, nil
	})

	sc.Given(`^a connected account with a fresh access token$`, w.aConnectedAccountWithFreshToken)
	sc.Given(`^the access token expired (\d+) minutes ago$`, w.accessTokenExpiredMinutesAgo)
	sc.Given(`^the provider reports (\d+) steps and (\d+) calories for today$`, w.providerReports)
	sc.Given(`^the provider has no data recorded for today$`, w.providerHasNoData)
	sc.Given(`^the provider rejects token refreshes$`, w.providerRejectsRefreshes)
	sc.Step(`^a sync runs for today$`, w.aSyncRunsForToday)
	sc.Then(`^the sync succeeds$`, w.theSyncSucceeds)
	sc.Then(`^the sync succeeds with no data$`, w.theSyncSucceedsWithNoData)
	sc.Then(`^the sync fails requiring re-authorization later$`, w.theSyncFailsRequiringReauthorization)
	sc.Then(`^the record for today shows (\d+) steps and (\d+) calories$`, w.recordForTodayShows)
	sc.Then(`^there is exactly (\d+) records?$`, w.exactlyNRecords)
	sc.Then(`^the provider token was refreshed$`, w.tokenWasRefreshed)
	sc.Then(`^no provider fetch was made$`, w.noFetchWasMade)
}

func TestSyncFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
