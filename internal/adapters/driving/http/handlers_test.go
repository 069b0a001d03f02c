package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feldspar-labs/vitalsync/internal/adapters/driven/auth"
	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven/mocks"
	"github.com/feldspar-labs/vitalsync/internal/core/services"
)

const testCronSecret = "cron-secret"

type serverFixture struct {
	server   *Server
	provider *mocks.MockFitnessProvider
	records  *mocks.MockHealthRecordStore
	session  *mocks.MockCredentialStore
	durable  *mocks.MockCredentialStore
	tokens   *auth.Adapter
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &serverFixture{
		provider: mocks.NewMockFitnessProvider(),
		records:  mocks.NewMockHealthRecordStore(),
		session:  mocks.NewMockCredentialStore(),
		durable:  mocks.NewMockCredentialStore(),
		tokens:   auth.NewAdapter("test-jwt-secret"),
	}

	connectService := services.NewConnectService(services.ConnectServiceConfig{
		Provider:           f.provider,
		StateStore:         mocks.NewMockOAuthStateStore(),
		SessionCredentials: f.session,
		DurableCredentials: f.durable,
		Logger:             logger,
	})
	syncService := services.NewSyncService(services.SyncServiceConfig{
		Provider:    f.provider,
		RecordStore: f.records,
		Lock:        mocks.NewMockDistributedLock(),
		Logger:      logger,
	})
	healthService := services.NewHealthRecordService(services.HealthRecordServiceConfig{
		RecordStore: f.records,
		Logger:      logger,
	})

	cfg := DefaultConfig()
	cfg.CronSecret = testCronSecret
	cfg.SecureCookie = false
	f.server = NewServer(cfg, connectService, syncService, healthService,
		f.session, f.durable, f.tokens, nil, nil)
	return f
}

func (f *serverFixture) sessionCookie(t *testing.T, sessionID string) *http.Cookie {
	t.Helper()
	token, err := f.tokens.Sign(sessionID, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: SessionCookieName, Value: token}
}

func (f *serverFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func validCredential() *domain.Credential {
	expiry := time.Now().Add(time.Hour)
	return &domain.Credential{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		TokenExpiry:  &expiry,
		IssuedAt:     time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest("GET", "/version", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dev")
}

func TestConnectRedirectsToConsent(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest("GET", "/connect", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "https://provider.example/consent")
	assert.Contains(t, location, "state=")

	// A first visit gets a session cookie.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestConnectCallbackFullFlow(t *testing.T) {
	f := newServerFixture(t)

	// Start the flow to obtain state and session cookie.
	rec := f.do(httptest.NewRequest("GET", "/connect", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest("GET", "/connect/callback?code=auth-code&state="+state, nil)
	req.AddCookie(cookie)
	rec = f.do(req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?connected=true", rec.Header().Get("Location"))
	assert.NotNil(t, f.durable.Stored(domain.CredentialIdentityDefault))
}

func TestConnectCallbackWithoutCode(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest("GET", "/connect/callback?state=whatever", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?error=no_code", rec.Header().Get("Location"))
	assert.Equal(t, 0, f.provider.ExchangeCalls)
}

func TestConnectCallbackForgedState(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest("GET", "/connect/callback?code=auth-code&state=forged", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?error=invalid_state", rec.Header().Get("Location"))
	assert.Equal(t, 0, f.provider.ExchangeCalls)
}

func TestSyncWithoutSession(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest("GET", "/sync", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, f.provider.FetchCalls)
}

func TestSyncWithFreshCredential(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.session.Save(context.Background(), "sess-1", validCredential()))
	f.provider.Activity = domain.DailyActivity{
		Steps: 10342, Calories: 512,
		StepsRecorded: true, CaloriesRecorded: true,
	}

	req := httptest.NewRequest("GET", "/sync", nil)
	req.AddCookie(f.sessionCookie(t, "sess-1"))
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, true, result["synced"])
	assert.Equal(t, float64(10342), result["steps"])
	assert.Equal(t, float64(512), result["calories"])
	assert.NotContains(t, result, "succeeded", "interactive response key is synced")
	assert.Equal(t, 0, f.provider.RefreshCalls, "fresh token must not be refreshed")
	assert.Equal(t, 1, f.records.Count())
}

func TestSyncFetchFailure(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.session.Save(context.Background(), "sess-1", validCredential()))
	f.provider.FetchErr = domain.ErrFetchFailed

	req := httptest.NewRequest("GET", "/sync", nil)
	req.AddCookie(f.sessionCookie(t, "sess-1"))
	rec := f.do(req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "sync failed")
	assert.Equal(t, 0, f.records.Count())
}

func TestSyncWithoutCredentialRequiresAuth(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest("GET", "/sync", nil)
	req.AddCookie(f.sessionCookie(t, "sess-1"))
	rec := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "authorization required")
}

func TestCronSync(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.durable.Save(context.Background(), domain.CredentialIdentityDefault, validCredential()))
	f.provider.Activity = domain.DailyActivity{Steps: 4200, Calories: 210, StepsRecorded: true, CaloriesRecorded: true}

	req := httptest.NewRequest("GET", "/cron/sync", nil)
	req.Header.Set("Authorization", "Bearer "+testCronSecret)
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.records.Count())

	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, true, result["success"])
	assert.Equal(t, float64(4200), result["steps"])
	assert.NotEmpty(t, result["timestamp"])
}

func TestCronSyncFetchFailure(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.durable.Save(context.Background(), domain.CredentialIdentityDefault, validCredential()))
	f.provider.FetchErr = domain.ErrFetchFailed

	req := httptest.NewRequest("GET", "/cron/sync", nil)
	req.Header.Set("Authorization", "Bearer "+testCronSecret)
	rec := f.do(req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sync failed", body["error"])
	assert.Contains(t, body["details"], "fetch")
}

func TestCronSyncWrongSecret(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.durable.Save(context.Background(), domain.CredentialIdentityDefault, validCredential()))

	for _, header := range []string{"", "Bearer wrong", "Basic " + testCronSecret} {
		req := httptest.NewRequest("GET", "/cron/sync", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := f.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	assert.Equal(t, 0, f.provider.FetchCalls, "rejected trigger must not reach the provider")
	assert.Equal(t, 0, f.records.Count())
}

func TestDisconnect(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.session.Save(context.Background(), "sess-1", validCredential()))

	req := httptest.NewRequest("POST", "/disconnect", nil)
	req.AddCookie(f.sessionCookie(t, "sess-1"))
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	got, err := f.session.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordsAPI(t *testing.T) {
	f := newServerFixture(t)

	body := strings.NewReader(`{"date":"2024-03-01","steps":7500,"calories":420}`)
	rec := f.do(httptest.NewRequest("POST", "/api/v1/health/records", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.HealthRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.RecordSourceManual, created.Source)

	// Same day again conflicts.
	body = strings.NewReader(`{"date":"2024-03-01","steps":1,"calories":1}`)
	rec = f.do(httptest.NewRequest("POST", "/api/v1/health/records", body))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(httptest.NewRequest("GET", "/api/v1/health/records?days=0", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []*domain.HealthRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	rec = f.do(httptest.NewRequest("DELETE", "/api/v1/health/records/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest("DELETE", "/api/v1/health/records/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordsAPIValidation(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest("POST", "/api/v1/health/records", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest("POST", "/api/v1/health/records", strings.NewReader(`{"date":"03/01/2024","steps":1,"calories":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest("POST", "/api/v1/health/records", strings.NewReader(`{"date":"2024-03-01","steps":-5,"calories":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest("GET", "/api/v1/health/records?days=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest("GET", "/api/v1/health/records", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String(), "empty listing is an empty array, not null")
}
