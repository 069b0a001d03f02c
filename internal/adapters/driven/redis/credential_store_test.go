package redis

import (
	"context"
	"testing"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
)

func testCredential(expiresIn time.Duration) *domain.Credential {
	expiry := time.Now().Add(expiresIn)
	return &domain.Credential{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		TokenExpiry:  &expiry,
		IssuedAt:     time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestCredentialStore_SaveAndGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewCredentialStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", testCredential(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cred, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred == nil {
		t.Fatal("expected credential")
	}
	if cred.AccessToken != "access-token" {
		t.Errorf("access token = %q, want %q", cred.AccessToken, "access-token")
	}
	if cred.RefreshToken != "refresh-token" {
		t.Errorf("refresh token = %q, want %q", cred.RefreshToken, "refresh-token")
	}
	if cred.TokenExpiry == nil {
		t.Fatal("expected token expiry reconstructed from TTL")
	}
	if until := time.Until(*cred.TokenExpiry); until < 55*time.Minute || until > time.Hour {
		t.Errorf("token expiry %v from now, want about an hour", until)
	}
}

func TestCredentialStore_Get_Unknown(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewCredentialStore(client)

	cred, err := store.Get(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred != nil {
		t.Errorf("expected nil credential, got %+v", cred)
	}
}

func TestCredentialStore_AccessTokenExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewCredentialStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", testCredential(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The access token key expires with the provider's declaration; the
	// refresh token outlives it.
	mr.FastForward(2 * time.Hour)

	cred, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred == nil {
		t.Fatal("expected credential while refresh token lives")
	}
	if cred.AccessToken != "" {
		t.Errorf("expected expired access token to be gone, got %q", cred.AccessToken)
	}
	if cred.RefreshToken != "refresh-token" {
		t.Errorf("refresh token = %q, want %q", cred.RefreshToken, "refresh-token")
	}
	if !cred.NeedsRefresh() {
		t.Error("expected credential to need refresh")
	}
}

func TestCredentialStore_SaveWithoutRefreshTokenKeepsOld(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewCredentialStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", testCredential(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A refresh response usually carries no refresh token; saving the
	// result must not drop the one already stored.
	refreshed := testCredential(time.Hour)
	refreshed.AccessToken = "new-access"
	refreshed.RefreshToken = ""
	if err := store.Save(ctx, "sess-1", refreshed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cred, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.AccessToken != "new-access" {
		t.Errorf("access token = %q, want %q", cred.AccessToken, "new-access")
	}
	if cred.RefreshToken != "refresh-token" {
		t.Errorf("refresh token = %q, want it preserved", cred.RefreshToken)
	}
}

func TestCredentialStore_Invalidate(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewCredentialStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", testCredential(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Invalidate(ctx, "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cred, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred != nil {
		t.Errorf("expected nil credential after invalidate, got %+v", cred)
	}
}
