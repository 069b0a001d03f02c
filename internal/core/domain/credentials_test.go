package domain

import (
	"testing"
	"time"
)

func TestCredential_Usable(t *testing.T) {
	var nilCred *Credential
	if nilCred.Usable() {
		t.Error("expected nil credential to be unusable")
	}

	if (&Credential{}).Usable() {
		t.Error("expected empty credential to be unusable")
	}

	if !(&Credential{RefreshToken: "rt"}).Usable() {
		t.Error("expected refresh-only credential to be usable")
	}

	if !(&Credential{AccessToken: "at"}).Usable() {
		t.Error("expected access-only credential to be usable")
	}
}

func TestCredential_NeedsRefresh_NoAccessToken(t *testing.T) {
	cred := &Credential{RefreshToken: "rt"}
	if !cred.NeedsRefresh() {
		t.Error("expected credential without access token to need refresh")
	}
}

func TestCredential_NeedsRefresh_NoExpiry(t *testing.T) {
	cred := &Credential{AccessToken: "at"}
	if !cred.NeedsRefresh() {
		t.Error("expected credential without recorded expiry to need refresh")
	}
}

func TestCredential_NeedsRefresh_Fresh(t *testing.T) {
	expiry := time.Now().Add(30 * time.Minute)
	cred := &Credential{AccessToken: "at", TokenExpiry: &expiry}
	if cred.NeedsRefresh() {
		t.Error("expected credential with 30m left to be fresh")
	}
}

func TestCredential_NeedsRefresh_WithinSafetyMargin(t *testing.T) {
	// 30 seconds left: inside the 60s margin, should refresh early
	expiry := time.Now().Add(30 * time.Second)
	cred := &Credential{AccessToken: "at", TokenExpiry: &expiry}
	if !cred.NeedsRefresh() {
		t.Error("expected credential inside the safety margin to need refresh")
	}
}

func TestCredential_NeedsRefresh_Expired(t *testing.T) {
	expiry := time.Now().Add(-time.Minute)
	cred := &Credential{AccessToken: "at", TokenExpiry: &expiry}
	if !cred.NeedsRefresh() {
		t.Error("expected expired credential to need refresh")
	}
	if !cred.IsExpired() {
		t.Error("expected IsExpired to be true")
	}
}

func TestExpiryFromNow(t *testing.T) {
	if ExpiryFromNow(0) != nil {
		t.Error("expected nil expiry for zero expires_in")
	}
	if ExpiryFromNow(-10) != nil {
		t.Error("expected nil expiry for negative expires_in")
	}

	expiry := ExpiryFromNow(3600)
	if expiry == nil {
		t.Fatal("expected non-nil expiry")
	}
	want := time.Now().Add(time.Hour)
	if diff := expiry.Sub(want); diff < -time.Second || diff > time.Second {
		t.Errorf("expected expiry ~1h from now, got offset %v", diff)
	}
}
