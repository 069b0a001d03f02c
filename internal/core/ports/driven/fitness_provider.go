package driven

import (
	"context"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
)

// TokenPair is a provider token response.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds, as declared by the provider
}

// FitnessProvider talks to the external fitness API: the OAuth endpoints and
// the daily aggregate queries.
type FitnessProvider interface {
	// ConsentURL builds the provider consent URL for the given CSRF state.
	// It requests offline access and forces the consent prompt so a refresh
	// token is always issued.
	ConsentURL(state string) string

	// ExchangeCode exchanges a one-time authorization code for tokens.
	// A code can be exchanged at most once; the provider rejects reuse and
	// the rejection surfaces as ErrExchangeFailed.
	ExchangeCode(ctx context.Context, code string) (*TokenPair, error)

	// Refresh exchanges a refresh token for a new access token.
	// Rejection surfaces as ErrRefreshFailed and is terminal for the
	// credential.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// FetchDailyActivity returns the step and calorie aggregates for the
	// day containing `day`, windowed to deployment-local midnight bounds.
	FetchDailyActivity(ctx context.Context, accessToken string, day time.Time) (*domain.DailyActivity, error)
}
