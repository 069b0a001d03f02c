package driving

import "context"

// ConnectService handles the interactive consent flow with the fitness
// provider: building the consent URL, exchanging the callback code, and
// disconnecting.
type ConnectService interface {
	// BeginAuthorization starts a consent flow.
	// Returns the provider consent URL to redirect the user to; the
	// generated state is stored for CSRF validation during the callback.
	BeginAuthorization(ctx context.Context) (*AuthorizeResponse, error)

	// CompleteAuthorization handles the provider callback. It validates
	// and consumes the state, exchanges the one-time code for a token
	// pair, and persists the credential for both trigger paths.
	CompleteAuthorization(ctx context.Context, req CallbackRequest) error

	// Disconnect clears the session-scoped credential. The grant is not
	// revoked on the provider side.
	Disconnect(ctx context.Context, sessionID string) error
}

// AuthorizeResponse contains the consent URL and CSRF state.
// @Description Response containing the provider consent URL
type AuthorizeResponse struct {
	// ConsentURL is the URL to redirect the user to for authorization.
	ConsentURL string `json:"consent_url" example:"https://accounts.google.com/o/oauth2/v2/auth?client_id=..."`

	// State is the CSRF token that will be returned in the callback.
	State string `json:"state" example:"abc123xyz"`
}

// CallbackRequest represents the provider callback parameters.
// @Description Consent callback parameters from provider redirect
type CallbackRequest struct {
	// Code is the one-time authorization code from the provider.
	Code string `json:"code" example:"4/0AbCD..."`

	// State is the CSRF token returned by the provider.
	State string `json:"state" example:"abc123xyz"`

	// SessionID identifies the browser session the credential belongs to.
	SessionID string `json:"-"`
}
