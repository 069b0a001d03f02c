package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the caller presented a missing or wrong secret
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAuthRequired indicates no usable provider credential is stored;
	// the user must re-run the interactive consent flow
	ErrAuthRequired = errors.New("authorization required")

	// ErrExchangeFailed indicates the provider rejected the authorization code
	// (already used, expired, or invalid) or the exchange call failed
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrRefreshFailed indicates the refresh token was rejected. This is
	// terminal for the credential: it must be invalidated, not retried.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrFetchFailed indicates a transport or HTTP error contacting the provider
	ErrFetchFailed = errors.New("fitness data fetch failed")

	// ErrMalformedResponse indicates the provider returned a body that could
	// not be decoded
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrInvalidState indicates the OAuth state parameter was missing,
	// expired, or already consumed
	ErrInvalidState = errors.New("invalid oauth state")
)
