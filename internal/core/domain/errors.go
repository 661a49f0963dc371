package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrInvalidOrExpiredState covers a state token that never existed, was
	// already consumed, or outlived its TTL. The three cases are deliberately
	// indistinguishable to callers.
	ErrInvalidOrExpiredState = errors.New("invalid or expired state")

	// ErrProviderExchange is matched by every *ProviderExchangeError
	ErrProviderExchange = errors.New("provider rejected authorization code")

	// ErrProviderTimeout indicates the provider did not answer within the exchange timeout
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrNetwork indicates the provider could not be reached
	ErrNetwork = errors.New("provider network error")

	// ErrCredentialNotFound indicates there is no live credential for the key
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrProviderMisconfigured indicates the provider's client configuration is missing or a placeholder
	ErrProviderMisconfigured = errors.New("provider misconfigured")

	// ErrUnsupportedProvider indicates the provider type is not known to the broker
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrProviderUnauthorized indicates the provider refused a stored access token
	ErrProviderUnauthorized = errors.New("provider rejected access token")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates caller authentication failed or is missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller may not act on the requested key
	ErrForbidden = errors.New("forbidden")
)

// ProviderExchangeError is returned when a provider refuses the
// authorization-code exchange or answers with an unusable payload.
// Code carries the provider's raw error string when available (e.g. invalid_grant).
type ProviderExchangeError struct {
	Provider    ProviderType
	Code        string
	Description string
}

// NewProviderExchangeError creates a ProviderExchangeError
func NewProviderExchangeError(provider ProviderType, code, description string) *ProviderExchangeError {
	return &ProviderExchangeError{Provider: provider, Code: code, Description: description}
}

func (e *ProviderExchangeError) Error() string {
	msg := "provider exchange failed"
	if e.Provider != "" {
		msg = string(e.Provider) + ": " + msg
	}
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += " - " + e.Description
	}
	return msg
}

// Is makes errors.Is(err, ErrProviderExchange) true for any exchange error
func (e *ProviderExchangeError) Is(target error) bool {
	return target == ErrProviderExchange
}
