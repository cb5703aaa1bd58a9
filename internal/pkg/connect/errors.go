package connect

import "errors"

var (
	// ErrAuthorization means the OAuth callback lacked required parameters
	// or carried ones we could not use.
	ErrAuthorization = errors.New("invalid authorization request")

	// ErrUserNotFound means the correlation state did not resolve to a
	// known user.
	ErrUserNotFound = errors.New("user not found for state")

	// ErrUpstream wraps any third-party API failure, including timeouts and
	// rate limiting. Not retried here; retries are the caller's business.
	ErrUpstream = errors.New("upstream provider error")

	// ErrReauthorizationRequired means the stored token expired and the
	// provider offers no refresh path. The user must redo the flow.
	ErrReauthorizationRequired = errors.New("token expired, reauthorization required")

	// ErrNotConnected means no token is stored for (user, provider).
	ErrNotConnected = errors.New("provider not connected")

	// ErrInvalidPlatform means the requested provider name is unknown.
	ErrInvalidPlatform = errors.New("unknown platform")
)
