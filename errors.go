package mailauth

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrDirectoryUnavailable is an exported constant or variable used by the authentication engine.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	// ErrMissingAuthorization is an exported constant or variable used by the authentication engine.
	ErrMissingAuthorization = errors.New("missing authorization header")
	// ErrInvalidConfig is an exported constant or variable used by the authentication engine.
	ErrInvalidConfig = errors.New("invalid configuration")
)
