package mailauth

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by mailauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	API     APIConfig
	JWT     JWTConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig defines a public type used by mailauth APIs.
//
// APIConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type APIConfig struct {
	// BaseURL is the canonical base URL of this service. It is used
	// both as the iss claim of every issued token and as the prefix of
	// verification links ("{BaseURL}/confirm?...").
	BaseURL string
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by mailauth APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	// Secret is the symmetric HS256 signing key. Required.
	Secret []byte

	// ConfirmTTL bounds confirmation tokens carried in emailed links.
	ConfirmTTL time.Duration

	// SessionTTL bounds refreshed and code-exchanged tokens.
	SessionTTL time.Duration

	// Leeway is the verification clock-skew allowance. Zero by default.
	Leeway time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by mailauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by mailauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

const (
	// DefaultConfirmTTL is the default lifetime of confirmation tokens ("30m").
	DefaultConfirmTTL = 30 * time.Minute
	// DefaultSessionTTL is the default lifetime of refreshed tokens ("1y").
	DefaultSessionTTL = 365 * 24 * time.Hour
	// DefaultAuditBufferSize is the default audit dispatcher buffer.
	DefaultAuditBufferSize = 256
)

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			ConfirmTTL: DefaultConfirmTTL,
			SessionTTL: DefaultSessionTTL,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: DefaultAuditBufferSize,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// validateConfig runs once in Builder.Build; engine methods never
// re-validate per call.
func validateConfig(cfg Config) error {
	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		return fmt.Errorf("%w: API.BaseURL is required", ErrInvalidConfig)
	}
	u, err := url.Parse(base)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: API.BaseURL must be an absolute URL", ErrInvalidConfig)
	}
	if strings.HasSuffix(base, "/") {
		return fmt.Errorf("%w: API.BaseURL must not end with a slash", ErrInvalidConfig)
	}
	if len(cfg.JWT.Secret) == 0 {
		return fmt.Errorf("%w: JWT.Secret is required", ErrInvalidConfig)
	}
	if cfg.JWT.ConfirmTTL <= 0 || cfg.JWT.SessionTTL <= 0 {
		return fmt.Errorf("%w: token TTLs must be positive", ErrInvalidConfig)
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: Audit.BufferSize must be positive when audit is enabled", ErrInvalidConfig)
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.JWT.Secret != nil {
		out.JWT.Secret = make([]byte, len(cfg.JWT.Secret))
		copy(out.JWT.Secret, cfg.JWT.Secret)
	}
	return out
}
