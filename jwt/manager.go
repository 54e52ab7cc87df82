package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenMalformed is returned when the token is not a parseable compact JWS.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignature is returned when the signature does not verify under the configured secret.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenExpired is returned when the exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenIssuer is returned when the iss claim does not match the expected issuer.
	ErrTokenIssuer = errors.New("token issuer mismatch")
	// ErrTokenInvalid is returned for any other validation failure.
	ErrTokenInvalid = errors.New("token invalid")
)

// Config defines a public type used by mailauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// Secret is the symmetric HS256 signing key. Required.
	Secret []byte

	// Issuer is placed into the iss claim of every signed token.
	Issuer string

	// Leeway is the clock-skew allowance applied during verification.
	// Zero by default: expiry is compared against the verifier's clock
	// with no grace period.
	Leeway time.Duration
}

// Data is the custom claims payload carried under the "data" key.
// LoginCode is numeric on the wire and present only on confirmation
// tokens; refreshed tokens carry the email alone.
type Data struct {
	Email     string `json:"email"`
	LoginCode int    `json:"loginCode,omitempty"`
}

// Claims defines a public type used by mailauth APIs.
//
// Claims instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Claims struct {
	Data Data `json:"data"`
	jwt.RegisteredClaims
}

// UserID returns the aud claim, which binds the token to a single user.
func (c *Claims) UserID() string {
	if c == nil || len(c.Audience) == 0 {
		return ""
	}
	return c.Audience[0]
}

// Manager defines a public type used by mailauth APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a signing secret")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Sign describes the sign operation and its observable behavior.
//
// Sign may return an error when input validation, dependency calls, or security checks fail.
// Sign does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Sign(audience string, data Data, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Data: data,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{audience},
			Issuer:    m.config.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// Verify validates the signature and expiry of a token and returns its
// claims. The issuer claim is not checked; use [Manager.VerifyWithIssuer]
// when issuer binding is required.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, "")
}

// VerifyWithIssuer validates signature, expiry, and that the iss claim
// equals issuer.
func (m *Manager) VerifyWithIssuer(tokenStr, issuer string) (*Claims, error) {
	return m.parse(tokenStr, issuer)
}

func (m *Manager) parse(tokenStr, issuer string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrTokenIssuer
	default:
		return ErrTokenInvalid
	}
}
