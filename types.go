package mailauth

import "context"

// UserRecord is the account record held by the external user directory.
// LoginCode is stored as text even though it is generated as a number;
// an empty string means no code has been issued.
type UserRecord struct {
	ID             string
	Email          string
	LoginCode      string
	EmailConfirmed bool
}

// UserUpdate is a partial update applied by [UserDirectory.Update].
// Nil fields are left untouched.
type UserUpdate struct {
	LoginCode      *string
	EmailConfirmed *bool
}

// UserDirectory is the contract the engine requires from the external
// user store. Implementations must be safe for concurrent use.
//
// All operations surface backend or transport failures as errors
// wrapping [ErrDirectoryUnavailable]; the engine never retries.
type UserDirectory interface {
	// FindByEmail returns (nil, nil) when no user has the given email.
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)

	// FindByID returns an error wrapping [ErrUserNotFound] when the id
	// is unknown.
	FindByID(ctx context.Context, id string) (*UserRecord, error)

	// Create inserts a user with the given email; the directory assigns
	// the ID.
	Create(ctx context.Context, email string) (*UserRecord, error)

	// Update applies the non-nil fields of update and returns the
	// resulting record, or an error wrapping [ErrUserNotFound].
	Update(ctx context.Context, id string, update UserUpdate) (*UserRecord, error)
}

// Notification is handed to the injected notifier when an authentication
// email should be delivered.
type Notification struct {
	VerificationURL string
	Email           string
	LoginCode       string
}

// NotifyFunc delivers a [Notification]. It is invoked synchronously by
// [Engine.SendAuthenticationEmail]; a returned error propagates to the
// caller of that method.
type NotifyFunc func(ctx context.Context, n Notification) error

// TokenVerification is returned by [Engine.VerifyAuthenticationToken].
// TokenValid is false for any malformed, unsigned, expired,
// wrong-issuer, or superseded-code token; those outcomes are results,
// never errors.
type TokenVerification struct {
	TokenValid bool
	UserID     string
}

// LoginCodeMatch is returned by [Engine.VerifyLoginCode] on an exact
// code match. A nil result with a nil error means no match.
type LoginCodeMatch struct {
	UserID string
}

// IssuedCredentials is returned by
// [Engine.CreateAuthenticationTokenAndLoginCode]: the signed token plus
// the login code in its stored textual form.
type IssuedCredentials struct {
	Token     string
	LoginCode string
}
