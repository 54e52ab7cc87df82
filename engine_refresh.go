package mailauth

import (
	"context"

	"github.com/mailauth-io/mailauth/jwt"
)

// RefreshToken exchanges a valid token for a long-lived one bound to the
// caller-supplied userID. Only signature and expiry of the input token
// are checked — no issuer binding and no login-code comparison — and no
// persistent state is touched: this is a pure token-to-token transform.
//
// The new token carries the email lifted from the input token's payload
// and no login code, so it is immune to later code regeneration.
func (e *Engine) RefreshToken(ctx context.Context, userID, token string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.codec.Verify(token)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshToken, false, userID, "", err, nil)
		return "", err
	}

	newToken, err := e.codec.Sign(userID, jwt.Data{Email: claims.Data.Email}, e.config.JWT.SessionTTL)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshToken, false, userID, claims.Data.Email, err, nil)
		return "", err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshToken, true, userID, claims.Data.Email, nil, nil)
	return newToken, nil
}
