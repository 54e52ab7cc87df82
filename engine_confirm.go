package mailauth

import (
	"context"
	"errors"
	"strconv"
)

// VerifyAuthenticationToken runs the link-confirmation flow. Every token
// failure — malformed, bad signature, expired, wrong issuer — comes back
// as TokenValid=false with a nil error so the caller can redirect
// gracefully; only directory failures are errors.
//
// A token that verifies cryptographically but carries a login code that
// has since been superseded also yields TokenValid=false: issuing a new
// code invalidates every token minted for the old one.
//
// Side effect: the user's EmailConfirmed flag is set for any
// cryptographically valid token, even when the embedded code no longer
// matches. The match gates only the returned validity, not the
// confirmation write.
func (e *Engine) VerifyAuthenticationToken(ctx context.Context, token string) (TokenVerification, error) {
	if e == nil || e.directory == nil {
		return TokenVerification{}, ErrEngineNotReady
	}

	claims, err := e.codec.VerifyWithIssuer(token, e.config.API.BaseURL)
	if err != nil {
		e.metricInc(MetricTokenConfirmInvalid)
		e.emitAudit(ctx, auditEventConfirmToken, false, "", "", err, nil)
		return TokenVerification{}, nil
	}

	userID := claims.UserID()
	user, err := e.directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricTokenConfirmInvalid)
			e.emitAudit(ctx, auditEventConfirmToken, false, userID, claims.Data.Email, err, nil)
			return TokenVerification{}, nil
		}
		e.emitAudit(ctx, auditEventConfirmToken, false, userID, claims.Data.Email, err, nil)
		return TokenVerification{}, err
	}

	// Numeric comparison: the stored code is textual, the claim numeric.
	matched := false
	if stored, convErr := strconv.Atoi(user.LoginCode); convErr == nil {
		matched = claims.Data.LoginCode == stored
	}

	confirmed := true
	if _, err := e.directory.Update(ctx, userID, UserUpdate{EmailConfirmed: &confirmed}); err != nil {
		e.emitAudit(ctx, auditEventConfirmToken, false, userID, claims.Data.Email, err, nil)
		return TokenVerification{}, err
	}

	if matched {
		e.metricInc(MetricTokenConfirmSuccess)
	} else {
		e.metricInc(MetricTokenConfirmInvalid)
	}
	e.emitAudit(ctx, auditEventConfirmToken, matched, userID, claims.Data.Email, nil, func() map[string]string {
		return map[string]string{"code_matched": strconv.FormatBool(matched)}
	})

	return TokenVerification{TokenValid: matched, UserID: userID}, nil
}
