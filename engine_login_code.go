package mailauth

import "context"

// VerifyLoginCode runs the second-channel verification flow: the
// supplied code is compared byte-for-byte against the code currently
// stored for the email's user. On a match the user's ID is returned; on
// no user, no live code, or any mismatch the result is (nil, nil) — the
// caller decides the transport-level response.
//
// Unlike the link-confirmation flow, this path never touches the
// EmailConfirmed flag.
func (e *Engine) VerifyLoginCode(ctx context.Context, email, code string) (*LoginCodeMatch, error) {
	if e == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventVerifyLoginCode, false, "", email, err, nil)
		return nil, err
	}

	if user == nil || user.LoginCode == "" || user.LoginCode != code {
		e.metricInc(MetricLoginCodeMismatch)
		e.emitAudit(ctx, auditEventVerifyLoginCode, false, "", email, nil, nil)
		return nil, nil
	}

	e.metricInc(MetricLoginCodeMatch)
	e.emitAudit(ctx, auditEventVerifyLoginCode, true, user.ID, email, nil, nil)
	return &LoginCodeMatch{UserID: user.ID}, nil
}
