package mailauth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mailauth-io/mailauth/internal"
	"github.com/mailauth-io/mailauth/jwt"
)

// SendAuthenticationEmail runs the request-link flow: it finds or creates
// the user for email, mints a fresh login code (overwriting and thereby
// invalidating any prior one), signs a short-lived confirmation token
// carrying the code, and hands the verification URL, email, and code to
// the injected notifier.
//
// Directory and notifier failures propagate to the caller; the engine
// neither retries nor swallows them.
func (e *Engine) SendAuthenticationEmail(ctx context.Context, email, linkingURI string) error {
	if e == nil || e.directory == nil || e.notify == nil {
		return ErrEngineNotReady
	}

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricSendEmailFailure)
		e.emitAudit(ctx, auditEventSendEmail, false, "", email, err, nil)
		return err
	}
	if user == nil {
		user, err = e.directory.Create(ctx, email)
		if err != nil {
			e.metricInc(MetricSendEmailFailure)
			e.emitAudit(ctx, auditEventSendEmail, false, "", email, err, nil)
			return err
		}
	}

	creds, err := e.CreateAuthenticationTokenAndLoginCode(ctx, user.ID, email, e.config.JWT.ConfirmTTL)
	if err != nil {
		e.metricInc(MetricSendEmailFailure)
		e.emitAudit(ctx, auditEventSendEmail, false, user.ID, email, err, nil)
		return err
	}

	verificationURL := fmt.Sprintf(
		"%s/confirm?token=%s&linkingUri=%s",
		e.config.API.BaseURL, creds.Token, url.QueryEscape(linkingURI),
	)

	if err := e.notify(ctx, Notification{
		VerificationURL: verificationURL,
		Email:           email,
		LoginCode:       creds.LoginCode,
	}); err != nil {
		e.metricInc(MetricSendEmailFailure)
		e.emitAudit(ctx, auditEventSendEmail, false, user.ID, email, err, func() map[string]string {
			return map[string]string{"stage": "notify"}
		})
		return err
	}

	e.metricInc(MetricSendEmailSuccess)
	e.emitAudit(ctx, auditEventSendEmail, true, user.ID, email, nil, nil)
	return nil
}

// CreateAuthenticationTokenAndLoginCode mints a login code, persists it
// on the user record (superseding any live code), and signs a token of
// the given lifetime binding the code to the user. It is the shared
// issuance step of the send-email flow (confirmation lifetime) and the
// code-exchange route (session lifetime).
func (e *Engine) CreateAuthenticationTokenAndLoginCode(
	ctx context.Context,
	userID, email string,
	ttl time.Duration,
) (IssuedCredentials, error) {
	if e == nil || e.directory == nil {
		return IssuedCredentials{}, ErrEngineNotReady
	}

	code, err := internal.NewLoginCode()
	if err != nil {
		return IssuedCredentials{}, err
	}
	stored := internal.FormatLoginCode(code)

	if _, err := e.directory.Update(ctx, userID, UserUpdate{LoginCode: &stored}); err != nil {
		e.emitAudit(ctx, auditEventIssueCode, false, userID, email, err, nil)
		return IssuedCredentials{}, err
	}

	token, err := e.codec.Sign(userID, jwt.Data{Email: email, LoginCode: code}, ttl)
	if err != nil {
		e.emitAudit(ctx, auditEventIssueCode, false, userID, email, err, nil)
		return IssuedCredentials{}, err
	}

	e.metricInc(MetricCredentialsIssued)
	e.emitAudit(ctx, auditEventIssueCode, true, userID, email, nil, nil)
	return IssuedCredentials{Token: token, LoginCode: stored}, nil
}
