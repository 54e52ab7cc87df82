package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/mailauth-io/mailauth"
)

// ErrNilMeter is an exported constant or variable used by the authentication engine.
var ErrNilMeter = errors.New("nil meter")

// ErrNilSource is an exported constant or variable used by the authentication engine.
var ErrNilSource = errors.New("nil metrics source")

type metricsSource interface {
	MetricsSnapshot() mailauth.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   mailauth.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{id: mailauth.MetricSendEmailSuccess, name: "mailauth_send_email_success_total", help: "Authentication emails handed to the notifier."},
	{id: mailauth.MetricSendEmailFailure, name: "mailauth_send_email_failure_total", help: "Authentication email sends that failed."},
	{id: mailauth.MetricTokenConfirmSuccess, name: "mailauth_token_confirm_success_total", help: "Confirmation tokens accepted with a matching login code."},
	{id: mailauth.MetricTokenConfirmInvalid, name: "mailauth_token_confirm_invalid_total", help: "Confirmation tokens rejected."},
	{id: mailauth.MetricRefreshSuccess, name: "mailauth_refresh_success_total", help: "Successful token refresh operations."},
	{id: mailauth.MetricRefreshFailure, name: "mailauth_refresh_failure_total", help: "Failed token refresh operations."},
	{id: mailauth.MetricLoginCodeMatch, name: "mailauth_login_code_match_total", help: "Login codes that matched the stored value."},
	{id: mailauth.MetricLoginCodeMismatch, name: "mailauth_login_code_mismatch_total", help: "Login codes that did not match."},
	{id: mailauth.MetricCredentialsIssued, name: "mailauth_credentials_issued_total", help: "Token and login code pairs issued."},
}

type observedCounter struct {
	id         mailauth.MetricID
	instrument metric.Int64ObservableCounter
}

// OTelExporter defines a public type used by mailauth APIs.
//
// OTelExporter instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter describes the newotelexporter operation and its observable behavior.
//
// NewOTelExporter may return an error when input validation, dependency calls, or security checks fail.
// NewOTelExporter does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewOTelExporter(meter metric.Meter, engine *mailauth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource describes the newotelexporterfromsource operation and its observable behavior.
//
// NewOTelExporterFromSource may return an error when input validation, dependency calls, or security checks fail.
// NewOTelExporterFromSource does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs)+1)

	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"mailauth_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
