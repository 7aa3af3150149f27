// Package metrics holds the Prometheus collectors for the access gate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// LoginAttempts counts password checks by outcome (ok, not_found, wrong_secret, error).
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evasion_watch",
		Name:      "login_attempts_total",
		Help:      "Credential checks by outcome.",
	}, []string{"outcome"})

	// CodesIssued counts one-time codes by result (issued, reused, dispatch_failed).
	CodesIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evasion_watch",
		Name:      "mfa_codes_total",
		Help:      "One-time codes handled by the issuer.",
	}, []string{"result"})

	// CodeVerdicts counts validation verdicts (accepted, rejected, expired, missing).
	CodeVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evasion_watch",
		Name:      "mfa_verdicts_total",
		Help:      "One-time code validation verdicts.",
	}, []string{"verdict"})

	// AuditWriteFailures counts audit entries that could not be persisted.
	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "evasion_watch",
		Name:      "audit_write_failures_total",
		Help:      "Audit entries dropped because the store rejected the write.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LoginAttempts,
		CodesIssued,
		CodeVerdicts,
		AuditWriteFailures,
	)
}
