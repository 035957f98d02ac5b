package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics exposed by the authorization core
type Metrics struct {
	// Credential store metrics
	CredentialLookupsTotal   *prometheus.CounterVec
	CredentialAnomaliesTotal prometheus.Counter
	CredentialWritesTotal    *prometheus.CounterVec

	// Session metrics
	SessionWritesTotal *prometheus.CounterVec

	// Storage metrics
	StorageErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the authorization core metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		CredentialLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_credential_lookups_total",
				Help: "Total number of identifying-credential lookups by outcome",
			},
			[]string{"provider", "outcome"},
		),
		CredentialAnomaliesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authcore_credential_anomalies_total",
				Help: "Identifying-credential lookups that matched multiple users",
			},
		),
		CredentialWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_credential_writes_total",
				Help: "Total number of credential replace-all writes",
			},
			[]string{"provider"},
		),
		SessionWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_session_writes_total",
				Help: "Total number of session create/update operations",
			},
			[]string{"operation"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_storage_errors_total",
				Help: "Total number of storage failures by component",
			},
			[]string{"component"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.CredentialLookupsTotal,
			m.CredentialAnomaliesTotal,
			m.CredentialWritesTotal,
			m.SessionWritesTotal,
			m.StorageErrorsTotal,
		)
	}

	return m
}

// Lookup outcomes for CredentialLookupsTotal
const (
	LookupOutcomeMatched  = "matched"
	LookupOutcomeNoMatch  = "no_match"
	LookupOutcomeLocked   = "locked"
	LookupOutcomeRejected = "rejected"
)
