package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/philiph/saml-trust/internal/core/ports"
)

// PrometheusMetricsRecorder records metrics using Prometheus.
type PrometheusMetricsRecorder struct {
	lookupsTotal            *prometheus.CounterVec
	federationRefreshTotal  *prometheus.CounterVec
	federationProviderCount *prometheus.GaugeVec
	requestsIssuedTotal     *prometheus.CounterVec
	correlationsTotal       *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder creates a new Prometheus metrics recorder
// using the default Prometheus registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	return NewPrometheusMetricsRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsRecorderWithRegistry creates a new Prometheus metrics
// recorder with a custom registry. Use this for testing.
func NewPrometheusMetricsRecorderWithRegistry(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	lookupsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saml_trust_lookups_total",
		Help: "Total registry lookups",
	}, []string{"source", "result"})

	federationRefreshTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saml_trust_federation_refresh_total",
		Help: "Total federation refresh attempts",
	}, []string{"federation", "result"})

	federationProviderCount := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saml_trust_federation_provider_count",
		Help: "Current number of validated providers per federation",
	}, []string{"federation"})

	requestsIssuedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saml_trust_requests_issued_total",
		Help: "Total outbound authentication requests",
	}, []string{"idp_entity_id"})

	correlationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saml_trust_correlations_total",
		Help: "Total pending-request consumption attempts",
	}, []string{"outcome"})

	reg.MustRegister(
		lookupsTotal,
		federationRefreshTotal,
		federationProviderCount,
		requestsIssuedTotal,
		correlationsTotal,
	)

	return &PrometheusMetricsRecorder{
		lookupsTotal:            lookupsTotal,
		federationRefreshTotal:  federationRefreshTotal,
		federationProviderCount: federationProviderCount,
		requestsIssuedTotal:     requestsIssuedTotal,
		correlationsTotal:       correlationsTotal,
	}
}

// RecordLookup records a registry lookup and whether it found a record.
func (p *PrometheusMetricsRecorder) RecordLookup(source string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	p.lookupsTotal.WithLabelValues(source, result).Inc()
}

// RecordFederationRefresh records a federation refresh attempt.
func (p *PrometheusMetricsRecorder) RecordFederationRefresh(federation string, success bool, providerCount int) {
	result := "failure"
	if success {
		result = "success"
	}
	p.federationRefreshTotal.WithLabelValues(federation, result).Inc()
	if success {
		p.federationProviderCount.WithLabelValues(federation).Set(float64(providerCount))
	}
}

// RecordRequestIssued records an outbound authentication request.
func (p *PrometheusMetricsRecorder) RecordRequestIssued(idpEntityID string) {
	p.requestsIssuedTotal.WithLabelValues(idpEntityID).Inc()
}

// RecordCorrelation records a pending-request consumption outcome.
func (p *PrometheusMetricsRecorder) RecordCorrelation(outcome string) {
	p.correlationsTotal.WithLabelValues(outcome).Inc()
}

// Ensure PrometheusMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
