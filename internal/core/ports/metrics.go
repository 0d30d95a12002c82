package ports

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (PrometheusMetricsRecorder for production,
// NoopMetricsRecorder for disabled/testing).
type MetricsRecorder interface {
	// RecordLookup records a registry lookup and whether it found a record.
	RecordLookup(source string, found bool)

	// RecordFederationRefresh records a federation refresh attempt.
	RecordFederationRefresh(federation string, success bool, providerCount int)

	// RecordRequestIssued records an outbound authentication request.
	RecordRequestIssued(idpEntityID string)

	// RecordCorrelation records a pending-request consumption outcome:
	// "consumed", "not_found", or "replayed".
	RecordCorrelation(outcome string)
}
