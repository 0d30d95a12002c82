package metrics

import "github.com/philiph/saml-trust/internal/core/ports"

// NoopMetricsRecorder is a no-op implementation for when metrics are
// disabled. All methods are safe to call and do nothing.
type NoopMetricsRecorder struct{}

// NewNoopMetricsRecorder creates a new no-op metrics recorder.
func NewNoopMetricsRecorder() *NoopMetricsRecorder {
	return &NoopMetricsRecorder{}
}

// RecordLookup is a no-op.
func (n *NoopMetricsRecorder) RecordLookup(source string, found bool) {}

// RecordFederationRefresh is a no-op.
func (n *NoopMetricsRecorder) RecordFederationRefresh(federation string, success bool, providerCount int) {
}

// RecordRequestIssued is a no-op.
func (n *NoopMetricsRecorder) RecordRequestIssued(idpEntityID string) {}

// RecordCorrelation is a no-op.
func (n *NoopMetricsRecorder) RecordCorrelation(outcome string) {}

// Ensure NoopMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*NoopMetricsRecorder)(nil)
