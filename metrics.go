package samltrust

import (
	"github.com/philiph/saml-trust/internal/adapters/driven/metrics"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// Re-export MetricsRecorder interface from ports
type MetricsRecorder = ports.MetricsRecorder

// Re-export metrics adapters
type PrometheusMetricsRecorder = metrics.PrometheusMetricsRecorder
type NoopMetricsRecorder = metrics.NoopMetricsRecorder

var (
	NewPrometheusMetricsRecorder             = metrics.NewPrometheusMetricsRecorder
	NewPrometheusMetricsRecorderWithRegistry = metrics.NewPrometheusMetricsRecorderWithRegistry
	NewNoopMetricsRecorder                   = metrics.NewNoopMetricsRecorder
)
