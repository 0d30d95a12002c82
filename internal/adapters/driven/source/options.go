package source

import (
	"time"

	"go.uber.org/zap"

	"github.com/philiph/saml-trust/internal/core/ports"
)

// FederationOption is a functional option for configuring a Federation.
type FederationOption func(*federationOptions)

// Clock provides time functionality for testing.
type Clock interface {
	Now() time.Time
}

// RealClock uses the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

type federationOptions struct {
	allowUnsolicited bool
	logger           *zap.Logger
	metricsRecorder  ports.MetricsRecorder
	onRefresh        func(error)
	clock            Clock
}

// WithAllowUnsolicited returns an option that sets the unsolicited-response
// default applied to every provider this federation supplies.
func WithAllowUnsolicited(allow bool) FederationOption {
	return func(o *federationOptions) {
		o.allowUnsolicited = allow
	}
}

// WithLogger returns an option that sets the logger for the federation.
// When set, refresh events (success/failure) and skipped entities are logged.
func WithLogger(logger *zap.Logger) FederationOption {
	return func(o *federationOptions) {
		o.logger = logger
	}
}

// WithMetricsRecorder returns an option that sets the metrics recorder.
// When set, refresh attempts are recorded as metrics.
func WithMetricsRecorder(recorder ports.MetricsRecorder) FederationOption {
	return func(o *federationOptions) {
		o.metricsRecorder = recorder
	}
}

// WithOnRefresh returns an option that sets a callback invoked after each
// background refresh. The callback receives the error (nil on success).
// Used for testing synchronization.
func WithOnRefresh(fn func(error)) FederationOption {
	return func(o *federationOptions) {
		o.onRefresh = fn
	}
}

// WithClock returns an option that sets a custom clock for time operations.
// Used for testing without time.Sleep.
func WithClock(clock Clock) FederationOption {
	return func(o *federationOptions) {
		o.clock = clock
	}
}
