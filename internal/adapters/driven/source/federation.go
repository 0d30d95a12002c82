package source

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// Federation is a named remote source of trust records loaded from a shared
// federation metadata document.
//
// Lookups read an immutable snapshot map that is swapped whole on refresh:
// a concurrent refresh is observed either entirely or not at all, never as a
// torn map. On refresh failure the previous snapshot keeps being served and
// Health reports the federation as stale.
type Federation struct {
	name             string
	location         string
	fetcher          ports.DescriptorSource
	allowUnsolicited bool
	logger           *zap.Logger
	metricsRecorder  ports.MetricsRecorder
	onRefresh        func(error)
	clock            Clock

	mu              sync.RWMutex
	providers       map[string]domain.IdentityProvider
	order           []string
	isFresh         bool
	lastSuccessTime time.Time
	lastError       error

	// Background refresh goroutine management
	stopCh chan struct{}
	closed bool
}

// NewFederation creates a federation backed by the given descriptor source.
// The federation is empty until the first Refresh.
func NewFederation(name, location string, fetcher ports.DescriptorSource, opts ...FederationOption) *Federation {
	options := &federationOptions{}
	for _, opt := range opts {
		opt(options)
	}
	clock := options.clock
	if clock == nil {
		clock = RealClock{}
	}
	return &Federation{
		name:             name,
		location:         location,
		fetcher:          fetcher,
		allowUnsolicited: options.allowUnsolicited,
		logger:           options.logger,
		metricsRecorder:  options.metricsRecorder,
		onRefresh:        options.onRefresh,
		clock:            clock,
	}
}

// NewFederationWithRefresh creates a federation that refreshes itself in the
// background at the given interval. Call Close to stop the goroutine.
func NewFederationWithRefresh(name, location string, fetcher ports.DescriptorSource, interval time.Duration, opts ...FederationOption) *Federation {
	f := NewFederation(name, location, fetcher, opts...)
	f.stopCh = make(chan struct{})
	go f.refreshLoop(interval)
	return f
}

// refreshLoop runs periodic refresh in the background.
func (f *Federation) refreshLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := f.Refresh(context.Background())
			if f.logger != nil {
				if err != nil {
					f.logger.Warn("background federation refresh failed",
						zap.String("federation", f.name),
						zap.Error(err))
				} else {
					f.logger.Info("background federation refresh succeeded",
						zap.String("federation", f.name),
						zap.Int("provider_count", f.Health().ProviderCount))
				}
			}
			if f.onRefresh != nil {
				f.onRefresh(err)
			}
		case <-f.stopCh:
			return
		}
	}
}

// Close stops the background refresh goroutine if running.
// Safe to call multiple times (idempotent).
func (f *Federation) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopCh != nil && !f.closed {
		close(f.stopCh)
		f.closed = true
	}
	return nil
}

// Name identifies the federation in logs and metrics.
func (f *Federation) Name() string { return f.name }

// Refresh fetches the federation document and rebuilds the snapshot.
// Entities that fail resolution or validation are skipped and logged; the
// failure of one provider never discards the rest. On fetch failure the
// previous snapshot is preserved and the error is returned for monitoring.
func (f *Federation) Refresh(ctx context.Context) error {
	descriptors, err := f.fetcher.FetchDescriptors(ctx, f.location)
	if err != nil {
		retrievalErr := domain.RetrievalError(f.location, err)
		f.mu.Lock()
		f.isFresh = false
		f.lastError = retrievalErr
		f.mu.Unlock()
		if f.metricsRecorder != nil {
			f.metricsRecorder.RecordFederationRefresh(f.name, false, 0)
		}
		return retrievalErr
	}

	providers := make(map[string]domain.IdentityProvider, len(descriptors))
	order := make([]string, 0, len(descriptors))
	for i := range descriptors {
		idp := domain.IdentityProvider{AllowUnsolicited: f.allowUnsolicited}
		if err := idp.ApplyDescriptor(&descriptors[i]); err != nil {
			f.logSkipped(descriptors[i].EntityID, err)
			continue
		}
		if err := idp.Validate(); err != nil {
			f.logSkipped(idp.EntityID, err)
			continue
		}
		if _, ok := providers[idp.EntityID]; ok {
			// First descriptor for an entity ID wins.
			f.logSkipped(idp.EntityID, domain.ConfigError(idp.EntityID, "duplicate entity ID in federation document"))
			continue
		}
		providers[idp.EntityID] = idp
		order = append(order, idp.EntityID)
	}

	f.mu.Lock()
	f.providers = providers
	f.order = order
	f.isFresh = true
	f.lastError = nil
	f.lastSuccessTime = f.clock.Now()
	f.mu.Unlock()

	if f.metricsRecorder != nil {
		f.metricsRecorder.RecordFederationRefresh(f.name, true, len(providers))
	}
	return nil
}

// logSkipped logs an entity dropped during refresh.
func (f *Federation) logSkipped(entityID string, err error) {
	if f.logger != nil {
		f.logger.Warn("skipping federation entity",
			zap.String("federation", f.name),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// Lookup returns the provider with the given entity ID from the current
// snapshot.
func (f *Federation) Lookup(entityID string) (*domain.IdentityProvider, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	idp, ok := f.providers[entityID]
	if !ok {
		return nil, domain.ErrIdPNotFound
	}
	return &idp, nil
}

// All returns the providers of the current snapshot in document order.
func (f *Federation) All() []domain.IdentityProvider {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make([]domain.IdentityProvider, 0, len(f.order))
	for _, id := range f.order {
		result = append(result, f.providers[id])
	}
	return result
}

// Health returns comprehensive health status for monitoring.
func (f *Federation) Health() domain.FederationHealth {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return domain.FederationHealth{
		IsFresh:         f.isFresh,
		LastSuccessTime: f.lastSuccessTime,
		LastError:       f.lastError,
		ProviderCount:   len(f.providers),
	}
}

// Ensure Federation implements ports.ProviderSource
var _ ports.ProviderSource = (*Federation)(nil)
