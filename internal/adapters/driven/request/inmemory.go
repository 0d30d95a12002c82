package request

import (
	"fmt"
	"sync"
	"time"

	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// Clock provides time functionality for testing.
type Clock interface {
	Now() time.Time
}

// realClock uses the standard time package.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// pendingEntry is one tracked request. A consumed entry stays behind as a
// tombstone until its expiry so that a replayed request ID is reported
// distinctly from an ID that was never issued.
type pendingEntry struct {
	req      domain.PendingRequest
	expiry   time.Time
	consumed bool
}

// InMemoryPendingStore tracks in-flight authentication requests.
// Entries are single-use: Consume atomically reads and removes, and a second
// Consume of the same ID fails with domain.ErrRequestReplayed.
//
// Unconsumed entries and tombstones are evicted once expired, either lazily
// on access or by the background cleanup goroutine when the store is built
// with NewInMemoryPendingStoreWithCleanup.
type InMemoryPendingStore struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	clock   Clock

	onCleanup func(evicted int)
	stopCh    chan struct{}
	closed    bool
}

// StoreOption is a functional option for configuring the pending store.
type StoreOption func(*InMemoryPendingStore)

// WithOnCleanup returns an option that sets a callback invoked after each
// cleanup pass with the number of evicted entries. Used for testing
// synchronization.
func WithOnCleanup(fn func(evicted int)) StoreOption {
	return func(s *InMemoryPendingStore) {
		s.onCleanup = fn
	}
}

// WithStoreClock returns an option that sets a custom clock.
// Used for testing expiry without time.Sleep.
func WithStoreClock(clock Clock) StoreOption {
	return func(s *InMemoryPendingStore) {
		s.clock = clock
	}
}

// NewInMemoryPendingStore creates a pending store without background
// cleanup. Expired entries are still evicted lazily on access.
func NewInMemoryPendingStore(opts ...StoreOption) *InMemoryPendingStore {
	s := &InMemoryPendingStore{
		entries: make(map[string]pendingEntry),
		clock:   realClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryPendingStoreWithCleanup creates a pending store with a
// background goroutine that evicts expired entries at the given interval.
// Call Close when the store is no longer needed.
func NewInMemoryPendingStoreWithCleanup(interval time.Duration, opts ...StoreOption) *InMemoryPendingStore {
	s := NewInMemoryPendingStore(opts...)
	s.stopCh = make(chan struct{})
	go s.cleanupLoop(interval)
	return s
}

// cleanupLoop evicts expired entries periodically.
func (s *InMemoryPendingStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			evicted := s.evictExpired()
			if s.onCleanup != nil {
				s.onCleanup(evicted)
			}
		case <-s.stopCh:
			return
		}
	}
}

// evictExpired removes all expired entries and tombstones.
func (s *InMemoryPendingStore) evictExpired() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, entry := range s.entries {
		if now.After(entry.expiry) {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}

// Close stops the background cleanup goroutine if running.
// Safe to call multiple times (idempotent).
func (s *InMemoryPendingStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil && !s.closed {
		close(s.stopCh)
		s.closed = true
	}
	return nil
}

// Insert registers a pending request under its request ID.
// The correlation entry must exist before the request reaches the transport
// layer, so callers insert before handing the request off.
func (s *InMemoryPendingStore) Insert(req domain.PendingRequest, expiry time.Time) error {
	if req.RequestID == "" {
		return domain.ServiceError("pending request has no request ID", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[req.RequestID]; ok && !s.clock.Now().After(entry.expiry) {
		return domain.ServiceError(fmt.Sprintf("request ID %q already tracked", req.RequestID), nil)
	}
	s.entries[req.RequestID] = pendingEntry{req: req, expiry: expiry}
	return nil
}

// Consume atomically reads and removes the entry for the given request ID.
// The entry is replaced by a tombstone that lives until the original expiry,
// so within the request validity window a second Consume reports replay
// rather than not-found.
func (s *InMemoryPendingStore) Consume(requestID string) (*domain.PendingRequest, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[requestID]
	if !ok || now.After(entry.expiry) {
		if !ok {
			return nil, domain.CorrelationError(requestID, domain.ErrRequestNotFound)
		}
		// Expired entries are as good as gone.
		delete(s.entries, requestID)
		return nil, domain.CorrelationError(requestID, domain.ErrRequestNotFound)
	}
	if entry.consumed {
		return nil, domain.CorrelationError(requestID, domain.ErrRequestReplayed)
	}

	entry.consumed = true
	s.entries[requestID] = entry

	req := entry.req
	return &req, nil
}

// Active returns the IDs of all unconsumed, unexpired entries.
func (s *InMemoryPendingStore) Active() []string {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id, entry := range s.entries {
		if !entry.consumed && !now.After(entry.expiry) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len reports the number of tracked entries including tombstones.
// Used by tests and monitoring.
func (s *InMemoryPendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ensure InMemoryPendingStore implements ports.PendingRequestStore
var _ ports.PendingRequestStore = (*InMemoryPendingStore)(nil)
