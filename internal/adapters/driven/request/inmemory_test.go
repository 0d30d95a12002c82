//go:build unit

package request

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/philiph/saml-trust/internal/core/domain"
)

// fakeClock is a mutable clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func pendingReq(id string) domain.PendingRequest {
	return domain.PendingRequest{
		RequestID:   id,
		IdPEntityID: "https://idp.example.com/metadata",
		ReturnURL:   "/dashboard",
	}
}

func TestPendingStore_InsertAndConsume(t *testing.T) {
	store := NewInMemoryPendingStore()

	if err := store.Insert(pendingReq("id-1"), time.Now().Add(5*time.Minute)); err != nil {
		t.Fatalf("Insert() returned error: %v", err)
	}

	req, err := store.Consume("id-1")
	if err != nil {
		t.Fatalf("Consume() returned error: %v", err)
	}
	if req.RequestID != "id-1" {
		t.Errorf("RequestID = %q, want id-1", req.RequestID)
	}
	if req.IdPEntityID != "https://idp.example.com/metadata" {
		t.Errorf("IdPEntityID = %q, want the inserted entity ID", req.IdPEntityID)
	}
	if req.ReturnURL != "/dashboard" {
		t.Errorf("ReturnURL = %q, want /dashboard", req.ReturnURL)
	}
}

func TestPendingStore_Insert_EmptyID(t *testing.T) {
	store := NewInMemoryPendingStore()
	if err := store.Insert(domain.PendingRequest{}, time.Now().Add(time.Minute)); err == nil {
		t.Fatal("Insert() with empty request ID = nil, want error")
	}
}

func TestPendingStore_Insert_DuplicateLiveID(t *testing.T) {
	store := NewInMemoryPendingStore()
	expiry := time.Now().Add(5 * time.Minute)

	if err := store.Insert(pendingReq("id-1"), expiry); err != nil {
		t.Fatalf("first Insert() returned error: %v", err)
	}
	if err := store.Insert(pendingReq("id-1"), expiry); err == nil {
		t.Fatal("second Insert() of live ID = nil, want error")
	}
}

func TestPendingStore_Consume_NeverInserted(t *testing.T) {
	store := NewInMemoryPendingStore()

	_, err := store.Consume("id-unknown")
	if !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("Consume(unknown) = %v, want ErrRequestNotFound", err)
	}
	if errors.Is(err, domain.ErrRequestReplayed) {
		t.Error("Consume(unknown) reports replay, want plain miss")
	}
}

func TestPendingStore_Consume_SecondCallIsReplay(t *testing.T) {
	store := NewInMemoryPendingStore()
	store.Insert(pendingReq("id-1"), time.Now().Add(5*time.Minute))

	if _, err := store.Consume("id-1"); err != nil {
		t.Fatalf("first Consume() returned error: %v", err)
	}

	_, err := store.Consume("id-1")
	if !errors.Is(err, domain.ErrRequestReplayed) {
		t.Errorf("second Consume() = %v, want ErrRequestReplayed", err)
	}
	if errors.Is(err, domain.ErrRequestNotFound) {
		t.Error("second Consume() reports not-found, want replay kept distinct")
	}
}

func TestPendingStore_Consume_Expired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewInMemoryPendingStore(WithStoreClock(clock))

	store.Insert(pendingReq("id-1"), clock.Now().Add(10*time.Minute))
	clock.Advance(11 * time.Minute)

	_, err := store.Consume("id-1")
	if !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("Consume() of expired entry = %v, want ErrRequestNotFound", err)
	}
}

func TestPendingStore_TombstoneExpires(t *testing.T) {
	// After the entry's own expiry passes, the tombstone is gone and a
	// repeated Consume degrades from replay to not-found.
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewInMemoryPendingStore(WithStoreClock(clock))

	store.Insert(pendingReq("id-1"), clock.Now().Add(10*time.Minute))
	if _, err := store.Consume("id-1"); err != nil {
		t.Fatalf("Consume() returned error: %v", err)
	}

	if _, err := store.Consume("id-1"); !errors.Is(err, domain.ErrRequestReplayed) {
		t.Fatalf("Consume() within window = %v, want ErrRequestReplayed", err)
	}

	clock.Advance(11 * time.Minute)
	if _, err := store.Consume("id-1"); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("Consume() after expiry = %v, want ErrRequestNotFound", err)
	}
}

func TestPendingStore_Active(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := NewInMemoryPendingStore(WithStoreClock(clock))

	store.Insert(pendingReq("id-live"), clock.Now().Add(10*time.Minute))
	store.Insert(pendingReq("id-expired"), clock.Now().Add(-time.Second))
	store.Insert(pendingReq("id-consumed"), clock.Now().Add(10*time.Minute))
	store.Consume("id-consumed")

	active := store.Active()
	if len(active) != 1 || active[0] != "id-live" {
		t.Errorf("Active() = %v, want [id-live]", active)
	}
}

func TestPendingStore_ConcurrentInsertConsume(t *testing.T) {
	store := NewInMemoryPendingStore()
	const n = 100
	expiry := time.Now().Add(5 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", i)
			if err := store.Insert(pendingReq(id), expiry); err != nil {
				t.Errorf("Insert(%s) returned error: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	// Each entry is consumable exactly once under contention.
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", i)

			successes := 0
			results := make(chan error, 2)
			for k := 0; k < 2; k++ {
				go func() {
					_, err := store.Consume(id)
					results <- err
				}()
			}
			for k := 0; k < 2; k++ {
				if err := <-results; err == nil {
					successes++
				} else if !errors.Is(err, domain.ErrRequestReplayed) {
					t.Errorf("Consume(%s) = %v, want success or replay", id, err)
				}
			}
			if successes != 1 {
				t.Errorf("Consume(%s) succeeded %d times, want exactly once", id, successes)
			}
		}(i)
	}
	wg.Wait()
}

func TestPendingStore_BackgroundCleanup(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cleaned := make(chan int, 16)
	store := NewInMemoryPendingStoreWithCleanup(5*time.Millisecond,
		WithStoreClock(clock),
		WithOnCleanup(func(evicted int) { cleaned <- evicted }))
	defer store.Close()

	store.Insert(pendingReq("id-1"), clock.Now().Add(time.Minute))
	store.Consume("id-1") // leaves a tombstone
	store.Insert(pendingReq("id-2"), clock.Now().Add(time.Minute))
	clock.Advance(2 * time.Minute)

	deadline := time.After(2 * time.Second)
	total := 0
	for total < 2 {
		select {
		case n := <-cleaned:
			total += n
		case <-deadline:
			t.Fatalf("cleanup evicted %d entries, want 2", total)
		}
	}

	if got := store.Len(); got != 0 {
		t.Errorf("Len() after cleanup = %d, want 0", got)
	}
}

func TestPendingStore_CloseIdempotent(t *testing.T) {
	store := NewInMemoryPendingStoreWithCleanup(time.Hour)
	if err := store.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close() returned error: %v", err)
	}
}
