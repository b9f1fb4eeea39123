package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, nil), mr
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	if _, err := store.Load(ctx, "573001112233"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Load on empty store: err = %v, want ErrSessionNotFound", err)
	}

	session := NewBookingSession("573001112233", time.Now())
	session.Step = StepAwaitingDate
	session.Collected.TreatmentName = "Limpieza Facial"

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if session.Version != 1 {
		t.Fatalf("version after first save = %d, want 1", session.Version)
	}

	loaded, err := store.Load(ctx, "573001112233")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Step != StepAwaitingDate || loaded.Collected.TreatmentName != "Limpieza Facial" {
		t.Fatalf("loaded = %+v, want saved fields back", loaded)
	}
	if loaded.Version != 1 {
		t.Fatalf("loaded version = %d, want 1", loaded.Version)
	}
}

func TestRedisSessionStoreVersionConflict(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	session := NewBookingSession("573001112233", time.Now())
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A second loader writes first.
	other, err := store.Load(ctx, "573001112233")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	other.Step = StepAwaitingTreatment
	if err := store.Save(ctx, other); err != nil {
		t.Fatalf("Save other: %v", err)
	}

	stale := NewBookingSession("573001112233", time.Now())
	stale.Version = 1 // matched the store before other's write
	if err := store.Save(ctx, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale Save err = %v, want ErrVersionConflict", err)
	}
}

func TestRedisSessionStoreDelete(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	session := NewBookingSession("573001112233", time.Now())
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "573001112233"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "573001112233"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Load after delete: err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemorySessionStoreCAS(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := NewBookingSession("p1", time.Now())
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stale := NewBookingSession("p1", time.Now())
	if err := store.Save(ctx, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale Save err = %v, want ErrVersionConflict", err)
	}
}

// failingStore simulates a Redis outage.
type failingStore struct {
	loadErr error
	saveErr error
	puts    []*BookingSession
}

func (f *failingStore) Load(context.Context, string) (*BookingSession, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return nil, ErrSessionNotFound
}

func (f *failingStore) Save(_ context.Context, s *BookingSession) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	s.Version++
	return nil
}

func (f *failingStore) Delete(context.Context, string) error { return nil }

func (f *failingStore) ForcePut(_ context.Context, s *BookingSession) error {
	f.puts = append(f.puts, s)
	return nil
}

func TestTwoTierFallsBackOnPrimaryFailure(t *testing.T) {
	down := errors.New("connection refused")
	primary := &failingStore{loadErr: down, saveErr: down}
	store := NewTwoTierSessionStore(primary, nil)
	ctx := context.Background()

	session := NewBookingSession("p1", time.Now())
	session.Step = StepAwaitingTime
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save with primary down: %v", err)
	}

	loaded, err := store.Load(ctx, "p1")
	if err != nil {
		t.Fatalf("Load with primary down: %v", err)
	}
	if loaded.Step != StepAwaitingTime {
		t.Fatalf("loaded step = %s, want %s from fallback", loaded.Step, StepAwaitingTime)
	}
}

func TestTwoTierDirtyFallbackWinsOverEmptyPrimary(t *testing.T) {
	down := errors.New("connection refused")
	primary := &failingStore{saveErr: down}
	store := NewTwoTierSessionStore(primary, nil)
	ctx := context.Background()

	session := NewBookingSession("p1", time.Now())
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Primary load now "works" but has no row; the dirty fallback entry is
	// newer and must be served.
	primary.loadErr = nil
	if _, err := store.Load(ctx, "p1"); err != nil {
		t.Fatalf("Load: %v, want dirty fallback session", err)
	}
}

func TestTwoTierVersionConflictNeverFallsBack(t *testing.T) {
	primary := &failingStore{saveErr: ErrVersionConflict}
	store := NewTwoTierSessionStore(primary, nil)

	session := NewBookingSession("p1", time.Now())
	if err := store.Save(context.Background(), session); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("Save err = %v, want ErrVersionConflict surfaced", err)
	}
}

func TestTwoTierReconcilePushesDirtySessions(t *testing.T) {
	down := errors.New("connection refused")
	primary := &failingStore{saveErr: down}
	store := NewTwoTierSessionStore(primary, nil)
	ctx := context.Background()

	session := NewBookingSession("p1", time.Now())
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	primary.saveErr = nil
	store.Reconcile(ctx)

	if len(primary.puts) != 1 {
		t.Fatalf("ForcePut called %d times, want 1", len(primary.puts))
	}
	if primary.puts[0].Phone != "p1" {
		t.Fatalf("reconciled phone = %q, want p1", primary.puts[0].Phone)
	}

	// Second pass has nothing left to push.
	store.Reconcile(ctx)
	if len(primary.puts) != 1 {
		t.Fatalf("ForcePut called %d times after second pass, want still 1", len(primary.puts))
	}
}
