package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-workshop-client/internal/models"
	"go-workshop-client/internal/native"
	"go-workshop-client/internal/native/sim"
)

// submitDetail issues a one-item detail query through the bridge and returns
// the pending record. The simulator is held, so the completion stays queued
// until the test releases it.
func submitDetail(t *testing.T, b *Bridge, svc *sim.Service, id models.ItemID) *Pending {
	t.Helper()
	p, err := b.Submit(func() (native.CallHandle, error) {
		return svc.SubmitDetailQuery([]models.ItemID{id}, false, true)
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	return p
}

func TestSubmitFailsFastWhenUnavailable(t *testing.T) {
	svc := sim.New()
	svc.SetAvailable(false)
	b := New(svc)

	_, err := b.Submit(func() (native.CallHandle, error) {
		t.Fatal("submission ran despite unavailable service")
		return native.InvalidCallHandle, nil
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Submit error = %v, want ErrUnavailable", err)
	}
	if svc.QueryCount() != 0 {
		t.Fatalf("QueryCount = %d, want 0", svc.QueryCount())
	}
}

func TestSubmitAndComplete(t *testing.T) {
	svc := sim.New()
	svc.Hold()
	b := New(svc)

	p := submitDetail(t, b, svc, 7)
	if got := b.PendingCount(); got != 1 {
		t.Fatalf("PendingCount = %d, want 1", got)
	}

	b.Complete(native.QueryCompleted{Handle: p.Handle()})
	ev, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if ev.Handle != p.Handle() {
		t.Errorf("resolved handle = %d, want %d", ev.Handle, p.Handle())
	}
	if got := b.PendingCount(); got != 0 {
		t.Errorf("PendingCount after completion = %d, want 0", got)
	}
}

func TestConcurrentPendingResolveIndependently(t *testing.T) {
	svc := sim.New()
	svc.Hold()
	b := New(svc)

	p1 := submitDetail(t, b, svc, 1)
	p2 := submitDetail(t, b, svc, 2)
	if p1.Handle() == p2.Handle() {
		t.Fatalf("both queries share handle %d", p1.Handle())
	}

	// Complete in reverse submission order: correlation is by handle, not
	// by order.
	b.Complete(native.QueryCompleted{Handle: p2.Handle()})
	b.Complete(native.QueryCompleted{Handle: p1.Handle(), IOFailure: true})

	ev2, err := p2.Wait(context.Background())
	if err != nil || ev2.Handle != p2.Handle() || ev2.IOFailure {
		t.Errorf("p2 resolved to (%+v, %v), want clean completion of its own handle", ev2, err)
	}
	ev1, err := p1.Wait(context.Background())
	if err != nil || ev1.Handle != p1.Handle() || !ev1.IOFailure {
		t.Errorf("p1 resolved to (%+v, %v), want IOFailure completion of its own handle", ev1, err)
	}
}

func TestUnknownHandleDropped(t *testing.T) {
	svc := sim.New()
	b := New(svc)

	// Must not panic or disturb unrelated state.
	b.Complete(native.QueryCompleted{Handle: 999})
	if got := b.PendingCount(); got != 0 {
		t.Fatalf("PendingCount = %d, want 0", got)
	}
}

func TestAbandonedWaitReleasesHandleOnArrival(t *testing.T) {
	svc := sim.New()
	svc.Hold()
	b := New(svc)

	p := submitDetail(t, b, svc, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait error = %v, want context.Canceled", err)
	}

	// The completion arrives after the waiter gave up: the bridge owns the
	// release now.
	b.Complete(native.QueryCompleted{Handle: p.Handle()})
	if got := svc.ReleaseCount(p.Handle()); got != 1 {
		t.Errorf("ReleaseCount = %d, want exactly 1", got)
	}
	if got := b.PendingCount(); got != 0 {
		t.Errorf("PendingCount = %d, want 0", got)
	}
}

func TestAwaitPersonaTimesOutAndCleansUp(t *testing.T) {
	svc := sim.New()
	b := New(svc)

	start := time.Now()
	if b.AwaitPersona(42, 50*time.Millisecond) {
		t.Fatal("AwaitPersona reported an update that never arrived")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("AwaitPersona took %v, want ~50ms", elapsed)
	}
	if got := b.PersonaWaiterCount(42); got != 0 {
		t.Errorf("PersonaWaiterCount after timeout = %d, want 0", got)
	}
}

func TestAwaitPersonaSignaled(t *testing.T) {
	svc := sim.New()
	b := New(svc)

	done := make(chan bool, 1)
	go func() {
		done <- b.AwaitPersona(42, 5*time.Second)
	}()

	// Give the waiter time to register, then signal it.
	for i := 0; i < 100; i++ {
		if b.PersonaWaiterCount(42) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	b.CompletePersona(native.PersonaUpdated{UserID: 42})

	select {
	case got := <-done:
		if !got {
			t.Error("AwaitPersona = false, want true after signal")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("AwaitPersona did not return after signal")
	}
	if got := b.PersonaWaiterCount(42); got != 0 {
		t.Errorf("PersonaWaiterCount after signal = %d, want 0", got)
	}
}
