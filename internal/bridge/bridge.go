// Package bridge converts the native layer's "submit a call, later receive a
// global completion notification" pattern into per-call one-shot completion
// signals a single caller can wait on.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"go-workshop-client/internal/native"
)

// ErrUnavailable is returned by Submit when the native service cannot accept
// requests. Callers may retry later; the bridge never retries on its own.
var ErrUnavailable = errors.New("native service unavailable")

// Bridge correlates completion notifications to outstanding call handles.
// Exactly one goroutine (the client's dispatch loop) feeds completions in via
// Complete and CompletePersona; any number of goroutines may submit and wait.
type Bridge struct {
	svc native.Service

	mu      sync.Mutex
	pending map[native.CallHandle]*Pending
	persona map[uint64][]chan struct{}
}

// New returns a bridge over svc. The bridge does not drain svc's
// notification channel itself; the owner routes QueryCompleted and
// PersonaUpdated events into Complete / CompletePersona.
func New(svc native.Service) *Bridge {
	return &Bridge{
		svc:     svc,
		pending: make(map[native.CallHandle]*Pending),
		persona: make(map[uint64][]chan struct{}),
	}
}

// Pending is the single-assignment completion slot for one outstanding
// native call. It is owned by exactly one waiter and is never reused.
type Pending struct {
	b      *Bridge
	handle native.CallHandle

	done      chan native.QueryCompleted // buffered, cap 1
	abandoned bool                       // guarded by b.mu
}

// Handle returns the native call handle this record tracks.
func (p *Pending) Handle() native.CallHandle {
	return p.handle
}

// Submit runs the native submission while holding the registry lock, so the
// completion notification cannot race past registration, and returns the
// pending record to wait on. Fails fast with ErrUnavailable when the service
// is down; nothing is submitted in that case.
func (b *Bridge) Submit(run func() (native.CallHandle, error)) (*Pending, error) {
	if !b.svc.Available() {
		return nil, ErrUnavailable
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handle, err := run()
	if err != nil {
		return nil, err
	}
	if _, exists := b.pending[handle]; exists {
		// The service must not hand out a handle that is still
		// outstanding. Treat it as a hard fault rather than clobbering
		// the earlier waiter.
		log.WithField("handle", handle).Error("Native layer reissued an outstanding call handle")
		return nil, errors.New("call handle already outstanding")
	}

	p := &Pending{
		b:      b,
		handle: handle,
		done:   make(chan native.QueryCompleted, 1),
	}
	b.pending[handle] = p
	log.WithField("handle", handle).Debug("Registered pending native call")
	return p, nil
}

// Wait blocks until the matching completion arrives or ctx is done. On
// context cancellation the native call keeps running (the layer offers no
// cancellation); the bridge takes over releasing the query handle when the
// orphaned completion eventually shows up, so abandoning a wait never leaks.
func (p *Pending) Wait(ctx context.Context) (native.QueryCompleted, error) {
	select {
	case ev := <-p.done:
		return ev, nil
	case <-ctx.Done():
	}

	b := p.b
	b.mu.Lock()
	if _, outstanding := b.pending[p.handle]; outstanding {
		p.abandoned = true
		b.mu.Unlock()
		return native.QueryCompleted{}, ctx.Err()
	}
	b.mu.Unlock()

	// Completion was dispatched while we were timing out; it is sitting in
	// the buffered slot. Consume it and release the handle ourselves.
	ev := <-p.done
	b.svc.ReleaseQuery(ev.Handle)
	return native.QueryCompleted{}, ctx.Err()
}

// Complete resolves the pending record matching ev.Handle, if any. Called
// from the dispatch goroutine. Notifications with no matching waiter are
// dropped; an abandoned waiter's query handle is released here.
func (b *Bridge) Complete(ev native.QueryCompleted) {
	b.mu.Lock()
	p, ok := b.pending[ev.Handle]
	if ok {
		delete(b.pending, ev.Handle)
	}
	abandoned := ok && p.abandoned
	b.mu.Unlock()

	if !ok {
		log.WithField("handle", ev.Handle).Warn("Completion notification for unknown call handle, dropping")
		return
	}
	if abandoned {
		log.WithField("handle", ev.Handle).Debug("Releasing query handle for abandoned wait")
		b.svc.ReleaseQuery(ev.Handle)
		return
	}
	// The record was removed from the map above, so this send happens at
	// most once per handle; cap-1 buffer means it never blocks dispatch.
	p.done <- ev
}

// PendingCount reports the number of outstanding calls.
func (b *Bridge) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// AwaitPersona blocks until a PersonaUpdated notification for userID arrives
// or timeout elapses, and reports which happened. The waiter registration is
// removed on every exit path.
//
// Must not be called from the dispatch goroutine: the notification it waits
// for is delivered by that goroutine.
func (b *Bridge) AwaitPersona(userID uint64, timeout time.Duration) bool {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	b.persona[userID] = append(b.persona[userID], ch)
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		b.removePersonaWaiter(userID, ch)
		return false
	}
}

func (b *Bridge) removePersonaWaiter(userID uint64, ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	waiters := b.persona[userID]
	for i, w := range waiters {
		if w == ch {
			b.persona[userID] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(b.persona[userID]) == 0 {
		delete(b.persona, userID)
	}
}

// CompletePersona signals every waiter currently registered for ev.UserID.
// Called from the dispatch goroutine.
func (b *Bridge) CompletePersona(ev native.PersonaUpdated) {
	b.mu.Lock()
	waiters := b.persona[ev.UserID]
	delete(b.persona, ev.UserID)
	b.mu.Unlock()

	for _, ch := range waiters {
		ch <- struct{}{} // cap 1, never blocks
	}
}

// PersonaWaiterCount reports the number of registered persona waiters for
// userID. Used to verify cleanup.
func (b *Bridge) PersonaWaiterCount(userID uint64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.persona[userID])
}
