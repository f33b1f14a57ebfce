// Package events bridges the native layer's persistent item-download-finished
// notification stream into a subscription model the host can attach to and
// detach from freely.
package events

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"go-workshop-client/internal/models"
)

// Handler receives one download-completed event. Handlers run on the
// dispatch goroutine and should return quickly.
type Handler func(models.DownloadCompleted)

// Relay fans download-completed notifications out to registered handlers.
// Registration and removal are safe to perform concurrently with in-flight
// dispatch.
type Relay struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]Handler
}

// NewRelay returns an empty relay.
func NewRelay() *Relay {
	return &Relay{subs: make(map[int]Handler)}
}

// Subscribe registers fn and returns a cancel function that removes it.
// Calling cancel more than once is harmless.
func (r *Relay) Subscribe(fn Handler) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	log.WithField("subscriber", id).Debug("Registered download-completed subscriber")
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Dispatch forwards ev to every handler registered at this moment. The
// subscriber set is snapshotted under the lock, then handlers run outside it
// so they may subscribe or unsubscribe without deadlocking.
func (r *Relay) Dispatch(ev models.DownloadCompleted) {
	r.mu.Lock()
	handlers := make([]Handler, 0, len(r.subs))
	for _, fn := range r.subs {
		handlers = append(handlers, fn)
	}
	r.mu.Unlock()

	log.WithFields(log.Fields{
		"item":        ev.ID,
		"result":      ev.Result,
		"subscribers": len(handlers),
	}).Debug("Dispatching download-completed event")

	for _, fn := range handlers {
		fn(ev)
	}
}

// SubscriberCount reports the number of registered handlers.
func (r *Relay) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
