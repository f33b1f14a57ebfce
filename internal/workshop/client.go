// Package workshop exposes the native content-distribution service as
// ordinary request/response calls. Asynchronous native operations are
// correlated back to their callers by the bridge package; the persistent
// download-completed stream is surfaced through the events package.
package workshop

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"go-workshop-client/internal/bridge"
	"go-workshop-client/internal/events"
	"go-workshop-client/internal/models"
	"go-workshop-client/internal/native"
)

// Sentinel errors surfaced by the client.
var (
	// ErrInvalidArgument marks rejected input (missing ids, batch over the
	// native cap). Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrServiceUnavailable means the native layer is not reachable. It is
	// distinct from an empty result so callers can tell "service down"
	// from "nothing found". Callers may retry at their discretion.
	ErrServiceUnavailable = bridge.ErrUnavailable

	// ErrQueryFailed means the native layer flagged the completed query
	// with an I/O failure.
	ErrQueryFailed = errors.New("native query failed")
)

// Client is the host-facing surface. Create one per native service
// connection and Close it on shutdown.
type Client struct {
	svc    native.Service
	bridge *bridge.Bridge
	relay  *events.Relay

	personaTimeout time.Duration

	stopOnce sync.Once
	stopped  chan struct{} // closed when the dispatch loop exits
}

// Option adjusts client construction.
type Option func(*Client)

// WithPersonaTimeout overrides the bound on ResolveDisplayName's wait.
func WithPersonaTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.personaTimeout = d
		}
	}
}

// New wires a client over svc and starts the dispatch goroutine that drains
// the service's notification stream. The native layer delivers every
// completion on that single stream; draining it from one goroutine preserves
// the SDK's cooperative dispatch discipline.
func New(svc native.Service, opts ...Option) *Client {
	c := &Client{
		svc:            svc,
		bridge:         bridge.New(svc),
		relay:          events.NewRelay(),
		personaTimeout: models.DefaultPersonaTimeout,
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.dispatch()
	return c
}

// dispatch is the single notification pump. It routes each event class to
// its consumer and exits when the service closes its stream.
func (c *Client) dispatch() {
	defer close(c.stopped)
	for n := range c.svc.Notifications() {
		switch ev := n.(type) {
		case native.QueryCompleted:
			c.bridge.Complete(ev)
		case native.DownloadCompleted:
			c.relay.Dispatch(models.DownloadCompleted{ID: ev.Item, Result: ev.Result})
		case native.PersonaUpdated:
			c.bridge.CompletePersona(ev)
		default:
			log.Warnf("Unhandled native notification type %T", n)
		}
	}
	log.Debug("Native notification stream closed, dispatch loop exiting")
}

// Close waits for the dispatch loop to finish. The native service owns the
// notification channel; closing that channel (by tearing down the service
// connection) unblocks Close. In-flight queries are abandoned, not
// cancelled: the native layer offers no cancellation.
func (c *Client) Close() {
	c.stopOnce.Do(func() {
		<-c.stopped
	})
}

// SubscribedItems returns the ids the current user is subscribed to, in the
// order the native layer reports them.
func (c *Client) SubscribedItems() []models.ItemID {
	return c.svc.SubscribedItems()
}

// Subscribe records interest in an item. Fire-and-forget.
func (c *Client) Subscribe(id models.ItemID) {
	c.svc.Subscribe(id)
}

// Unsubscribe removes interest in an item. Fire-and-forget.
func (c *Client) Unsubscribe(id models.ItemID) {
	c.svc.Unsubscribe(id)
}

// DownloadItem asks the native layer to transfer an item. It returns
// immediately; completion is observed asynchronously through
// OnDownloadCompleted, regardless of which caller triggered the download.
func (c *Client) DownloadItem(id models.ItemID) {
	log.WithField("item", id).Debug("Requesting item download")
	c.svc.Download(id)
}

// OnDownloadCompleted registers fn for download-completed events and returns
// a cancel function. Safe to call concurrently with event delivery.
func (c *Client) OnDownloadCompleted(fn events.Handler) (cancel func()) {
	return c.relay.Subscribe(fn)
}

// ResolveDisplayName requests a one-shot refresh of cached info for userID,
// waits up to the persona timeout for the refresh to land, then reads the
// (possibly still-stale) cached name. Timeout is best effort, not an error:
// the stale name is returned. If the refresh cannot be issued at all, the
// empty string is returned immediately.
//
// This call blocks the calling goroutine for up to the timeout. It must not
// be invoked from a download-completed handler: those run on the dispatch
// goroutine, which also delivers the refresh notification this call waits
// for, so it would deadlock until the timeout.
func (c *Client) ResolveDisplayName(userID uint64) string {
	if !c.svc.RequestUserInfo(userID) {
		log.WithField("user", userID).Debug("Persona refresh could not be issued")
		return ""
	}
	if !c.bridge.AwaitPersona(userID, c.personaTimeout) {
		log.WithField("user", userID).Debug("Persona refresh timed out, returning cached name")
	}
	return c.svc.PersonaName(userID)
}
