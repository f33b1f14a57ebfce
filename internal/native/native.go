package native

import (
	"go-workshop-client/internal/models"
)

// Limits documented by the native SDK.
const (
	// MaxQueryItems is the largest number of items one query call may
	// request. Batches over this cap are rejected by the service.
	MaxQueryItems = 50

	// MaxShortDescription is the byte limit the service applies to item
	// descriptions unless the full description is explicitly requested.
	MaxShortDescription = 255
)

// CallHandle is the opaque correlation token returned when an asynchronous
// native operation is submitted. The service never reuses a handle while the
// call it identifies is still outstanding.
type CallHandle uint64

// InvalidCallHandle is returned by submission calls that fail outright.
const InvalidCallHandle CallHandle = 0

// Notification is one event from the service's single global completion
// stream. Concrete types: QueryCompleted, DownloadCompleted, PersonaUpdated.
type Notification interface {
	notification()
}

// QueryCompleted signals that a previously submitted query call has a result
// ready. IOFailure set means the service could not produce results; the
// handle must still be released.
type QueryCompleted struct {
	Handle    CallHandle
	IOFailure bool
}

// DownloadCompleted signals that an item transfer finished, successfully or
// not. Emitted for every download the service performs, not only those the
// current process requested.
type DownloadCompleted struct {
	Item   models.ItemID
	Result models.Result
}

// PersonaUpdated signals that cached user info for UserID was refreshed.
type PersonaUpdated struct {
	UserID uint64
}

func (QueryCompleted) notification()    {}
func (DownloadCompleted) notification() {}
func (PersonaUpdated) notification()    {}

// Service is the boundary to the native content-distribution SDK. It is a
// fixed external capability: implementations bind a real SDK runtime or the
// in-memory simulator in the sim package.
//
// Asynchronous calls return a CallHandle; the matching QueryCompleted
// notification later appears on the Notifications channel. All notifications
// share that one channel and are drained by a single dispatch goroutine
// (see workshop.Client); Service implementations must not assume any other
// consumer.
type Service interface {
	// Available reports whether the service connection is usable. Checked
	// before every query submission; submissions while unavailable fail
	// fast without going to the native layer.
	Available() bool

	// SubmitDetailQuery starts a batched metadata lookup for up to
	// MaxQueryItems ids. fullDescription lifts the MaxShortDescription
	// truncation; includeChildren requests child-count resolution.
	SubmitDetailQuery(ids []models.ItemID, fullDescription, includeChildren bool) (CallHandle, error)

	// SubmitChildrenQuery starts a dependency enumeration for one item.
	SubmitChildrenQuery(id models.ItemID) (CallHandle, error)

	// ResultCount reports how many result slots the completed query holds.
	ResultCount(h CallHandle) int

	// Result materializes one result slot. ok is false when the service
	// cannot produce the row; such rows are skipped, not fatal.
	Result(h CallHandle, index int) (rec models.DetailRecord, ok bool)

	// Children reads back up to max child ids from one result slot. Only
	// the first results page (MaxQueryItems entries) is ever available.
	Children(h CallHandle, index, max int) ([]models.ItemID, bool)

	// ReleaseQuery frees the native resources held by a completed query.
	// Must be called exactly once per completed handle, on every exit path.
	ReleaseQuery(h CallHandle)

	// Synchronous per-item state reads. These never fail; unknown items
	// yield zero values.
	ItemState(id models.ItemID) models.ItemState
	InstallInfo(id models.ItemID) models.InstallInfo
	DownloadInfo(id models.ItemID) models.DownloadProgress

	// Subscription management. Subscribe/Unsubscribe/Download are
	// fire-and-forget; completion of a download is observed through a
	// DownloadCompleted notification.
	SubscribedItems() []models.ItemID
	Subscribe(id models.ItemID)
	Unsubscribe(id models.ItemID)
	Download(id models.ItemID)

	// RequestUserInfo asks the service to refresh cached info for a user.
	// Returns false when the request cannot be issued; otherwise a
	// PersonaUpdated notification follows.
	RequestUserInfo(userID uint64) bool

	// PersonaName reads the cached (possibly stale) display name.
	PersonaName(userID uint64) string

	// Notifications is the single global completion stream.
	Notifications() <-chan Notification
}
