package models

import (
	"math"
	"strings"
	"time"
)

// ItemID identifies a piece of distributable content in the native workshop
// service. IDs are 64-bit and opaque; zero is never valid, and the native
// layer also rejects values that are negative when reinterpreted as signed.
type ItemID uint64

// Valid reports whether the ID can be submitted to the native layer.
func (id ItemID) Valid() bool {
	return id != 0 && id <= math.MaxInt64
}

// Result is the outcome code the native layer attaches to query rows and
// download notifications.
type Result int32

const (
	ResultNone Result = iota // no result reported yet
	ResultOK
	ResultFail
	ResultIOFailure
	ResultFileNotFound
)

// OK reports whether the result code signals success.
func (r Result) OK() bool {
	return r == ResultOK
}

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "None"
	case ResultOK:
		return "OK"
	case ResultFail:
		return "Fail"
	case ResultIOFailure:
		return "IOFailure"
	case ResultFileNotFound:
		return "FileNotFound"
	default:
		return "Unknown"
	}
}

// ItemState is the native layer's instantaneous lifecycle bitset for an item.
type ItemState uint32

const (
	StateNone            ItemState = 0
	StateSubscribed      ItemState = 1 << 0
	StateInstalled       ItemState = 1 << 1
	StateNeedsUpdate     ItemState = 1 << 2
	StateDownloading     ItemState = 1 << 3
	StateDownloadPending ItemState = 1 << 4
)

// Has reports whether every flag in mask is set.
func (s ItemState) Has(mask ItemState) bool {
	return s&mask == mask
}

func (s ItemState) String() string {
	if s == StateNone {
		return "None"
	}
	var parts []string
	if s.Has(StateSubscribed) {
		parts = append(parts, "Subscribed")
	}
	if s.Has(StateInstalled) {
		parts = append(parts, "Installed")
	}
	if s.Has(StateNeedsUpdate) {
		parts = append(parts, "NeedsUpdate")
	}
	if s.Has(StateDownloading) {
		parts = append(parts, "Downloading")
	}
	if s.Has(StateDownloadPending) {
		parts = append(parts, "DownloadPending")
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, "|")
}

type (
	// Config holds the settings loaded from config.toml, with flag overrides
	// applied by the root command.
	Config struct {
		// Paths
		CachePath string `toml:"CachePath"` // bitcask detail cache
		IndexPath string `toml:"IndexPath"` // bleve search index

		// Simulated native service (fixtures mode)
		FixturesPath string `toml:"FixturesPath"`

		// Behavior
		PersonaTimeoutMs int      `toml:"PersonaTimeoutMs"`
		Trackers         []string `toml:"Trackers"` // default announce URLs for the torrent command

		// Other
		LogNativeCalls bool `toml:"LogNativeCalls"`
	}

	// DetailRecord is the result of a metadata query for one item. Immutable
	// once returned; a failed lookup is a record whose Result is not OK,
	// never an error.
	DetailRecord struct {
		ID          ItemID `json:"id"`
		Result      Result `json:"result"`
		Title       string `json:"title"`
		Description string `json:"description"` // truncated unless the full description was requested
		OwnerID     uint64 `json:"ownerId"`
		SizeBytes   uint64 `json:"sizeBytes"`
		Children    int    `json:"children"` // number of dependency items
	}

	// InstallInfo describes an item's on-disk installation. Derived
	// synchronously from native state; fields are zero when the item is not
	// installed.
	InstallInfo struct {
		ID         ItemID    `json:"id"`
		SizeOnDisk uint64    `json:"sizeOnDisk"`
		Folder     string    `json:"folder"`
		LastUpdate time.Time `json:"lastUpdate"`
	}

	// DownloadProgress reports byte counters for an in-flight download.
	// Zero-valued when no transfer is active for the item.
	DownloadProgress struct {
		ID             ItemID `json:"id"`
		BytesProcessed uint64 `json:"bytesProcessed"`
		BytesTotal     uint64 `json:"bytesTotal"`
	}

	// DownloadCompleted is delivered to relay subscribers when the native
	// layer finishes transferring an item, regardless of which caller
	// started the download. Transient; not persisted.
	DownloadCompleted struct {
		ID     ItemID `json:"id"`
		Result Result `json:"result"`
	}

	// CacheEntry is the value stored in the local detail cache for each
	// fetched record.
	CacheEntry struct {
		Record    DetailRecord `json:"record"`
		FetchedAt int64        `json:"fetchedAt"` // unix seconds
	}
)

// DefaultPersonaTimeout bounds the display-name refresh wait.
const DefaultPersonaTimeout = 5 * time.Second
