package index

import (
	"os"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	log "github.com/sirupsen/logrus"

	"go-workshop-client/internal/models"
)

const defaultIndexPath = "workshop.bleve"

// Item is one searchable entry built from a cached detail record. All fields
// are indexed under their lowercase JSON tag names (e.g. query
// '+ownerId:76561198000000000' or '+title:dungeon').
type Item struct {
	ID          string  `json:"id"`    // "i_<item id>"
	Title       string  `json:"title"` // item title from the detail record
	Description string  `json:"description"`
	OwnerID     string  `json:"ownerId"`             // stringified so exact-match queries work
	SizeBytes   float64 `json:"sizeBytes,omitempty"` // bleve numeric fields are float64
	Children    float64 `json:"children,omitempty"`

	FetchedAt time.Time `json:"fetchedAt,omitempty"` // when the record was cached

	// Install-side fields (populated when the item is installed locally)
	InstallFolder string `json:"installFolder,omitempty"`

	// Torrent information (populated by the 'torrent' command)
	TorrentPath string `json:"torrentPath,omitempty"` // path to the generated .torrent file
	MagnetLink  string `json:"magnetLink,omitempty"`
	ContentHash string `json:"contentHash,omitempty"` // BLAKE3 of the primary content file
}

// FromRecord builds an index entry from a cached detail record.
func FromRecord(entry models.CacheEntry) Item {
	rec := entry.Record
	return Item{
		ID:          "i_" + strconv.FormatUint(uint64(rec.ID), 10),
		Title:       rec.Title,
		Description: rec.Description,
		OwnerID:     strconv.FormatUint(rec.OwnerID, 10),
		SizeBytes:   float64(rec.SizeBytes),
		Children:    float64(rec.Children),
		FetchedAt:   time.Unix(entry.FetchedAt, 0),
	}
}

// OpenOrCreateIndex opens an existing bleve index or creates a new one if it
// doesn't exist.
func OpenOrCreateIndex(indexPath string) (bleve.Index, error) {
	if indexPath == "" {
		indexPath = defaultIndexPath
	}

	idx, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		log.Infof("Creating new index at: %s", indexPath)
		mapping := bleve.NewIndexMapping()
		idx, err = bleve.New(indexPath, mapping)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		log.Debugf("Opened existing index at: %s", indexPath)
	}
	return idx, nil
}

// IndexItem adds or updates an item in the index.
func IndexItem(idx bleve.Index, item Item) error {
	return idx.Index(item.ID, item)
}

// SearchIndex runs a query-string search against the index.
func SearchIndex(idx bleve.Index, query string) (*bleve.SearchResult, error) {
	searchQuery := bleve.NewQueryStringQuery(query)
	searchRequest := bleve.NewSearchRequest(searchQuery)
	searchRequest.Fields = []string{"*"} // Request all stored fields
	return idx.Search(searchRequest)
}

// DeleteIndex removes the index directory. Use with caution!
func DeleteIndex(indexPath string) error {
	if indexPath == "" {
		indexPath = defaultIndexPath
	}
	log.Warnf("Deleting index at: %s", indexPath)
	return os.RemoveAll(indexPath)
}
