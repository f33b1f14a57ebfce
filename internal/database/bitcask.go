package database

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"git.mills.io/prologic/bitcask"
	log "github.com/sirupsen/logrus"

	"go-workshop-client/internal/models"
)

// ErrNotFound is returned when a key is not found in the cache.
var ErrNotFound = errors.New("key not found")

// gzipMagicBytes are the first two bytes of a gzip stream.
var gzipMagicBytes = []byte{0x1f, 0x8b}

// detailKeyPrefix namespaces cached detail records.
const detailKeyPrefix = "i_"

// DB is the local cache of fetched detail records, backed by bitcask.
// Values are stored as gzip-compressed JSON.
type DB struct {
	db           *bitcask.Bitcask
	sync.RWMutex // guards concurrent access across CLI goroutines
}

// Open initializes and returns a DB instance, creating the parent directory
// if needed.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
		}
	}

	dbInstance, err := bitcask.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open detail cache at %s: %w", path, err)
	}
	log.Debugf("Detail cache opened at %s", path)
	return &DB{db: dbInstance}, nil
}

// Close safely closes the cache.
func (d *DB) Close() error {
	d.Lock()
	defer d.Unlock()
	return d.db.Close()
}

// Has checks if a key exists in the cache.
func (d *DB) Has(key []byte) bool {
	d.RLock()
	defer d.RUnlock()
	return d.db.Has(key)
}

// Get retrieves the value associated with a key, decompressing it if needed.
func (d *DB) Get(key []byte) ([]byte, error) {
	d.RLock()
	value, err := d.db.Get(key)
	d.RUnlock()

	if err != nil {
		if errors.Is(err, bitcask.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting key %s: %w", string(key), err)
	}
	return decompressIfGzipped(value)
}

// Put compresses and stores a key-value pair.
func (d *DB) Put(key []byte, value []byte) error {
	compressedValue, err := compressGzip(value, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("error compressing value for key %s: %w", string(key), err)
	}

	d.Lock()
	err = d.db.Put(key, compressedValue)
	d.Unlock()
	if err != nil {
		return fmt.Errorf("error putting key %s: %w", string(key), err)
	}
	return nil
}

// Delete removes a key from the cache.
func (d *DB) Delete(key []byte) error {
	d.Lock()
	err := d.db.Delete(key)
	d.Unlock()
	if err != nil {
		if errors.Is(err, bitcask.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("error deleting key %s: %w", string(key), err)
	}
	return nil
}

// Fold iterates over all key-value pairs, decompressing values before
// calling fn.
func (d *DB) Fold(fn func(key []byte, value []byte) error) error {
	d.RLock()
	defer d.RUnlock()

	return d.db.Fold(func(key []byte) error {
		rawValue, err := d.db.Get(key) // read lock already held
		if err != nil {
			log.WithError(err).Warnf("Fold: error getting value for key %s", string(key))
			return nil
		}
		value, err := decompressIfGzipped(rawValue)
		if err != nil {
			log.WithError(err).Warnf("Fold: error decompressing value for key %s", string(key))
			return nil
		}
		return fn(key, value)
	})
}

// --- Detail record helpers ---

func detailKey(id models.ItemID) []byte {
	return []byte(detailKeyPrefix + strconv.FormatUint(uint64(id), 10))
}

// PutDetail stores one fetched detail record, stamped with the current time.
func (d *DB) PutDetail(rec models.DetailRecord) error {
	entry := models.CacheEntry{Record: rec, FetchedAt: time.Now().Unix()}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("error marshalling cache entry for item %d: %w", rec.ID, err)
	}
	return d.Put(detailKey(rec.ID), data)
}

// GetDetail retrieves one cached record. Returns ErrNotFound when the item
// has never been fetched.
func (d *DB) GetDetail(id models.ItemID) (models.CacheEntry, error) {
	data, err := d.Get(detailKey(id))
	if err != nil {
		return models.CacheEntry{}, err
	}
	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return models.CacheEntry{}, fmt.Errorf("error unmarshalling cache entry for item %d: %w", id, err)
	}
	return entry, nil
}

// DeleteDetail removes one cached record. Missing entries are not an error.
func (d *DB) DeleteDetail(id models.ItemID) error {
	err := d.Delete(detailKey(id))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// FoldDetails iterates over every cached detail entry, skipping keys outside
// the detail namespace and entries that fail to decode.
func (d *DB) FoldDetails(fn func(entry models.CacheEntry) error) error {
	return d.Fold(func(key []byte, value []byte) error {
		if !strings.HasPrefix(string(key), detailKeyPrefix) {
			return nil
		}
		var entry models.CacheEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			log.WithError(err).Warnf("Failed to unmarshal cache entry for key %s, skipping", string(key))
			return nil
		}
		return fn(entry)
	})
}

// --- Compression helpers ---

// decompressIfGzipped decompresses the value if it carries a gzip header.
func decompressIfGzipped(value []byte) ([]byte, error) {
	if !bytes.HasPrefix(value, gzipMagicBytes) {
		return value, nil
	}
	gReader, err := gzip.NewReader(bytes.NewReader(value))
	if err != nil {
		log.WithError(err).Warn("Error creating gzip reader for value, returning raw data.")
		return value, nil
	}
	defer gReader.Close()

	decompressedValue, err := io.ReadAll(gReader)
	if err != nil {
		log.WithError(err).Warn("Error decompressing value, returning raw data.")
		return value, nil
	}
	return decompressedValue, nil
}

// compressGzip compresses the value with the given compression level.
func compressGzip(value []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	gWriter, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("error creating gzip writer: %w", err)
	}
	if _, err = gWriter.Write(value); err != nil {
		_ = gWriter.Close()
		return nil, fmt.Errorf("error writing compressed data: %w", err)
	}
	// Close must be called to flush buffers
	if err = gWriter.Close(); err != nil {
		return nil, fmt.Errorf("error closing gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}
