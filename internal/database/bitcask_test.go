package database

import (
	"errors"
	"path/filepath"
	"testing"

	"go-workshop-client/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("opening test cache: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetRoundtrip(t *testing.T) {
	db := openTestDB(t)

	key := []byte("raw-key")
	value := []byte(`{"some":"payload that should survive compression"}`)
	if err := db.Put(key, value); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if !db.Has(key) {
		t.Error("Has = false after Put")
	}

	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("Get = %q, want %q", got, value)
	}
}

func TestGetMissingKey(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Get([]byte("absent")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on missing key = %v, want ErrNotFound", err)
	}
}

func TestDetailRoundtrip(t *testing.T) {
	db := openTestDB(t)

	rec := models.DetailRecord{
		ID:          123456,
		Result:      models.ResultOK,
		Title:       "Cave System",
		Description: "A sprawling network of tunnels.",
		OwnerID:     76561198000000001,
		SizeBytes:   2048,
		Children:    2,
	}
	if err := db.PutDetail(rec); err != nil {
		t.Fatalf("PutDetail returned error: %v", err)
	}

	entry, err := db.GetDetail(rec.ID)
	if err != nil {
		t.Fatalf("GetDetail returned error: %v", err)
	}
	if entry.Record != rec {
		t.Errorf("cached record = %+v, want %+v", entry.Record, rec)
	}
	if entry.FetchedAt == 0 {
		t.Error("FetchedAt was not stamped")
	}

	if err := db.DeleteDetail(rec.ID); err != nil {
		t.Fatalf("DeleteDetail returned error: %v", err)
	}
	if _, err := db.GetDetail(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDetail after delete = %v, want ErrNotFound", err)
	}
}

func TestDeleteDetailMissingIsNotAnError(t *testing.T) {
	db := openTestDB(t)

	if err := db.DeleteDetail(99999); err != nil {
		t.Errorf("DeleteDetail on missing item = %v, want nil", err)
	}
}

func TestFoldDetailsSkipsForeignAndCorruptKeys(t *testing.T) {
	db := openTestDB(t)

	if err := db.PutDetail(models.DetailRecord{ID: 1, Title: "Keep"}); err != nil {
		t.Fatalf("PutDetail returned error: %v", err)
	}
	// A key outside the detail namespace and a corrupt detail entry must
	// both be skipped without aborting the fold.
	if err := db.Put([]byte("meta_version"), []byte("7")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := db.Put([]byte("i_999"), []byte("not json")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	var seen []models.ItemID
	err := db.FoldDetails(func(entry models.CacheEntry) error {
		seen = append(seen, entry.Record.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("FoldDetails returned error: %v", err)
	}
	if len(seen) != 1 || seen[0] != 1 {
		t.Errorf("FoldDetails visited %v, want [1]", seen)
	}
}
