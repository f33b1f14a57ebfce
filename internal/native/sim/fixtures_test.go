package sim

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-workshop-client/internal/models"
)

const fixtureJSON = `{
  "items": [
    {
      "id": 100,
      "title": "Harbor Map",
      "description": "A coastal map.",
      "ownerId": 76561198000000001,
      "sizeBytes": 4096,
      "children": [101, 102],
      "subscribed": true,
      "installed": true,
      "folder": "/content/100",
      "lastUpdate": "2025-11-03T10:00:00Z"
    },
    {
      "id": 101,
      "title": "Harbor Textures",
      "sizeBytes": 1024
    },
    {
      "id": 0,
      "title": "Invalid, must be skipped"
    }
  ],
  "users": [
    {"id": 76561198000000001, "name": "harbormaster"}
  ]
}`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture file: %v", err)
	}
	return path
}

func TestLoadFixtures(t *testing.T) {
	svc := New()
	if err := svc.LoadFixtures(writeFixture(t, fixtureJSON)); err != nil {
		t.Fatalf("LoadFixtures returned error: %v", err)
	}

	state := svc.ItemState(100)
	if !state.Has(models.StateSubscribed | models.StateInstalled) {
		t.Errorf("item 100 state = %v, want Subscribed|Installed", state)
	}

	info := svc.InstallInfo(100)
	if info.Folder != "/content/100" {
		t.Errorf("install folder = %q, want /content/100", info.Folder)
	}
	// SizeOnDisk defaults to SizeBytes for installed fixtures that omit it.
	if info.SizeOnDisk != 4096 {
		t.Errorf("SizeOnDisk = %d, want 4096", info.SizeOnDisk)
	}
	want := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	if !info.LastUpdate.Equal(want) {
		t.Errorf("LastUpdate = %v, want %v", info.LastUpdate, want)
	}

	subs := svc.SubscribedItems()
	if len(subs) != 1 || subs[0] != 100 {
		t.Errorf("SubscribedItems = %v, want [100] (invalid fixture item must be skipped)", subs)
	}

	if svc.ItemState(101) != models.StateNone {
		t.Errorf("item 101 state = %v, want None", svc.ItemState(101))
	}
	if got := svc.PersonaName(76561198000000001); got != "harbormaster" {
		t.Errorf("PersonaName = %q, want harbormaster", got)
	}
}

func TestLoadFixturesErrors(t *testing.T) {
	svc := New()

	if err := svc.LoadFixtures(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing fixtures file")
	}
	if err := svc.LoadFixtures(writeFixture(t, "{not json")); err == nil {
		t.Error("expected error for malformed fixtures file")
	}
}
