package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"go-workshop-client/internal/models"
)

type (
	// fixtureFile is the on-disk shape consumed by LoadFixtures.
	fixtureFile struct {
		Items []fixtureItem `json:"items"`
		Users []fixtureUser `json:"users"`
	}

	fixtureItem struct {
		ID          models.ItemID   `json:"id"`
		Title       string          `json:"title"`
		Description string          `json:"description"`
		OwnerID     uint64          `json:"ownerId"`
		SizeBytes   uint64          `json:"sizeBytes"`
		Children    []models.ItemID `json:"children,omitempty"`

		Subscribed bool   `json:"subscribed,omitempty"`
		Installed  bool   `json:"installed,omitempty"`
		SizeOnDisk uint64 `json:"sizeOnDisk,omitempty"`
		Folder     string `json:"folder,omitempty"`
		LastUpdate string `json:"lastUpdate,omitempty"` // RFC 3339
	}

	fixtureUser struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}
)

// LoadFixtures seeds the simulator from a JSON fixtures file.
func (s *Service) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading fixtures file %s: %w", path, err)
	}

	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("parsing fixtures file %s: %w", path, err)
	}

	for _, fi := range fixtures.Items {
		if !fi.ID.Valid() {
			log.WithField("id", fi.ID).Warn("Skipping fixture item with invalid id")
			continue
		}
		it := Item{
			ID:          fi.ID,
			Title:       fi.Title,
			Description: fi.Description,
			OwnerID:     fi.OwnerID,
			SizeBytes:   fi.SizeBytes,
			Children:    fi.Children,
			SizeOnDisk:  fi.SizeOnDisk,
			Folder:      fi.Folder,
		}
		if fi.Subscribed {
			it.State |= models.StateSubscribed
		}
		if fi.Installed {
			it.State |= models.StateInstalled
			if it.SizeOnDisk == 0 {
				it.SizeOnDisk = fi.SizeBytes
			}
		}
		if fi.LastUpdate != "" {
			ts, err := time.Parse(time.RFC3339, fi.LastUpdate)
			if err != nil {
				log.WithError(err).Warnf("Invalid lastUpdate for fixture item %d, ignoring", fi.ID)
			} else {
				it.LastUpdate = ts
			}
		}
		s.AddItem(it)
	}
	for _, fu := range fixtures.Users {
		s.AddUser(fu.ID, fu.Name)
	}

	log.Infof("Loaded %d fixture items and %d users from %s", len(fixtures.Items), len(fixtures.Users), path)
	return nil
}
