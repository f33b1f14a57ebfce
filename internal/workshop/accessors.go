package workshop

import (
	"go-workshop-client/internal/models"
)

// Point queries below read synchronously-available native state. They always
// succeed structurally: unknown items produce zero-valued results.

// DownloadStatus returns the item's instantaneous lifecycle flags.
func (c *Client) DownloadStatus(id models.ItemID) models.ItemState {
	return c.svc.ItemState(id)
}

// InstallInfo returns the item's on-disk installation details. No network
// round trip is involved.
func (c *Client) InstallInfo(id models.ItemID) models.InstallInfo {
	info := c.svc.InstallInfo(id)
	info.ID = id
	return info
}

// DownloadInfo returns the byte counters for an in-progress transfer.
func (c *Client) DownloadInfo(id models.ItemID) models.DownloadProgress {
	progress := c.svc.DownloadInfo(id)
	progress.ID = id
	return progress
}
