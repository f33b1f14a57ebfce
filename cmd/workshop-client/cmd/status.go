package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-workshop-client/internal/helpers"
	"go-workshop-client/internal/models"
)

// statusCmd reads an item's instantaneous native state.
var statusCmd = &cobra.Command{
	Use:   "status [ITEM_ID]...",
	Short: "Show lifecycle state, install info and download progress for items",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ids, err := parseItemIDs(args)
	if err != nil {
		return err
	}

	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	for _, id := range ids {
		state := client.DownloadStatus(id)
		fmt.Printf("Item %d: %s\n", id, state)

		if state.Has(models.StateInstalled) {
			info := client.InstallInfo(id)
			fmt.Printf("  Installed: %s in %s", helpers.BytesToSize(info.SizeOnDisk), info.Folder)
			if !info.LastUpdate.IsZero() {
				fmt.Printf(" (updated %s)", info.LastUpdate.Format("2006-01-02 15:04:05"))
			}
			fmt.Println()
		}
		if state.Has(models.StateDownloading) || state.Has(models.StateDownloadPending) {
			progress := client.DownloadInfo(id)
			fmt.Printf("  Downloading: %s / %s\n",
				helpers.BytesToSize(progress.BytesProcessed), helpers.BytesToSize(progress.BytesTotal))
		}
	}
	return nil
}
