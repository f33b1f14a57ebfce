package cmd

import (
	"fmt"
	"time"

	"github.com/gosuri/uilive"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-workshop-client/internal/helpers"
	"go-workshop-client/internal/models"
)

// downloadCmd starts an item download and follows its progress.
var downloadCmd = &cobra.Command{
	Use:   "download [ITEM_ID]",
	Short: "Download an item and wait for completion",
	Long: `Requests a download from the native layer (fire-and-forget) and then
follows the transfer: byte counters are polled while the completion event is
awaited on the relay. Use --no-wait to return immediately after submitting.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().Bool("no-wait", false, "Submit the download and exit without waiting")
	downloadCmd.Flags().Int("wait-timeout", 600, "Seconds to wait for the completion event")
	// Bind to viper so the poll interval can also come from config/env
	downloadCmd.Flags().Int("poll-ms", 250, "Progress poll interval in milliseconds")
	if err := viper.BindPFlag("download.poll_ms", downloadCmd.Flags().Lookup("poll-ms")); err != nil {
		log.WithError(err).Warn("Failed to bind poll-ms flag")
	}
}

func runDownload(cmd *cobra.Command, args []string) error {
	id, err := parseItemID(args[0])
	if err != nil {
		return err
	}
	noWait, _ := cmd.Flags().GetBool("no-wait")
	waitTimeout, _ := cmd.Flags().GetInt("wait-timeout")

	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	// Register before submitting so a fast completion cannot be missed.
	done := make(chan models.DownloadCompleted, 1)
	cancel := client.OnDownloadCompleted(func(ev models.DownloadCompleted) {
		if ev.ID != id {
			return
		}
		select {
		case done <- ev:
		default:
		}
	})
	defer cancel()

	client.DownloadItem(id)
	log.Infof("Download requested for item %d", id)
	if noWait {
		return nil
	}

	pollInterval := time.Duration(viper.GetInt("download.poll_ms")) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}

	writer := uilive.New()
	writer.Start()
	defer writer.Stop()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(time.Duration(waitTimeout) * time.Second)
	defer deadline.Stop()

	for {
		select {
		case ev := <-done:
			if ev.Result.OK() {
				fmt.Fprintf(writer, "Item %d downloaded.\n", id)
				return nil
			}
			fmt.Fprintf(writer, "Item %d download failed: %s\n", id, ev.Result)
			return fmt.Errorf("download of item %d failed: %s", id, ev.Result)
		case <-ticker.C:
			progress := client.DownloadInfo(id)
			if progress.BytesTotal > 0 {
				fmt.Fprintf(writer, "Downloading item %d: %s / %s\n", id,
					helpers.BytesToSize(progress.BytesProcessed), helpers.BytesToSize(progress.BytesTotal))
			} else {
				fmt.Fprintf(writer, "Downloading item %d: waiting for transfer to start...\n", id)
			}
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for item %d to finish downloading", id)
		}
	}
}
