package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-workshop-client/internal/database"
	"go-workshop-client/internal/helpers"
)

var (
	fullDescriptionFlag bool
	skipCacheFlag       bool
)

// detailsCmd fetches metadata for one or more items in a single batch query.
var detailsCmd = &cobra.Command{
	Use:   "details [ITEM_ID]...",
	Short: "Fetch metadata for one or more items",
	Long: `Fetches detail records for the given item ids with a single batched query
(at most 50 ids per invocation). Fetched records are written to the local
detail cache unless --no-cache is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetails,
}

func init() {
	rootCmd.AddCommand(detailsCmd)
	detailsCmd.Flags().BoolVar(&fullDescriptionFlag, "full-description", false, "Request untruncated item descriptions")
	detailsCmd.Flags().BoolVar(&skipCacheFlag, "no-cache", false, "Do not write fetched records to the detail cache")
}

func runDetails(cmd *cobra.Command, args []string) error {
	ids, err := parseItemIDs(args)
	if err != nil {
		return err
	}

	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := client.GetDetails(context.Background(), ids, fullDescriptionFlag)
	if err != nil {
		return fmt.Errorf("detail query failed: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No results.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTitle\tOwner\tSize\tChildren\tResult")
	fmt.Fprintln(tw, "--\t-----\t-----\t----\t--------\t------")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%s\n",
			rec.ID, rec.Title, rec.OwnerID, helpers.BytesToSize(rec.SizeBytes), rec.Children, rec.Result)
	}
	if err := tw.Flush(); err != nil {
		log.WithError(err).Warn("Error flushing output")
	}

	if skipCacheFlag {
		return nil
	}
	db, err := database.Open(globalConfig.CachePath)
	if err != nil {
		log.WithError(err).Warn("Could not open detail cache, skipping cache write")
		return nil
	}
	defer db.Close()
	for _, rec := range records {
		if err := db.PutDetail(rec); err != nil {
			log.WithError(err).Warnf("Failed to cache detail record for item %d", rec.ID)
		}
	}
	log.Debugf("Cached %d detail records", len(records))
	return nil
}
