package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-workshop-client/internal/database"
	"go-workshop-client/internal/helpers"
	"go-workshop-client/internal/models"
)

// dbCmd represents the base command for detail cache operations
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the local detail cache",
	Long:  `Perform operations like viewing or pruning records cached by the details command.`,
	// No Run function for the base db command itself
}

// dbViewCmd lists cached detail records
var dbViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View cached detail records",
	Run:   runDbView,
}

// dbCleanCmd removes cached records
var dbCleanCmd = &cobra.Command{
	Use:   "clean [ITEM_ID]...",
	Short: "Remove cached detail records",
	Long: `Removes the named records from the cache, or with --all removes every
cached record.`,
	Run: runDbClean,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbViewCmd)
	dbCmd.AddCommand(dbCleanCmd)

	dbCleanCmd.Flags().Bool("all", false, "Remove every cached record")
}

func runDbView(cmd *cobra.Command, args []string) {
	log.Debug("Viewing cached detail records...")

	db, err := database.Open(globalConfig.CachePath)
	if err != nil {
		log.WithError(err).Fatalf("Failed to open detail cache at %s", globalConfig.CachePath)
	}
	defer db.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTitle\tOwner\tSize\tChildren\tFetched")
	fmt.Fprintln(tw, "--\t-----\t-----\t----\t--------\t-------")

	count := 0
	err = db.FoldDetails(func(entry models.CacheEntry) error {
		rec := entry.Record
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%s\n",
			rec.ID, rec.Title, rec.OwnerID, helpers.BytesToSize(rec.SizeBytes), rec.Children,
			time.Unix(entry.FetchedAt, 0).Format("2006-01-02 15:04:05"))
		count++
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Error iterating cache entries")
	}
	if err := tw.Flush(); err != nil {
		log.WithError(err).Warn("Error flushing output")
	}
	fmt.Printf("\n%d cached record(s).\n", count)
}

func runDbClean(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	if !all && len(args) == 0 {
		log.Fatal("Provide item ids to remove, or --all to clear the cache.")
	}

	db, err := database.Open(globalConfig.CachePath)
	if err != nil {
		log.WithError(err).Fatalf("Failed to open detail cache at %s", globalConfig.CachePath)
	}
	defer db.Close()

	var targets []models.ItemID
	if all {
		err := db.FoldDetails(func(entry models.CacheEntry) error {
			targets = append(targets, entry.Record.ID)
			return nil
		})
		if err != nil {
			log.WithError(err).Fatal("Error collecting cache entries")
		}
	} else {
		targets, err = parseItemIDs(args)
		if err != nil {
			log.WithError(err).Fatal("Invalid item id")
		}
	}

	removed := 0
	for _, id := range targets {
		if err := db.DeleteDetail(id); err != nil {
			log.WithError(err).Warnf("Failed to remove cached record for item %d", id)
			continue
		}
		removed++
	}
	fmt.Printf("Removed %d cached record(s).\n", removed)
}
