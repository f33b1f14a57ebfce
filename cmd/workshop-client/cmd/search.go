package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-workshop-client/index"
	"go-workshop-client/internal/database"
	"go-workshop-client/internal/models"
)

// indexCmd rebuilds the search index from the detail cache.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the search index from the detail cache",
	RunE:  runIndex,
}

// searchCmd queries the search index.
var searchCmd = &cobra.Command{
	Use:   "search [QUERY]",
	Short: "Search cached detail records",
	Long: `Runs a bleve query-string search over the indexed detail records, e.g.:

  workshop-client search 'dungeon'
  workshop-client search '+ownerId:76561198000000001 +title:map'`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	db, err := database.Open(globalConfig.CachePath)
	if err != nil {
		return fmt.Errorf("opening detail cache: %w", err)
	}
	defer db.Close()

	idx, err := index.OpenOrCreateIndex(globalConfig.IndexPath)
	if err != nil {
		return fmt.Errorf("opening search index: %w", err)
	}
	defer idx.Close()

	indexed := 0
	err = db.FoldDetails(func(entry models.CacheEntry) error {
		item := index.FromRecord(entry)
		if err := index.IndexItem(idx, item); err != nil {
			log.WithError(err).Warnf("Failed to index item %s", item.ID)
			return nil
		}
		indexed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("iterating cache entries: %w", err)
	}
	fmt.Printf("Indexed %d record(s).\n", indexed)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	idx, err := index.OpenOrCreateIndex(globalConfig.IndexPath)
	if err != nil {
		return fmt.Errorf("opening search index: %w", err)
	}
	defer idx.Close()

	results, err := index.SearchIndex(idx, args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if results.Total == 0 {
		fmt.Println("No matches.")
		return nil
	}

	fmt.Printf("%d match(es):\n", results.Total)
	for _, hit := range results.Hits {
		title, _ := hit.Fields["title"].(string)
		fmt.Printf("  %s\t%s\t(score %.3f)\n", hit.ID, title, hit.Score)
	}
	return nil
}
