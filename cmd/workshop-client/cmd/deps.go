package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// depsChildCount holds the value of the --count flag
var depsChildCount int

// depsCmd resolves the dependency (child) items of one item.
var depsCmd = &cobra.Command{
	Use:   "deps [ITEM_ID]",
	Short: "List an item's dependency items",
	Long: `Resolves the child items an item depends on. The expected child count is
taken from the item's detail record unless --count is given. Only the first
results page (50 children) is available from the native layer.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)
	depsCmd.Flags().IntVar(&depsChildCount, "count", 0, "Expected child count (skips the detail lookup)")
}

func runDeps(cmd *cobra.Command, args []string) error {
	id, err := parseItemID(args[0])
	if err != nil {
		return err
	}

	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	count := depsChildCount
	if count <= 0 {
		rec, err := client.GetItemDetails(ctx, id, false)
		if err != nil {
			return fmt.Errorf("looking up child count for item %d: %w", id, err)
		}
		count = rec.Children
	}

	children, err := client.GetDependencies(ctx, id, count)
	if err != nil {
		return fmt.Errorf("resolving dependencies for item %d: %w", id, err)
	}
	if len(children) == 0 {
		fmt.Printf("Item %d has no dependencies.\n", id)
		return nil
	}
	fmt.Printf("Item %d depends on %d item(s):\n", id, len(children))
	for _, child := range children {
		fmt.Printf("  %d\n", child)
	}
	return nil
}
