package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// itemsCmd groups subscription management commands.
var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage item subscriptions",
}

// itemsListCmd lists the current user's subscribed items.
var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribed items",
	RunE:  runItemsList,
}

// itemsSubscribeCmd subscribes to items.
var itemsSubscribeCmd = &cobra.Command{
	Use:   "subscribe [ITEM_ID]...",
	Short: "Subscribe to items",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runItemsSubscribe,
}

// itemsUnsubscribeCmd unsubscribes from items.
var itemsUnsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe [ITEM_ID]...",
	Short: "Unsubscribe from items",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runItemsUnsubscribe,
}

func init() {
	rootCmd.AddCommand(itemsCmd)
	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsSubscribeCmd)
	itemsCmd.AddCommand(itemsUnsubscribeCmd)
}

func runItemsList(cmd *cobra.Command, args []string) error {
	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	items := client.SubscribedItems()
	if len(items) == 0 {
		fmt.Println("No subscribed items.")
		return nil
	}
	for _, id := range items {
		fmt.Println(id)
	}
	return nil
}

func runItemsSubscribe(cmd *cobra.Command, args []string) error {
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
		client.Subscribe(id)
		log.Infof("Subscribed to item %d", id)
	}
	return nil
}

func runItemsUnsubscribe(cmd *cobra.Command, args []string) error {
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
		client.Unsubscribe(id)
		log.Infof("Unsubscribed from item %d", id)
	}
	return nil
}
