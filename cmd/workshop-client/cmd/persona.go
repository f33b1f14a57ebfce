package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// personaCmd resolves a user's display name.
var personaCmd = &cobra.Command{
	Use:   "persona [USER_ID]",
	Short: "Resolve a user's display name",
	Long: `Requests a refresh of the cached user info and waits (bounded) for it to
land, then prints the display name. Prints nothing when the name cannot be
resolved.`,
	Args: cobra.ExactArgs(1),
	RunE: runPersona,
}

func init() {
	rootCmd.AddCommand(personaCmd)
}

func runPersona(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", args[0], err)
	}

	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	name := client.ResolveDisplayName(userID)
	if name == "" {
		fmt.Printf("No display name available for user %d.\n", userID)
		return nil
	}
	fmt.Println(name)
	return nil
}
