package cmd

import (
	"fmt"
	"strconv"

	"go-workshop-client/internal/models"
)

// parseItemID parses one command-line argument into an item id.
func parseItemID(arg string) (models.ItemID, error) {
	v, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q: %w", arg, err)
	}
	return models.ItemID(v), nil
}

// parseItemIDs parses a list of command-line arguments into item ids.
func parseItemIDs(args []string) ([]models.ItemID, error) {
	ids := make([]models.ItemID, 0, len(args))
	for _, arg := range args {
		id, err := parseItemID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
