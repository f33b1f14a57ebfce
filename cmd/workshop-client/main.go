package main

import (
	"go-workshop-client/cmd/workshop-client/cmd"
)

func main() {
	// Execute the root command (defined in cmd/root.go)
	cmd.Execute()
}
