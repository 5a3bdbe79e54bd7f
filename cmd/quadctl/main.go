package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quadtask/quadtask/cmd/quadctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "quadctl",
		Short: "Operations tool for the quadtask API",
		Long:  "CLI tool for inspecting the quadrant matrix and managing task overrides",
	}

	rootCmd.AddCommand(commands.NewBucketsCmd())
	rootCmd.AddCommand(commands.NewMoveCmd())
	rootCmd.AddCommand(commands.NewResetCmd())
	rootCmd.AddCommand(commands.NewAuditCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
