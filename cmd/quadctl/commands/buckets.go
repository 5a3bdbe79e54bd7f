package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quadtask/quadtask/internal/matrix"
	"github.com/quadtask/quadtask/internal/models"
)

// quadrantLabels match the four matrix containers in display order.
var quadrantLabels = map[models.Quadrant]string{
	models.QuadrantQ1: "urgent & important",
	models.QuadrantQ2: "important, not urgent",
	models.QuadrantQ3: "urgent, not important",
	models.QuadrantQ4: "neither",
}

// NewBucketsCmd creates the buckets command
func NewBucketsCmd() *cobra.Command {
	var userFlag string

	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "Show a user's quadrant matrix",
		Long:  "Fetch the user's open tasks and print the computed bucket arrangement",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUser(userFlag)
			if err != nil {
				return err
			}

			client, err := newStoreClient()
			if err != nil {
				return err
			}

			tasks, err := client.Fetch(context.Background(), userID)
			if err != nil {
				return fmt.Errorf("failed to fetch tasks: %w", err)
			}

			byID := make(map[string]*models.Task, len(tasks))
			for _, t := range tasks {
				byID[t.ID] = t
			}

			buckets := matrix.ComputeBuckets(tasks)
			for q := models.QuadrantQ1; q <= models.QuadrantQ4; q++ {
				ids := buckets[int(q)]
				fmt.Printf("%s (%s): %d tasks\n", q, quadrantLabels[q], len(ids))
				for _, id := range ids {
					task := byID[id]
					marker := " "
					if task.Override != nil {
						marker = "*"
					}
					fmt.Printf("  %s %s  %s\n", marker, id, task.Title)
				}
			}
			fmt.Println("\n* = manual override")

			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User id (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
