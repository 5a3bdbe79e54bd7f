package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetCmd creates the reset command
func NewResetCmd() *cobra.Command {
	var (
		userFlag string
		taskFlag string
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset a task to its AI classification",
		Long:  "Discard a task's manual override and restore the AI-assigned quadrant",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUser(userFlag)
			if err != nil {
				return err
			}

			client, err := newStoreClient()
			if err != nil {
				return err
			}

			task, err := client.ResetQuadrant(context.Background(), userID, taskFlag)
			if err != nil {
				return fmt.Errorf("failed to reset task: %w", err)
			}

			fmt.Printf("Reset %s, now in %s", task.ID, task.Bucket())
			if task.AIQuadrant == nil {
				fmt.Print(" (no AI classification yet, default bucket)")
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User id (required)")
	cmd.Flags().StringVar(&taskFlag, "task", "", "Task id (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}
