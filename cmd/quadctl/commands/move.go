package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quadtask/quadtask/internal/models"
	"github.com/quadtask/quadtask/internal/validation"
)

// NewMoveCmd creates the move command
func NewMoveCmd() *cobra.Command {
	var (
		userFlag     string
		taskFlag     string
		quadrantFlag string
		reasonFlag   string
	)

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a task to a quadrant",
		Long:  "Set a manual quadrant override on a task, as if it were dragged in the matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUser(userFlag)
			if err != nil {
				return err
			}
			if err := validation.ValidateQuadrant(quadrantFlag); err != nil {
				return err
			}
			quadrant, _ := models.ParseQuadrant(quadrantFlag)

			client, err := newStoreClient()
			if err != nil {
				return err
			}

			reason := validation.SanitizeText(reasonFlag)
			if reason == "" {
				reason = "moved via quadctl"
			}
			task, err := client.SetQuadrant(context.Background(), userID, taskFlag, quadrant, reason, sourceCLI)
			if err != nil {
				return fmt.Errorf("failed to move task: %w", err)
			}

			fmt.Printf("Moved %s to %s (effective bucket: %s)\n", task.ID, quadrant, task.Bucket())
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User id (required)")
	cmd.Flags().StringVar(&taskFlag, "task", "", "Task id (required)")
	cmd.Flags().StringVar(&quadrantFlag, "quadrant", "", "Target quadrant, Q1-Q4 (required)")
	cmd.Flags().StringVar(&reasonFlag, "reason", "", "Reason recorded with the override")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("quadrant")

	return cmd
}
