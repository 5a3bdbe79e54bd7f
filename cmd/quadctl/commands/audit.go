package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quadtask/quadtask/internal/config"
	"github.com/quadtask/quadtask/internal/database"
)

// NewAuditCmd creates the audit command
func NewAuditCmd() *cobra.Command {
	var (
		userFlag  string
		limitFlag int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show a user's quadrant override history",
		Long:  "List recent quadrant override records from the audit log, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUser(userFlag)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is not configured, no audit log available")
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			auditRepo := database.NewAuditRepository(db)
			records, err := auditRepo.ListByUser(context.Background(), userID, limitFlag)
			if err != nil {
				return fmt.Errorf("failed to list overrides: %w", err)
			}

			if len(records) == 0 {
				fmt.Println("No overrides recorded")
				return nil
			}

			for _, rec := range records {
				fmt.Printf("%s  %-8s -> %s  [%s]  %s\n",
					rec.CreatedAt.Format(time.RFC3339),
					rec.TaskID,
					rec.Quadrant,
					rec.Source,
					rec.Reason,
				)
			}

			counts, err := auditRepo.CountBySource(context.Background(), userID)
			if err == nil && len(counts) > 0 {
				fmt.Println("\nBy source:")
				for source, n := range counts {
					fmt.Printf("  %s: %d\n", source, n)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User id (required)")
	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum records to show")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
