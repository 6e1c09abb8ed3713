package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"research-job-service/internal/repository/postgresql"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the research_jobs table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if a.pg == nil {
			return fmt.Errorf("migrate needs POSTGRES_DSN")
		}
		if err := postgresql.Migrate(ctx, a.pg); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.log.Info().Msg("schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
