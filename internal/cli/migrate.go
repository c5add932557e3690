package cli

import (
	"contest-quiz-service/internal/config"
	"contest-quiz-service/internal/infra/postgres"
	"github.com/spf13/cobra"
)

// NewMigrateCmd applies the relational schema for the postgres backend.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the postgres backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return postgres.Migrate(cmd.Context(), cfg.Postgres.URL)
		},
	}
}
