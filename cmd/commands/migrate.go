package commands

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/fleet-backend/internal/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the document table for the SQL store drivers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg, err := app.LoadConfig(log)
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), log, cfg.Store)
		},
	}
}
