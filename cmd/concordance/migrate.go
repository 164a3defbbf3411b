package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/internal/vectorstore"
)

func migrateCMD(cfgPath *string) *cobra.Command {
	var migDir string
	var direction string
	var steps int

	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run the Postgres vector store migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Storage.Postgres.Validate(); err != nil {
				return err
			}
			return vectorstore.Migrate(migDir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "", "migrations source such as file://migrations (default embedded)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return migrate
}
