package main

import (
	"digistore/internal/infra/db"

	"github.com/spf13/cobra"
)

// digistore migrate: スキーマを最新にする
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		if err := db.Migrate(a.db); err != nil {
			return err
		}
		a.log.Info("migration complete")
		return nil
	},
}
