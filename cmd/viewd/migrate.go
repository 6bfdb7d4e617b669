package main

import (
	"log"

	"github.com/chirpfeed/backend/internal/config"
	"github.com/chirpfeed/backend/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		if err := database.Initialize(cfg.DatabaseURL); err != nil {
			return err
		}
		if err := database.Migrate(); err != nil {
			return err
		}

		log.Println("Migrations complete")
		return nil
	},
}
