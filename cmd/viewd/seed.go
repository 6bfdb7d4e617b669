package main

import (
	"github.com/chirpfeed/backend/internal/config"
	"github.com/chirpfeed/backend/internal/database"
	"github.com/chirpfeed/backend/internal/logger"
	"github.com/chirpfeed/backend/internal/seed"
	"github.com/spf13/cobra"
)

var (
	seedUsers        int
	seedPosts        int
	seedViewsPerUser int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the development database with fake view history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
			return err
		}
		defer logger.Close()

		if err := database.Initialize(cfg.DatabaseURL); err != nil {
			return err
		}
		if err := database.Migrate(); err != nil {
			return err
		}

		return seed.NewSeeder(database.DB).SeedDev(seedUsers, seedPosts, seedViewsPerUser)
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedUsers, "users", 50, "number of fake users")
	seedCmd.Flags().IntVar(&seedPosts, "posts", 500, "size of the shared post pool")
	seedCmd.Flags().IntVar(&seedViewsPerUser, "views", 40, "views per user")
}
