package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/comunidade-central/accessctl/internal/daemon"
	"github.com/comunidade-central/accessctl/internal/db"
)

func init() { //nolint: gochecknoinits
	seedCmd.Flags().StringVar(&adminUser, "admin-user", "", "Make this user id administrator when nobody holds ADMIN")

	rootCmd.AddCommand(migrateCmd, seedCmd)
}

var (
	adminUser string

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			gormDB, err := db.Open(cfg)
			if err != nil {
				return err
			}

			if err = db.Migrate(gormDB); err != nil {
				return err
			}

			log.Info().Str("engine", cfg.DB.GormEngine).Msg("database migrated")

			return nil
		},
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create the permission catalogue, the system roles and optionally a first administrator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			d, err := daemon.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			return daemon.Seed(cmd.Context(), d.AuthService, adminUser)
		},
	}
)
