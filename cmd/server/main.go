package main

import (
	"os"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"promo-engine/internal/app/server"
	"promo-engine/internal/config"
	"promo-engine/internal/storage"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:           "promo",
	Short:         "Promotional modal visibility engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := storage.MigratePostgres(cfg.DSN()); err != nil {
			return err
		}
		log.Info().Uint("version", storage.PostgresSchemaVersion).Msg("postgres schema up to date")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "configs", "directory holding application.yaml")
	rootCmd.AddCommand(serveCmd, migrateCmd, evaluateCmd)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return cfg, err
	}
	config.SetupLogging(cfg.Server.LogLevel)
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	server.Run(cfg)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("promo")
		os.Exit(1)
	}
}
