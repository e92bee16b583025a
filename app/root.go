// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "accessctl",
	Short: "accessctl is the role-based authorization service of the community area",
	Long: `accessctl holds roles, permissions and user role assignments and answers
whether an identified user may access a resource. It serves an HTTP API for
the community area and offers command line tools for operators.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var (
	configPath string // Path to the configuration directory
	devMode    bool
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "Directory holding main.toml")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "Enable dev mode")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration and initialises logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if devMode {
		cfg.DevMode = true
	}

	if err = logger.Init(cfg.Log); err != nil {
		return nil, err
	}

	return &cfg, nil
}
