package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/picloud/picloud/internal/logging"
	"github.com/picloud/picloud/internal/presentation/tui"
	"github.com/picloud/picloud/pkg/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "picloud",
	Short: "picloud tracks asynchronous calls in flight",
	Long: `picloud keeps a counter of asynchronous calls in flight and serves it
over HTTP, together with the media library of the device.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file imported before the config is read")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides the config")
	rootCmd.PersistentFlags().Bool("plain", false, "Print reports as plain markdown")
}

// loadConfig imports the .env file, then resolves the configuration.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		n, err := config.LoadDotEnv(envFile)
		if err != nil {
			return config.Config{}, err
		}
		if n > 0 {
			tui.Success(cmd.ErrOrStderr(), "Imported %d environment variables from %s", n, envFile)
		}
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, os.Getenv)
	if err != nil {
		return config.Config{}, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.New(logging.ParseLevel(cfg.LogLevel)).With("env", string(cfg.Environment))
}
