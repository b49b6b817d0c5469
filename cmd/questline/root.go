package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/questline/internal/cli"
	"github.com/aretw0/questline/internal/config"
	"github.com/aretw0/questline/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "questline",
	Short: "Questline runs quest templates as game sessions",
	Long: `Questline lets a game master author quests as graphs of numbered nodes and
run sessions against them from Discord, HTTP, MCP or the command line.

Configuration is read from questline.yaml, overridden by QUESTLINE_* environment
variables and then by flags.`,
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
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default ./questline.yaml)")
	rootCmd.PersistentFlags().String("dir", "", "Data directory for the file and sqlite stores")
	rootCmd.PersistentFlags().String("backend", "", "Store backend: memory, file, redis or sqlite")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig reads the configuration and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("dir") {
		cfg.Store.Dir, _ = cmd.Flags().GetString("dir")
	}
	if cmd.Flags().Changed("backend") {
		cfg.Store.Backend, _ = cmd.Flags().GetString("backend")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	return cfg, nil
}

// newLogger builds the logger for cfg. Command output goes to stdout, so logs
// always go to stderr.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Log.Format == "json" {
		return logging.NewJSON(os.Stderr, level), nil
	}
	return logging.New(level), nil
}

// openApp loads the configuration and assembles the runtime.
func openApp(cmd *cobra.Command) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", "source", cfg.Source, "backend", cfg.Store.Backend)
	return cli.New(cfg, logger)
}
