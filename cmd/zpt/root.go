package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/zpt"
	"github.com/aretw0/zpt/internal/logging"
	"github.com/aretw0/zpt/pkg/config"
	"github.com/aretw0/zpt/pkg/observability"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zpt",
	Short: "zpt renders page templates",
	Long: `zpt expands TAL/METAL page templates against a data model.
Templates are read from a directory or a Redis store, as configured in zpt.yaml.`,
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
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "zpt.yaml", "Configuration file (missing file means defaults)")
	rootCmd.PersistentFlags().StringArray("set", nil, "Override a configuration key, e.g. --set error_mode=marker (repeatable)")
	rootCmd.PersistentFlags().String("dir", "", "Template directory (overrides template_dir)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads the configuration file and applies the command line on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	sets, _ := cmd.Flags().GetStringArray("set")
	values, err := config.ParseOverrides(sets)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Apply(values); err != nil {
		return cfg, err
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.TemplateDir = dir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, cfg.Validate()
}

// newEngine builds an engine and its logger from the command's configuration.
func newEngine(cmd *cobra.Command, opts ...zpt.Option) (*zpt.Engine, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(level, cfg.LogFormat)

	base := []zpt.Option{
		zpt.WithConfig(cfg),
		zpt.WithLogger(logger),
		zpt.WithLifecycleHooks(observability.LogHooks(logger)),
	}
	eng, err := zpt.New(append(base, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init engine: %w", err)
	}
	return eng, logger, nil
}
