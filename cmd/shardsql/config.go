package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/riftdata/shardsql/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and manage shardsql configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path(cfgFile)
		if err != nil {
			return err
		}
		if path == "" {
			out.Info("No config file found; using defaults")
			return nil
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(config.DefaultDir(), "config.yaml")
		if len(args) > 0 {
			path = args[0]
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		out.Success(fmt.Sprintf("Wrote %s", path))
		return nil
	},
}

func registerConfigCommands() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if handled, err := out.Data(cfg); handled {
		return err
	}

	out.Title("Configuration")
	out.KeyValue("dialect", cfg.Dialect)
	out.KeyValue("rules.file", cfg.Rules.File)
	out.KeyValue("rules.watch", fmt.Sprintf("%t", cfg.Rules.Watch))
	out.KeyValue("rules.debounce", cfg.Rules.Debounce.String())
	out.KeyValue("log.level", cfg.Log.Level)
	out.KeyValue("log.format", cfg.Log.Format)
	out.KeyValue("output.format", cfg.Output.Format)
	if err := cfg.Validate(); err != nil {
		out.Warning(err.Error())
	}
	return nil
}
