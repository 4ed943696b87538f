// Package config handles application configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/riftdata/shardsql/internal/parsetree"
)

type Config struct {
	// Dialect of parse trees passed without an explicit dialect
	Dialect string `mapstructure:"dialect"`

	// Sharding and encryption rules
	Rules RulesConfig `mapstructure:"rules"`

	// Logging
	Log LogConfig `mapstructure:"log"`

	// Command output
	Output OutputConfig `mapstructure:"output"`
}

type RulesConfig struct {
	File     string        `mapstructure:"file"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
}

var (
	logLevels     = []string{"debug", "info", "warn", "error", "fatal"}
	logFormats    = []string{"text", "json", "logfmt"}
	outputFormats = []string{"table", "json", "yaml"}
)

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Dialect: parsetree.PostgreSQL.Name,
		Rules: RulesConfig{
			File:     "rules.yaml",
			Debounce: 100 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "table",
		},
	}
}

// DefaultDir is the per-user configuration directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shardsql"
	}
	return filepath.Join(home, ".shardsql")
}

// Load loads configuration from file, env vars, and flags
func Load(configPath string) (*Config, error) {
	_, cfg, err := load(configPath)
	return cfg, err
}

// Path returns the config file Load would read, or "" when none exists.
func Path(configPath string) (string, error) {
	v, _, err := load(configPath)
	if err != nil {
		return "", err
	}
	return v.ConfigFileUsed(), nil
}

func load(configPath string) (*viper.Viper, *Config, error) {
	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("dialect", defaults.Dialect)
	v.SetDefault("rules.file", defaults.Rules.File)
	v.SetDefault("rules.watch", defaults.Rules.Watch)
	v.SetDefault("rules.debounce", defaults.Rules.Debounce)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("output.format", defaults.Output.Format)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDir())
		v.AddConfigPath("/etc/shardsql")
	}

	// Environment variables
	v.SetEnvPrefix("shardsql")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}

	return v, &cfg, nil
}

// Save writes the config to a file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.Set("dialect", c.Dialect)
	v.Set("rules.file", c.Rules.File)
	v.Set("rules.watch", c.Rules.Watch)
	v.Set("rules.debounce", c.Rules.Debounce.String())
	v.Set("log.level", c.Log.Level)
	v.Set("log.format", c.Log.Format)
	v.Set("output.format", c.Output.Format)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if _, err := parsetree.LookupDialect(c.Dialect); err != nil {
		return err
	}
	if c.Rules.File == "" {
		return fmt.Errorf("rules.file is required")
	}
	if c.Rules.Debounce < 0 {
		return fmt.Errorf("rules.debounce must not be negative")
	}
	if !oneOf(c.Log.Level, logLevels) {
		return fmt.Errorf("log.level must be one of %s", strings.Join(logLevels, ", "))
	}
	if !oneOf(c.Log.Format, logFormats) {
		return fmt.Errorf("log.format must be one of %s", strings.Join(logFormats, ", "))
	}
	if !oneOf(c.Output.Format, outputFormats) {
		return fmt.Errorf("output.format must be one of %s", strings.Join(outputFormats, ", "))
	}
	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}
