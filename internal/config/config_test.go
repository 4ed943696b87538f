package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftdata/shardsql/internal/parsetree"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shardsql.yaml")
	doc := `
dialect: mysql
rules:
  file: /etc/shardsql/rules.yaml
  watch: true
  debounce: 250ms
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("SHARDSQL_OUTPUT_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, parsetree.MySQL.Name, cfg.Dialect)
	assert.Equal(t, "/etc/shardsql/rules.yaml", cfg.Rules.File)
	assert.True(t, cfg.Rules.Watch)
	assert.Equal(t, 250*time.Millisecond, cfg.Rules.Debounce)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "json", cfg.Output.Format)

	used, err := Path(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: [\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Dialect = "oracle"
	cfg.Rules.Watch = true
	cfg.Rules.Debounce = time.Second

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"dialect alias", func(c *Config) { c.Dialect = "Postgres" }, true},
		{"unknown dialect", func(c *Config) { c.Dialect = "sqlite" }, false},
		{"missing rules file", func(c *Config) { c.Rules.File = "" }, false},
		{"negative debounce", func(c *Config) { c.Rules.Debounce = -time.Second }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"bad output format", func(c *Config) { c.Output.Format = "csv" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
