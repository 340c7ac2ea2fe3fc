package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/config"
)

type sampleConfig struct {
	Name    string        `env:"LI_TEST_NAME"    yaml:"name"`
	TTL     time.Duration `env:"LI_TEST_TTL"     yaml:"ttl"`
	Limit   int           `env:"LI_TEST_LIMIT"   yaml:"limit"`
	Enabled bool          `env:"LI_TEST_ENABLED" yaml:"enabled"`
	Tags    []string      `env:"LI_TEST_TAGS"    yaml:"tags"`
	Nested  struct {
		URL string `env:"LI_TEST_URL" yaml:"url"`
	} `yaml:"nested"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ReadsYAML(t *testing.T) {
	path := writeConfig(t, "name: uscode\nttl: 1h\nlimit: 10\nnested:\n  url: http://a\n")

	cfg, err := config.Load[sampleConfig](path)
	require.NoError(t, err)

	assert.Equal(t, "uscode", cfg.Name)
	assert.Equal(t, time.Hour, cfg.TTL)
	assert.Equal(t, 10, cfg.Limit)
	assert.Equal(t, "http://a", cfg.Nested.URL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "name: uscode\nlimit: 10\n")
	t.Setenv("LI_TEST_NAME", "ucc")
	t.Setenv("LI_TEST_TTL", "6h")
	t.Setenv("LI_TEST_ENABLED", "yes")
	t.Setenv("LI_TEST_TAGS", "a, b")
	t.Setenv("LI_TEST_URL", "http://b")

	cfg, err := config.Load[sampleConfig](path)
	require.NoError(t, err)

	assert.Equal(t, "ucc", cfg.Name)
	assert.Equal(t, 6*time.Hour, cfg.TTL)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)
	assert.Equal(t, "http://b", cfg.Nested.URL)
}

func TestLoad_EmptyPathUsesEnvironmentOnly(t *testing.T) {
	t.Setenv("LI_TEST_LIMIT", "7")

	cfg, err := config.Load[sampleConfig]("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Limit)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load[sampleConfig](filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestLoadWithDefaults_EnvWinsOverDefaults(t *testing.T) {
	path := writeConfig(t, "name: \"\"\n")
	t.Setenv("LI_TEST_LIMIT", "3")

	cfg, err := config.LoadWithDefaults[sampleConfig](path, func(c *sampleConfig) {
		if c.Name == "" {
			c.Name = "default"
		}
		c.Limit = 99
	})
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, 3, cfg.Limit)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, config.ValidateURL("u", "https://api.govinfo.gov"))
	assert.Error(t, config.ValidateURL("u", "api.govinfo.gov"))
	assert.Error(t, config.ValidateRequired("secret", ""))
	assert.Error(t, config.ValidatePositive("n", 0))
	assert.NoError(t, config.ValidatePositive("n", 1.5))

	db := config.DatabaseConfig{}
	assert.NoError(t, db.Validate())
	db = config.DatabaseConfig{Driver: "mysql", URL: "x"}
	assert.Error(t, db.Validate())
}
