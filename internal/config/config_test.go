package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/config"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/config"
)

// writeConfig writes a YAML file and isolates the test from stray .env files.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))

	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "legal-indexer", cfg.Service.Name)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "https://api.govinfo.gov", cfg.GovInfo.BaseURL)
	assert.Equal(t, 1000, cfg.GovInfo.Limits.Ceiling)
	assert.Equal(t, time.Hour, cfg.GovInfo.Limits.Period)
	assert.Equal(t, 30, cfg.Cornell.Limits.Ceiling)
	assert.Equal(t, time.Minute, cfg.Cornell.Limits.Period)
	assert.Equal(t, 6*time.Hour, cfg.Cornell.Limits.CacheTTL)
	assert.Equal(t, "http://127.0.0.1:5000/api", cfg.Backend.URL)
	assert.Equal(t, 5, cfg.Backend.BreakerThreshold)
	assert.Equal(t, 10, cfg.Indexer.USCodeBatchSize)
	assert.Equal(t, 5, cfg.Indexer.UCCBatchSize)
	assert.Equal(t, 720*time.Hour, cfg.Indexer.StaleAfter)
	assert.Equal(t, "@monthly", cfg.Indexer.Schedule)
	assert.Equal(t, []string{"uscode", "ucc"}, cfg.Indexer.Corpora)
	assert.Equal(t, "legal_sections", cfg.Elasticsearch.Index)
	assert.Equal(t, "legal-sources", cfg.Archive.Bucket)

	assert.False(t, cfg.Cache.Enabled())
	assert.False(t, cfg.Ledger.Enabled())
	assert.False(t, cfg.Elasticsearch.Enabled())
	assert.False(t, cfg.Archive.Enabled())
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9100
govinfo:
  year: 2023
  limits:
    ceiling: 40
    period: 1m
indexer:
  ucc_batch_size: 2
  schedule: "0 3 * * 0"
ledger:
  driver: sqlite3
  dsn: /var/lib/legal-indexer/ledger.db
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 2023, cfg.GovInfo.Year)
	assert.Equal(t, 40, cfg.GovInfo.Limits.Ceiling)
	assert.Equal(t, time.Minute, cfg.GovInfo.Limits.Period)
	assert.Equal(t, time.Hour, cfg.GovInfo.Limits.CacheTTL)
	assert.Equal(t, 2, cfg.Indexer.UCCBatchSize)
	assert.Equal(t, "0 3 * * 0", cfg.Indexer.Schedule)
	assert.True(t, cfg.Ledger.Enabled())
	assert.Equal(t, "sqlite3", cfg.Ledger.Driver)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "backend:\n  url: http://backend:5000/api\n")
	t.Setenv("GOVINFO_API_KEY", "gov-key")
	t.Setenv("BACKEND_SHARED_SECRET", "s3cret")
	t.Setenv("BACKEND_BASE_URL", "http://store:8080/api")
	t.Setenv("INDEXER_CORPORA", "ucc")
	t.Setenv("REDIS_ADDRESS", "redis:6379")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gov-key", cfg.GovInfo.APIKey)
	assert.Equal(t, "s3cret", cfg.Backend.SharedSecret)
	assert.Equal(t, "http://store:8080/api", cfg.Backend.URL)
	assert.Equal(t, []string{"ucc"}, cfg.Indexer.Corpora)
	assert.True(t, cfg.Cache.Enabled())

	summary := cfg.Summary()
	assert.Equal(t, "********", summary["backend_secret"])
	assert.Equal(t, "********", summary["govinfo_api_key"])
	assert.Equal(t, "enabled", summary["redis_cache"])
	assert.Equal(t, "disabled", summary["ledger"])
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: verbose\n")

	_, err := config.Load(path)
	require.Error(t, err)

	var verr *infraconfig.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "logging.level", verr.Field)
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *config.Config {
		t.Helper()
		path := writeConfig(t, "")
		cfg, err := config.Load(path)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"backend url", func(c *config.Config) { c.Backend.URL = "store:5000" }, "backend.url"},
		{"govinfo ceiling", func(c *config.Config) { c.GovInfo.Limits.Ceiling = -1 }, "govinfo.limits.ceiling"},
		{"cornell period", func(c *config.Config) { c.Cornell.Limits.Period = 0 }, "cornell.limits.period"},
		{"batch size", func(c *config.Config) { c.Indexer.USCodeBatchSize = 0 }, "indexer.uscode_batch_size"},
		{"corpus", func(c *config.Config) { c.Indexer.Corpora = []string{"cfr"} }, "indexer.corpora"},
		{"ledger driver", func(c *config.Config) {
			c.Ledger.Driver = "mysql"
			c.Ledger.URL = "x"
		}, "ledger.driver"},
		{"elasticsearch url", func(c *config.Config) { c.Elasticsearch.URL = "es:9200" }, "elasticsearch.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)

			var verr *infraconfig.ValidationError
			require.ErrorAs(t, cfg.Validate(), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
