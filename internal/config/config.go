// Package config loads the legal-indexer configuration.
package config

import (
	"fmt"
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/config"
	infraes "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/elasticsearch"
	infraredis "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/archive"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/backend"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/cornell"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/govinfo"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/indexer"
)

// DefaultPath is the configuration file used when CONFIG_PATH is unset.
const DefaultPath = "config.yml"

// Default service configuration values.
const (
	defaultServiceName    = "legal-indexer"
	defaultServiceVersion = "1.0.0"
)

// Default source configuration values.
const (
	defaultGovInfoCeiling  = 1000
	defaultGovInfoPeriod   = time.Hour
	defaultGovInfoCacheTTL = time.Hour
	defaultCornellCeiling  = 30
	defaultCornellPeriod   = time.Minute
	defaultCornellCacheTTL = 6 * time.Hour
	defaultSourceTimeout   = 30 * time.Second
	defaultMaxRetries      = 3
	defaultRetryDelay      = time.Second
	defaultRetryMaxDelay   = 30 * time.Second
	defaultCachePrefix     = "legal-indexer:fetch:"
)

// Default backend configuration values.
const (
	defaultBackendURL        = "http://127.0.0.1:5000/api"
	defaultBackendBurst      = 5
	defaultBreakerThreshold  = 5
	defaultBreakerSuccesses  = 2
	defaultBreakerOpenPeriod = 60 * time.Second
)

// Default indexer configuration values.
const (
	defaultSchedule = "@monthly"
)

// Config holds the application configuration.
type Config struct {
	Service       ServiceConfig              `yaml:"service"`
	Logging       infraconfig.LoggingConfig  `yaml:"logging"`
	Server        infraconfig.ServerConfig   `yaml:"server"`
	GovInfo       GovInfoConfig              `yaml:"govinfo"`
	Cornell       CornellConfig              `yaml:"cornell"`
	Cache         CacheConfig                `yaml:"cache"`
	Backend       BackendConfig              `yaml:"backend"`
	Ledger        infraconfig.DatabaseConfig `yaml:"ledger"`
	Elasticsearch infraes.Config             `yaml:"elasticsearch"`
	Archive       archive.Config             `yaml:"archive"`
	Indexer       IndexerConfig              `yaml:"indexer"`
}

// ServiceConfig holds service identity.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SourceLimits are the pacing and caching settings of one upstream source.
type SourceLimits struct {
	// Ceiling requests are allowed per Period.
	Ceiling       int           `yaml:"ceiling"`
	Period        time.Duration `yaml:"period"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`
}

// GovInfoConfig configures the GovInfo API client.
type GovInfoConfig struct {
	BaseURL string `env:"GOVINFO_BASE_URL" yaml:"base_url"`
	APIKey  string `env:"GOVINFO_API_KEY"  yaml:"api_key"`
	// Year is used for titles without a listed package. Zero means the current year.
	Year     int          `env:"GOVINFO_YEAR" yaml:"year"`
	MaxPages int          `yaml:"max_pages"`
	Limits   SourceLimits `yaml:"limits"`
}

// CornellConfig configures the Cornell LII scraper.
type CornellConfig struct {
	BaseURL   string       `env:"CORNELL_BASE_URL"   yaml:"base_url"`
	UserAgent string       `env:"CORNELL_USER_AGENT" yaml:"user_agent"`
	Limits    SourceLimits `yaml:"limits"`
}

// CacheConfig configures the shared fetch cache. Without a Redis address
// each process keeps an in-memory cache.
type CacheConfig struct {
	Redis  infraredis.Config `yaml:"redis"`
	Prefix string            `yaml:"prefix"`
}

// Enabled reports whether the Redis cache is configured.
func (c *CacheConfig) Enabled() bool {
	return c.Redis.Address != ""
}

// BackendConfig configures the records store client.
type BackendConfig struct {
	URL               string        `env:"BACKEND_BASE_URL"      yaml:"url"`
	SharedSecret      string        `env:"BACKEND_SHARED_SECRET" yaml:"shared_secret"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `env:"BACKEND_RPS"           yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	BreakerThreshold  int           `yaml:"breaker_threshold"`
	BreakerSuccesses  int           `yaml:"breaker_successes"`
	BreakerOpenPeriod time.Duration `yaml:"breaker_open_period"`
}

// IndexerConfig tunes indexing runs.
type IndexerConfig struct {
	USCodeBatchSize int `yaml:"uscode_batch_size"`
	UCCBatchSize    int `yaml:"ucc_batch_size"`
	// StaleAfter re-indexes units whose ledger entry is older, even when
	// the source reports no change.
	StaleAfter time.Duration `env:"INDEXER_STALE_AFTER" yaml:"stale_after"`
	// Schedule is the cron spec of incremental runs in serve mode.
	Schedule string `env:"INDEXER_SCHEDULE" yaml:"schedule"`
	// Corpora lists the corpora scheduled runs cover.
	Corpora []string `env:"INDEXER_CORPORA" yaml:"corpora"`
}

// Load loads configuration from a YAML file, applies defaults, then env overrides.
func Load(path string) (*Config, error) {
	cfg, loadErr := infraconfig.LoadWithDefaults(path, setDefaults)
	if loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := infraconfig.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := infraconfig.ValidatePort("server.port", c.Server.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateURL("backend.url", c.Backend.URL); err != nil {
		return err
	}
	if err := infraconfig.ValidateURL("govinfo.base_url", c.GovInfo.BaseURL); err != nil {
		return err
	}
	if err := infraconfig.ValidateURL("cornell.base_url", c.Cornell.BaseURL); err != nil {
		return err
	}
	if err := c.GovInfo.Limits.validate("govinfo.limits"); err != nil {
		return err
	}
	if err := c.Cornell.Limits.validate("cornell.limits"); err != nil {
		return err
	}
	if err := infraconfig.ValidatePositive("indexer.uscode_batch_size", c.Indexer.USCodeBatchSize); err != nil {
		return err
	}
	if err := infraconfig.ValidatePositive("indexer.ucc_batch_size", c.Indexer.UCCBatchSize); err != nil {
		return err
	}
	for _, corpus := range c.Indexer.Corpora {
		if _, err := domain.ParseCorpus(corpus); err != nil {
			return &infraconfig.ValidationError{Field: "indexer.corpora", Message: err.Error()}
		}
	}
	if err := c.Ledger.Validate(); err != nil {
		return err
	}
	if c.Elasticsearch.Enabled() {
		if err := infraconfig.ValidateURL("elasticsearch.url", c.Elasticsearch.URL); err != nil {
			return err
		}
	}
	return nil
}

func (l *SourceLimits) validate(field string) error {
	if err := infraconfig.ValidatePositive(field+".ceiling", l.Ceiling); err != nil {
		return err
	}
	return infraconfig.ValidatePositive(field+".period", int64(l.Period))
}

// Summary returns the effective configuration with secrets masked.
func (c *Config) Summary() map[string]string {
	return map[string]string{
		"service":          c.Service.Name + " " + c.Service.Version,
		"log_level":        c.Logging.Level,
		"ops_address":      c.Server.Address(),
		"govinfo_base_url": c.GovInfo.BaseURL,
		"govinfo_api_key":  mask(c.GovInfo.APIKey),
		"cornell_base_url": c.Cornell.BaseURL,
		"backend_url":      c.Backend.URL,
		"backend_secret":   mask(c.Backend.SharedSecret),
		"redis_cache":      enabled(c.Cache.Enabled()),
		"ledger":           enabled(c.Ledger.Enabled()),
		"search_mirror":    enabled(c.Elasticsearch.Enabled()),
		"archive":          enabled(c.Archive.Enabled()),
		"schedule":         c.Indexer.Schedule,
	}
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "********"
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

// setDefaults applies default values to all configuration sections.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	cfg.Logging.SetDefaults()
	cfg.Server.SetDefaults()
	setGovInfoDefaults(&cfg.GovInfo)
	setCornellDefaults(&cfg.Cornell)
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = defaultCachePrefix
	}
	setBackendDefaults(&cfg.Backend)
	cfg.Ledger.SetDefaults()
	cfg.Elasticsearch.SetDefaults()
	cfg.Archive.SetDefaults()
	setIndexerDefaults(&cfg.Indexer)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}

	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
}

func setGovInfoDefaults(g *GovInfoConfig) {
	if g.BaseURL == "" {
		g.BaseURL = govinfo.DefaultBaseURL
	}
	g.Limits.setDefaults(defaultGovInfoCeiling, defaultGovInfoPeriod, defaultGovInfoCacheTTL)
}

func setCornellDefaults(c *CornellConfig) {
	if c.BaseURL == "" {
		c.BaseURL = cornell.DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = cornell.DefaultUserAgent
	}
	c.Limits.setDefaults(defaultCornellCeiling, defaultCornellPeriod, defaultCornellCacheTTL)
}

func (l *SourceLimits) setDefaults(ceiling int, period, cacheTTL time.Duration) {
	if l.Ceiling == 0 {
		l.Ceiling = ceiling
	}

	if l.Period == 0 {
		l.Period = period
	}

	if l.CacheTTL == 0 {
		l.CacheTTL = cacheTTL
	}

	if l.Timeout == 0 {
		l.Timeout = defaultSourceTimeout
	}

	if l.MaxRetries == 0 {
		l.MaxRetries = defaultMaxRetries
	}

	if l.RetryDelay == 0 {
		l.RetryDelay = defaultRetryDelay
	}

	if l.RetryMaxDelay == 0 {
		l.RetryMaxDelay = defaultRetryMaxDelay
	}
}

func setBackendDefaults(b *BackendConfig) {
	if b.URL == "" {
		b.URL = defaultBackendURL
	}

	if b.Timeout == 0 {
		b.Timeout = backend.DefaultTimeout
	}

	if b.RequestsPerSecond == 0 {
		b.RequestsPerSecond = backend.DefaultRequestsPerSecond
	}

	if b.Burst == 0 {
		b.Burst = defaultBackendBurst
	}

	if b.BreakerThreshold == 0 {
		b.BreakerThreshold = defaultBreakerThreshold
	}

	if b.BreakerSuccesses == 0 {
		b.BreakerSuccesses = defaultBreakerSuccesses
	}

	if b.BreakerOpenPeriod == 0 {
		b.BreakerOpenPeriod = defaultBreakerOpenPeriod
	}
}

func setIndexerDefaults(i *IndexerConfig) {
	if i.USCodeBatchSize == 0 {
		i.USCodeBatchSize = indexer.DefaultUSCodeBatchSize
	}

	if i.UCCBatchSize == 0 {
		i.UCCBatchSize = indexer.DefaultUCCBatchSize
	}

	if i.StaleAfter == 0 {
		i.StaleAfter = indexer.DefaultStaleAfter
	}

	if i.Schedule == "" {
		i.Schedule = defaultSchedule
	}

	if len(i.Corpora) == 0 {
		i.Corpora = []string{string(domain.CorpusUSCode), string(domain.CorpusUCC)}
	}
}
