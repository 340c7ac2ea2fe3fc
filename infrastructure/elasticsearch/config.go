package elasticsearch

import (
	"time"

	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/retry"
)

// Config holds Elasticsearch client configuration
type Config struct {
	// URL is the Elasticsearch server URL. Empty disables the search mirror.
	URL string `env:"ELASTICSEARCH_URL" yaml:"url"`

	// Username is the optional basic auth username
	Username string `env:"ELASTICSEARCH_USERNAME" yaml:"username"`

	// Password is the optional basic auth password
	Password string `env:"ELASTICSEARCH_PASSWORD" yaml:"password"`

	// APIKey is the optional API key for authentication
	APIKey string `env:"ELASTICSEARCH_API_KEY" yaml:"api_key"`

	// Index is the index that receives mirrored section documents
	Index string `env:"ELASTICSEARCH_INDEX" yaml:"index"`

	// InsecureSkipVerify disables TLS verification for self-signed clusters
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// MaxRetries is the maximum number of retries for client operations (default: 3)
	MaxRetries int `yaml:"max_retries"`

	// PingTimeout is the timeout for ping verification (default: 5s)
	PingTimeout time.Duration `yaml:"ping_timeout"`

	// RetryConfig controls connection verification. Nil uses 5 attempts, 2s initial, 10s max.
	RetryConfig *retry.Config `yaml:"-"`
}

// Enabled reports whether a cluster URL is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// SetDefaults applies default values to the config if not set
func (c *Config) SetDefaults() {
	if c.Index == "" {
		c.Index = "legal_sections"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.RetryConfig == nil || c.RetryConfig.MaxAttempts == 0 {
		c.RetryConfig = &retry.Config{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		}
	}
}
