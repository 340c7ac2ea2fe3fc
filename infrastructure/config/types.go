package config

import (
	"net"
	"strconv"
	"time"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `env:"OPS_HOST" yaml:"host"`
	Port         int           `env:"OPS_PORT" yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SetDefaults applies default values for ServerConfig.
func (c *ServerConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 8090
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}

// DatabaseConfig holds SQL database configuration. DSN wins over the
// discrete PostgreSQL fields when both are set.
type DatabaseConfig struct {
	Driver          string        `env:"LEDGER_DRIVER"   yaml:"driver"`
	URL             string        `env:"LEDGER_DSN"      yaml:"dsn"`
	Host            string        `env:"LEDGER_HOST"     yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `env:"LEDGER_USER"     yaml:"user"`
	Password        string        `env:"LEDGER_PASSWORD" yaml:"password"`
	Database        string        `env:"LEDGER_DATABASE" yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConnections  int           `yaml:"max_connections"`
	MaxIdleConns    int           `yaml:"max_idle_connections"`
	ConnMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// Enabled reports whether any connection target is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// SetDefaults applies default values for DatabaseConfig.
func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "postgres"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = 5
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" yaml:"level"`
	Debug bool   `env:"APP_DEBUG" yaml:"debug"`
}

// SetDefaults applies default values for LoggingConfig.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}
