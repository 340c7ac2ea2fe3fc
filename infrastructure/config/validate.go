package config

import (
	"fmt"
	"net/url"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRequired checks if a string field is not empty.
func ValidateRequired(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidatePositive checks that a numeric setting is greater than zero.
func ValidatePositive[N int | int64 | float64](field string, value N) error {
	if value <= 0 {
		return &ValidationError{Field: field, Message: "must be greater than zero"}
	}
	return nil
}

// ValidateURL checks that value is an absolute http(s) URL.
func ValidateURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: field, Message: "must be an absolute http(s) URL"}
	}
	return nil
}

// ValidatePort checks if a port number is valid.
func ValidatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{Field: field, Message: "must be between 1 and 65535"}
	}
	return nil
}

// ValidateLogLevel checks if a log level is valid.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "warning", "error", "fatal":
		return nil
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}
}

// Validator is an interface for types that can validate themselves.
type Validator interface {
	Validate() error
}

// Validate calls the Validate method on cfg if it implements Validator.
func Validate(cfg any) error {
	if v, ok := cfg.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// Validate validates a ServerConfig.
func (c *ServerConfig) Validate() error {
	if c.Port != 0 {
		return ValidatePort("server.port", c.Port)
	}
	return nil
}

// Validate validates a DatabaseConfig. An unconfigured database is valid.
func (c *DatabaseConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	switch c.Driver {
	case "postgres", "sqlite3":
	default:
		return &ValidationError{Field: "ledger.driver", Message: "must be one of: postgres, sqlite3"}
	}
	if c.URL == "" && c.Database == "" {
		return &ValidationError{Field: "ledger.database", Message: "is required"}
	}
	return nil
}

// Validate validates a LoggingConfig.
func (c *LoggingConfig) Validate() error {
	if c.Level != "" {
		return ValidateLogLevel(c.Level)
	}
	return nil
}
