// Package common provides the dependencies shared by legal-indexer commands.
package common

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	infraconfig "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/config"
	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/config"
)

// Viper keys bound to root flags.
const (
	KeyConfig   = "config"
	KeyDebug    = "debug"
	KeyLogLevel = "log-level"
)

// CommandDeps holds common dependencies for all commands.
type CommandDeps struct {
	Logger infralogger.Logger
	Config *config.Config
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	return nil
}

// NewCommandDeps loads the configuration, applies flag overrides and
// creates the logger.
func NewCommandDeps() (CommandDeps, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return CommandDeps{}, err
	}

	if level := viper.GetString(KeyLogLevel); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if viper.GetBool(KeyDebug) {
		cfg.Logging.Debug = true
	}
	if validateErr := cfg.Validate(); validateErr != nil {
		return CommandDeps{}, fmt.Errorf("validate config: %w", validateErr)
	}

	log, err := infralogger.NewFromLoggingConfig(cfg.Logging.Level, cfg.Logging.Debug)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("create logger: %w", err)
	}
	log = log.With(
		infralogger.String("service", cfg.Service.Name),
		infralogger.String("version", cfg.Service.Version),
	)

	deps := CommandDeps{Logger: log, Config: cfg}
	if validateErr := deps.Validate(); validateErr != nil {
		return CommandDeps{}, fmt.Errorf("validate deps: %w", validateErr)
	}
	return deps, nil
}

// configPath returns the --config value, else the default file when it
// exists. An empty path builds the config from defaults and the environment.
func configPath() string {
	if path := viper.GetString(KeyConfig); path != "" {
		return path
	}
	path := infraconfig.GetConfigPath(config.DefaultPath)
	if path != config.DefaultPath {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ""
	}
	return path
}
