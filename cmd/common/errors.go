package common

import "errors"

var (
	// ErrLoggerRequired is returned when CommandDeps.Logger is nil.
	ErrLoggerRequired = errors.New("logger is required")

	// ErrConfigRequired is returned when CommandDeps.Config is nil.
	ErrConfigRequired = errors.New("config is required")

	// ErrCorpusDisabled is returned when a command targets a corpus missing
	// from indexer.corpora.
	ErrCorpusDisabled = errors.New("corpus is not enabled")
)
