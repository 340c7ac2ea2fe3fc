// Package job tracks indexing jobs in the records store: their status,
// progress and run statistics.
package job

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Status is the lifecycle state of an indexing job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrInvalidTransition is returned for a status change the lifecycle does
// not allow.
var ErrInvalidTransition = errors.New("job: invalid status transition")

// ValidateTransition checks a status change. Jobs go pending, running,
// completed; a running job may fail and so may a pending one whose setup
// failed. Completed and failed are terminal.
func ValidateTransition(from, to Status) error {
	validTransitions := map[Status][]Status{
		StatusPending: {
			StatusRunning,
			StatusFailed,
		},
		StatusRunning: {
			StatusCompleted,
			StatusFailed,
		},
		StatusCompleted: {},
		StatusFailed:    {},
	}

	allowed, ok := validTransitions[from]
	if !ok || !slices.Contains(allowed, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stages reported in job progress.
const (
	StageInitializing     = "initializing"
	StageFetchingTitles   = "fetching_titles"
	StageFetchingArticles = "fetching_articles"
	StageFinalizing       = "finalizing"
	StageCompleted        = "completed"
	StageFailed           = "failed"
)

// Progress percentages outside the per-unit band.
const (
	PercentStart      = 0.0
	PercentFetching   = 5.0
	PercentFinalizing = 95.0
	PercentDone       = 100.0

	bandStart = 10.0
	bandWidth = 80.0
)

// TitleStage is the stage name while a US Code title is processed.
func TitleStage(title int) string {
	return "processing_title_" + strconv.Itoa(title)
}

// ArticleStage is the stage name while a UCC article is processed.
func ArticleStage(article string) string {
	return "processing_article_" + article
}

// UnitPercent places unit i of total inside the 10 to 90 percent band.
func UnitPercent(i, total int) float64 {
	if total <= 0 {
		return bandStart
	}
	return bandStart + float64(i)/float64(total)*bandWidth
}
