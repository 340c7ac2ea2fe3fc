package job

import (
	"time"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

const percent = 100

// Stats are the counters of one indexing run, pushed to the job record.
type Stats struct {
	Units           int        `json:"units_processed"`
	Divisions       int        `json:"divisions_processed"`
	Sections        int        `json:"sections_processed"`
	Subsections     int        `json:"subsections_processed"`
	Definitions     int        `json:"definitions_processed"`
	CrossReferences int        `json:"cross_references_processed"`
	Errors          int        `json:"errors"`
	Unchanged       int        `json:"unchanged_units"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	APICalls        int64      `json:"total_api_calls"`
	FailedAPICalls  int64      `json:"failed_api_calls"`
	DurationSeconds float64    `json:"duration_seconds"`
	SuccessRate     float64    `json:"success_rate"`
}

// NewStats starts the counters at the given time.
func NewStats(start time.Time) *Stats {
	return &Stats{StartTime: &start}
}

// Add accumulates the records stored for one section.
func (s *Stats) Add(c domain.SectionCounts) {
	s.Sections += c.Sections
	s.Subsections += c.Subsections
	s.Definitions += c.Definitions
	s.CrossReferences += c.CrossReferences
}

// SetCalls records API call totals and refreshes the success rate, the
// percentage of calls that did not fail.
func (s *Stats) SetCalls(total, failed int64) {
	s.APICalls = total
	s.FailedAPICalls = failed
	s.SuccessRate = float64(total-failed) / float64(max(total, 1)) * percent
}

// Finish stamps the end time and the duration.
func (s *Stats) Finish(end time.Time) {
	s.EndTime = &end
	if s.StartTime != nil {
		s.DurationSeconds = end.Sub(*s.StartTime).Seconds()
	}
}

// Snapshot returns a copy safe to hand to another goroutine.
func (s *Stats) Snapshot() Stats {
	c := *s
	if s.StartTime != nil {
		t := *s.StartTime
		c.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return c
}
