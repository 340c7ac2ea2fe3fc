// Package indexer runs indexing jobs: it pulls units from a source,
// processes them into sections, and writes the records to the store.
package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/archive"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/backend"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/job"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ledger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/metrics"
)

// DefaultStaleAfter is how old a ledger entry may get before an
// incremental run re-indexes the unit regardless of its source date.
const DefaultStaleAfter = 30 * 24 * time.Hour

var (
	// ErrUnitNotFound is returned when a requested title or article does not exist.
	ErrUnitNotFound = errors.New("indexer: unit not found")
	// ErrRunInProgress is returned when an indexer is asked to start a
	// second run while one is active.
	ErrRunInProgress = errors.New("indexer: run already in progress")
)

// Store is the records store for one corpus. *backend.CorpusClient satisfies it.
type Store interface {
	job.Store
	CreateUnit(ctx context.Context, u *domain.Unit, indexedAt time.Time) (backend.ID, error)
	CreateDivision(ctx context.Context, unitID backend.ID, d domain.Division) (backend.ID, error)
	CreateSection(ctx context.Context, unitID, divisionID backend.ID, u *domain.Unit, s *domain.Section) (backend.ID, error)
	CreateSubsection(ctx context.Context, sectionID backend.ID, sub domain.Subsection) (backend.ID, error)
	CreateDefinition(ctx context.Context, sectionID, unitID backend.ID, d domain.Definition) (backend.ID, error)
	CreateCrossReference(ctx context.Context, fromID, toID backend.ID, ref domain.CrossReference) (backend.ID, error)
	CreateSearchIndex(ctx context.Context, sectionID backend.ID, s *domain.Section, content string) (backend.ID, error)
	ResolveCitation(ctx context.Context, citation string) (backend.ID, error)
	Finalize(ctx context.Context, hook string) error
	Stats(ctx context.Context) (map[string]any, error)
}

// CallCounter reports store call totals. *backend.Client satisfies it.
type CallCounter interface {
	Calls() int64
	FailedCalls() int64
}

// Ledger remembers what was indexed. *ledger.Ledger satisfies it.
type Ledger interface {
	Get(ctx context.Context, corpus domain.Corpus, unit string) (*ledger.Record, error)
	Put(ctx context.Context, rec ledger.Record) error
}

// Mirror copies sections into a search cluster. *search.Mirror satisfies it.
type Mirror interface {
	IndexSection(ctx context.Context, corpus domain.Corpus, s *domain.Section, content string) error
}

// Archive keeps raw source markup. *archive.Archiver satisfies it.
type Archive interface {
	Put(ctx context.Context, obj archive.Object) (string, error)
}

// Options tune an indexer. Nil collaborators are skipped.
type Options struct {
	// BatchSize is the number of units between statistics checkpoints.
	BatchSize int
	// StaleAfter bounds the age of ledger entries in incremental runs.
	StaleAfter time.Duration
	Ledger     Ledger
	Mirror     Mirror
	Archive    Archive
	Metrics    *metrics.Metrics
	Clock      func() time.Time
}

func (o *Options) setDefaults(batchSize int) {
	if o.BatchSize <= 0 {
		o.BatchSize = batchSize
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// Result summarizes one run.
type Result struct {
	JobID  backend.ID `json:"job_id,omitempty"`
	Mode   string     `json:"mode"`
	Status job.Status `json:"status,omitempty"`
	Stats  job.Stats  `json:"stats"`
	// Changed lists the units written to the store.
	Changed   []string `json:"changed"`
	Unchanged []string `json:"unchanged,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

func newResult(mode string) *Result {
	return &Result{Mode: mode, Changed: []string{}}
}
