package indexer

import (
	"context"
	"fmt"
	"strconv"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/archive"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/backend"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/govinfo"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/job"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/uscode"
)

// DefaultUSCodeBatchSize is the number of titles between statistics checkpoints.
const DefaultUSCodeBatchSize = 10

const xmlContentType = "application/xml"

// TitleSource lists and downloads US Code titles. *govinfo.Client satisfies it.
type TitleSource interface {
	ListTitles(ctx context.Context) ([]govinfo.TitleInfo, error)
	TitleContent(ctx context.Context, info govinfo.TitleInfo) (*govinfo.TitleContent, error)
}

// USCodeIndexer indexes US Code titles.
type USCodeIndexer struct {
	engine    *engine
	titles    TitleSource
	processor *uscode.Processor
}

// NewUSCodeIndexer creates a US Code indexer writing to store.
func NewUSCodeIndexer(
	store Store,
	calls CallCounter,
	titles TitleSource,
	opts Options,
	log infralogger.Logger,
) *USCodeIndexer {
	if log == nil {
		log = infralogger.NewNop()
	}
	opts.setDefaults(DefaultUSCodeBatchSize)
	log = log.With(infralogger.String("corpus", string(domain.CorpusUSCode)))

	return &USCodeIndexer{
		engine: &engine{
			corpus:        domain.CorpusUSCode,
			store:         store,
			calls:         calls,
			opts:          opts,
			log:           log,
			hooks:         []string{backend.HookRebuildIndex, backend.HookOptimizeMaintenance},
			fetchingStage: job.StageFetchingTitles,
			searchContent: uscode.SearchContent,
		},
		titles:    titles,
		processor: uscode.NewProcessor(log),
	}
}

// StartFullIndexing indexes one title, or every title when title is 0,
// and returns the job id. Unit failures are counted in the job statistics.
func (x *USCodeIndexer) StartFullIndexing(ctx context.Context, title int) (backend.ID, error) {
	res, err := x.RunFull(ctx, title)
	if res == nil {
		return "", err
	}
	return res.JobID, err
}

// RunFull is StartFullIndexing returning the whole run result.
func (x *USCodeIndexer) RunFull(ctx context.Context, title int) (*Result, error) {
	req := backend.JobRequest{JobType: backend.JobFull}
	if title != 0 {
		req.JobType = backend.JobSingleUnit
		req.TitleNumber = title
	}
	return x.engine.run(ctx, runPlan{
		request: req,
		single:  title != 0,
		list: func(ctx context.Context) ([]candidate, error) {
			return x.candidates(ctx, title)
		},
	})
}

// StartIncrementalIndexing re-indexes the titles the ledger marks as new,
// modified since they were indexed, or stale. The result's Changed field is
// the change set.
func (x *USCodeIndexer) StartIncrementalIndexing(ctx context.Context) (*Result, error) {
	return x.engine.incremental(ctx,
		backend.JobRequest{JobType: backend.JobIncremental},
		func(ctx context.Context) ([]candidate, error) {
			return x.candidates(ctx, 0)
		},
	)
}

// Status returns the store's US Code statistics.
func (x *USCodeIndexer) Status(ctx context.Context) (map[string]any, error) {
	return x.engine.store.Stats(ctx)
}

// Titles lists the titles available from the source.
func (x *USCodeIndexer) Titles(ctx context.Context) ([]govinfo.TitleInfo, error) {
	return x.titles.ListTitles(ctx)
}

// Current returns the state of the latest job.
func (x *USCodeIndexer) Current() (job.State, bool) { return x.engine.Current() }

// Running reports whether a run is active.
func (x *USCodeIndexer) Running() bool { return x.engine.Running() }

func (x *USCodeIndexer) candidates(ctx context.Context, title int) ([]candidate, error) {
	infos, err := x.titles.ListTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}

	if title != 0 {
		for _, info := range infos {
			if info.Number == title {
				return []candidate{x.candidate(info)}, nil
			}
		}
		return nil, fmt.Errorf("%w: title %d", ErrUnitNotFound, title)
	}

	out := make([]candidate, 0, len(infos))
	for _, info := range infos {
		out = append(out, x.candidate(info))
	}
	return out, nil
}

func (x *USCodeIndexer) candidate(info govinfo.TitleInfo) candidate {
	return candidate{
		number:   strconv.Itoa(info.Number),
		stage:    job.TitleStage(info.Number),
		modified: info.LastModified,
		load: func(ctx context.Context) (*loaded, error) {
			content, err := x.titles.TitleContent(ctx, info)
			if err != nil {
				return nil, err
			}

			unit, err := x.processor.ProcessTitle(uscode.TitleDocument{
				Number:       content.TitleNumber,
				PackageID:    content.PackageID,
				XML:          content.XML,
				SourceURL:    content.XMLLink,
				LastModified: content.LastModified,
			})
			if err != nil {
				return nil, fmt.Errorf("process title %d: %w", info.Number, err)
			}

			return &loaded{
				unit: unit,
				sources: []archive.Object{{
					Corpus:      string(domain.CorpusUSCode),
					Unit:        unit.Number,
					Name:        content.PackageID,
					Body:        content.XML,
					ContentType: xmlContentType,
					SourceURL:   content.XMLLink,
					FetchedAt:   x.engine.opts.Clock(),
				}},
			}, nil
		},
	}
}
