package indexer

import (
	"context"
	"errors"
	"fmt"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/archive"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/backend"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/cornell"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/job"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ucc"
)

// DefaultUCCBatchSize is the number of articles between statistics checkpoints.
const DefaultUCCBatchSize = 5

const htmlContentType = "text/html; charset=utf-8"

// ArticleSource lists and scrapes UCC articles. *cornell.Scraper satisfies it.
type ArticleSource interface {
	ArticleList(ctx context.Context) ([]cornell.ArticleInfo, error)
	Article(number string) (cornell.ArticleInfo, error)
	ArticleSections(ctx context.Context, article cornell.ArticleInfo) (*cornell.ArticleContent, error)
}

// UCCIndexer indexes UCC articles.
type UCCIndexer struct {
	engine    *engine
	articles  ArticleSource
	processor *ucc.Processor
}

// NewUCCIndexer creates a UCC indexer writing to store.
func NewUCCIndexer(
	store Store,
	calls CallCounter,
	articles ArticleSource,
	opts Options,
	log infralogger.Logger,
) *UCCIndexer {
	if log == nil {
		log = infralogger.NewNop()
	}
	opts.setDefaults(DefaultUCCBatchSize)
	log = log.With(infralogger.String("corpus", string(domain.CorpusUCC)))

	return &UCCIndexer{
		engine: &engine{
			corpus:        domain.CorpusUCC,
			store:         store,
			calls:         calls,
			opts:          opts,
			log:           log,
			hooks:         []string{backend.HookOptimizeSearchIndex, backend.HookUpdateStats},
			fetchingStage: job.StageFetchingArticles,
			searchContent: ucc.SearchContent,
		},
		articles:  articles,
		processor: ucc.NewProcessor(log),
	}
}

// StartFullIndexing indexes one article, or every article when article is
// empty, and returns the job id.
func (x *UCCIndexer) StartFullIndexing(ctx context.Context, article string) (backend.ID, error) {
	res, err := x.RunFull(ctx, article)
	if res == nil {
		return "", err
	}
	return res.JobID, err
}

// RunFull is StartFullIndexing returning the whole run result.
func (x *UCCIndexer) RunFull(ctx context.Context, article string) (*Result, error) {
	req := backend.JobRequest{JobType: backend.JobFull}
	if article != "" {
		req.JobType = backend.JobSingleUnit
		req.ArticleNumber = article
	}
	return x.engine.run(ctx, runPlan{
		request: req,
		single:  article != "",
		list: func(ctx context.Context) ([]candidate, error) {
			return x.candidates(ctx, article)
		},
	})
}

// StartIncrementalIndexing re-indexes the articles the ledger marks as new
// or stale, skipping those whose content fingerprint did not change.
func (x *UCCIndexer) StartIncrementalIndexing(ctx context.Context) (*Result, error) {
	return x.engine.incremental(ctx,
		backend.JobRequest{JobType: backend.JobIncremental},
		func(ctx context.Context) ([]candidate, error) {
			return x.candidates(ctx, "")
		},
	)
}

// Status returns the store's UCC statistics.
func (x *UCCIndexer) Status(ctx context.Context) (map[string]any, error) {
	return x.engine.store.Stats(ctx)
}

// Articles lists the articles available from the source.
func (x *UCCIndexer) Articles(ctx context.Context) ([]cornell.ArticleInfo, error) {
	return x.articles.ArticleList(ctx)
}

// Current returns the state of the latest job.
func (x *UCCIndexer) Current() (job.State, bool) { return x.engine.Current() }

// Running reports whether a run is active.
func (x *UCCIndexer) Running() bool { return x.engine.Running() }

func (x *UCCIndexer) candidates(ctx context.Context, article string) ([]candidate, error) {
	if article != "" {
		info, err := x.articles.Article(article)
		if errors.Is(err, cornell.ErrUnknownArticle) {
			return nil, fmt.Errorf("%w: article %s", ErrUnitNotFound, article)
		}
		if err != nil {
			return nil, err
		}
		return []candidate{x.candidate(info)}, nil
	}

	infos, err := x.articles.ArticleList(ctx)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	out := make([]candidate, 0, len(infos))
	for _, info := range infos {
		out = append(out, x.candidate(info))
	}
	return out, nil
}

func (x *UCCIndexer) candidate(info cornell.ArticleInfo) candidate {
	return candidate{
		number: info.Number,
		stage:  job.ArticleStage(info.Number),
		load: func(ctx context.Context) (*loaded, error) {
			content, err := x.articles.ArticleSections(ctx, info)
			if err != nil {
				return nil, err
			}

			unit, err := x.processor.ProcessArticle(content)
			if err != nil {
				return nil, fmt.Errorf("process article %s: %w", info.Number, err)
			}

			sources := make([]archive.Object, 0, len(content.Sections))
			for _, page := range content.Sections {
				if page.HTML == "" {
					continue
				}
				sources = append(sources, archive.Object{
					Corpus:      string(domain.CorpusUCC),
					Unit:        info.Number,
					Name:        page.ArticleNumber + "-" + page.Number,
					Body:        []byte(page.HTML),
					ContentType: htmlContentType,
					SourceURL:   page.SourceURL,
					FetchedAt:   page.FetchedAt,
				})
			}
			return &loaded{unit: unit, sources: sources}, nil
		},
	}
}
