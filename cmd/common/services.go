package common

import (
	"context"
	"fmt"
	"slices"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/circuitbreaker"
	infracontext "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/context"
	infraes "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/elasticsearch"
	infrahttp "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/http"
	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/archive"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/backend"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/config"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/cornell"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/fetch"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/govinfo"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/indexer"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ledger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/metrics"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ops"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/search"
)

const (
	govinfoName = "govinfo"
	cornellName = "cornell"

	retryMultiplier = 2.0
)

// Services holds the wired components. Optional components are nil when
// they are not configured.
type Services struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	Backend *backend.Client
	GovInfo *govinfo.Client
	Cornell *cornell.Scraper
	USCode  *indexer.USCodeIndexer
	UCC     *indexer.UCCIndexer

	Ledger   *ledger.Ledger
	Mirror   *search.Mirror
	Archiver *archive.Archiver

	log     infralogger.Logger
	closers []func()
}

// NewServices connects every configured component. Close releases them.
func NewServices(ctx context.Context, deps CommandDeps) (*Services, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}

	cfg := deps.Config
	s := &Services{Config: cfg, Metrics: metrics.New(), log: deps.Logger}

	if err := s.build(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Services) build(ctx context.Context) error {
	cfg := s.Config

	setupCtx, cancel := infracontext.WithSetupTimeout(ctx)
	defer cancel()

	var redisClient *goredis.Client
	if cfg.Cache.Enabled() {
		client, err := infraredis.NewClient(setupCtx, cfg.Cache.Redis)
		if err != nil {
			return fmt.Errorf("connect fetch cache: %w", err)
		}
		redisClient = client
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.log.Info("Using Redis fetch cache", infralogger.String("address", cfg.Cache.Redis.Address))
	}

	if err := s.buildSources(redisClient); err != nil {
		return err
	}

	store, err := backend.NewClient(backend.Config{
		BaseURL:           cfg.Backend.URL,
		Token:             cfg.Backend.SharedSecret,
		Timeout:           cfg.Backend.Timeout,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.Backend.BreakerThreshold,
			SuccessThreshold: cfg.Backend.BreakerSuccesses,
			Timeout:          cfg.Backend.BreakerOpenPeriod,
		},
	}, s.Metrics, s.log)
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}
	s.Backend = store
	s.closers = append(s.closers, store.Close)

	if err := s.buildOptional(setupCtx); err != nil {
		return err
	}

	s.buildIndexers()
	return nil
}

func (s *Services) buildSources(redisClient *goredis.Client) error {
	cfg := s.Config

	govHeaders := map[string]string{"Accept": "application/json"}
	if cfg.GovInfo.APIKey != "" {
		govHeaders["X-Api-Key"] = cfg.GovInfo.APIKey
	}
	govFetch := fetch.NewClient(
		fetchConfig(govinfoName, cfg.GovInfo.Limits),
		fetch.NewHTTPTransport(&infrahttp.ClientConfig{
			Timeout: cfg.GovInfo.Limits.Timeout,
			Headers: govHeaders,
		}),
		s.cache(redisClient, govinfoName, cfg.GovInfo.Limits),
		s.Metrics,
		s.log,
	)
	s.closers = append(s.closers, govFetch.Close)

	s.GovInfo = govinfo.NewClient(govinfo.Config{
		BaseURL:          cfg.GovInfo.BaseURL,
		APIKeyConfigured: cfg.GovInfo.APIKey != "",
		Year:             cfg.GovInfo.Year,
		MaxPages:         cfg.GovInfo.MaxPages,
	}, govFetch, s.log.With(infralogger.String("source", govinfoName)))

	cornellFetch := fetch.NewClient(
		fetchConfig(cornellName, cfg.Cornell.Limits),
		cornell.NewCollyTransport(cornell.TransportConfig{
			UserAgent: cfg.Cornell.UserAgent,
			Timeout:   cfg.Cornell.Limits.Timeout,
		}),
		s.cache(redisClient, cornellName, cfg.Cornell.Limits),
		s.Metrics,
		s.log,
	)
	s.closers = append(s.closers, cornellFetch.Close)

	scraper, err := cornell.NewScraper(
		cornell.Config{BaseURL: cfg.Cornell.BaseURL},
		cornellFetch,
		s.log.With(infralogger.String("source", cornellName)),
	)
	if err != nil {
		return fmt.Errorf("create cornell scraper: %w", err)
	}
	s.Cornell = scraper
	return nil
}

// cache returns a Redis cache when one is configured. A nil cache makes the
// fetch client keep its own memory cache.
func (s *Services) cache(client *goredis.Client, name string, limits config.SourceLimits) fetch.Cache {
	if client == nil {
		return nil
	}
	return fetch.NewRedisCache(client, s.Config.Cache.Prefix+name+":", limits.CacheTTL)
}

func fetchConfig(name string, limits config.SourceLimits) fetch.Config {
	return fetch.Config{
		Name:     name,
		Ceiling:  limits.Ceiling,
		Period:   limits.Period,
		CacheTTL: limits.CacheTTL,
		Retry: retry.Config{
			MaxAttempts:  limits.MaxRetries + 1,
			InitialDelay: limits.RetryDelay,
			MaxDelay:     limits.RetryMaxDelay,
			Multiplier:   retryMultiplier,
		},
	}
}

func (s *Services) buildOptional(ctx context.Context) error {
	cfg := s.Config

	if cfg.Ledger.Enabled() {
		db, err := ledger.Open(ctx, cfg.Ledger)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		l := ledger.New(db)
		s.closers = append(s.closers, func() { _ = l.Close() })
		if schemaErr := l.EnsureSchema(ctx); schemaErr != nil {
			return fmt.Errorf("ledger schema: %w", schemaErr)
		}
		s.Ledger = l
	}

	if cfg.Elasticsearch.Enabled() {
		client, err := infraes.NewClient(ctx, cfg.Elasticsearch, s.log)
		if err != nil {
			return fmt.Errorf("connect search mirror: %w", err)
		}
		mirror := search.NewMirror(client, cfg.Elasticsearch.Index, s.log)
		if indexErr := mirror.EnsureIndex(ctx); indexErr != nil {
			return fmt.Errorf("search mirror index: %w", indexErr)
		}
		s.Mirror = mirror
	}

	if cfg.Archive.Enabled() {
		client, err := archive.NewClient(cfg.Archive)
		if err != nil {
			return fmt.Errorf("connect archive: %w", err)
		}
		archiver := archive.NewArchiver(client, cfg.Archive, s.log)
		if bucketErr := archiver.EnsureBucket(ctx); bucketErr != nil {
			return fmt.Errorf("archive bucket: %w", bucketErr)
		}
		s.Archiver = archiver
	}
	return nil
}

func (s *Services) buildIndexers() {
	cfg := s.Config

	base := indexer.Options{
		StaleAfter: cfg.Indexer.StaleAfter,
		Metrics:    s.Metrics,
	}
	// Interfaces stay nil unless the component exists.
	if s.Ledger != nil {
		base.Ledger = s.Ledger
	}
	if s.Mirror != nil {
		base.Mirror = s.Mirror
	}
	if s.Archiver != nil {
		base.Archive = s.Archiver
	}

	uscodeOpts := base
	uscodeOpts.BatchSize = cfg.Indexer.USCodeBatchSize
	s.USCode = indexer.NewUSCodeIndexer(
		s.Backend.For(domain.CorpusUSCode), s.Backend, s.GovInfo, uscodeOpts, s.log)

	uccOpts := base
	uccOpts.BatchSize = cfg.Indexer.UCCBatchSize
	s.UCC = indexer.NewUCCIndexer(
		s.Backend.For(domain.CorpusUCC), s.Backend, s.Cornell, uccOpts, s.log)
}

// Enabled reports whether corpus is listed in indexer.corpora.
func (s *Services) Enabled(corpus domain.Corpus) bool {
	return slices.ContainsFunc(s.Config.Indexer.Corpora, func(name string) bool {
		c, err := domain.ParseCorpus(name)
		return err == nil && c == corpus
	})
}

// Require returns ErrCorpusDisabled unless corpus is enabled.
func (s *Services) Require(corpus domain.Corpus) error {
	if !s.Enabled(corpus) {
		return fmt.Errorf("%w: %s", ErrCorpusDisabled, corpus)
	}
	return nil
}

// Corpora returns the status views of the enabled corpora.
func (s *Services) Corpora() map[domain.Corpus]ops.CorpusStatus {
	out := make(map[domain.Corpus]ops.CorpusStatus, len(domain.Corpora()))
	if s.Enabled(domain.CorpusUSCode) {
		out[domain.CorpusUSCode] = s.USCode
	}
	if s.Enabled(domain.CorpusUCC) {
		out[domain.CorpusUCC] = s.UCC
	}
	return out
}

// Checks returns the dependency probes reported by health endpoints.
func (s *Services) Checks() []ops.Check {
	checks := []ops.Check{{
		Name:     "backend",
		Required: true,
		Ping: func(ctx context.Context) error {
			_, err := s.Backend.For(domain.CorpusUSCode).Stats(ctx)
			return err
		},
	}}

	if s.Enabled(domain.CorpusUSCode) {
		checks = append(checks, ops.Check{Name: govinfoName, Ping: func(ctx context.Context) error {
			if h := s.GovInfo.Health(ctx); h.Status != govinfo.StatusHealthy {
				return fmt.Errorf("govinfo %s: %s", h.Status, h.Error)
			}
			return nil
		}})
	}
	if s.Ledger != nil {
		checks = append(checks, ops.Check{Name: "ledger", Ping: s.Ledger.Ping})
	}
	if s.Mirror != nil {
		checks = append(checks, ops.Check{Name: "elasticsearch", Ping: s.Mirror.Ping})
	}
	if s.Archiver != nil {
		checks = append(checks, ops.Check{Name: "archive", Ping: s.Archiver.HealthCheck})
	}
	return checks
}

// Close releases every component in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
