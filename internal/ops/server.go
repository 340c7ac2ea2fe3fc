// Package ops serves the operational HTTP surface: health, metrics and
// per-corpus indexing status.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/job"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/metrics"
)

const (
	defaultCheckTimeout  = 5 * time.Second
	defaultStatusTimeout = 10 * time.Second
)

// CorpusStatus is the view of a corpus indexer the status route reads.
type CorpusStatus interface {
	Status(ctx context.Context) (map[string]any, error)
	Current() (job.State, bool)
	Running() bool
}

// Check is one dependency probed by /health.
type Check struct {
	Name string
	// Required dependencies make the service unhealthy when they fail;
	// the others only degrade it.
	Required bool
	Ping     func(ctx context.Context) error
}

// StatusResponse is the body of GET /api/v1/status/:corpus.
type StatusResponse struct {
	Corpus  domain.Corpus  `json:"corpus"`
	Running bool           `json:"running"`
	Job     *job.State     `json:"job,omitempty"`
	Backend map[string]any `json:"backend"`
}

// Options configure the ops server.
type Options struct {
	Checks       []Check
	CheckTimeout time.Duration
	Metrics      *metrics.Metrics
	Corpora      map[domain.Corpus]CorpusStatus
}

// NewServer creates the ops server.
func NewServer(cfg *infragin.Config, opts Options, log infralogger.Logger) *infragin.Server {
	if log == nil {
		log = infralogger.NewNop()
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = defaultCheckTimeout
	}

	return infragin.NewServer(cfg, log, func(router *gin.Engine) {
		infragin.RegisterHealthRoutes(router, cfg, HealthCheckers(opts.Checks, opts.CheckTimeout))

		if opts.Metrics != nil {
			router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
		}

		v1 := router.Group("/api/v1")
		v1.GET("/status/:corpus", statusHandler(opts.Corpora))
	})
}

// HealthCheckers adapts checks to the health route, bounding each ping.
func HealthCheckers(checks []Check, timeout time.Duration) map[string]infragin.HealthChecker {
	out := make(map[string]infragin.HealthChecker, len(checks))
	for _, check := range checks {
		failStatus := infragin.HealthStatusDegraded
		if check.Required {
			failStatus = infragin.HealthStatusUnhealthy
		}
		ping := check.Ping
		out[check.Name] = infragin.PingChecker(check.Name, failStatus, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return ping(ctx)
		})
	}
	return out
}

func statusHandler(corpora map[domain.Corpus]CorpusStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		corpus, err := domain.ParseCorpus(c.Param("corpus"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		src, ok := corpora[corpus]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "corpus not served", "corpus": corpus})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), defaultStatusTimeout)
		defer cancel()

		stats, err := src.Status(ctx)
		if err != nil {
			infralogger.FromContext(ctx).Warn("Failed to read backend statistics",
				infralogger.String("corpus", string(corpus)),
				infralogger.Error(err),
			)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "corpus": corpus})
			return
		}

		resp := StatusResponse{Corpus: corpus, Running: src.Running(), Backend: stats}
		if state, found := src.Current(); found {
			resp.Job = &state
		}
		c.JSON(http.StatusOK, resp)
	}
}
