// Package elasticsearch builds verified Elasticsearch clients for the search mirror.
package elasticsearch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/retry"
)

// ErrNoURL is returned when NewClient is called without a cluster URL.
var ErrNoURL = errors.New("elasticsearch url is required")

// NewClient creates a new Elasticsearch client and verifies the connection
// with retry and exponential backoff.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNoURL
	}
	cfg.SetDefaults()

	url := normalizeURL(cfg.URL)

	clientConfig := es.Config{
		Addresses:  []string{url},
		Transport:  createTransport(cfg.InsecureSkipVerify),
		MaxRetries: cfg.MaxRetries,
	}

	switch {
	case cfg.APIKey != "":
		clientConfig.APIKey = cfg.APIKey
	case cfg.Username != "" && cfg.Password != "":
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	esClient, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	log.Info("Verifying Elasticsearch connection", logger.String("url", url))

	if err := retry.Retry(ctx, *cfg.RetryConfig, func() error {
		return pingElasticsearch(ctx, esClient, cfg.PingTimeout, log)
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch after retries: %w", err)
	}

	log.Info("Elasticsearch connection established", logger.String("url", url))

	return esClient, nil
}

// normalizeURL adds an http:// prefix when no scheme is present.
func normalizeURL(url string) string {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

func createTransport(insecure bool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed dev clusters
	}
	return transport
}

func pingElasticsearch(ctx context.Context, client *es.Client, timeout time.Duration, log logger.Logger) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(pingCtx))
	if err != nil {
		log.Debug("Elasticsearch ping failed", logger.Error(err))
		// retry.DefaultIsRetryable keys on these words
		return fmt.Errorf("ping failed (temporary failure): %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			log.Debug("Failed to close ping response body", logger.Error(closeErr))
		}
	}()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ping returned error [%s] (temporary failure): %s", res.Status(), string(body))
	}

	return nil
}
