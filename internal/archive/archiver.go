// Package archive stores raw source markup in MinIO object storage.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
)

const defaultUploadTimeout = 30 * time.Second

// ErrNoEndpoint is returned when the archive has no MinIO endpoint.
var ErrNoEndpoint = errors.New("archive: endpoint is required")

// Config configures the raw markup archive.
type Config struct {
	// Endpoint is the MinIO server address (e.g. "minio:9000"). Empty disables archiving.
	Endpoint  string `env:"MINIO_ENDPOINT"   yaml:"endpoint"`
	AccessKey string `env:"MINIO_ACCESS_KEY" yaml:"access_key"`
	SecretKey string `env:"MINIO_SECRET_KEY" yaml:"secret_key"`
	UseSSL    bool   `env:"MINIO_USE_SSL"    yaml:"use_ssl"`
	// Bucket receives the archived markup.
	Bucket string `env:"MINIO_BUCKET" yaml:"bucket"`
	// UploadTimeout bounds one upload.
	UploadTimeout time.Duration `yaml:"upload_timeout"`
}

// Enabled reports whether an endpoint is configured.
func (c *Config) Enabled() bool {
	return c.Endpoint != ""
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Bucket == "" {
		c.Bucket = "legal-sources"
	}
	if c.UploadTimeout == 0 {
		c.UploadTimeout = defaultUploadTimeout
	}
}

// ObjectStore is the part of the MinIO client the archiver uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts miniogo.MakeBucketOptions) error
	PutObject(
		ctx context.Context,
		bucket, key string,
		reader io.Reader,
		size int64,
		opts miniogo.PutObjectOptions,
	) (miniogo.UploadInfo, error)
}

// Object is one piece of raw markup to archive.
type Object struct {
	Corpus      string
	Unit        string
	Name        string
	Body        []byte
	ContentType string
	SourceURL   string
	FetchedAt   time.Time
}

// Archiver writes raw markup to a bucket.
type Archiver struct {
	store  ObjectStore
	config Config
	log    infralogger.Logger
}

// NewClient creates a MinIO client from the configuration.
func NewClient(cfg Config) (*miniogo.Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNoEndpoint
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

// NewArchiver creates an archiver over store.
func NewArchiver(store ObjectStore, cfg Config, log infralogger.Logger) *Archiver {
	cfg.SetDefaults()
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Archiver{
		store:  store,
		config: cfg,
		log:    log.With(infralogger.String("component", "archive")),
	}
}

// EnsureBucket creates the bucket when it does not exist.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.store.BucketExists(ctx, a.config.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.config.Bucket, err)
	}
	if exists {
		return nil
	}
	if err = a.store.MakeBucket(ctx, a.config.Bucket, miniogo.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.config.Bucket, err)
	}
	a.log.Info("Created archive bucket", infralogger.String("bucket", a.config.Bucket))
	return nil
}

// HealthCheck verifies the bucket is reachable.
func (a *Archiver) HealthCheck(ctx context.Context) error {
	exists, err := a.store.BucketExists(ctx, a.config.Bucket)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", a.config.Bucket)
	}
	return nil
}

// Put uploads one object and returns its key.
func (a *Archiver) Put(ctx context.Context, obj Object) (string, error) {
	if len(obj.Body) == 0 {
		return "", errors.New("archive: empty object")
	}
	if obj.FetchedAt.IsZero() {
		obj.FetchedAt = time.Now()
	}
	key := ObjectKey(obj)

	ctx, cancel := context.WithTimeout(ctx, a.config.UploadTimeout)
	defer cancel()

	_, err := a.store.PutObject(ctx, a.config.Bucket, key,
		bytes.NewReader(obj.Body), int64(len(obj.Body)),
		miniogo.PutObjectOptions{
			ContentType: obj.ContentType,
			UserMetadata: map[string]string{
				"corpus":     obj.Corpus,
				"unit":       obj.Unit,
				"source-url": obj.SourceURL,
				"fetched-at": obj.FetchedAt.UTC().Format(time.RFC3339),
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	a.log.Debug("Archived source markup",
		infralogger.String("object_key", key),
		infralogger.Int("size", len(obj.Body)),
	)
	return key, nil
}

// ObjectKey builds the key of an object:
// {corpus}/{unit}/{year}/{month}/{day}/{name}_{hash}.{ext}
func ObjectKey(obj Object) string {
	ts := obj.FetchedAt.UTC()
	return fmt.Sprintf("%s/%s/%s/%s_%s.%s",
		sanitize(obj.Corpus), sanitize(obj.Unit), ts.Format("2006/01/02"),
		sanitize(obj.Name), contentHash(obj.Body), extension(obj.ContentType))
}

func contentHash(body []byte) string {
	h := sha256.Sum256(body)
	return hex.EncodeToString(h[:])[:8]
}

func extension(contentType string) string {
	switch {
	case strings.Contains(contentType, "xml"):
		return "xml"
	case strings.Contains(contentType, "html"):
		return "html"
	case strings.Contains(contentType, "json"):
		return "json"
	default:
		return "txt"
	}
}

var (
	// invalidObjectNameChars matches characters that are problematic in S3 object names.
	invalidObjectNameChars = regexp.MustCompile(`[\\?*|<>:"\x00-\x1F./ ]`)
	consecutiveUnderscores = regexp.MustCompile(`_{2,}`)
)

// sanitize makes a key segment safe: lowercase, problematic characters
// replaced by single underscores, never empty.
func sanitize(segment string) string {
	s := strings.ToLower(segment)
	s = invalidObjectNameChars.ReplaceAllString(s, "_")
	s = consecutiveUnderscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}
