// Package search mirrors stored sections into an Elasticsearch index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

// Document is the mirrored form of a section.
type Document struct {
	Corpus           string    `json:"corpus"`
	Unit             string    `json:"unit"`
	Division         string    `json:"division,omitempty"`
	Section          string    `json:"section"`
	Citation         string    `json:"citation"`
	Heading          string    `json:"heading"`
	Content          string    `json:"content"`
	SearchContent    string    `json:"search_content"`
	Keywords         []string  `json:"keywords"`
	Categories       []string  `json:"categories,omitempty"`
	Topics           []string  `json:"topics"`
	CommercialTerms  []string  `json:"commercial_terms,omitempty"`
	TransactionTypes []string  `json:"transaction_types,omitempty"`
	DefinedTerms     []string  `json:"defined_terms,omitempty"`
	SourceURL        string    `json:"source_url,omitempty"`
	IndexedAt        time.Time `json:"indexed_at"`
}

// Mirror writes section documents to one index.
type Mirror struct {
	client *es.Client
	index  string
	log    infralogger.Logger
	now    func() time.Time
}

// NewMirror creates a mirror over a verified client.
func NewMirror(client *es.Client, index string, log infralogger.Logger) *Mirror {
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Mirror{
		client: client,
		index:  index,
		log:    log.With(infralogger.String("component", "search_mirror")),
		now:    time.Now,
	}
}

// Index returns the index name.
func (m *Mirror) Index() string { return m.index }

// DocumentID is the stable id of a section document.
func DocumentID(corpus domain.Corpus, citation string) string {
	return string(corpus) + ":" + strings.Join(strings.Fields(citation), "_")
}

// NewDocument builds the mirrored document of a section.
func NewDocument(corpus domain.Corpus, s *domain.Section, content string, indexedAt time.Time) Document {
	return Document{
		Corpus:           string(corpus),
		Unit:             s.UnitNumber,
		Division:         s.DivisionNumber,
		Section:          s.Number,
		Citation:         s.Citation,
		Heading:          s.Heading,
		Content:          s.CleanText,
		SearchContent:    content,
		Keywords:         s.Keywords,
		Categories:       s.Categories,
		Topics:           s.Topics,
		CommercialTerms:  s.CommercialTerms,
		TransactionTypes: s.TransactionTypes,
		DefinedTerms:     s.DefinitionTerms(),
		SourceURL:        s.SourceURL,
		IndexedAt:        indexedAt.UTC(),
	}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (m *Mirror) EnsureIndex(ctx context.Context) error {
	res, err := m.client.Indices.Exists(
		[]string{m.index},
		m.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(sectionMapping())
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = m.client.Indices.Create(
		m.index,
		m.client.Indices.Create.WithContext(ctx),
		m.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	m.log.Info("Created search index", infralogger.String("index", m.index))
	return nil
}

// IndexSection writes one section document, replacing any earlier version.
func (m *Mirror) IndexSection(ctx context.Context, corpus domain.Corpus, s *domain.Section, content string) error {
	doc := NewDocument(corpus, s, content, m.now())
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := m.client.Index(
		m.index,
		bytes.NewReader(body),
		m.client.Index.WithContext(ctx),
		m.client.Index.WithDocumentID(DocumentID(corpus, s.Citation)),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document %s: %s", s.Citation, res.String())
	}
	return nil
}

// Ping verifies the cluster is reachable.
func (m *Mirror) Ping(ctx context.Context) error {
	res, err := m.client.Ping(m.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ping elasticsearch: %s", res.Status())
	}
	return nil
}

func sectionMapping() map[string]any {
	keyword := map[string]any{"type": "keyword"}
	text := map[string]any{"type": "text"}

	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"corpus":            keyword,
				"unit":              keyword,
				"division":          keyword,
				"section":           keyword,
				"citation":          keyword,
				"heading":           text,
				"content":           text,
				"search_content":    text,
				"keywords":          keyword,
				"categories":        keyword,
				"topics":            keyword,
				"commercial_terms":  keyword,
				"transaction_types": keyword,
				"defined_terms":     keyword,
				"source_url":        keyword,
				"indexed_at":        map[string]any{"type": "date"},
			},
		},
	}
}
