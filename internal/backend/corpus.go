package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

// Finalization hooks.
const (
	HookRebuildIndex        = "index/rebuild"
	HookOptimizeMaintenance = "maintenance/optimize"
	HookOptimizeSearchIndex = "search-index/optimize"
	HookUpdateStats         = "stats/update"
)

// CorpusClient is the store seen from one corpus. US Code units are titles
// with chapters, UCC units are articles with parts.
type CorpusClient struct {
	client *Client
	corpus domain.Corpus
}

// Corpus returns the corpus this view writes to.
func (c *CorpusClient) Corpus() domain.Corpus { return c.corpus }

func (c *CorpusClient) path(parts ...string) string {
	return joinPath(append([]string{string(c.corpus)}, parts...)...)
}

func (c *CorpusClient) unitPath() string {
	if c.corpus == domain.CorpusUCC {
		return c.path("articles")
	}
	return c.path("titles")
}

func (c *CorpusClient) divisionPath() string {
	if c.corpus == domain.CorpusUCC {
		return c.path("parts")
	}
	return c.path("chapters")
}

// unitKeys places a unit id under titleId or articleId.
func (c *CorpusClient) unitKeys(unitID ID) (titleID, articleID ID) {
	if c.corpus == domain.CorpusUCC {
		return "", unitID
	}
	return unitID, ""
}

// CreateJob registers an indexing job and returns its id.
func (c *CorpusClient) CreateJob(ctx context.Context, req JobRequest) (ID, error) {
	return c.client.create(ctx, c.corpus, "create_job", c.path("index", "jobs"), req)
}

// UpdateJob changes a job's status, progress, statistics or error message.
func (c *CorpusClient) UpdateJob(ctx context.Context, id ID, update JobUpdate) error {
	return c.client.do(ctx, c.corpus, "update_job", http.MethodPut,
		c.path("index", "jobs", url.PathEscape(id.String())), update, nil)
}

// CreateUnit stores a title or an article.
func (c *CorpusClient) CreateUnit(ctx context.Context, u *domain.Unit, indexedAt time.Time) (ID, error) {
	rec := unitRecord{
		Number:        u.Number,
		Name:          u.Name,
		Description:   u.Description,
		OfficialTitle: u.OfficialTitle,
		PackageID:     u.PackageID,
		SourceURL:     u.SourceURL,
		LastModified:  optionalTime(u.LastModified),
		LastIndexed:   indexedAt.UTC(),
	}
	return c.client.create(ctx, c.corpus, "create_unit", c.unitPath(), rec)
}

// CreateDivision stores a chapter or a part of the unit.
func (c *CorpusClient) CreateDivision(ctx context.Context, unitID ID, d domain.Division) (ID, error) {
	titleID, articleID := c.unitKeys(unitID)
	rec := divisionRecord{
		TitleID:      titleID,
		ArticleID:    articleID,
		Number:       d.Number,
		Name:         d.Name,
		Description:  d.Description,
		StartSection: d.StartSection,
		EndSection:   d.EndSection,
	}
	return c.client.create(ctx, c.corpus, "create_division", c.divisionPath(), rec)
}

// CreateSection stores a section. divisionID may be empty.
func (c *CorpusClient) CreateSection(ctx context.Context, unitID, divisionID ID, u *domain.Unit, s *domain.Section) (ID, error) {
	titleID, articleID := c.unitKeys(unitID)
	rec := sectionRecord{
		TitleID:         titleID,
		ArticleID:       articleID,
		Number:          s.Number,
		Citation:        s.Citation,
		Heading:         s.Heading,
		Content:         s.Text,
		CleanText:       s.CleanText,
		Keywords:        s.Keywords,
		Categories:      s.Categories,
		OfficialComment: s.OfficialComment,
		SourceURL:       s.SourceURL,
		LastModified:    optionalTime(s.LastModified),
	}
	if c.corpus == domain.CorpusUCC {
		rec.PartID = divisionID
		rec.PartNumber = s.DivisionNumber
		rec.HTMLContent = s.RawContent
	} else {
		rec.ChapterNumber = s.DivisionNumber
		rec.XMLContent = s.RawContent
		rec.PackageID = u.PackageID
	}
	return c.client.create(ctx, c.corpus, "create_section", c.path("sections"), rec)
}

// CreateSubsection stores one subsection of a section.
func (c *CorpusClient) CreateSubsection(ctx context.Context, sectionID ID, sub domain.Subsection) (ID, error) {
	rec := subsectionRecord{
		SectionID: sectionID,
		Number:    sub.Label,
		Content:   sub.Content,
		Level:     sub.Level,
		Order:     sub.Order,
	}
	return c.client.create(ctx, c.corpus, "create_subsection", c.path("subsections"), rec)
}

// CreateDefinition stores one definition of a section.
func (c *CorpusClient) CreateDefinition(ctx context.Context, sectionID, unitID ID, d domain.Definition) (ID, error) {
	titleID, articleID := c.unitKeys(unitID)
	alternatives := d.AlternativeTerms
	if alternatives == nil {
		alternatives = []string{}
	}
	rec := definitionRecord{
		SectionID:        sectionID,
		TitleID:          titleID,
		ArticleID:        articleID,
		Term:             d.Term,
		Definition:       d.Text,
		Scope:            string(d.Scope),
		AlternativeTerms: alternatives,
		CitationContext:  d.Citation,
	}
	return c.client.create(ctx, c.corpus, "create_definition", c.path("definitions"), rec)
}

// CreateCrossReference stores a reference. toID is the resolved target
// section and may be empty; unresolved references keep the raw target.
func (c *CorpusClient) CreateCrossReference(ctx context.Context, fromID, toID ID, ref domain.CrossReference) (ID, error) {
	rec := crossReferenceRecord{
		FromSectionID: fromID,
		ToSectionID:   toID,
		ReferenceType: string(ref.Kind),
		Context:       ref.Context,
	}
	if ref.Kind.Internal() {
		rec.TargetCitation = ref.Target
	} else {
		rec.ExternalReference = ref.Target
	}
	return c.client.create(ctx, c.corpus, "create_cross_reference", c.path("cross-references"), rec)
}

// CreateSearchIndex stores the search entry of a section.
func (c *CorpusClient) CreateSearchIndex(ctx context.Context, sectionID ID, s *domain.Section, content string) (ID, error) {
	rec := searchIndexRecord{
		SectionID:        sectionID,
		SearchContent:    content,
		Keywords:         s.Keywords,
		Topics:           s.Topics,
		CommercialTerms:  s.CommercialTerms,
		TransactionTypes: s.TransactionTypes,
	}
	return c.client.create(ctx, c.corpus, "create_search_index", c.path("search-index"), rec)
}

// ResolveCitation looks up the id of the section with the given citation.
// Unknown citations return an error matching ErrNotFound.
func (c *CorpusClient) ResolveCitation(ctx context.Context, citation string) (ID, error) {
	var rec created
	err := c.client.do(ctx, c.corpus, "resolve_citation", http.MethodGet,
		c.path("sections", "by-citation", url.PathEscape(citation)), nil, &rec)
	if err != nil {
		return "", err
	}
	if rec.ID == "" {
		return "", &Failure{Method: http.MethodGet, Path: c.path("sections", "by-citation"), StatusCode: http.StatusNotFound, Message: citation}
	}
	return rec.ID, nil
}

// Finalize triggers a post-run maintenance hook.
func (c *CorpusClient) Finalize(ctx context.Context, hook string) error {
	return c.client.do(ctx, c.corpus, "finalize", http.MethodPost, c.path(hook), struct{}{}, nil)
}

// Stats returns the store's statistics for the corpus.
func (c *CorpusClient) Stats(ctx context.Context) (map[string]any, error) {
	stats := make(map[string]any)
	if err := c.client.do(ctx, c.corpus, "stats", http.MethodGet, c.path("stats"), nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
