package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/archive"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/backend"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/cornell"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/fetch"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/govinfo"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ledger"
)

var errStore = errors.New("store unavailable")

type crossRef struct {
	From   backend.ID
	To     backend.ID
	Target string
}

// mockStore records every write and counts calls like the backend client.
type mockStore struct {
	mu sync.Mutex

	nextID      int
	jobs        []backend.JobRequest
	updates     []backend.JobUpdate
	units       []string
	divisions   []string
	sections    []string
	subsections int
	definitions int
	crossRefs   []crossRef
	searchIndex int
	hooks       []string

	citations    map[string]backend.ID
	failUnits    map[string]bool
	failSections map[string]bool
	createJobErr error
	finalizeErr  error

	calls  int64
	failed int64
}

func newMockStore() *mockStore {
	return &mockStore{
		citations:    make(map[string]backend.ID),
		failUnits:    make(map[string]bool),
		failSections: make(map[string]bool),
	}
}

func (m *mockStore) newID(prefix string) backend.ID {
	m.nextID++
	return backend.ID(fmt.Sprintf("%s-%d", prefix, m.nextID))
}

func (m *mockStore) call(err error) error {
	m.calls++
	if err != nil {
		m.failed++
	}
	return err
}

func (m *mockStore) CreateJob(_ context.Context, req backend.JobRequest) (backend.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(m.createJobErr); err != nil {
		return "", err
	}
	m.jobs = append(m.jobs, req)
	return "job-1", nil
}

func (m *mockStore) UpdateJob(_ context.Context, _ backend.ID, update backend.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, update)
	return m.call(nil)
}

func (m *mockStore) CreateUnit(_ context.Context, u *domain.Unit, _ time.Time) (backend.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUnits[u.Number] {
		return "", m.call(errStore)
	}
	m.units = append(m.units, u.Number)
	return m.newID("unit"), m.call(nil)
}

func (m *mockStore) CreateDivision(_ context.Context, _ backend.ID, d domain.Division) (backend.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.divisions = append(m.divisions, d.Number)
	return m.newID("division"), m.call(nil)
}

func (m *mockStore) CreateSection(
	_ context.Context,
	_, _ backend.ID,
	_ *domain.Unit,
	s *domain.Section,
) (backend.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSections[s.Citation] {
		return "", m.call(errStore)
	}
	m.sections = append(m.sections, s.Citation)
	return m.newID("section"), m.call(nil)
}

func (m *mockStore) CreateSubsection(_ context.Context, _ backend.ID, _ domain.Subsection) (backend.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subsections++
	return m.newID("subsection"), m.call(nil)
}

func (m *mockStore) CreateDefinition(_ context.Context, _, _ backend.ID, _ domain.Definition) (backend.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions++
	return m.newID("definition"), m.call(nil)
}

func (m *mockStore) CreateCrossReference(
	_ context.Context,
	fromID, toID backend.ID,
	ref domain.CrossReference,
) (backend.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crossRefs = append(m.crossRefs, crossRef{From: fromID, To: toID, Target: ref.Target})
	return m.newID("reference"), m.call(nil)
}

func (m *mockStore) CreateSearchIndex(_ context.Context, _ backend.ID, _ *domain.Section, _ string) (backend.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchIndex++
	return m.newID("search"), m.call(nil)
}

func (m *mockStore) ResolveCitation(_ context.Context, citation string) (backend.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.citations[citation]; ok {
		return id, m.call(nil)
	}
	return "", m.call(&backend.Failure{Method: http.MethodGet, StatusCode: http.StatusNotFound, Message: citation})
}

func (m *mockStore) Finalize(_ context.Context, hook string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
	return m.call(m.finalizeErr)
}

func (m *mockStore) Stats(context.Context) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{"units": len(m.units)}, m.call(nil)
}

func (m *mockStore) Calls() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockStore) FailedCalls() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

func (m *mockStore) lastUpdate() backend.JobUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates[len(m.updates)-1]
}

// titleXML is a small USLM title with two sections in one chapter.
func titleXML(n int) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<uscDoc xmlns="http://xml.house.gov/schemas/uslm/1.0" identifier="/us/usc/t%[1]d">
<main>
<title><num value="%[1]d">Title %[1]d—</num><heading>GENERAL PROVISIONS</heading>
<chapter><num value="1">CHAPTER 1—</num><heading>SCOPE</heading>
<section><num value="1">§ 1.</num><heading>Application</heading>
<content>This chapter applies to every contract described in section 2 of this title.</content></section>
<section><num value="2">§ 2.</num><heading>Contracts</heading>
<content>A contract for the sale of goods shall be in writing.</content></section>
</chapter>
</title>
</main>
</uscDoc>`, n)
}

type mockTitles struct {
	mu      sync.Mutex
	titles  []govinfo.TitleInfo
	xml     map[int]string
	listErr error
	fetched []int
}

func newMockTitles(numbers ...int) *mockTitles {
	m := &mockTitles{xml: make(map[int]string)}
	for _, n := range numbers {
		m.titles = append(m.titles, govinfo.TitleInfo{
			Number:    n,
			Name:      fmt.Sprintf("Title %d", n),
			PackageID: govinfo.PackageID(n, 2024),
			Year:      2024,
		})
		m.xml[n] = titleXML(n)
	}
	return m
}

func (m *mockTitles) ListTitles(context.Context) ([]govinfo.TitleInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]govinfo.TitleInfo(nil), m.titles...), nil
}

func (m *mockTitles) TitleContent(_ context.Context, info govinfo.TitleInfo) (*govinfo.TitleContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, info.Number)

	x, ok := m.xml[info.Number]
	if !ok {
		return nil, fmt.Errorf("title %d summary: %w", info.Number, fetch.ErrNotFound)
	}
	return &govinfo.TitleContent{
		PackageID:    info.PackageID,
		TitleNumber:  info.Number,
		Year:         info.Year,
		Title:        info.Name,
		XMLLink:      "https://api.govinfo.gov/packages/" + info.PackageID + "/xml",
		XML:          []byte(x),
		LastModified: info.LastModified,
	}, nil
}

type mockArticles struct {
	mu       sync.Mutex
	articles []cornell.ArticleInfo
	failing  map[string]error
}

func newMockArticles(numbers ...string) *mockArticles {
	m := &mockArticles{failing: make(map[string]error)}
	for _, n := range numbers {
		m.articles = append(m.articles, cornell.ArticleInfo{
			Number: n,
			Name:   "Article " + n,
			URL:    "https://www.law.cornell.edu/ucc/" + n,
		})
	}
	return m
}

func (m *mockArticles) ArticleList(context.Context) ([]cornell.ArticleInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cornell.ArticleInfo(nil), m.articles...), nil
}

func (m *mockArticles) Article(number string) (cornell.ArticleInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.Number == number {
			return a, nil
		}
	}
	return cornell.ArticleInfo{}, fmt.Errorf("%w: %s", cornell.ErrUnknownArticle, number)
}

func (m *mockArticles) ArticleSections(_ context.Context, article cornell.ArticleInfo) (*cornell.ArticleContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing[article.Number]; err != nil {
		return nil, err
	}
	return &cornell.ArticleContent{
		Article: article,
		Parts:   []cornell.PartInfo{{Number: "1", Name: "General Provisions", ArticleNumber: article.Number}},
		Sections: []cornell.SectionPage{{
			ArticleNumber: article.Number,
			Number:        "101",
			Citation:      "UCC " + article.Number + "-101",
			Heading:       "Short title",
			Text:          "This Article may be cited as Uniform Commercial Code.",
			HTML:          "<p>This Article may be cited as Uniform Commercial Code.</p>",
			SourceURL:     "https://www.law.cornell.edu/ucc/" + article.Number + "/" + article.Number + "-101",
			FetchedAt:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		}},
		Failures: []domain.SkippedSection{},
	}, nil
}

type mockLedger struct {
	mu      sync.Mutex
	records map[string]ledger.Record
	puts    []ledger.Record
}

func newMockLedger() *mockLedger {
	return &mockLedger{records: make(map[string]ledger.Record)}
}

func (m *mockLedger) Get(_ context.Context, corpus domain.Corpus, unit string) (*ledger.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[string(corpus)+"/"+unit]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &rec, nil
}

func (m *mockLedger) Put(_ context.Context, rec ledger.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Corpus+"/"+rec.Unit] = rec
	m.puts = append(m.puts, rec)
	return nil
}

type mockMirror struct {
	mu        sync.Mutex
	citations []string
}

func (m *mockMirror) IndexSection(_ context.Context, _ domain.Corpus, s *domain.Section, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.citations = append(m.citations, s.Citation)
	return nil
}

type mockArchive struct {
	mu      sync.Mutex
	objects []archive.Object
}

func (m *mockArchive) Put(_ context.Context, obj archive.Object) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = append(m.objects, obj)
	return archive.ObjectKey(obj), nil
}
