// Package cornell scrapes the Uniform Commercial Code from Cornell LII.
package cornell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/fetch"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/legaltext"
)

// DefaultBaseURL is the UCC index on Cornell LII.
const DefaultBaseURL = "https://www.law.cornell.edu/ucc"

// progressEvery controls how often section fetch progress is logged.
const progressEvery = 10

var (
	// ErrBadSectionURL is returned for URLs not shaped /ucc/{a}/{a}-{n}.
	ErrBadSectionURL = errors.New("not a ucc section url")
	// ErrUnknownArticle is returned for article numbers outside KnownArticles.
	ErrUnknownArticle = errors.New("unknown ucc article")
)

// sectionURLPattern captures the article twice; RE2 has no backreferences,
// so ParseSectionURL compares the groups.
var (
	articleLinkPattern     = regexp.MustCompile(`/ucc/(\d+[A-Z]?)`)
	sectionURLPattern      = regexp.MustCompile(`/ucc/(\d+[A-Z]?)/(\d+[A-Z]?)-(\d+)`)
	partHeadingPattern     = regexp.MustCompile(`(?i)Part\s+(\d+[A-Z]?)`)
	officialCommentPattern = regexp.MustCompile(`(?is)Official Comment[:\s]+(.*?)(?:\n\n|\z)`)
)

var (
	headingSelectors = []string{"h1", "h2", ".section-title", ".section-heading"}
	contentSelectors = []string{"div.content", "div#content", "main"}
	commentSelectors = []string{".official-comment", ".comment", `[class*="comment"]`, `[id*="comment"]`}
)

// Fetcher is the fetch client surface used by the scraper.
type Fetcher interface {
	Fetch(ctx context.Context, locator string, useCache bool) (*fetch.Response, error)
}

// Config configures a Scraper.
type Config struct {
	BaseURL string
}

// Scraper reads article indexes and section pages.
type Scraper struct {
	fetcher Fetcher
	baseURL string
	base    *url.URL
	log     infralogger.Logger
	now     func() time.Time
}

// NewScraper creates a scraper.
func NewScraper(cfg Config, fetcher Fetcher, log infralogger.Logger) (*Scraper, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &Scraper{fetcher: fetcher, baseURL: baseURL, base: base, log: log, now: time.Now}, nil
}

// ArticleURL returns the index page of an article.
func (s *Scraper) ArticleURL(number string) string {
	return s.baseURL + "/" + number
}

// SectionURL returns the page of section {article}-{number}.
func (s *Scraper) SectionURL(article, number string) string {
	return fmt.Sprintf("%s/%s/%s-%s", s.baseURL, article, article, number)
}

func (s *Scraper) document(ctx context.Context, locator string) (*goquery.Document, *fetch.Response, error) {
	resp, err := s.fetcher.Fetch(ctx, locator, true)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", locator, err)
	}
	return doc, resp, nil
}

func (s *Scraper) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := s.base.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String()
}

// ArticleList returns the known articles linked from the UCC index, in
// canonical order. When the page links none, every known article is returned.
func (s *Scraper) ArticleList(ctx context.Context) ([]ArticleInfo, error) {
	doc, _, err := s.document(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("article list: %w", err)
	}

	linked := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if m := articleLinkPattern.FindStringSubmatch(href); m != nil {
			linked[m[1]] = true
		}
	})

	articles := make([]ArticleInfo, 0, len(KnownArticles))
	for _, known := range KnownArticles {
		if len(linked) > 0 && !linked[known.Number] {
			continue
		}
		articles = append(articles, ArticleInfo{
			Number: known.Number,
			Name:   known.Name,
			URL:    s.ArticleURL(known.Number),
		})
	}

	if len(linked) == 0 {
		s.log.Warn("No article links found, using known article table")
	}
	s.log.Info("Listed UCC articles", infralogger.Int("count", len(articles)))
	return articles, nil
}

// Article returns the entry for a known article number.
func (s *Scraper) Article(number string) (ArticleInfo, error) {
	name, ok := ArticleName(number)
	if !ok {
		return ArticleInfo{}, fmt.Errorf("%w: %s", ErrUnknownArticle, number)
	}
	return ArticleInfo{Number: number, Name: name, URL: s.ArticleURL(number)}, nil
}

// ArticleStructure reads part headings and section links from an article page.
func (s *Scraper) ArticleStructure(ctx context.Context, article ArticleInfo) (*Structure, error) {
	doc, resp, err := s.document(ctx, article.URL)
	if err != nil {
		return nil, fmt.Errorf("article %s structure: %w", article.Number, err)
	}

	st := &Structure{Parts: []PartInfo{}, SectionURLs: []string{}}

	seenParts := make(map[string]bool)
	doc.Find("h2, h3, h4").Each(func(_ int, h *goquery.Selection) {
		text := legaltext.Normalize(h.Text())
		m := partHeadingPattern.FindStringSubmatch(text)
		if m == nil || seenParts[m[1]] {
			return
		}
		seenParts[m[1]] = true
		st.Parts = append(st.Parts, PartInfo{Number: m[1], Name: text, ArticleNumber: article.Number})
	})

	quoted := regexp.QuoteMeta(article.Number)
	linkPattern := regexp.MustCompile(`/ucc/` + quoted + `/` + quoted + `-\d+`)
	seenURLs := make(map[string]bool)
	addURL := func(u string) {
		if u != "" && !seenURLs[u] {
			seenURLs[u] = true
			st.SectionURLs = append(st.SectionURLs, u)
		}
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if linkPattern.MatchString(href) {
			addURL(s.resolve(href))
		}
	})

	if len(st.SectionURLs) == 0 {
		tokenPatterns := []*regexp.Regexp{
			regexp.MustCompile(`§\s*` + quoted + `-(\d+)\b`),
			regexp.MustCompile(`\b` + quoted + `-(\d+)\b`),
		}
		text := string(resp.Body)
		for _, p := range tokenPatterns {
			for _, m := range p.FindAllStringSubmatch(text, -1) {
				addURL(s.SectionURL(article.Number, m[1]))
			}
		}
	}

	s.log.Info("Read article structure",
		infralogger.String("article", article.Number),
		infralogger.Int("parts", len(st.Parts)),
		infralogger.Int("sections", len(st.SectionURLs)),
	)
	return st, nil
}

// ParseSectionURL extracts the article and section numbers from a section
// URL. Both article groups of /ucc/{a}/{a}-{n} must agree.
func ParseSectionURL(sectionURL string) (article, number string, err error) {
	m := sectionURLPattern.FindStringSubmatch(sectionURL)
	if m == nil || m[1] != m[2] {
		return "", "", fmt.Errorf("%w: %s", ErrBadSectionURL, sectionURL)
	}
	return m[1], m[3], nil
}

// FetchSection scrapes one section page.
func (s *Scraper) FetchSection(ctx context.Context, sectionURL string) (*SectionPage, error) {
	article, number, err := ParseSectionURL(sectionURL)
	if err != nil {
		return nil, err
	}

	doc, _, err := s.document(ctx, sectionURL)
	if err != nil {
		return nil, fmt.Errorf("section %s-%s: %w", article, number, err)
	}

	content := contentElement(doc)
	text := legaltext.TextFromSelection(content)

	html, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, fmt.Errorf("section %s-%s markup: %w", article, number, err)
	}

	return &SectionPage{
		ArticleNumber:   article,
		Number:          number,
		Citation:        fmt.Sprintf("UCC %s-%s", article, number),
		Heading:         heading(doc, article, number),
		Text:            text,
		HTML:            html,
		OfficialComment: officialComment(content, text),
		SourceURL:       sectionURL,
		FetchedAt:       s.now(),
	}, nil
}

func heading(doc *goquery.Document, article, number string) string {
	selectors := append(append([]string{}, headingSelectors...), fmt.Sprintf(`[id*="%s-%s"]`, article, number))
	prefix := regexp.MustCompile(`(?i)^(?:§\s*)?(?:UCC\s+)?` + regexp.QuoteMeta(article+"-"+number) + `\s*\.?\s*`)

	for _, sel := range selectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		text := prefix.ReplaceAllString(legaltext.Normalize(el.Text()), "")
		if text != "" {
			return text
		}
	}
	return ""
}

func contentElement(doc *goquery.Document) *goquery.Selection {
	for _, sel := range contentSelectors {
		if el := doc.Find(sel).First(); el.Length() > 0 {
			return el
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

func officialComment(content *goquery.Selection, text string) string {
	for _, sel := range commentSelectors {
		if el := content.Find(sel).First(); el.Length() > 0 {
			if comment := legaltext.TextFromSelection(el); comment != "" {
				return comment
			}
		}
	}
	if m := officialCommentPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ArticleSections reads an article's structure and every section page.
// Sections that fail are logged and listed in Failures.
func (s *Scraper) ArticleSections(ctx context.Context, article ArticleInfo) (*ArticleContent, error) {
	st, err := s.ArticleStructure(ctx, article)
	if err != nil {
		return nil, err
	}

	out := &ArticleContent{
		Article:  article,
		Parts:    st.Parts,
		Sections: make([]SectionPage, 0, len(st.SectionURLs)),
		Failures: []domain.SkippedSection{},
	}

	for i, sectionURL := range st.SectionURLs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		page, fetchErr := s.FetchSection(ctx, sectionURL)
		if fetchErr != nil {
			s.log.Error("Failed to fetch section",
				infralogger.String("article", article.Number),
				infralogger.String("url", sectionURL),
				infralogger.Error(fetchErr),
			)
			out.Failures = append(out.Failures, domain.SkippedSection{Locator: sectionURL, Reason: fetchErr.Error()})
			continue
		}
		out.Sections = append(out.Sections, *page)

		if (i+1)%progressEvery == 0 {
			s.log.Info("Fetched sections",
				infralogger.String("article", article.Number),
				infralogger.Int("done", i+1),
				infralogger.Int("total", len(st.SectionURLs)),
			)
		}
	}

	s.log.Info("Fetched article sections",
		infralogger.String("article", article.Number),
		infralogger.Int("sections", len(out.Sections)),
		infralogger.Int("failed", len(out.Failures)),
	)
	return out, nil
}
