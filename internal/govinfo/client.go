// Package govinfo reads US Code title packages from the GovInfo API.
package govinfo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/fetch"
)

const (
	// DefaultBaseURL is the public GovInfo API.
	DefaultBaseURL = "https://api.govinfo.gov"
	// CollectionCode is the GovInfo collection code of the US Code.
	CollectionCode = "USCODE"

	pageSize        = 100
	defaultMaxPages = 50
	// DefaultSearchLimit caps search results when no limit is given.
	DefaultSearchLimit = 20
	firstTitle      = 1
	lastTitle       = 54
)

// DefaultSince is the lower bound of the collection listing.
var DefaultSince = time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)

// ErrNoXMLLink is returned when a package summary has no USLM download.
var ErrNoXMLLink = errors.New("package has no xml download link")

var packageIDPattern = regexp.MustCompile(`^USCODE-(\d{4})-title(\d+)$`)

var titleCitationPattern = regexp.MustCompile(`(?i)\b(\d+)\s+U\.?S\.?C\.?\s+(?:§\s*)?(\d+[a-z]?(?:-\d+[a-z]?)*)\b`)

var dateLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02",
	"2006-01-02T15:04:05",
}

// Fetcher is the fetch client surface used here.
type Fetcher interface {
	Fetch(ctx context.Context, locator string, useCache bool) (*fetch.Response, error)
	Stats(ctx context.Context) fetch.Stats
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// APIKeyConfigured is reported by Health; the key itself travels as a
	// transport header.
	APIKeyConfigured bool
	Since            time.Time
	// Year is used for titles without a known package; zero means the current year.
	Year     int
	MaxPages int
}

// Client lists and downloads US Code titles.
type Client struct {
	fetcher  Fetcher
	baseURL  string
	apiKey   bool
	since    time.Time
	year     int
	maxPages int
	log      infralogger.Logger
}

// NewClient creates a GovInfo client over a rate-limited fetcher.
func NewClient(cfg Config, fetcher Fetcher, log infralogger.Logger) *Client {
	c := &Client{
		fetcher:  fetcher,
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKeyConfigured,
		since:    cfg.Since,
		year:     cfg.Year,
		maxPages: cfg.MaxPages,
		log:      log,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.since.IsZero() {
		c.since = DefaultSince
	}
	if c.maxPages <= 0 {
		c.maxPages = defaultMaxPages
	}
	if !c.apiKey {
		log.Warn("No GovInfo API key configured; some endpoints may refuse requests")
	}
	return c
}

// PackageID returns the GovInfo package id of a title edition.
func PackageID(title, year int) string {
	return fmt.Sprintf("USCODE-%d-title%02d", year, title)
}

func (c *Client) defaultYear() int {
	if c.year > 0 {
		return c.year
	}
	return time.Now().Year()
}

// ListTitles returns one entry per title, newest edition first wins, sorted
// by title number. When the listing yields nothing parsable, titles 1-54 of
// the default year are returned.
func (c *Client) ListTitles(ctx context.Context) ([]TitleInfo, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("offsetMark", "*")
	next := fmt.Sprintf("%s/collections/%s/%s?%s",
		c.baseURL, CollectionCode, c.since.UTC().Format("2006-01-02T15:04:05Z"), q.Encode())

	byTitle := make(map[int]TitleInfo)
	for page := 0; next != "" && page < c.maxPages; page++ {
		var body collectionPage
		if err := c.getJSON(ctx, next, true, &body); err != nil {
			return nil, fmt.Errorf("list titles: %w", err)
		}
		for _, p := range body.Packages {
			info, ok := parsePackage(p)
			if !ok {
				continue
			}
			if prev, seen := byTitle[info.Number]; !seen || info.Year > prev.Year {
				byTitle[info.Number] = info
			}
		}
		next = body.NextPage
	}

	if len(byTitle) == 0 {
		c.log.Warn("No title packages found, using standard title range",
			infralogger.Int("first", firstTitle),
			infralogger.Int("last", lastTitle),
		)
		return c.standardTitles(), nil
	}

	titles := make([]TitleInfo, 0, len(byTitle))
	for _, t := range byTitle {
		titles = append(titles, t)
	}
	sort.Slice(titles, func(i, j int) bool { return titles[i].Number < titles[j].Number })

	c.log.Info("Listed US Code titles", infralogger.Int("count", len(titles)))
	return titles, nil
}

func (c *Client) standardTitles() []TitleInfo {
	year := c.defaultYear()
	titles := make([]TitleInfo, 0, lastTitle-firstTitle+1)
	for n := firstTitle; n <= lastTitle; n++ {
		titles = append(titles, TitleInfo{
			Number:    n,
			Name:      fmt.Sprintf("Title %d", n),
			PackageID: PackageID(n, year),
			Year:      year,
		})
	}
	return titles
}

func parsePackage(p packageEntry) (TitleInfo, bool) {
	m := packageIDPattern.FindStringSubmatch(p.PackageID)
	if m == nil {
		return TitleInfo{}, false
	}
	year, _ := strconv.Atoi(m[1])
	number, _ := strconv.Atoi(m[2])
	if number < firstTitle {
		return TitleInfo{}, false
	}

	name := p.Title
	if name == "" {
		name = fmt.Sprintf("Title %d", number)
	}
	return TitleInfo{
		Number:       number,
		Name:         name,
		PackageID:    p.PackageID,
		Year:         year,
		LastModified: ParseDate(p.LastModified),
	}, true
}

// TitleContent loads a title's package summary and downloads its XML. A
// missing package surfaces as an error wrapping fetch.ErrNotFound.
func (c *Client) TitleContent(ctx context.Context, info TitleInfo) (*TitleContent, error) {
	year := info.Year
	if year == 0 {
		year = c.defaultYear()
	}
	packageID := info.PackageID
	if packageID == "" {
		packageID = PackageID(info.Number, year)
	}

	var summary packageSummary
	summaryURL := fmt.Sprintf("%s/packages/%s/summary", c.baseURL, url.PathEscape(packageID))
	if err := c.getJSON(ctx, summaryURL, true, &summary); err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			c.log.Warn("Title package not found",
				infralogger.Int("title", info.Number),
				infralogger.Int("year", year),
			)
		}
		return nil, fmt.Errorf("title %d summary: %w", info.Number, err)
	}

	link := summary.Download.xmlLink()
	if link == "" {
		return nil, fmt.Errorf("title %d (%s): %w", info.Number, packageID, ErrNoXMLLink)
	}

	resp, err := c.fetcher.Fetch(ctx, link, false)
	if err != nil {
		return nil, fmt.Errorf("title %d xml download: %w", info.Number, err)
	}

	lastModified := ParseDate(summary.LastModified)
	if lastModified.IsZero() {
		lastModified = info.LastModified
	}
	return &TitleContent{
		PackageID:    packageID,
		TitleNumber:  info.Number,
		Year:         year,
		Title:        summary.Title,
		XMLLink:      link,
		XML:          resp.Body,
		LastModified: lastModified,
	}, nil
}

// Search queries the US Code collection. A positive title restricts hits to
// that title. The limit defaults to DefaultSearchLimit and is capped at the
// API page size.
func (c *Client) Search(ctx context.Context, query string, title, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := url.Values{}
	q.Set("collection", CollectionCode)
	q.Set("query", query)
	q.Set("pageSize", strconv.Itoa(min(limit, pageSize)))
	if title > 0 {
		q.Set("title", strconv.Itoa(title))
	}

	var body searchPage
	if err := c.getJSON(ctx, c.baseURL+"/search?"+q.Encode(), true, &body); err != nil {
		c.log.Error("US Code search failed",
			infralogger.String("query", query),
			infralogger.Error(err),
		)
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := make([]SearchResult, 0, len(body.Results))
	for i := range body.Results {
		results = append(results, searchResult(&body.Results[i]))
	}
	return results, nil
}

func searchResult(e *searchEntry) SearchResult {
	r := SearchResult{
		PackageID:    e.PackageID,
		Title:        e.Title,
		Summary:      e.Summary,
		LastModified: ParseDate(e.LastModified),
		DownloadLink: e.Download.xmlLink(),
	}
	if m := titleCitationPattern.FindStringSubmatch(e.Title); m != nil {
		r.Citation = fmt.Sprintf("%s USC %s", m[1], m[2])
	}
	return r
}

// Collections lists the GovInfo collections.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var body struct {
		Collections []Collection `json:"collections"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/collections", true, &body); err != nil {
		return nil, fmt.Errorf("collections: %w", err)
	}
	return body.Collections, nil
}

// Health checks API reachability with an uncached request.
func (c *Client) Health(ctx context.Context) Health {
	var body struct {
		Collections []Collection `json:"collections"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/collections", false, &body); err != nil {
		return Health{
			Status:           StatusUnhealthy,
			Error:            err.Error(),
			APIKeyConfigured: c.apiKey,
		}
	}

	stats := c.fetcher.Stats(ctx)
	return Health{
		Status:             StatusHealthy,
		APIKeyConfigured:   c.apiKey,
		CacheSize:          stats.CacheSize,
		RecentRequests:     stats.RecentRequests,
		RateLimitRemaining: max(0, stats.Remaining),
	}
}

func (c *Client) getJSON(ctx context.Context, locator string, useCache bool, v any) error {
	resp, err := c.fetcher.Fetch(ctx, locator, useCache)
	if err != nil {
		return err
	}
	return resp.DecodeJSON(v)
}

// ParseDate parses the date formats GovInfo emits. Unparsable input yields
// the zero time.
func ParseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
