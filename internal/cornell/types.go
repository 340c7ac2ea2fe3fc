package cornell

import (
	"time"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

// ArticleInfo is an article entry of the UCC index page.
type ArticleInfo struct {
	Number      string `json:"number"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

// PartInfo is a part heading found on an article page.
type PartInfo struct {
	Number        string `json:"number"`
	Name          string `json:"name"`
	ArticleNumber string `json:"article_number"`
}

// Structure is the parts and section links of an article page.
type Structure struct {
	Parts       []PartInfo
	SectionURLs []string
}

// SectionPage is one scraped section.
type SectionPage struct {
	ArticleNumber string
	Number        string
	Citation      string
	Heading       string
	// Text is the plain text of the content element, one line per block.
	Text string
	// HTML is the raw markup of the content element.
	HTML            string
	OfficialComment string
	SourceURL       string
	FetchedAt       time.Time
}

// ArticleContent is everything scraped for one article.
type ArticleContent struct {
	Article  ArticleInfo
	Parts    []PartInfo
	Sections []SectionPage
	// Failures lists sections that could not be fetched.
	Failures []domain.SkippedSection
}
