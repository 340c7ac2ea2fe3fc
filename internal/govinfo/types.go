package govinfo

import "time"

// TitleInfo identifies one US Code title package.
type TitleInfo struct {
	Number       int       `json:"number"`
	Name         string    `json:"name"`
	PackageID    string    `json:"package_id"`
	Year         int       `json:"year"`
	LastModified time.Time `json:"last_modified"`
}

// TitleContent is a title's package summary plus its USLM XML.
type TitleContent struct {
	PackageID    string
	TitleNumber  int
	Year         int
	Title        string
	XMLLink      string
	XML          []byte
	LastModified time.Time
}

// Collection is one entry of the /collections listing.
type Collection struct {
	Code         string `json:"collectionCode"`
	Name         string `json:"collectionName"`
	PackageCount int    `json:"packageCount"`
	GranuleCount int    `json:"granuleCount"`
}

// Health reports API reachability and client state.
type Health struct {
	Status             string `json:"status"`
	Error              string `json:"error,omitempty"`
	APIKeyConfigured   bool   `json:"api_key_configured"`
	CacheSize          int    `json:"cache_size"`
	RecentRequests     int    `json:"recent_requests"`
	RateLimitRemaining int    `json:"rate_limit_remaining"`
}

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

type packageEntry struct {
	PackageID    string `json:"packageId"`
	Title        string `json:"title"`
	LastModified string `json:"lastModified"`
}

type collectionPage struct {
	Count    int            `json:"count"`
	NextPage string         `json:"nextPage"`
	Packages []packageEntry `json:"packages"`
}

type downloadLink struct {
	Type string `json:"type"`
	Link string `json:"link"`
}

type downloads struct {
	XMLLink string         `json:"xmlLink"`
	Links   []downloadLink `json:"links"`
}

// xmlLink returns the USLM download link, preferring xmlLink.
func (d *downloads) xmlLink() string {
	if d.XMLLink != "" {
		return d.XMLLink
	}
	for _, l := range d.Links {
		if l.Type == "xml" && l.Link != "" {
			return l.Link
		}
	}
	return ""
}

type packageSummary struct {
	PackageID    string    `json:"packageId"`
	Title        string    `json:"title"`
	LastModified string    `json:"lastModified"`
	Download     downloads `json:"download"`
}

// SearchResult is one US Code hit of the GovInfo search endpoint.
type SearchResult struct {
	PackageID    string    `json:"package_id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	LastModified time.Time `json:"last_modified"`
	DownloadLink string    `json:"download_link,omitempty"`
	// Citation is the first "N U.S.C. M" reference in the result title.
	Citation string `json:"citation,omitempty"`
}

type searchEntry struct {
	PackageID    string    `json:"packageId"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	LastModified string    `json:"lastModified"`
	Download     downloads `json:"download"`
}

type searchPage struct {
	Count   int           `json:"count"`
	Results []searchEntry `json:"results"`
}
