package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is a backend record id. The store answers with numeric or string ids;
// both decode to the same textual form.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("backend id %s: %w", data, err)
		}
		*id = ID(n.String())
	}
	return nil
}

// String returns the id text.
func (id ID) String() string { return string(id) }

// envelope is the response wrapper of every backend endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// errorText reads the error field, which is a string or an object with a
// message.
func (e *envelope) errorText() string {
	if len(e.Error) == 0 || bytes.Equal(e.Error, []byte("null")) {
		return e.Message
	}
	var s string
	if json.Unmarshal(e.Error, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(e.Error, &obj) == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Error
	}
	return string(e.Error)
}

type created struct {
	ID ID `json:"id"`
}

// Job types.
const (
	JobFull        = "full"
	JobIncremental = "incremental"
	JobSingleUnit  = "single-unit"
)

// Progress is a job's stage and completion percentage.
type Progress struct {
	Stage      string  `json:"stage"`
	Percentage float64 `json:"percentage"`
}

// JobRequest creates an indexing job.
type JobRequest struct {
	JobType       string   `json:"jobType"`
	Status        string   `json:"status"`
	TitleNumber   int      `json:"titleNumber,omitempty"`
	ArticleNumber string   `json:"articleNumber,omitempty"`
	Progress      Progress `json:"progress"`
	Stats         any      `json:"stats,omitempty"`
}

// JobUpdate changes a job. Empty fields are left untouched by the store.
type JobUpdate struct {
	Status       string    `json:"status,omitempty"`
	Progress     *Progress `json:"progress,omitempty"`
	Stats        any       `json:"stats,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

type unitRecord struct {
	Number        string     `json:"number"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	OfficialTitle string     `json:"officialTitle,omitempty"`
	PackageID     string     `json:"packageId,omitempty"`
	SourceURL     string     `json:"sourceUrl,omitempty"`
	LastModified  *time.Time `json:"lastModified,omitempty"`
	LastIndexed   time.Time  `json:"lastIndexed"`
}

type divisionRecord struct {
	TitleID      ID     `json:"titleId,omitempty"`
	ArticleID    ID     `json:"articleId,omitempty"`
	Number       string `json:"number"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	StartSection string `json:"startSection,omitempty"`
	EndSection   string `json:"endSection,omitempty"`
}

type sectionRecord struct {
	TitleID         ID         `json:"titleId,omitempty"`
	ArticleID       ID         `json:"articleId,omitempty"`
	PartID          ID         `json:"partId,omitempty"`
	Number          string     `json:"number"`
	Citation        string     `json:"citation"`
	Heading         string     `json:"heading"`
	Content         string     `json:"content"`
	XMLContent      string     `json:"xmlContent,omitempty"`
	HTMLContent     string     `json:"htmlContent,omitempty"`
	CleanText       string     `json:"cleanText"`
	ChapterNumber   string     `json:"chapterNumber,omitempty"`
	PartNumber      string     `json:"partNumber,omitempty"`
	Keywords        []string   `json:"keywords"`
	Categories      []string   `json:"categories,omitempty"`
	OfficialComment string     `json:"officialComment,omitempty"`
	PackageID       string     `json:"packageId,omitempty"`
	SourceURL       string     `json:"sourceUrl,omitempty"`
	LastModified    *time.Time `json:"lastModified,omitempty"`
}

type subsectionRecord struct {
	SectionID ID     `json:"sectionId"`
	Number    string `json:"number"`
	Content   string `json:"content"`
	Level     int    `json:"level"`
	Order     int    `json:"order"`
}

type definitionRecord struct {
	SectionID        ID       `json:"sectionId"`
	TitleID          ID       `json:"titleId,omitempty"`
	ArticleID        ID       `json:"articleId,omitempty"`
	Term             string   `json:"term"`
	Definition       string   `json:"definition"`
	Scope            string   `json:"scope"`
	AlternativeTerms []string `json:"alternativeTerms"`
	CitationContext  string   `json:"citationContext"`
}

type crossReferenceRecord struct {
	FromSectionID     ID     `json:"fromSectionId"`
	ToSectionID       ID     `json:"toSectionId,omitempty"`
	TargetCitation    string `json:"targetCitation,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
	ReferenceType     string `json:"referenceType"`
	Context           string `json:"context"`
}

type searchIndexRecord struct {
	SectionID        ID       `json:"sectionId"`
	SearchContent    string   `json:"searchContent"`
	Keywords         []string `json:"keywords"`
	Topics           []string `json:"topics"`
	CommercialTerms  []string `json:"commercialTerms,omitempty"`
	TransactionTypes []string `json:"transactionTypes,omitempty"`
}
