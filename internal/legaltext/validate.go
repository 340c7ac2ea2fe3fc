package legaltext

import (
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

const minIndexableText = 10

// Quality issues reported by Validate.
const (
	IssueMissingNumber   = "missing section number"
	IssueMissingHeading  = "missing heading"
	IssueEmptyContent    = "empty content"
	IssueMissingCitation = "missing citation"
	IssueShortText       = "content too short for meaningful indexing"
)

// Validate lists quality problems of a processed section. An empty result
// means the section is fit for indexing.
func Validate(s domain.Section) []string {
	issues := make([]string, 0)
	if strings.TrimSpace(s.Number) == "" {
		issues = append(issues, IssueMissingNumber)
	}
	if strings.TrimSpace(s.Heading) == "" {
		issues = append(issues, IssueMissingHeading)
	}
	if strings.TrimSpace(s.Text) == "" {
		issues = append(issues, IssueEmptyContent)
	}
	if s.Citation == "" {
		issues = append(issues, IssueMissingCitation)
	}
	if utf8.RuneCountInString(s.CleanText) < minIndexableText {
		issues = append(issues, IssueShortText)
	}
	return issues
}
