// Package domain holds the corpus-agnostic legal record model shared by the
// processors, the indexers and the backend client.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Corpus identifies a legal corpus.
type Corpus string

const (
	// CorpusUSCode is the United States Code, fetched from GovInfo.
	CorpusUSCode Corpus = "uscode"
	// CorpusUCC is the Uniform Commercial Code, scraped from Cornell LII.
	CorpusUCC Corpus = "ucc"
)

// ErrUnknownCorpus is returned by ParseCorpus for unsupported names.
var ErrUnknownCorpus = errors.New("unknown corpus")

// Corpora lists the supported corpora.
func Corpora() []Corpus {
	return []Corpus{CorpusUSCode, CorpusUCC}
}

// ParseCorpus maps a case-insensitive corpus name to its identifier.
func ParseCorpus(name string) (Corpus, error) {
	c := Corpus(strings.ToLower(strings.TrimSpace(name)))
	switch c {
	case CorpusUSCode, CorpusUCC:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCorpus, name)
	}
}

// Unit is a top-level division of a corpus: a US Code title or a UCC article.
type Unit struct {
	Corpus        Corpus
	Number        string
	Name          string
	Description   string
	OfficialTitle string
	SourceURL     string
	PackageID     string
	LastModified  time.Time
	Divisions     []Division
	Sections      []Section
	// RawContent is the unprocessed markup of the whole unit when one exists.
	RawContent string
	// Skipped lists sections that failed processing and were left out.
	Skipped []SkippedSection
}

// Division is a second-level grouping: a chapter or a part.
type Division struct {
	Number       string
	Name         string
	Description  string
	StartSection string
	EndSection   string
	UnitNumber   string
}

// SkippedSection records a section dropped during processing.
type SkippedSection struct {
	Locator string
	Reason  string
}

// Section is one statute or code section with everything derived from it.
type Section struct {
	UnitNumber     string
	Number         string
	Citation       string
	Heading        string
	RawContent     string
	Text           string
	CleanText      string
	DivisionNumber string
	Subsections    []Subsection
	Definitions    []Definition
	References     []CrossReference
	Keywords       []string
	Categories     []string
	Topics         []string
	// CommercialTerms and TransactionTypes are only populated for the UCC.
	CommercialTerms  []string
	TransactionTypes []string
	OfficialComment  string
	SourceURL        string
	LastModified     time.Time
}

// Subsection is a marker-delimited fragment of a section.
type Subsection struct {
	Label   string
	Content string
	Level   int
	Order   int
}

// Scope is the declared applicability of a definition.
type Scope string

const (
	ScopeSection Scope = "section"
	ScopeArticle Scope = "article"
	ScopeTitle   Scope = "title"
	ScopeGeneral Scope = "general"
)

// Definition is a term defined inside a section.
type Definition struct {
	Term             string
	Text             string
	Citation         string
	UnitNumber       string
	Scope            Scope
	AlternativeTerms []string
}

// ReferenceKind classifies a cross-reference target.
type ReferenceKind string

const (
	RefInternalSection    ReferenceKind = "internal-section"
	RefInternalDivision   ReferenceKind = "internal-division"
	RefExternalCode       ReferenceKind = "external-code"
	RefExternalRegulation ReferenceKind = "external-regulation"
	RefOther              ReferenceKind = "other"
)

// Internal reports whether the reference points inside the same corpus.
func (k ReferenceKind) Internal() bool {
	return k == RefInternalSection || k == RefInternalDivision
}

// CrossReference is a citation found in a section's text.
type CrossReference struct {
	Kind ReferenceKind
	// Target is the canonical citation for internal references and the raw
	// matched text for everything else.
	Target        string
	TargetUnit    string
	TargetSection string
	Context       string
	Offset        int
}
