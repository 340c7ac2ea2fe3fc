// Package ucc turns scraped Cornell LII pages into structured Uniform
// Commercial Code articles and sections.
package ucc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/cornell"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/legaltext"
)

var (
	// ErrNoArticle is returned when article content or its number is missing.
	ErrNoArticle = errors.New("ucc: no article")
	// ErrNoSectionNumber is returned for a page without a section number.
	ErrNoSectionNumber = errors.New("ucc: section has no number")
	// ErrEmptySection is returned for a page without body text.
	ErrEmptySection = errors.New("ucc: section has no content")
)

const sectionsPerPart = 100

// Processor converts scraped UCC pages into domain records. It is safe for
// concurrent use.
type Processor struct {
	log infralogger.Logger
}

// NewProcessor creates a commercial code processor.
func NewProcessor(log infralogger.Logger) *Processor {
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Processor{log: log.With(infralogger.String("processor", string(domain.CorpusUCC)))}
}

// Citation is the canonical citation of a UCC section.
func Citation(article, section string) string {
	return fmt.Sprintf("UCC %s-%s", article, section)
}

// PartOf returns the part a section belongs to: its number divided by 100.
// Section 2-105 is in part 1 and 1-201 in part 2.
func PartOf(section string) string {
	digits := section
	if i := strings.IndexFunc(section, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		digits = section[:i]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return ""
	}
	return strconv.Itoa(n / sectionsPerPart)
}

// ProcessArticle processes every scraped section of an article. Pages that
// cannot be processed are added to the fetch failures in Unit.Skipped.
func (p *Processor) ProcessArticle(content *cornell.ArticleContent) (*domain.Unit, error) {
	if content == nil || strings.TrimSpace(content.Article.Number) == "" {
		return nil, ErrNoArticle
	}
	article := content.Article

	unit := &domain.Unit{
		Corpus:        domain.CorpusUCC,
		Number:        article.Number,
		Name:          article.Name,
		Description:   article.Description,
		OfficialTitle: officialTitle(article),
		SourceURL:     article.URL,
		Divisions:     []domain.Division{},
		Sections:      make([]domain.Section, 0, len(content.Sections)),
		Skipped:       append([]domain.SkippedSection{}, content.Failures...),
	}

	for _, page := range content.Sections {
		section, err := p.ProcessSection(page)
		if err != nil {
			p.log.Warn("Skipping section",
				infralogger.String("article", article.Number),
				infralogger.String("url", page.SourceURL),
				infralogger.Error(err),
			)
			unit.Skipped = append(unit.Skipped, domain.SkippedSection{Locator: page.SourceURL, Reason: err.Error()})
			continue
		}
		if issues := legaltext.Validate(section); len(issues) > 0 {
			p.log.Warn("Section has quality issues",
				infralogger.String("citation", section.Citation),
				infralogger.Strings("issues", issues),
			)
		}
		unit.Sections = append(unit.Sections, section)
		if section.LastModified.After(unit.LastModified) {
			unit.LastModified = section.LastModified
		}
	}

	unit.Divisions = parts(unit, content.Parts)

	p.log.Debug("Processed article",
		infralogger.String("article", article.Number),
		infralogger.Int("parts", len(unit.Divisions)),
		infralogger.Int("sections", len(unit.Sections)),
		infralogger.Int("skipped", len(unit.Skipped)),
	)
	return unit, nil
}

func officialTitle(a cornell.ArticleInfo) string {
	if a.Name == "" {
		return "Uniform Commercial Code Article " + a.Number
	}
	return fmt.Sprintf("Uniform Commercial Code Article %s - %s", a.Number, a.Name)
}

// parts merges the scraped part headings with the parts implied by section
// numbers and computes each part's section bounds.
func parts(unit *domain.Unit, scraped []cornell.PartInfo) []domain.Division {
	byPart := make(map[string][]string)
	for _, s := range unit.Sections {
		if s.DivisionNumber != "" {
			byPart[s.DivisionNumber] = append(byPart[s.DivisionNumber], s.Number)
		}
	}

	names := make(map[string]string)
	for _, part := range scraped {
		if _, ok := names[part.Number]; !ok {
			names[part.Number] = part.Name
		}
	}
	for number := range byPart {
		if _, ok := names[number]; !ok {
			names[number] = ""
		}
	}

	divisions := make([]domain.Division, 0, len(names))
	for number, name := range names {
		start, end := legaltext.Bounds(byPart[number])
		divisions = append(divisions, domain.Division{
			Number:       number,
			Name:         name,
			StartSection: start,
			EndSection:   end,
			UnitNumber:   unit.Number,
		})
	}
	sort.Slice(divisions, func(i, j int) bool {
		return legaltext.NaturalLess(divisions[i].Number, divisions[j].Number)
	})
	return divisions
}

// ProcessSection derives every section field from one scraped page.
func (p *Processor) ProcessSection(page cornell.SectionPage) (domain.Section, error) {
	article := strings.TrimSpace(page.ArticleNumber)
	number := strings.TrimSpace(page.Number)
	if article == "" {
		return domain.Section{}, ErrNoArticle
	}
	if number == "" {
		return domain.Section{}, ErrNoSectionNumber
	}
	text := strings.TrimSpace(page.Text)
	if text == "" {
		return domain.Section{}, fmt.Errorf("section %s-%s: %w", article, number, ErrEmptySection)
	}

	cite := Citation(article, number)
	terms := CommercialTerms(text)
	defs := legaltext.Definitions(legaltext.DefinitionSource{
		Text:       text,
		Citation:   cite,
		UnitNumber: article,
		UnitScope:  domain.ScopeArticle,
	})
	keywordTerms := append(append([]string{}, terms...), legalTerms.Terms(text)...)
	return domain.Section{
		UnitNumber:       article,
		Number:           number,
		Citation:         cite,
		Heading:          strings.TrimSpace(page.Heading),
		RawContent:       page.HTML,
		Text:             text,
		CleanText:        legaltext.Normalize(text),
		DivisionNumber:   PartOf(number),
		Subsections:      legaltext.Subsections(text),
		Definitions:      defs,
		References:       legaltext.CrossReferences(text, citationRules),
		Keywords:         legaltext.Keywords(keywordTerms, text),
		Categories:       []string{},
		Topics:           topics.Labels(text),
		CommercialTerms:  terms,
		TransactionTypes: transactionTypes.Labels(text),
		OfficialComment:  legaltext.Normalize(page.OfficialComment),
		SourceURL:        page.SourceURL,
		LastModified:     page.FetchedAt,
	}, nil
}

// CommercialTerms returns the distinct commercial terms found in text,
// sorted.
func CommercialTerms(text string) []string {
	terms := append(commercialTerms.Terms(text), acronyms.Terms(text)...)
	sort.Strings(terms)
	return terms
}

// SearchContent is the text pushed to the search index for a section.
func SearchContent(s domain.Section) string {
	fields := []string{s.Citation, s.Heading, s.CleanText}
	if len(s.CommercialTerms) > 0 {
		fields = append(fields, strings.Join(s.CommercialTerms, " "))
	}
	if len(s.Keywords) > 0 {
		fields = append(fields, strings.Join(s.Keywords, " "))
	}
	if len(s.Definitions) > 0 {
		terms := make([]string, 0, len(s.Definitions))
		for _, d := range s.Definitions {
			terms = append(terms, d.Term)
		}
		fields = append(fields, strings.Join(terms, " "))
	}
	if s.OfficialComment != "" {
		fields = append(fields, s.OfficialComment)
	}
	return legaltext.Normalize(strings.Join(fields, " "))
}
