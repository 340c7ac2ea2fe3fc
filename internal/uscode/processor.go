// Package uscode turns GovInfo USLM title XML into structured US Code
// units and sections.
package uscode

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/legaltext"
)

var (
	// ErrEmptyDocument is returned when the title XML holds no elements.
	ErrEmptyDocument = errors.New("uscode: empty document")
	// ErrNoSectionNumber is returned for a section without any number.
	ErrNoSectionNumber = errors.New("uscode: section has no number")
	// ErrEmptySection is returned for a section without body text.
	ErrEmptySection = errors.New("uscode: section has no content")
)

const dublinCore = "http://purl.org/dc/elements/1.1/"

func isDublinCore(n *node) bool {
	return n.space == dublinCore || n.space == "dc"
}

// TitleDocument is one title's raw XML and its package metadata.
type TitleDocument struct {
	Number       int
	PackageID    string
	XML          []byte
	SourceURL    string
	LastModified time.Time
}

// SectionSource is a section lifted out of the title XML.
type SectionSource struct {
	Title        int
	Number       string
	Heading      string
	Text         string
	Markup       string
	Chapter      string
	SourceURL    string
	LastModified time.Time
}

// Processor converts USLM XML into domain records. It holds no per-call
// state and is safe for concurrent use.
type Processor struct {
	log infralogger.Logger
}

// NewProcessor creates a statute processor.
func NewProcessor(log infralogger.Logger) *Processor {
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Processor{log: log.With(infralogger.String("processor", string(domain.CorpusUSCode)))}
}

// Citation is the canonical citation of a statute section.
func Citation(title int, section string) string {
	return citation(strconv.Itoa(title), section)
}

func citation(title, section string) string {
	return fmt.Sprintf("%s USC %s", title, section)
}

// ProcessTitle parses a whole title. Sections that cannot be processed are
// left out and recorded in Unit.Skipped.
func (p *Processor) ProcessTitle(doc TitleDocument) (*domain.Unit, error) {
	root, err := parseTree(doc.XML)
	if err != nil {
		return nil, fmt.Errorf("title %d: %w", doc.Number, err)
	}
	if root.find(func(*node) bool { return true }, nil) == nil {
		return nil, fmt.Errorf("title %d: %w", doc.Number, ErrEmptyDocument)
	}

	unit := &domain.Unit{
		Corpus:       domain.CorpusUSCode,
		Number:       strconv.Itoa(doc.Number),
		Name:         titleName(root, doc.Number),
		Description:  titleDescription(root),
		SourceURL:    doc.SourceURL,
		PackageID:    doc.PackageID,
		LastModified: doc.LastModified,
		RawContent:   string(doc.XML),
		Divisions:    []domain.Division{},
		Sections:     []domain.Section{},
		Skipped:      []domain.SkippedSection{},
	}

	byChapter := make(map[*node][]string)
	for _, el := range root.collect(isSection, isQuoted) {
		src := p.sectionSource(el, doc)
		section, err := p.ProcessSection(src)
		if err != nil {
			locator := src.Number
			if locator == "" {
				locator = el.attr("identifier")
			}
			p.log.Warn("Skipping section",
				infralogger.Int("title", doc.Number),
				infralogger.String("section", locator),
				infralogger.Error(err),
			)
			unit.Skipped = append(unit.Skipped, domain.SkippedSection{Locator: locator, Reason: err.Error()})
			continue
		}
		if issues := legaltext.Validate(section); len(issues) > 0 {
			p.log.Warn("Section has quality issues",
				infralogger.String("citation", section.Citation),
				infralogger.Strings("issues", issues),
			)
		}
		unit.Sections = append(unit.Sections, section)
		if ch := el.ancestor("chapter"); ch != nil {
			byChapter[ch] = append(byChapter[ch], section.Number)
		}
	}

	for _, ch := range root.collect(isChapter, isQuoted) {
		p.collectDivisions(ch, unit, byChapter)
	}

	p.log.Debug("Processed title",
		infralogger.Int("title", doc.Number),
		infralogger.Int("divisions", len(unit.Divisions)),
		infralogger.Int("sections", len(unit.Sections)),
		infralogger.Int("skipped", len(unit.Skipped)),
	)
	return unit, nil
}

// collectDivisions records ch and any chapters nested inside it.
func (p *Processor) collectDivisions(ch *node, unit *domain.Unit, byChapter map[*node][]string) {
	if number := elementNumber(ch); number != "" {
		start, end := legaltext.Bounds(byChapter[ch])
		unit.Divisions = append(unit.Divisions, domain.Division{
			Number:       number,
			Name:         elementHeading(ch),
			Description:  childText(ch, "description", "summary"),
			StartSection: start,
			EndSection:   end,
			UnitNumber:   unit.Number,
		})
	}
	for _, nested := range ch.collect(isChapter, isQuoted) {
		p.collectDivisions(nested, unit, byChapter)
	}
}

func (p *Processor) sectionSource(el *node, doc TitleDocument) SectionSource {
	src := SectionSource{
		Title:        doc.Number,
		Number:       elementNumber(el),
		Heading:      elementHeading(el),
		Markup:       el.markup(doc.XML),
		SourceURL:    doc.SourceURL,
		LastModified: doc.LastModified,
	}
	if ch := el.ancestor("chapter"); ch != nil {
		src.Chapter = elementNumber(ch)
	}
	src.Text = el.text(func(c *node) bool {
		switch c.name {
		case "num", "heading", "notes", "note":
			return true
		}
		return false
	})
	return src
}

// ProcessSection derives every section field from already extracted text.
func (p *Processor) ProcessSection(src SectionSource) (domain.Section, error) {
	number := strings.TrimSpace(src.Number)
	if number == "" {
		return domain.Section{}, ErrNoSectionNumber
	}
	text := strings.TrimSpace(src.Text)
	if text == "" {
		return domain.Section{}, fmt.Errorf("section %s: %w", number, ErrEmptySection)
	}

	title := strconv.Itoa(src.Title)
	cite := citation(title, number)
	defs := legaltext.Definitions(legaltext.DefinitionSource{
		Text:       text,
		Citation:   cite,
		UnitNumber: title,
		UnitScope:  domain.ScopeTitle,
	})
	return domain.Section{
		UnitNumber:       title,
		Number:           number,
		Citation:         cite,
		Heading:          strings.TrimSpace(src.Heading),
		RawContent:       src.Markup,
		Text:             text,
		CleanText:        legaltext.CleanForSearch(text),
		DivisionNumber:   src.Chapter,
		Subsections:      legaltext.Subsections(text),
		Definitions:      defs,
		References:       legaltext.CrossReferences(text, citationRules(title)),
		Keywords:         legaltext.Keywords(legalTerms.Terms(text), text),
		Categories:       categoryTable.Labels(text),
		Topics:           topicTable.Labels(text),
		CommercialTerms:  []string{},
		TransactionTypes: []string{},
		SourceURL:        src.SourceURL,
		LastModified:     src.LastModified,
	}, nil
}

// SearchContent is the text pushed to the search index for a section.
func SearchContent(s domain.Section) string {
	return legaltext.Normalize(s.Heading + " " + s.CleanText)
}

func isSection(n *node) bool { return n.name == "section" }
func isChapter(n *node) bool { return n.name == "chapter" }

// isQuoted marks subtrees whose sections are quoted or annotated, not enacted.
func isQuoted(n *node) bool {
	switch n.name {
	case "quotedContent", "notes", "note", "toc", "meta":
		return true
	}
	return false
}

var (
	numberToken     = regexp.MustCompile(`(?i)^(?:§+|sec(?:tion)?\.?|subchapter|chapter|subtitle|title|part)?\s*([0-9A-Za-z]+(?:[-–.][0-9A-Za-z]+)*)`)
	identifierToken = regexp.MustCompile(`/(?:s|ch|sch|t|pt)([0-9A-Za-z]+(?:-[0-9A-Za-z]+)*)$`)
	titlePrefix     = regexp.MustCompile(`(?i)^title\s+\d+\s*[:.—–-]\s*`)
)

// elementNumber reads a section or chapter number from, in order, the num
// child's value attribute, the element's number attributes, the num child's
// text and the identifier path.
func elementNumber(n *node) string {
	num := n.child("num", "number")
	if num != nil {
		if v := num.attr("value"); v != "" {
			return v
		}
	}
	for _, name := range []string{"number", "num"} {
		if v := n.attr(name); v != "" {
			return v
		}
	}
	if num != nil {
		if m := numberToken.FindStringSubmatch(num.text(nil)); m != nil {
			return strings.TrimRight(m[1], ".")
		}
	}
	if m := identifierToken.FindStringSubmatch(n.attr("identifier")); m != nil {
		return m[1]
	}
	return ""
}

func elementHeading(n *node) string {
	return childText(n, "heading", "header")
}

func childText(n *node, names ...string) string {
	if c := n.child(names...); c != nil {
		return legaltext.Normalize(c.text(nil))
	}
	return ""
}

// titleName prefers the heading of the title element, then the Dublin Core
// title of the metadata block.
func titleName(root *node, number int) string {
	el := root.find(func(n *node) bool { return n.name == "title" && !isDublinCore(n) }, isQuoted)
	if el != nil {
		if h := elementHeading(el); h != "" {
			return h
		}
	}
	dc := root.find(func(n *node) bool { return n.name == "title" && isDublinCore(n) }, nil)
	if dc != nil {
		if name := titlePrefix.ReplaceAllString(legaltext.Normalize(dc.text(nil)), ""); name != "" {
			return name
		}
	}
	return fmt.Sprintf("Title %d", number)
}

func titleDescription(root *node) string {
	el := root.find(func(n *node) bool { return n.name == "description" || n.name == "summary" }, isSection)
	if el == nil {
		return ""
	}
	return legaltext.Normalize(el.text(nil))
}
