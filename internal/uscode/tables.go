package uscode

import (
	"fmt"
	"regexp"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/legaltext"
)

var categoryTable = legaltext.NewTable(legaltext.Substring,
	legaltext.Group{Label: "criminal", Terms: []string{
		"criminal", "crime", "felony", "misdemeanor", "offense", "penalty", "punishment", "imprisonment",
	}},
	legaltext.Group{Label: "civil", Terms: []string{
		"civil", "liability", "damages", "compensation", "remedy", "injunction",
	}},
	legaltext.Group{Label: "regulatory", Terms: []string{
		"regulation", "compliance", "enforcement", "violation", "administrative",
	}},
	legaltext.Group{Label: "procedure", Terms: []string{
		"procedure", "process", "hearing", "appeal", "jurisdiction", "venue",
	}},
	legaltext.Group{Label: "definitions", Terms: []string{
		"definition", "means", "includes", "term", "shall mean",
	}},
	legaltext.Group{Label: "requirements", Terms: []string{
		"shall", "must", "required", "mandatory", "obligation",
	}},
	legaltext.Group{Label: "prohibitions", Terms: []string{
		"prohibited", "unlawful", "forbidden", "shall not", "may not",
	}},
	legaltext.Group{Label: "exceptions", Terms: []string{
		"except", "unless", "provided that", "however", "notwithstanding",
	}},
)

var topicTable = legaltext.NewTable(legaltext.Substring,
	legaltext.Group{Label: "criminal", Terms: []string{"criminal", "crime", "penalty", "prison", "sentence"}},
	legaltext.Group{Label: "civil", Terms: []string{"civil", "liability", "damages", "compensation"}},
	legaltext.Group{Label: "regulatory", Terms: []string{"regulation", "compliance", "enforcement"}},
	legaltext.Group{Label: "constitutional", Terms: []string{"constitution", "amendment", "rights"}},
	legaltext.Group{Label: "procedural", Terms: []string{"procedure", "process", "hearing", "court"}},
)

// legalTerms match whole words only so "shall" does not fire on "marshall".
var legalTerms = legaltext.NewTable(legaltext.WholeWord, legaltext.Group{Label: "legal", Terms: []string{
	"shall", "may", "must", "required", "prohibited", "unlawful", "penalty", "fine",
	"imprisonment", "liability", "damages", "jurisdiction", "enforcement", "compliance",
	"violation", "regulation", "definition", "includes", "means", "term",
}})

var (
	uscPattern        = regexp.MustCompile(`(?i)\b(\d+)\s+U\.?\s?S\.?\s?C\.?\s+(?:§+\s*)?(\d+[a-z]?(?:-\d+[a-z]?)*)`)
	sectionRefPattern = regexp.MustCompile(`(?i)\bsection\s+(\d+[a-z]?(?:-\d+[a-z]?)*)(?:\s+of\s+title\s+(\d+))?`)
	chapterPattern    = regexp.MustCompile(`(?i)\bchapter\s+(\d+[a-z]?)\b`)
	cfrPattern        = regexp.MustCompile(`\b(\d+)\s+C\.?\s?F\.?\s?R\.?\s+(?:§+\s*|[Pp]art\s+)?(\d+(?:\.\d+)*)`)
	frPattern         = regexp.MustCompile(`\b(\d+)\s+F\.?\s?R\.?\s+(\d+)\b`)
	uccPattern        = regexp.MustCompile(`\bUCC\s+(\d+[A-Z]?)-(\d+)\b`)
	publicLawPattern  = regexp.MustCompile(`\bPub(?:lic)?\.?\s*L(?:aw)?\.?\s+(\d+)[-–](\d+)\b`)
)

// citationRules returns the statute citation table for sections of title.
// A bare "section S" resolves to the same title unless followed by
// "of title N".
func citationRules(title string) []legaltext.CitationRule {
	return []legaltext.CitationRule{
		{
			Name:    "usc_section",
			Pattern: uscPattern,
			Kind:    domain.RefInternalSection,
			Resolve: func(g []string) legaltext.Target {
				return legaltext.Target{Citation: citation(g[1], g[2]), Unit: g[1], Section: g[2]}
			},
		},
		{
			Name:    "section_ref",
			Pattern: sectionRefPattern,
			Kind:    domain.RefInternalSection,
			Resolve: func(g []string) legaltext.Target {
				unit := title
				if g[2] != "" {
					unit = g[2]
				}
				return legaltext.Target{Citation: citation(unit, g[1]), Unit: unit, Section: g[1]}
			},
		},
		{
			Name:    "chapter",
			Pattern: chapterPattern,
			Kind:    domain.RefInternalDivision,
			Resolve: func(g []string) legaltext.Target {
				return legaltext.Target{Citation: fmt.Sprintf("%s USC ch. %s", title, g[1]), Unit: title}
			},
		},
		{
			Name:    "cfr",
			Pattern: cfrPattern,
			Kind:    domain.RefExternalRegulation,
			Resolve: func(g []string) legaltext.Target {
				return legaltext.Target{Citation: fmt.Sprintf("%s CFR %s", g[1], g[2]), Unit: g[1], Section: g[2]}
			},
		},
		{Name: "federal_register", Pattern: frPattern, Kind: domain.RefExternalRegulation},
		{
			Name:    "ucc",
			Pattern: uccPattern,
			Kind:    domain.RefExternalCode,
			Resolve: func(g []string) legaltext.Target {
				return legaltext.Target{Citation: fmt.Sprintf("UCC %s-%s", g[1], g[2]), Unit: g[1], Section: g[2]}
			},
		},
		{Name: "public_law", Pattern: publicLawPattern, Kind: domain.RefOther},
	}
}
