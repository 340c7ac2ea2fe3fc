package legaltext

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

const (
	minTermLength       = 3
	minDefinitionLength = 11
)

// definitionPatterns are tried in order; a later pattern never claims text
// already matched by an earlier one. Group 1 is the term, group 2 the
// definition ending at the first period.
var definitionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]+)"\s+means\s+([^.]+\.)`),
	regexp.MustCompile(`The\s+term\s+"([^"]+)"\s+(?:means|includes)\s+([^.]+\.)`),
	regexp.MustCompile(`([A-Z][a-z\s]+)\s+means\s+([^.]+\.)`),
	regexp.MustCompile(`For\s+purposes\s+of\s+this\s+(?:Article|article|title|chapter|section),\s+"([^"]+)"\s+means\s+([^.]+\.)`),
	regexp.MustCompile(`In\s+this\s+(?:Article|article|title|chapter)(?:\s+[\d-]+)?:\s*\([a-z]\)\s+"([^"]+)"\s+means\s+([^.]+\.)`),
}

var alternativeTermPattern = regexp.MustCompile(`(?i)(?:also\s+known\s+as|also\s+called)\s+"([^"]+)"`)

// DefinitionSource is the section a definition pass runs over.
type DefinitionSource struct {
	Text       string
	Citation   string
	UnitNumber string
	// UnitScope is the scope assigned when the text speaks of "this article"
	// or "this title".
	UnitScope domain.Scope
}

// Definitions extracts term definitions from one section's text. Candidates
// with a term of two characters or fewer, or a definition of ten characters
// or fewer, are dropped. Of definitions sharing a term, compared
// case-insensitively, the one found by the earliest pattern is kept. Results
// are in textual order.
func Definitions(src DefinitionSource) []domain.Definition {
	type candidate struct {
		start, end int
		term, text string
	}

	var claimed [][2]int
	overlaps := func(s, e int) bool {
		for _, c := range claimed {
			if s < c[1] && c[0] < e {
				return true
			}
		}
		return false
	}

	var candidates []candidate
	for _, pattern := range definitionPatterns {
		var matched [][2]int
		for _, loc := range pattern.FindAllStringSubmatchIndex(src.Text, -1) {
			if overlaps(loc[0], loc[1]) {
				continue
			}
			matched = append(matched, [2]int{loc[0], loc[1]})
			candidates = append(candidates, candidate{
				start: loc[0],
				end:   loc[1],
				term:  cleanTerm(src.Text[loc[2]:loc[3]]),
				text:  Normalize(src.Text[loc[4]:loc[5]]),
			})
		}
		claimed = append(claimed, matched...)
	}

	scope := ScopeOf(src.Text, src.UnitScope)
	seen := make(map[string]bool, len(candidates))
	kept := candidates[:0]
	for _, c := range candidates {
		if utf8.RuneCountInString(c.term) < minTermLength || utf8.RuneCountInString(c.text) < minDefinitionLength {
			continue
		}
		key := strings.ToLower(c.term)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].start < kept[j].start })

	defs := make([]domain.Definition, 0, len(kept))
	for _, c := range kept {
		defs = append(defs, domain.Definition{
			Term:             c.term,
			Text:             c.text,
			Citation:         src.Citation,
			UnitNumber:       src.UnitNumber,
			Scope:            scope,
			AlternativeTerms: AlternativeTerms(c.text),
		})
	}
	return defs
}

func cleanTerm(term string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(term), `"'“”`))
}

// ScopeOf classifies definition scope from phrase cues in the section text.
// Cues naming the unit ("this article", "this title") win over cues naming
// the section.
func ScopeOf(text string, unitScope domain.Scope) domain.Scope {
	lower := strings.ToLower(text)
	hasCue := func(noun string) bool {
		return strings.Contains(lower, "in this "+noun) || strings.Contains(lower, "for purposes of this "+noun)
	}

	if unitScope != "" && hasCue(string(unitScope)) {
		return unitScope
	}
	if hasCue("section") {
		return domain.ScopeSection
	}
	return domain.ScopeGeneral
}

// AlternativeTerms returns quoted synonyms introduced by "also known as" or
// "also called".
func AlternativeTerms(text string) []string {
	matches := alternativeTermPattern.FindAllStringSubmatch(text, -1)
	terms := make([]string, 0, len(matches))
	for _, m := range matches {
		if t := cleanTerm(m[1]); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}
