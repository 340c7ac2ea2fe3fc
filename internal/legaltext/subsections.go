package legaltext

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

// subsectionMarkers are the marker families, one nesting level each.
// Lower-roman markers such as (i) also match the letter family; both
// entries are kept.
var subsectionMarkers = []struct {
	level   int
	pattern *regexp.Regexp
}{
	{level: 1, pattern: regexp.MustCompile(`\(([a-z])\)`)},
	{level: 2, pattern: regexp.MustCompile(`\((\d+)\)`)},
	{level: 3, pattern: regexp.MustCompile(`\(([ivx]+)\)`)},
}

// Subsections extracts marker-delimited subsections from line-structured
// text. Each entry holds the text from its marker to the end of the line.
// Order follows textual position; at equal positions the shallower level
// comes first.
func Subsections(text string) []domain.Subsection {
	type hit struct {
		offset int
		sub    domain.Subsection
	}

	var hits []hit
	for _, family := range subsectionMarkers {
		for _, loc := range family.pattern.FindAllStringSubmatchIndex(text, -1) {
			end := len(text)
			if nl := strings.IndexByte(text[loc[1]:], '\n'); nl >= 0 {
				end = loc[1] + nl
			}
			hits = append(hits, hit{
				offset: loc[0],
				sub: domain.Subsection{
					Label:   text[loc[0]:loc[1]],
					Content: strings.TrimSpace(text[loc[1]:end]),
					Level:   family.level,
				},
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].offset != hits[j].offset {
			return hits[i].offset < hits[j].offset
		}
		return hits[i].sub.Level < hits[j].sub.Level
	})

	subs := make([]domain.Subsection, len(hits))
	for i, h := range hits {
		h.sub.Order = i + 1
		subs[i] = h.sub
	}
	return subs
}
