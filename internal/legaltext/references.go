package legaltext

import (
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

// ContextRadius is the number of characters kept on each side of a citation.
const ContextRadius = 100

// CitationRule maps one citation pattern to a reference kind. Resolve turns
// the submatches into a target; when it is nil the matched text is the target.
type CitationRule struct {
	Name    string
	Pattern *regexp.Regexp
	Kind    domain.ReferenceKind
	Resolve func(groups []string) Target
}

// Target is what a citation points at.
type Target struct {
	Citation string
	Unit     string
	Section  string
}

// CrossReferences applies every rule to text. Each match carries a context
// window of at most ContextRadius characters on either side, taken from
// text only. Matches are returned in textual order; two rules matching the
// same span both produce a reference.
func CrossReferences(text string, rules []CitationRule) []domain.CrossReference {
	var refs []domain.CrossReference
	for _, rule := range rules {
		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			groups := submatches(text, loc)
			target := Target{Citation: groups[0]}
			if rule.Resolve != nil {
				target = rule.Resolve(groups)
			}

			refs = append(refs, domain.CrossReference{
				Kind:          rule.Kind,
				Target:        target.Citation,
				TargetUnit:    target.Unit,
				TargetSection: target.Section,
				Context:       ContextWindow(text, loc[0], loc[1], ContextRadius),
				Offset:        loc[0],
			})
		}
	}

	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Offset < refs[j].Offset })
	if refs == nil {
		refs = []domain.CrossReference{}
	}
	return refs
}

func submatches(text string, loc []int) []string {
	groups := make([]string, len(loc)/2)
	for i := range groups {
		if loc[2*i] >= 0 {
			groups[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return groups
}

// ContextWindow returns text[start:end] widened by radius characters on each
// side, clamped to the text, with whitespace collapsed. start and end are
// byte offsets.
func ContextWindow(text string, start, end, radius int) string {
	from := start
	for n := 0; n < radius && from > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for n := 0; n < radius && to < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}
	return Normalize(text[from:to])
}
