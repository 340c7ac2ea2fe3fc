package legaltext

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// MatchMode selects how table terms are compared against text.
type MatchMode int

const (
	// Substring matches a term anywhere, case-insensitively.
	Substring MatchMode = iota
	// WholeWord matches a term only between word boundaries.
	WholeWord
)

// Group is one labelled keyword list of a table.
type Group struct {
	Label string
	Terms []string
}

// Table classifies text against labelled keyword lists in a single
// Aho-Corasick pass. It is safe for concurrent use.
type Table struct {
	mode   MatchMode
	groups []Group

	mu       sync.Mutex // the matcher keeps per-call state
	matcher  *ahocorasick.Matcher
	patterns []string
	owners   [][]termRef
}

type termRef struct {
	group int
	term  int
}

// NewTable builds a table. Group and term order is preserved in results.
func NewTable(mode MatchMode, groups ...Group) *Table {
	t := &Table{mode: mode, groups: groups}

	index := make(map[string]int)
	for gi, g := range groups {
		for ti, term := range g.Terms {
			p := t.normalizeTerm(term)
			if strings.TrimSpace(p) == "" {
				continue
			}
			idx, ok := index[p]
			if !ok {
				idx = len(t.patterns)
				index[p] = idx
				t.patterns = append(t.patterns, p)
				t.owners = append(t.owners, nil)
			}
			t.owners[idx] = append(t.owners[idx], termRef{group: gi, term: ti})
		}
	}

	if len(t.patterns) > 0 {
		t.matcher = ahocorasick.NewStringMatcher(t.patterns)
	}
	return t
}

func (t *Table) normalizeTerm(term string) string {
	if t.mode == WholeWord {
		return " " + strings.TrimSpace(wordText(term)) + " "
	}
	return strings.ToLower(strings.TrimSpace(term))
}

func (t *Table) normalizeText(text string) string {
	if t.mode == WholeWord {
		return " " + wordText(text) + " "
	}
	return strings.ToLower(text)
}

// wordText lowercases and turns every non-alphanumeric rune into a space so
// word boundaries survive as single separators.
func wordText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return b.String()
}

// hits returns, per group, which term indexes were found.
func (t *Table) hits(text string) []map[int]bool {
	found := make([]map[int]bool, len(t.groups))
	if t.matcher == nil || text == "" {
		return found
	}

	t.mu.Lock()
	indexes := t.matcher.Match([]byte(t.normalizeText(text)))
	t.mu.Unlock()

	for _, idx := range indexes {
		for _, ref := range t.owners[idx] {
			if found[ref.group] == nil {
				found[ref.group] = make(map[int]bool)
			}
			found[ref.group][ref.term] = true
		}
	}
	return found
}

// Labels returns the labels of every group with at least one matching term.
func (t *Table) Labels(text string) []string {
	found := t.hits(text)
	labels := make([]string, 0, len(found))
	for gi, terms := range found {
		if len(terms) > 0 {
			labels = append(labels, t.groups[gi].Label)
		}
	}
	return labels
}

// Terms returns every distinct matching term, in table order.
func (t *Table) Terms(text string) []string {
	found := t.hits(text)
	seen := make(map[string]bool)
	terms := make([]string, 0)
	for gi, hit := range found {
		for ti, term := range t.groups[gi].Terms {
			if hit[ti] && !seen[term] {
				seen[term] = true
				terms = append(terms, term)
			}
		}
	}
	return terms
}

var capitalizedPhrase = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

const (
	maxPhraseWords   = 3
	minPhraseLength  = 4
	minKeywordLength = 3
	maxKeywordLength = 49
)

// CapitalizedPhrases returns runs of capitalized words of at most three
// words and more than three characters. Longer runs are ignored.
func CapitalizedPhrases(text string) []string {
	var phrases []string
	for _, m := range capitalizedPhrase.FindAllString(text, -1) {
		if len(strings.Fields(m)) <= maxPhraseWords && utf8.RuneCountInString(m) >= minPhraseLength {
			phrases = append(phrases, m)
		}
	}
	return phrases
}

// Keywords unions matched table terms with the capitalized phrases of text.
// The result is lowercased, deduplicated, limited to 3..49 characters and sorted.
func Keywords(terms []string, text string) []string {
	seen := make(map[string]bool)
	keywords := make([]string, 0, len(terms))
	add := func(s string) {
		k := Normalize(strings.ToLower(s))
		n := utf8.RuneCountInString(k)
		if n < minKeywordLength || n > maxKeywordLength || seen[k] {
			return
		}
		seen[k] = true
		keywords = append(keywords, k)
	}

	for _, t := range terms {
		add(t)
	}
	for _, p := range CapitalizedPhrases(text) {
		add(p)
	}

	sort.Strings(keywords)
	return keywords
}
