package legaltext_test

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/legaltext"
)

var testRules = []legaltext.CitationRule{
	{
		Name:    "ucc_section",
		Pattern: regexp.MustCompile(`\bSection\s+(\d+[A-Z]?)-(\d+)\b`),
		Kind:    domain.RefInternalSection,
		Resolve: func(g []string) legaltext.Target {
			return legaltext.Target{Citation: "UCC " + g[1] + "-" + g[2], Unit: g[1], Section: g[2]}
		},
	},
	{
		Name:    "cfr",
		Pattern: regexp.MustCompile(`\b(\d+)\s+C\.?F\.?R\.?\s+§?\s*(\d+(?:\.\d+)*)`),
		Kind:    domain.RefExternalRegulation,
	},
}

func TestCrossReferences_ResolvesAndOrders(t *testing.T) {
	text := "Subject to 12 CFR 229.2 and Section 2-201, the seller must act."

	refs := legaltext.CrossReferences(text, testRules)
	require.Len(t, refs, 2)

	assert.Equal(t, domain.RefExternalRegulation, refs[0].Kind)
	assert.Equal(t, "12 CFR 229.2", refs[0].Target)
	assert.Equal(t, domain.RefInternalSection, refs[1].Kind)
	assert.Equal(t, "UCC 2-201", refs[1].Target)
	assert.Equal(t, "2", refs[1].TargetUnit)
	assert.Equal(t, text, refs[1].Context)
}

func TestCrossReferences_ContextWindowBounded(t *testing.T) {
	left := strings.Repeat("é", 250)
	right := strings.Repeat("x", 250)
	text := left + " Section 9-109 " + right

	refs := legaltext.CrossReferences(text, testRules)
	require.Len(t, refs, 1)

	ctx := refs[0].Context
	assert.Contains(t, ctx, "Section 9-109")
	assert.LessOrEqual(t, utf8.RuneCountInString(ctx), len("Section 9-109")+2*legaltext.ContextRadius)
	assert.True(t, utf8.ValidString(ctx))
	assert.True(t, strings.HasPrefix(ctx, "é"))
}

func TestCrossReferences_EmptyIsSlice(t *testing.T) {
	refs := legaltext.CrossReferences("nothing cited", testRules)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

func TestContextWindow_ClampsToText(t *testing.T) {
	assert.Equal(t, "abc", legaltext.ContextWindow("abc", 1, 2, 100))
}
