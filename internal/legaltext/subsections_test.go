package legaltext_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/legaltext"
)

func TestSubsections_OrderFollowsText(t *testing.T) {
	text := "(a) General rule.\n(b) Exception applies.\n(1) Numbered item."

	subs := legaltext.Subsections(text)
	require.Len(t, subs, 3)

	assert.Equal(t, "(a)", subs[0].Label)
	assert.Equal(t, 1, subs[0].Level)
	assert.Equal(t, "General rule.", subs[0].Content)
	assert.Equal(t, "(b)", subs[1].Label)
	assert.Equal(t, "(1)", subs[2].Label)
	assert.Equal(t, 2, subs[2].Level)
	for i, s := range subs {
		assert.Equal(t, i+1, s.Order)
	}
}

func TestSubsections_OverlappingFamiliesKept(t *testing.T) {
	subs := legaltext.Subsections("(i) first clause\n(ii) second clause")

	// (i) is both a letter and a roman marker; (ii) only roman.
	require.Len(t, subs, 3)
	assert.Equal(t, "(i)", subs[0].Label)
	assert.Equal(t, 1, subs[0].Level)
	assert.Equal(t, "(i)", subs[1].Label)
	assert.Equal(t, 3, subs[1].Level)
	assert.Equal(t, "(ii)", subs[2].Label)
	assert.Equal(t, 3, subs[2].Level)
}

func TestSubsections_ContentStopsAtLineBreak(t *testing.T) {
	subs := legaltext.Subsections("intro (a) same line text\nnext line")
	require.Len(t, subs, 1)
	assert.Equal(t, "same line text", subs[0].Content)
}

func TestSubsections_NoneIsEmptySlice(t *testing.T) {
	subs := legaltext.Subsections("plain text without markers")
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}
