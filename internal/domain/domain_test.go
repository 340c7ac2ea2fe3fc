package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

func TestParseCorpus(t *testing.T) {
	t.Parallel()

	c, err := domain.ParseCorpus(" USCode ")
	require.NoError(t, err)
	assert.Equal(t, domain.CorpusUSCode, c)

	c, err = domain.ParseCorpus("ucc")
	require.NoError(t, err)
	assert.Equal(t, domain.CorpusUCC, c)

	_, err = domain.ParseCorpus("cfr")
	require.ErrorIs(t, err, domain.ErrUnknownCorpus)
}

func TestReferenceKind_Internal(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.RefInternalSection.Internal())
	assert.True(t, domain.RefInternalDivision.Internal())
	assert.False(t, domain.RefExternalCode.Internal())
	assert.False(t, domain.RefOther.Internal())
}

func TestUnitCounts(t *testing.T) {
	t.Parallel()

	unit := &domain.Unit{Sections: []domain.Section{
		{
			Subsections: []domain.Subsection{{Label: "(a)"}, {Label: "(b)"}},
			Definitions: []domain.Definition{{Term: "goods"}},
		},
		{References: []domain.CrossReference{{Kind: domain.RefOther}}},
	}}

	assert.Equal(t, domain.SectionCounts{
		Sections:        2,
		Subsections:     2,
		Definitions:     1,
		CrossReferences: 1,
	}, unit.Counts())
}
