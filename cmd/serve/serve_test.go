package serve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	cmdcommon "github.com/jonesrussell/north-cloud/legal-indexer/cmd/common"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/config"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/indexer"
)

func TestEntries_FollowConfiguredOrder(t *testing.T) {
	t.Parallel()

	svc := &cmdcommon.Services{
		Config: &config.Config{Indexer: config.IndexerConfig{Corpora: []string{"ucc", "cfr", "USCODE"}}},
		USCode: &indexer.USCodeIndexer{},
		UCC:    &indexer.UCCIndexer{},
	}

	got := entries(svc)
	if assert.Len(t, got, 2) {
		assert.Equal(t, domain.CorpusUCC, got[0].Corpus)
		assert.Same(t, svc.UCC, got[0].Runner)
		assert.Equal(t, domain.CorpusUSCode, got[1].Corpus)
		assert.Same(t, svc.USCode, got[1].Runner)
	}
}
