package legaltext_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/legaltext"
)

func TestTable_SubstringLabels(t *testing.T) {
	table := legaltext.NewTable(legaltext.Substring,
		legaltext.Group{Label: "sales", Terms: []string{"buyer", "seller"}},
		legaltext.Group{Label: "leases", Terms: []string{"lessor"}},
		legaltext.Group{Label: "bank", Terms: []string{"check collection"}},
	)

	assert.Equal(t, []string{"sales"}, table.Labels("The BUYER shall pay."))
	assert.Equal(t, []string{"sales", "leases"}, table.Labels("lessor and buyers"))
	assert.Empty(t, table.Labels("nothing relevant"))
	assert.Equal(t, []string{"buyer"}, table.Terms("the buyer and another buyer"))
}

func TestTable_WholeWord(t *testing.T) {
	table := legaltext.NewTable(legaltext.WholeWord,
		legaltext.Group{Label: "terms", Terms: []string{"shall", "fine", "shall not"}},
	)

	assert.Equal(t, []string{"shall", "shall not"}, table.Terms("A person shall not, and shall-not."))
	assert.Empty(t, table.Terms("marshall refined"))
}

func TestTable_SharedTermAcrossGroups(t *testing.T) {
	table := legaltext.NewTable(legaltext.Substring,
		legaltext.Group{Label: "a", Terms: []string{"bank"}},
		legaltext.Group{Label: "b", Terms: []string{"bank", "deposit"}},
	)

	assert.Equal(t, []string{"a", "b"}, table.Labels("the bank"))
}

func TestTable_ConcurrentUse(t *testing.T) {
	table := legaltext.NewTable(legaltext.Substring, legaltext.Group{Label: "x", Terms: []string{"goods"}})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, []string{"x"}, table.Labels("goods"))
		}()
	}
	wg.Wait()
}

func TestCapitalizedPhrases(t *testing.T) {
	got := legaltext.CapitalizedPhrases("The Secured Party acts under the Uniform Commercial Code. Federal Reserve Bank Board Rules too. Act")
	assert.Equal(t, []string{"The Secured Party", "Uniform Commercial Code"}, got)
}

func TestKeywords(t *testing.T) {
	got := legaltext.Keywords([]string{"buyer", "Buyer", "ab"}, "Secured Party rights. Secured Party duties.")
	assert.Equal(t, []string{"buyer", "secured party"}, got)
}
