package ucc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/cornell"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ucc"
)

var fetched = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func goodsPage() cornell.SectionPage {
	return cornell.SectionPage{
		ArticleNumber: "2",
		Number:        "105",
		Citation:      "UCC 2-105",
		Heading:       "Definitions: Transferability; \"Goods\"",
		Text: "(1) \"Goods\" means all things which are movable at the time of identification to the contract for sale.\n" +
			"(2) Goods must be both existing and identified before any interest in them can pass. See Section 2-107 and Article 9.\n" +
			"Compare 15 U.S.C. § 78c, 16 C.F.R. § 433.2 and Restatement (Second) of Contracts § 90. A buyer may pay by ACH.",
		HTML:            "<div class=\"content\">...</div>",
		OfficialComment: "  Prior uniform statutory provision:   Section 76,\n Uniform Sales Act. ",
		SourceURL:       "https://www.law.cornell.edu/ucc/2/2-105",
		FetchedAt:       fetched,
	}
}

func TestProcessSection(t *testing.T) {
	t.Parallel()

	s, err := ucc.NewProcessor(infralogger.NewNop()).ProcessSection(goodsPage())
	require.NoError(t, err)

	assert.Equal(t, "2", s.UnitNumber)
	assert.Equal(t, "105", s.Number)
	assert.Equal(t, "UCC 2-105", s.Citation)
	assert.Equal(t, "1", s.DivisionNumber)
	assert.Equal(t, "Prior uniform statutory provision: Section 76, Uniform Sales Act.", s.OfficialComment)
	assert.NotContains(t, s.CleanText, "\n")
	assert.Equal(t, fetched, s.LastModified)
	assert.NotNil(t, s.Categories)

	require.Len(t, s.Subsections, 2)
	assert.Equal(t, "(1)", s.Subsections[0].Label)
	assert.Equal(t, 2, s.Subsections[0].Level)

	require.NotEmpty(t, s.Definitions)
	assert.Equal(t, "Goods", s.Definitions[0].Term)
	assert.Equal(t, domain.ScopeGeneral, s.Definitions[0].Scope)

	assert.Contains(t, s.CommercialTerms, "goods")
	assert.Contains(t, s.CommercialTerms, "buyer")
	assert.Contains(t, s.CommercialTerms, "ACH")
	assert.Contains(t, s.TransactionTypes, "sales")
	assert.Contains(t, s.Keywords, "contract")
	assert.Contains(t, s.Keywords, "goods")
}

func TestProcessSection_References(t *testing.T) {
	t.Parallel()

	s, err := ucc.NewProcessor(nil).ProcessSection(goodsPage())
	require.NoError(t, err)

	type ref struct {
		kind   domain.ReferenceKind
		target string
	}
	got := make([]ref, 0, len(s.References))
	for _, r := range s.References {
		got = append(got, ref{r.Kind, r.Target})
	}
	assert.Equal(t, []ref{
		{domain.RefInternalSection, "UCC 2-107"},
		{domain.RefInternalDivision, "UCC Article 9"},
		{domain.RefExternalCode, "15 U.S.C. § 78c"},
		{domain.RefExternalRegulation, "16 C.F.R. § 433.2"},
		{domain.RefOther, "Restatement (Second) of Contracts § 90"},
	}, got)
	assert.Equal(t, "2", s.References[0].TargetUnit)
	assert.Equal(t, "107", s.References[0].TargetSection)
}

func TestProcessSection_AcronymsAreWholeWords(t *testing.T) {
	t.Parallel()

	page := goodsPage()
	page.Text = "Each party shall reach agreement swiftly about the goods."
	s, err := ucc.NewProcessor(nil).ProcessSection(page)
	require.NoError(t, err)
	assert.NotContains(t, s.CommercialTerms, "ACH")
	assert.NotContains(t, s.CommercialTerms, "SWIFT")
}

func TestProcessSection_Errors(t *testing.T) {
	t.Parallel()

	p := ucc.NewProcessor(nil)

	page := goodsPage()
	page.Number = ""
	_, err := p.ProcessSection(page)
	require.ErrorIs(t, err, ucc.ErrNoSectionNumber)

	page = goodsPage()
	page.ArticleNumber = " "
	_, err = p.ProcessSection(page)
	require.ErrorIs(t, err, ucc.ErrNoArticle)

	page = goodsPage()
	page.Text = "\n"
	_, err = p.ProcessSection(page)
	require.ErrorIs(t, err, ucc.ErrEmptySection)
}

func TestProcessArticle(t *testing.T) {
	t.Parallel()

	second := goodsPage()
	second.Number = "201"
	second.Citation = "UCC 2-201"
	second.Text = "A contract for the sale of goods for the price of $500 or more is not enforceable."
	second.FetchedAt = fetched.Add(time.Minute)

	third := goodsPage()
	third.Number = "103"

	broken := goodsPage()
	broken.Number = "999"
	broken.Text = ""
	broken.SourceURL = "https://www.law.cornell.edu/ucc/2/2-999"

	content := &cornell.ArticleContent{
		Article: cornell.ArticleInfo{Number: "2", Name: "Sales", URL: "https://www.law.cornell.edu/ucc/2"},
		Parts: []cornell.PartInfo{
			{Number: "1", Name: "Short Title, General Construction and Subject Matter", ArticleNumber: "2"},
			{Number: "3", Name: "General Obligation and Construction of Contract", ArticleNumber: "2"},
		},
		Sections: []cornell.SectionPage{goodsPage(), second, third, broken},
		Failures: []domain.SkippedSection{{Locator: "https://www.law.cornell.edu/ucc/2/2-102", Reason: "not found"}},
	}

	unit, err := ucc.NewProcessor(nil).ProcessArticle(content)
	require.NoError(t, err)

	assert.Equal(t, domain.CorpusUCC, unit.Corpus)
	assert.Equal(t, "2", unit.Number)
	assert.Equal(t, "Sales", unit.Name)
	assert.Equal(t, "Uniform Commercial Code Article 2 - Sales", unit.OfficialTitle)
	assert.Equal(t, second.FetchedAt, unit.LastModified)
	require.Len(t, unit.Sections, 3)

	require.Len(t, unit.Skipped, 2)
	assert.Equal(t, "not found", unit.Skipped[0].Reason)
	assert.Equal(t, broken.SourceURL, unit.Skipped[1].Locator)

	require.Len(t, unit.Divisions, 3)
	assert.Equal(t, domain.Division{
		Number:       "1",
		Name:         "Short Title, General Construction and Subject Matter",
		StartSection: "103",
		EndSection:   "105",
		UnitNumber:   "2",
	}, unit.Divisions[0])
	assert.Equal(t, "2", unit.Divisions[1].Number)
	assert.Empty(t, unit.Divisions[1].Name)
	assert.Equal(t, "201", unit.Divisions[1].StartSection)
	assert.Equal(t, "3", unit.Divisions[2].Number)
	assert.Empty(t, unit.Divisions[2].StartSection)
}

func TestProcessArticle_WarnsOnQualityIssues(t *testing.T) {
	t.Parallel()

	page := goodsPage()
	page.Heading = ""

	core, logs := observer.New(zapcore.WarnLevel)
	unit, err := ucc.NewProcessor(infralogger.Wrap(zap.New(core))).ProcessArticle(&cornell.ArticleContent{
		Article:  cornell.ArticleInfo{Number: "2", Name: "Sales"},
		Sections: []cornell.SectionPage{page},
	})
	require.NoError(t, err)
	require.Len(t, unit.Sections, 1)

	warnings := logs.FilterMessage("Section has quality issues").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "UCC 2-105", warnings[0].ContextMap()["citation"])
}

func TestProcessArticle_NoArticle(t *testing.T) {
	t.Parallel()

	p := ucc.NewProcessor(nil)
	_, err := p.ProcessArticle(nil)
	require.ErrorIs(t, err, ucc.ErrNoArticle)

	_, err = p.ProcessArticle(&cornell.ArticleContent{})
	require.ErrorIs(t, err, ucc.ErrNoArticle)
}

func TestPartOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1", ucc.PartOf("105"))
	assert.Equal(t, "2", ucc.PartOf("201"))
	assert.Equal(t, "0", ucc.PartOf("99"))
	assert.Equal(t, "1", ucc.PartOf("102a"))
	assert.Empty(t, ucc.PartOf("A"))
}

func TestSearchContent(t *testing.T) {
	t.Parallel()

	got := ucc.SearchContent(domain.Section{
		Citation:        "UCC 2-105",
		Heading:         "Goods",
		CleanText:       "Goods means things.",
		CommercialTerms: []string{"goods"},
		Keywords:        []string{"goods", "things"},
		Definitions:     []domain.Definition{{Term: "Goods"}},
		OfficialComment: "See Section 76.",
	})
	assert.Equal(t, "UCC 2-105 Goods Goods means things. goods goods things Goods See Section 76.", got)
}
