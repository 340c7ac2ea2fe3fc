package common_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	cmdcommon "github.com/jonesrussell/north-cloud/legal-indexer/cmd/common"
	infragin "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/backend"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/govinfo"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/indexer"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/job"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ledger"
)

func TestRenderResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmdcommon.RenderResult(&buf, "ucc", nil)
	assert.Empty(t, buf.String())

	cmdcommon.RenderResult(&buf, "ucc", &indexer.Result{
		JobID:   backend.ID("job-3"),
		Mode:    backend.JobIncremental,
		Status:  job.StatusCompleted,
		Stats:   job.Stats{Units: 2, Sections: 40, SuccessRate: 100},
		Changed: []string{"2", "9"},
		Failed:  []string{"4A"},
	})

	out := buf.String()
	assert.Contains(t, out, "ucc incremental run")
	assert.Contains(t, out, "job-3")
	assert.Contains(t, out, "2, 9")
	assert.Contains(t, out, "4A")
	assert.Contains(t, out, "100.0%")
}

func TestRenderLedger(t *testing.T) {
	t.Parallel()

	modified := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	cmdcommon.RenderLedger(&buf, "uscode", map[string]ledger.Record{
		"10": {Unit: "10", Fingerprint: "0123456789abcdef", Sections: 12, IndexedAt: modified},
		"9":  {Unit: "9", Sections: 3, SourceModified: &modified, IndexedAt: modified},
	})

	out := buf.String()
	assert.Contains(t, out, "uscode index ledger")
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "0123456789abc")
	assert.Contains(t, out, "incomplete")
	assert.Contains(t, out, "2024-02-01")
	assert.Contains(t, out, " 9 │")
	assert.Less(t, strings.Index(out, " 9 │"), strings.Index(out, " 10 │"))
}

func TestRenderTitles(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmdcommon.RenderTitles(&buf, []govinfo.TitleInfo{
		{Number: 7, Name: "Agriculture", PackageID: "USCODE-2024-title07",
			LastModified: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Number: 8, Name: "Aliens and Nationality", PackageID: "USCODE-2024-title08"},
	})

	out := buf.String()
	assert.Contains(t, out, "USCODE-2024-title07")
	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "Aliens and Nationality")
}

func TestRenderSearch(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmdcommon.RenderSearch(&buf, "arbitration", []govinfo.SearchResult{
		{PackageID: "USCODE-2023-title09", Title: "9 U.S.C. 2 - Validity", Citation: "9 USC 2",
			LastModified: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{PackageID: "USCODE-2023-title01", Title: "General Provisions"},
	})

	out := buf.String()
	assert.Contains(t, out, "Search: arbitration")
	assert.Contains(t, out, "9 USC 2")
	assert.Contains(t, out, "2024-01-02")
	assert.Contains(t, out, "USCODE-2023-title01")
}

func TestRenderStats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmdcommon.RenderStats(&buf, "US Code", map[string]any{
		"sections":     60000.0,
		"success_rate": 99.5,
		"last_indexed": nil,
	})

	out := buf.String()
	assert.Contains(t, out, "60000")
	assert.NotContains(t, out, "60000.00")
	assert.Contains(t, out, "99.50")
}

func TestRenderHealth(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmdcommon.RenderHealth(&buf, map[string]infragin.CheckResult{
		"backend": {Status: infragin.HealthStatusUnhealthy, Message: "backend check failed: refused"},
		"ledger":  {Status: infragin.HealthStatusHealthy, Latency: "2ms"},
	})

	out := buf.String()
	assert.Contains(t, out, "unhealthy")
	assert.Contains(t, out, "refused")
	assert.Contains(t, out, "2ms")
}
