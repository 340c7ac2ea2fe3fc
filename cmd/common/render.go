package common

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	infragin "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/cornell"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/govinfo"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/indexer"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ledger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/legaltext"
)

const (
	dateLayout       = "2006-01-02"
	shortFingerprint = 12
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// RenderResult prints the summary of an indexing run.
func RenderResult(w io.Writer, corpus string, res *indexer.Result) {
	if res == nil {
		return
	}

	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s %s run", corpus, res.Mode))
	t.AppendRows([]table.Row{
		{"Job", orDash(res.JobID.String())},
		{"Status", orDash(string(res.Status))},
		{"Units", res.Stats.Units},
		{"Unchanged", res.Stats.Unchanged},
		{"Divisions", res.Stats.Divisions},
		{"Sections", res.Stats.Sections},
		{"Subsections", res.Stats.Subsections},
		{"Definitions", res.Stats.Definitions},
		{"Cross references", res.Stats.CrossReferences},
		{"Errors", res.Stats.Errors},
		{"API calls", res.Stats.APICalls},
		{"Success rate", fmt.Sprintf("%.1f%%", res.Stats.SuccessRate)},
		{"Duration", fmt.Sprintf("%.1fs", res.Stats.DurationSeconds)},
	})
	if len(res.Changed) > 0 {
		t.AppendRow(table.Row{"Changed", strings.Join(res.Changed, ", ")})
	}
	if len(res.Skipped) > 0 {
		t.AppendRow(table.Row{"Skipped", strings.Join(res.Skipped, ", ")})
	}
	if len(res.Failed) > 0 {
		t.AppendRow(table.Row{"Failed", strings.Join(res.Failed, ", ")})
	}
	t.Render()
}

// RenderTitles prints the US Code titles available from GovInfo.
func RenderTitles(w io.Writer, titles []govinfo.TitleInfo) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Title", "Name", "Package", "Last modified"})
	for _, info := range titles {
		modified := "-"
		if !info.LastModified.IsZero() {
			modified = info.LastModified.Format(dateLayout)
		}
		t.AppendRow(table.Row{info.Number, info.Name, info.PackageID, modified})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(titles)})
	t.Render()
}

// RenderSearch prints GovInfo search hits.
func RenderSearch(w io.Writer, query string, results []govinfo.SearchResult) {
	t := newTable(w)
	t.SetTitle("Search: " + query)
	t.AppendHeader(table.Row{"Citation", "Title", "Package", "Last modified"})
	for _, r := range results {
		citation, modified := "-", "-"
		if r.Citation != "" {
			citation = r.Citation
		}
		if !r.LastModified.IsZero() {
			modified = r.LastModified.Format(dateLayout)
		}
		t.AppendRow(table.Row{citation, r.Title, r.PackageID, modified})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(results)})
	t.Render()
}

// RenderArticles prints the UCC articles found on Cornell LII.
func RenderArticles(w io.Writer, articles []cornell.ArticleInfo) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Article", "Name", "URL"})
	for _, a := range articles {
		t.AppendRow(table.Row{a.Number, a.Name, a.URL})
	}
	t.AppendFooter(table.Row{"", "Total", len(articles)})
	t.Render()
}

// RenderStats prints backend statistics sorted by key.
func RenderStats(w io.Writer, title string, stats map[string]any) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Statistic", "Value"})
	for _, k := range keys {
		t.AppendRow(table.Row{k, formatValue(stats[k])})
	}
	t.Render()
}

// RenderHealth prints dependency check results sorted by name.
func RenderHealth(w io.Writer, results map[string]infragin.CheckResult) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable(w)
	t.AppendHeader(table.Row{"Dependency", "Status", "Latency", "Message"})
	for _, name := range names {
		r := results[name]
		t.AppendRow(table.Row{name, r.Status, orDash(r.Latency), orDash(r.Message)})
	}
	t.Render()
}

// RenderLedger prints the ledger records of a corpus in natural unit order.
// Records with an empty fingerprint were stored incompletely.
func RenderLedger(w io.Writer, corpus string, records map[string]ledger.Record) {
	units := make([]string, 0, len(records))
	for unit := range records {
		units = append(units, unit)
	}
	sort.Slice(units, func(i, j int) bool { return legaltext.NaturalLess(units[i], units[j]) })

	t := newTable(w)
	t.SetTitle(corpus + " index ledger")
	t.AppendHeader(table.Row{"Unit", "Sections", "Source modified", "Indexed at", "Fingerprint"})
	for _, unit := range units {
		rec := records[unit]
		modified := "-"
		if rec.SourceModified != nil {
			modified = rec.SourceModified.Format(dateLayout)
		}
		fingerprint := "incomplete"
		if len(rec.Fingerprint) >= shortFingerprint {
			fingerprint = rec.Fingerprint[:shortFingerprint]
		} else if rec.Fingerprint != "" {
			fingerprint = rec.Fingerprint
		}
		t.AppendRow(table.Row{unit, rec.Sections, modified, rec.IndexedAt.Format(time.RFC3339), fingerprint})
	}
	t.AppendFooter(table.Row{"Total", len(units), "", "", ""})
	t.Render()
}

// formatValue prints whole JSON numbers without a fraction.
func formatValue(v any) string {
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', 2, 64)
	case nil:
		return "-"
	default:
		return fmt.Sprint(n)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
