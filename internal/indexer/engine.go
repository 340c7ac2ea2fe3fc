package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/archive"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/backend"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/fetch"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/job"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ledger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/metrics"
)

// candidate is a unit selected for a run, loaded lazily.
type candidate struct {
	number   string
	stage    string
	modified time.Time
	load     func(ctx context.Context) (*loaded, error)
}

// loaded is a processed unit plus the raw markup it came from.
type loaded struct {
	unit    *domain.Unit
	sources []archive.Object
}

type outcome int

const (
	outcomeStored outcome = iota
	outcomeUnchanged
	outcomeSkipped
	outcomeFailed
)

// runPlan describes one run to the engine.
type runPlan struct {
	request     backend.JobRequest
	single      bool
	incremental bool
	list        func(ctx context.Context) ([]candidate, error)
}

// engine is the corpus-independent run loop.
type engine struct {
	corpus        domain.Corpus
	store         Store
	calls         CallCounter
	opts          Options
	log           infralogger.Logger
	hooks         []string
	fetchingStage string
	searchContent func(domain.Section) string

	running atomic.Bool
	current atomic.Pointer[job.Tracker]
}

func (e *engine) run(ctx context.Context, plan runPlan) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer e.running.Store(false)

	mode := plan.request.JobType
	log := e.log.With(
		infralogger.String("run_id", uuid.NewString()),
		infralogger.String("mode", mode),
	)
	start := e.opts.Clock()
	stats := job.NewStats(start)
	baseCalls, baseFailed := e.calls.Calls(), e.calls.FailedCalls()
	result := newResult(mode)

	tracker := job.NewTracker(e.store, log)
	id, err := tracker.Create(ctx, plan.request)
	if err != nil {
		log.Error("Failed to create job", infralogger.Error(err))
		e.opts.Metrics.RecordRun(string(e.corpus), mode, string(job.StatusFailed),
			e.opts.Clock().Sub(start), time.Time{})
		return nil, err
	}
	result.JobID = id
	e.current.Store(tracker)
	log = log.With(infralogger.String("job_id", id.String()))

	report := func(op string, err error) {
		if err != nil {
			log.Warn("Job update failed", infralogger.String("operation", op), infralogger.Error(err))
		}
	}
	refreshCalls := func() {
		stats.SetCalls(e.calls.Calls()-baseCalls, e.calls.FailedCalls()-baseFailed)
	}
	fail := func(cause error) (*Result, error) {
		refreshCalls()
		stats.Finish(e.opts.Clock())
		snapshot := stats.Snapshot()
		report("fail", tracker.Fail(ctx, cause, &snapshot))
		log.Error("Indexing run failed", infralogger.Error(cause))
		result.Status = job.StatusFailed
		result.Stats = snapshot
		e.opts.Metrics.RecordRun(string(e.corpus), mode, string(job.StatusFailed),
			e.opts.Clock().Sub(start), time.Time{})
		return result, cause
	}

	report("start", tracker.Start(ctx, job.StageInitializing, job.PercentStart))
	report("progress", tracker.Progress(ctx, e.fetchingStage, job.PercentFetching))

	candidates, err := plan.list(ctx)
	if err != nil {
		return fail(fmt.Errorf("enumerate units: %w", err))
	}

	total := len(candidates)
	log.Info("Indexing units", infralogger.Int("units", total))

	for i, c := range candidates {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		report("progress", tracker.Progress(ctx, c.stage, job.UnitPercent(i, total)))

		unitLog := log.With(infralogger.String("unit", c.number))
		res, unitErr := e.indexUnit(ctx, c, stats, plan.incremental, unitLog)

		switch res {
		case outcomeStored:
			stats.Units++
			result.Changed = append(result.Changed, c.number)
			e.opts.Metrics.RecordUnit(string(e.corpus), metrics.UnitStored)
		case outcomeUnchanged:
			stats.Unchanged++
			result.Unchanged = append(result.Unchanged, c.number)
			e.opts.Metrics.RecordUnit(string(e.corpus), metrics.UnitUnchanged)
		case outcomeSkipped:
			if plan.single {
				return fail(fmt.Errorf("%w: %s %s: %w", ErrUnitNotFound, e.corpus, c.number, unitErr))
			}
			result.Skipped = append(result.Skipped, c.number)
			e.opts.Metrics.RecordUnit(string(e.corpus), metrics.UnitSkipped)
			unitLog.Warn("No source data for unit, skipping", infralogger.Error(unitErr))
		case outcomeFailed:
			stats.Errors++
			result.Failed = append(result.Failed, c.number)
			e.opts.Metrics.RecordUnit(string(e.corpus), metrics.UnitFailed)
			unitLog.Error("Failed to index unit", infralogger.Error(unitErr))
		}

		if (i+1)%e.opts.BatchSize == 0 {
			refreshCalls()
			report("stats", tracker.ReportStats(ctx, stats.Snapshot()))
		}
	}
	if ctx.Err() != nil {
		return fail(ctx.Err())
	}

	report("progress", tracker.Progress(ctx, job.StageFinalizing, job.PercentFinalizing))
	if len(result.Changed) > 0 {
		e.finalize(ctx, log)
	}

	end := e.opts.Clock()
	refreshCalls()
	stats.Finish(end)
	snapshot := stats.Snapshot()
	report("complete", tracker.Complete(ctx, snapshot))

	result.Status = job.StatusCompleted
	result.Stats = snapshot
	e.opts.Metrics.RecordRun(string(e.corpus), mode, string(job.StatusCompleted), end.Sub(start), end)

	log.Info("Indexing run completed",
		infralogger.Int("units", snapshot.Units),
		infralogger.Int("sections", snapshot.Sections),
		infralogger.Int("unchanged", snapshot.Unchanged),
		infralogger.Int("errors", snapshot.Errors),
		infralogger.Float64("duration_seconds", snapshot.DurationSeconds),
	)
	return result, nil
}

func (e *engine) finalize(ctx context.Context, log infralogger.Logger) {
	for _, hook := range e.hooks {
		if err := e.store.Finalize(ctx, hook); err != nil {
			log.Warn("Finalization hook failed", infralogger.String("hook", hook), infralogger.Error(err))
		}
	}
}

func (e *engine) indexUnit(
	ctx context.Context,
	c candidate,
	stats *job.Stats,
	incremental bool,
	log infralogger.Logger,
) (outcome, error) {
	ld, err := c.load(ctx)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return outcomeSkipped, err
		}
		return outcomeFailed, err
	}
	unit := ld.unit
	fingerprint := ledger.Fingerprint(unit)

	if incremental && e.unchanged(ctx, unit.Number, fingerprint) {
		log.Debug("Unit content unchanged")
		e.remember(ctx, unit, fingerprint, log)
		return outcomeUnchanged, nil
	}

	e.archiveSources(ctx, ld.sources, log)

	unitID, err := e.store.CreateUnit(ctx, unit, e.opts.Clock())
	if err != nil {
		return outcomeFailed, fmt.Errorf("store unit %s: %w", unit.Number, err)
	}

	divisionIDs := make(map[string]backend.ID, len(unit.Divisions))
	divisionsFailed := 0
	for _, d := range unit.Divisions {
		id, divErr := e.store.CreateDivision(ctx, unitID, d)
		if divErr != nil {
			stats.Errors++
			divisionsFailed++
			log.Warn("Failed to store division",
				infralogger.String("division", d.Number),
				infralogger.Error(divErr),
			)
			continue
		}
		divisionIDs[d.Number] = id
		stats.Divisions++
	}

	resolved := make(map[string]backend.ID)
	stored := 0
	for i := range unit.Sections {
		s := &unit.Sections[i]
		counts, secErr := e.storeSection(ctx, unitID, divisionIDs[s.DivisionNumber], unit, s, resolved, log)
		if secErr != nil {
			stats.Errors++
			log.Warn("Failed to store section",
				infralogger.String("citation", s.Citation),
				infralogger.Error(secErr),
			)
			continue
		}
		stats.Add(counts)
		stored++
	}
	e.opts.Metrics.RecordSections(string(e.corpus), stored)

	log.Info("Indexed unit",
		infralogger.String("name", unit.Name),
		infralogger.Int("sections", stored),
		infralogger.Int("skipped_sections", len(unit.Skipped)),
	)
	if divisionsFailed > 0 || stored < len(unit.Sections) {
		// An empty fingerprint makes the next incremental run retry the unit.
		log.Warn("Unit stored incompletely, marking it for reindexing",
			infralogger.Int("failed_divisions", divisionsFailed),
			infralogger.Int("failed_sections", len(unit.Sections)-stored),
		)
		fingerprint = ""
	}
	e.remember(ctx, unit, fingerprint, log)
	return outcomeStored, nil
}

// storeSection writes one section and its children. Only a failure to
// store the section itself is returned; child failures are logged.
func (e *engine) storeSection(
	ctx context.Context,
	unitID, divisionID backend.ID,
	unit *domain.Unit,
	s *domain.Section,
	resolved map[string]backend.ID,
	log infralogger.Logger,
) (domain.SectionCounts, error) {
	counts := domain.SectionCounts{}

	sectionID, err := e.store.CreateSection(ctx, unitID, divisionID, unit, s)
	if err != nil {
		return counts, err
	}
	counts.Sections = 1

	childFailed := func(kind string, err error) {
		log.Warn("Failed to store section record",
			infralogger.String("citation", s.Citation),
			infralogger.String("record", kind),
			infralogger.Error(err),
		)
	}

	for _, sub := range s.Subsections {
		if _, err = e.store.CreateSubsection(ctx, sectionID, sub); err != nil {
			childFailed("subsection", err)
			continue
		}
		counts.Subsections++
	}

	for _, d := range s.Definitions {
		if _, err = e.store.CreateDefinition(ctx, sectionID, unitID, d); err != nil {
			childFailed("definition", err)
			continue
		}
		counts.Definitions++
	}

	for _, ref := range s.References {
		toID := e.resolve(ctx, ref, resolved, log)
		if _, err = e.store.CreateCrossReference(ctx, sectionID, toID, ref); err != nil {
			childFailed("cross_reference", err)
			continue
		}
		counts.CrossReferences++
	}

	content := e.searchContent(*s)
	if _, err = e.store.CreateSearchIndex(ctx, sectionID, s, content); err != nil {
		childFailed("search_index", err)
	}

	if e.opts.Mirror != nil {
		if err = e.opts.Mirror.IndexSection(ctx, e.corpus, s, content); err != nil {
			childFailed("search_mirror", err)
		}
	}
	return counts, nil
}

// resolve maps an internal section reference to its stored id. Lookups are
// cached per unit, misses included; unresolved references keep an empty id
// and the raw target.
func (e *engine) resolve(
	ctx context.Context,
	ref domain.CrossReference,
	resolved map[string]backend.ID,
	log infralogger.Logger,
) backend.ID {
	if ref.Kind != domain.RefInternalSection || ref.Target == "" {
		return ""
	}
	if id, ok := resolved[ref.Target]; ok {
		return id
	}

	id, err := e.store.ResolveCitation(ctx, ref.Target)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		log.Debug("Citation lookup failed",
			infralogger.String("target", ref.Target),
			infralogger.Error(err),
		)
	}
	resolved[ref.Target] = id
	return id
}

func (e *engine) archiveSources(ctx context.Context, sources []archive.Object, log infralogger.Logger) {
	if e.opts.Archive == nil {
		return
	}
	for _, obj := range sources {
		if _, err := e.opts.Archive.Put(ctx, obj); err != nil {
			log.Warn("Failed to archive source markup",
				infralogger.String("name", obj.Name),
				infralogger.Error(err),
			)
		}
	}
}

func (e *engine) unchanged(ctx context.Context, unit, fingerprint string) bool {
	if e.opts.Ledger == nil {
		return false
	}
	rec, err := e.opts.Ledger.Get(ctx, e.corpus, unit)
	if err != nil {
		return false
	}
	return rec.Fingerprint == fingerprint
}

func (e *engine) remember(ctx context.Context, unit *domain.Unit, fingerprint string, log infralogger.Logger) {
	if e.opts.Ledger == nil {
		return
	}
	rec := ledger.Record{
		Corpus:      string(e.corpus),
		Unit:        unit.Number,
		Fingerprint: fingerprint,
		Sections:    len(unit.Sections),
		IndexedAt:   e.opts.Clock().UTC(),
	}
	if !unit.LastModified.IsZero() {
		modified := unit.LastModified.UTC()
		rec.SourceModified = &modified
	}
	if err := e.opts.Ledger.Put(ctx, rec); err != nil {
		log.Warn("Failed to update index ledger", infralogger.Error(err))
	}
}

// selectStale keeps the candidates the ledger says need indexing.
func (e *engine) selectStale(ctx context.Context, all []candidate) ([]candidate, error) {
	cutoff := e.opts.Clock().Add(-e.opts.StaleAfter)
	selected := make([]candidate, 0, len(all))

	for _, c := range all {
		rec, err := e.opts.Ledger.Get(ctx, e.corpus, c.number)
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			rec = nil
		case err != nil:
			return nil, fmt.Errorf("read ledger for %s: %w", c.number, err)
		}

		if ok, reason := ledger.NeedsIndex(rec, c.modified, cutoff); ok {
			e.log.Debug("Unit selected for indexing",
				infralogger.String("unit", c.number),
				infralogger.String("reason", reason),
			)
			selected = append(selected, c)
		}
	}
	return selected, nil
}

// incremental runs the candidates the ledger selects. Without a ledger
// nothing is selected and no job is created.
func (e *engine) incremental(
	ctx context.Context,
	request backend.JobRequest,
	list func(context.Context) ([]candidate, error),
) (*Result, error) {
	if e.opts.Ledger == nil {
		e.log.Info("Incremental indexing needs an index ledger, nothing to do")
		return newResult(request.JobType), nil
	}
	return e.run(ctx, runPlan{
		request:     request,
		incremental: true,
		list: func(ctx context.Context) ([]candidate, error) {
			all, err := list(ctx)
			if err != nil {
				return nil, err
			}
			return e.selectStale(ctx, all)
		},
	})
}

// Current returns the state of the latest job started by this indexer.
func (e *engine) Current() (job.State, bool) {
	t := e.current.Load()
	if t == nil {
		return job.State{}, false
	}
	return t.State(), true
}

// Running reports whether a run is active.
func (e *engine) Running() bool {
	return e.running.Load()
}
