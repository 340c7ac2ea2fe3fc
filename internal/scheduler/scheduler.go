// Package scheduler runs incremental indexing on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/indexer"
)

// ErrNoRunners is returned when nothing is scheduled.
var ErrNoRunners = errors.New("scheduler: no corpora to schedule")

// Runner runs one incremental pass over a corpus. Both corpus indexers
// satisfy it.
type Runner interface {
	StartIncrementalIndexing(ctx context.Context) (*indexer.Result, error)
}

// Entry pairs a corpus with its runner. Entries run in order.
type Entry struct {
	Corpus domain.Corpus
	Runner Runner
}

// Scheduler fires incremental runs. A tick that arrives while the previous
// one is still running is skipped; a triggered run overlapping a tick is
// refused by the indexer itself.
type Scheduler struct {
	log     infralogger.Logger
	cron    *cron.Cron
	spec    string
	entries []Entry

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// Parser accepts five-field specs and descriptors such as "@monthly".
var Parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New validates spec and builds a scheduler.
func New(spec string, entries []Entry, log infralogger.Logger) (*Scheduler, error) {
	if len(entries) == 0 {
		return nil, ErrNoRunners
	}
	if _, err := Parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if log == nil {
		log = infralogger.NewNop()
	}

	return &Scheduler{
		log:     log.With(infralogger.String("component", "scheduler")),
		cron:    cron.New(cron.WithParser(Parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		spec:    spec,
		entries: entries,
	}, nil
}

// Start registers the schedule and starts the cron loop. Runs use a
// context derived from ctx and are cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		s.cancel()
		return fmt.Errorf("schedule incremental runs: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.log.Info("Scheduler started",
		infralogger.String("schedule", s.spec),
		infralogger.Time("next_run", s.Next()),
	)
	return nil
}

// Stop cancels active runs and waits for them, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	cronCtx := s.cron.Stop()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.RunOnce(ctx)
}

// Trigger starts an unscheduled run in the background. It reports false
// when the scheduler is not started.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunOnce(ctx)
	}()
	return true
}

// RunOnce runs every entry once. A failing corpus does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) map[domain.Corpus]*indexer.Result {
	results := make(map[domain.Corpus]*indexer.Result, len(s.entries))
	for _, e := range s.entries {
		if ctx.Err() != nil {
			return results
		}

		log := s.log.With(infralogger.String("corpus", string(e.Corpus)))
		res, err := e.Runner.StartIncrementalIndexing(ctx)
		switch {
		case errors.Is(err, indexer.ErrRunInProgress):
			log.Info("Skipping scheduled run, corpus is already indexing")
			continue
		case err != nil:
			log.Error("Scheduled incremental run failed", infralogger.Error(err))
		case res != nil:
			log.Info("Scheduled incremental run finished",
				infralogger.String("job_id", res.JobID.String()),
				infralogger.Int("changed", len(res.Changed)),
				infralogger.Int("unchanged", len(res.Unchanged)),
			)
		}
		results[e.Corpus] = res
	}
	return results
}
