package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/backend"
)

// failUpdateTimeout bounds the failed update sent after cancellation.
const failUpdateTimeout = 10 * time.Second

// ErrNoJob is returned when the tracker is used before Create succeeded.
var ErrNoJob = errors.New("job: not created")

// Store is the part of the records store the tracker writes to.
type Store interface {
	CreateJob(ctx context.Context, req backend.JobRequest) (backend.ID, error)
	UpdateJob(ctx context.Context, id backend.ID, update backend.JobUpdate) error
}

// State is a point-in-time view of a tracked job.
type State struct {
	ID       backend.ID       `json:"id"`
	Type     string           `json:"type"`
	Status   Status           `json:"status"`
	Progress backend.Progress `json:"progress"`
	Error    string           `json:"error,omitempty"`
}

// Tracker owns the lifecycle of one job. Local state advances even when
// the store update fails; update errors are returned for the caller to log.
type Tracker struct {
	store Store
	log   infralogger.Logger

	mu    sync.RWMutex
	state State
}

// NewTracker creates a tracker writing to store.
func NewTracker(store Store, log infralogger.Logger) *Tracker {
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Tracker{store: store, log: log}
}

// Create registers a pending job and returns its id.
func (t *Tracker) Create(ctx context.Context, req backend.JobRequest) (backend.ID, error) {
	req.Status = string(StatusPending)
	req.Progress = backend.Progress{Stage: StageInitializing, Percentage: PercentStart}
	if req.Stats == nil {
		req.Stats = Stats{}
	}

	id, err := t.store.CreateJob(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	t.mu.Lock()
	t.state = State{ID: id, Type: req.JobType, Status: StatusPending, Progress: req.Progress}
	t.mu.Unlock()

	t.log.Info("Created indexing job",
		infralogger.String("job_id", id.String()),
		infralogger.String("job_type", req.JobType),
	)
	return id, nil
}

// State returns the current job state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Start moves the job to running.
func (t *Tracker) Start(ctx context.Context, stage string, pct float64) error {
	return t.transition(ctx, StatusRunning, backend.JobUpdate{
		Progress: &backend.Progress{Stage: stage, Percentage: pct},
	})
}

// Progress reports the stage of a running job.
func (t *Tracker) Progress(ctx context.Context, stage string, pct float64) error {
	id, err := t.require(StatusRunning)
	if err != nil {
		return err
	}
	progress := backend.Progress{Stage: stage, Percentage: pct}

	t.mu.Lock()
	t.state.Progress = progress
	t.mu.Unlock()

	return t.update(ctx, id, backend.JobUpdate{Status: string(StatusRunning), Progress: &progress})
}

// ReportStats pushes the statistics of a running job.
func (t *Tracker) ReportStats(ctx context.Context, stats Stats) error {
	id, err := t.require(StatusRunning)
	if err != nil {
		return err
	}
	return t.update(ctx, id, backend.JobUpdate{Status: string(StatusRunning), Stats: stats})
}

// Complete marks the job completed with its final statistics. A run that
// recorded unit errors still completes.
func (t *Tracker) Complete(ctx context.Context, stats Stats) error {
	return t.transition(ctx, StatusCompleted, backend.JobUpdate{
		Progress: &backend.Progress{Stage: StageCompleted, Percentage: PercentDone},
		Stats:    stats,
	})
}

// Fail marks the job failed. When ctx is already done the update is sent
// with a fresh short-lived context so cancelled runs are still recorded.
func (t *Tracker) Fail(ctx context.Context, cause error, stats *Stats) error {
	msg := "indexing failed"
	if cause != nil {
		msg = cause.Error()
	}
	update := backend.JobUpdate{ErrorMessage: msg}
	if stats != nil {
		update.Stats = *stats
	}

	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), failUpdateTimeout)
		defer cancel()
	}

	return t.transition(ctx, StatusFailed, update)
}

func (t *Tracker) transition(ctx context.Context, to Status, update backend.JobUpdate) error {
	t.mu.Lock()
	if t.state.ID == "" {
		t.mu.Unlock()
		return ErrNoJob
	}
	from := t.state.Status
	if err := ValidateTransition(from, to); err != nil {
		t.mu.Unlock()
		return err
	}
	t.state.Status = to
	t.state.Error = update.ErrorMessage
	if update.Progress != nil {
		t.state.Progress = *update.Progress
	}
	id := t.state.ID
	t.mu.Unlock()

	t.log.Info("Job status changed",
		infralogger.String("job_id", id.String()),
		infralogger.String("from", string(from)),
		infralogger.String("to", string(to)),
	)

	update.Status = string(to)
	return t.update(ctx, id, update)
}

func (t *Tracker) require(status Status) (backend.ID, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state.ID == "" {
		return "", ErrNoJob
	}
	if t.state.Status != status {
		return "", fmt.Errorf("%w: job is %s, not %s", ErrInvalidTransition, t.state.Status, status)
	}
	return t.state.ID, nil
}

func (t *Tracker) update(ctx context.Context, id backend.ID, update backend.JobUpdate) error {
	if err := t.store.UpdateJob(ctx, id, update); err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}
