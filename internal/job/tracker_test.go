package job_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/legal-indexer/internal/backend"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/job"
)

type update struct {
	ID     backend.ID
	Update backend.JobUpdate
	CtxErr error
}

type mockStore struct {
	mu        sync.Mutex
	created   []backend.JobRequest
	updates   []update
	createErr error
	updateErr error
}

func (m *mockStore) CreateJob(_ context.Context, req backend.JobRequest) (backend.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = append(m.created, req)
	return "job-1", nil
}

func (m *mockStore) UpdateJob(ctx context.Context, id backend.ID, u backend.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, update{ID: id, Update: u, CtxErr: ctx.Err()})
	return m.updateErr
}

func (m *mockStore) lastUpdate() update {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates[len(m.updates)-1]
}

func TestValidateTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to job.Status
		valid    bool
	}{
		{job.StatusPending, job.StatusRunning, true},
		{job.StatusPending, job.StatusFailed, true},
		{job.StatusRunning, job.StatusCompleted, true},
		{job.StatusRunning, job.StatusFailed, true},
		{job.StatusPending, job.StatusCompleted, false},
		{job.StatusCompleted, job.StatusRunning, false},
		{job.StatusFailed, job.StatusRunning, false},
		{job.StatusRunning, job.StatusPending, false},
		{job.Status("unknown"), job.StatusRunning, false},
	}

	for _, tt := range tests {
		err := job.ValidateTransition(tt.from, tt.to)
		if tt.valid {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.ErrorIs(t, err, job.ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestUnitPercent(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 10, job.UnitPercent(0, 5), 0.001)
	assert.InDelta(t, 58, job.UnitPercent(3, 5), 0.001)
	assert.InDelta(t, 90, job.UnitPercent(5, 5), 0.001)
	assert.InDelta(t, 10, job.UnitPercent(0, 0), 0.001)
	assert.Equal(t, "processing_title_26", job.TitleStage(26))
	assert.Equal(t, "processing_article_2A", job.ArticleStage("2A"))
}

func TestTracker_Lifecycle(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	tracker := job.NewTracker(store, nil)
	ctx := context.Background()

	id, err := tracker.Create(ctx, backend.JobRequest{JobType: backend.JobFull, TitleNumber: 7})
	require.NoError(t, err)
	assert.Equal(t, backend.ID("job-1"), id)
	require.Len(t, store.created, 1)
	assert.Equal(t, "pending", store.created[0].Status)
	assert.Equal(t, job.StageInitializing, store.created[0].Progress.Stage)
	assert.Equal(t, job.StatusPending, tracker.State().Status)

	require.NoError(t, tracker.Start(ctx, job.StageFetchingTitles, job.PercentFetching))
	assert.Equal(t, "running", store.lastUpdate().Update.Status)
	assert.Equal(t, job.StageFetchingTitles, store.lastUpdate().Update.Progress.Stage)

	require.NoError(t, tracker.Progress(ctx, job.TitleStage(7), job.UnitPercent(0, 1)))
	assert.Equal(t, "processing_title_7", tracker.State().Progress.Stage)

	stats := job.NewStats(time.Now())
	stats.Units = 1
	require.NoError(t, tracker.ReportStats(ctx, *stats))
	assert.Equal(t, *stats, store.lastUpdate().Update.Stats)

	require.NoError(t, tracker.Complete(ctx, *stats))
	last := store.lastUpdate()
	assert.Equal(t, backend.ID("job-1"), last.ID)
	assert.Equal(t, "completed", last.Update.Status)
	assert.InDelta(t, 100, last.Update.Progress.Percentage, 0)

	state := tracker.State()
	assert.Equal(t, job.StatusCompleted, state.Status)
	assert.Equal(t, backend.JobFull, state.Type)

	err = tracker.Fail(ctx, errors.New("late"), nil)
	require.ErrorIs(t, err, job.ErrInvalidTransition)
	err = tracker.Progress(ctx, "x", 1)
	require.ErrorIs(t, err, job.ErrInvalidTransition)
}

func TestTracker_CompleteRequiresRunning(t *testing.T) {
	t.Parallel()

	tracker := job.NewTracker(&mockStore{}, nil)
	ctx := context.Background()

	require.ErrorIs(t, tracker.Start(ctx, job.StageInitializing, 0), job.ErrNoJob)

	_, err := tracker.Create(ctx, backend.JobRequest{JobType: backend.JobFull})
	require.NoError(t, err)
	require.ErrorIs(t, tracker.Complete(ctx, job.Stats{}), job.ErrInvalidTransition)
	assert.Equal(t, job.StatusPending, tracker.State().Status)
}

func TestTracker_SetupFailure(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	tracker := job.NewTracker(store, nil)
	ctx := context.Background()

	_, err := tracker.Create(ctx, backend.JobRequest{JobType: backend.JobSingleUnit})
	require.NoError(t, err)
	require.NoError(t, tracker.Fail(ctx, errors.New("unknown article 99"), nil))

	last := store.lastUpdate()
	assert.Equal(t, "failed", last.Update.Status)
	assert.Equal(t, "unknown article 99", last.Update.ErrorMessage)
	assert.Equal(t, "unknown article 99", tracker.State().Error)
}

func TestTracker_FailAfterCancellation(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	tracker := job.NewTracker(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := tracker.Create(ctx, backend.JobRequest{JobType: backend.JobFull})
	require.NoError(t, err)
	require.NoError(t, tracker.Start(ctx, job.StageInitializing, 0))
	cancel()

	stats := &job.Stats{Units: 2}
	require.NoError(t, tracker.Fail(ctx, context.Canceled, stats))

	last := store.lastUpdate()
	require.NoError(t, last.CtxErr)
	assert.Equal(t, "failed", last.Update.Status)
	assert.Equal(t, "context canceled", last.Update.ErrorMessage)
	assert.Equal(t, *stats, last.Update.Stats)
}

func TestTracker_StoreErrors(t *testing.T) {
	t.Parallel()

	store := &mockStore{createErr: errors.New("backend down")}
	tracker := job.NewTracker(store, nil)
	ctx := context.Background()

	_, err := tracker.Create(ctx, backend.JobRequest{JobType: backend.JobFull})
	require.ErrorContains(t, err, "backend down")

	store.createErr = nil
	store.updateErr = errors.New("timeout")
	_, err = tracker.Create(ctx, backend.JobRequest{JobType: backend.JobFull})
	require.NoError(t, err)

	err = tracker.Start(ctx, job.StageInitializing, 0)
	require.ErrorContains(t, err, "timeout")
	assert.Equal(t, job.StatusRunning, tracker.State().Status)
}

func TestStats(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := job.NewStats(start)
	stats.Add(domain.SectionCounts{Sections: 3, Subsections: 4, Definitions: 1, CrossReferences: 2})
	stats.Add(domain.SectionCounts{Sections: 1})
	stats.SetCalls(40, 10)
	stats.Finish(start.Add(90 * time.Second))

	assert.Equal(t, 4, stats.Sections)
	assert.Equal(t, 4, stats.Subsections)
	assert.Equal(t, 2, stats.CrossReferences)
	assert.InDelta(t, 75, stats.SuccessRate, 0.001)
	assert.InDelta(t, 90, stats.DurationSeconds, 0.001)

	stats.SetCalls(0, 0)
	assert.InDelta(t, 0, stats.SuccessRate, 0.001)

	snap := stats.Snapshot()
	snap.StartTime = nil
	assert.NotNil(t, stats.StartTime)
}
