package context_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infracontext "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/context"
)

func TestWithShutdownTimeout_SurvivesCancelledParent(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	cancel()

	ctx, done := infracontext.WithShutdownTimeout(parent)
	defer done()

	require.NoError(t, ctx.Err())
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(infracontext.DefaultShutdownTimeout), deadline, time.Second)
}

func TestWithPingTimeout_FollowsParent(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	ctx, done := infracontext.WithPingTimeout(parent)
	defer done()

	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
