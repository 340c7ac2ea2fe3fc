package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/redis"
)

func TestNewClient_ReturnsErrorWhenAddressEmpty(t *testing.T) {
	client, err := redis.NewClient(context.Background(), redis.Config{})

	require.ErrorIs(t, err, redis.ErrEmptyAddress)
	assert.Nil(t, client)
}

func TestNewClient_ConnectsToRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := redis.NewClient(context.Background(), redis.Config{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}

func TestNewClient_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := redis.NewClient(context.Background(), redis.Config{Address: addr})
	require.Error(t, err)
	assert.Nil(t, client)
}
