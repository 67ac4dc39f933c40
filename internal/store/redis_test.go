package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notebook/internal/errs"
)

// setupRedisStore creates a test Redis store with miniredis
func setupRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, nil, opts...), mr
}

func TestRedisStore_RecordAndList(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		require.NoError(t, s.RecordExperiment(ctx, createTestExperiment(fmt.Sprintf("case[%d]", i), i)))
	}

	entries, err := mr.List(defaultRedisKey)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	got, err := s.ListAllExperiments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, exp := range got {
		assertRoundTrip(t, createTestExperiment(fmt.Sprintf("case[%d]", i), int64(i)), exp)
	}
}

func TestRedisStore_SameLineAsLogStore(t *testing.T) {
	s, mr := setupRedisStore(t, WithKey("lab:runs"))
	exp := createTestExperiment("demo::test_square[2]", 2)
	require.NoError(t, s.RecordExperiment(context.Background(), exp))

	want, err := encodeLine(s.codec, exp)
	require.NoError(t, err)

	entries, err := mr.List("lab:runs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(want), entries[0])
	assert.Equal(t, "lab:runs", s.Key())
}

func TestRedisStore_EmptyList(t *testing.T) {
	s, _ := setupRedisStore(t)
	got, err := s.ListAllExperiments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisStore_ServerDown(t *testing.T) {
	s, mr := setupRedisStore(t)
	mr.Close()

	err := s.RecordExperiment(context.Background(), createTestExperiment("x", 1))
	require.Error(t, err)
	assert.True(t, errs.IsStorage(err))
}

func TestOpenRedis_URL(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := OpenRedis(ctx, "redis://"+mr.Addr()+"/0?key=team:experiments", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	assert.Equal(t, "team:experiments", s.Key())

	require.NoError(t, s.RecordExperiment(ctx, createTestExperiment("x", 1)))
	assert.True(t, mr.Exists("team:experiments"))
}

func TestOpenRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := OpenRedis(context.Background(), "redis://"+addr, nil)
	require.Error(t, err)
	assert.True(t, errs.IsStorage(err))
}
