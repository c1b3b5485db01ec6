package progress

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seuros/studybuddy/internal/config"
)

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	b, closer, err := Open(ctx, &config.Config{ProgressStore: config.ProgressFile, DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)
	assert.NoError(t, closer())

	mr := miniredis.RunT(t)
	b, closer, err = Open(ctx, &config.Config{ProgressStore: config.ProgressRedis, RedisURL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisBackend{}, b)
	assert.NoError(t, closer())

	_, _, err = Open(ctx, &config.Config{ProgressStore: config.ProgressPostgres}, nil)
	assert.Error(t, err)

	_, _, err = Open(ctx, &config.Config{ProgressStore: "etcd"}, nil)
	assert.Error(t, err)
}
