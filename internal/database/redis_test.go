package database

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/config"
	"ms-events/internal/logger"
)

func TestConnectRedis(t *testing.T) {
	log := logger.NewWithWriter(io.Discard)
	ctx := context.Background()

	client, err := ConnectRedis(ctx, config.RedisConfig{}, log)
	require.NoError(t, err)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = ConnectRedis(ctx, config.RedisConfig{Addr: mr.Addr()}, log)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()
	assert.NoError(t, client.Set(ctx, "k", "v", 0).Err())

	mr.Close()
	_, err = ConnectRedis(ctx, config.RedisConfig{Addr: mr.Addr()}, log)
	assert.Error(t, err)
}
