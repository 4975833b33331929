package redis

import (
	"context"
	stderrors "errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	mr := miniredis.RunT(t)

	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "Invalid scheme", url: "invalid://url"},
		{name: "Empty URL", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "test", nil)
			assert.Error(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewClient("redis://"+addr, "test", nil)
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_GetSet(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:key1", "value1", time.Minute))

	value, err := client.Get(ctx, "test:key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", value)
	assert.Greater(t, mr.TTL("test:key1"), time.Duration(0))

	_, err = client.Get(ctx, "test:missing")
	assert.True(t, IsNil(err))
}

func TestClient_IncrWithExpire(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	v, err := client.IncrWithExpire(ctx, "test:counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, time.Minute, mr.TTL("test:counter"))

	mr.FastForward(30 * time.Second)

	v, err = client.IncrWithExpire(ctx, "test:counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	// The window is not extended by later increments.
	assert.Equal(t, 30*time.Second, mr.TTL("test:counter"))

	mr.FastForward(31 * time.Second)

	v, err = client.IncrWithExpire(ctx, "test:counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestClient_IncrWithExpire_RestoresMissingTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	// A counter left behind without a TTL, e.g. after a crash between commands.
	require.NoError(t, mr.Set("test:orphan", "25"))
	assert.Equal(t, time.Duration(0), mr.TTL("test:orphan"))

	v, err := client.IncrWithExpire(ctx, "test:orphan", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(26), v)
	assert.Equal(t, time.Minute, mr.TTL("test:orphan"))

	mr.FastForward(time.Minute + time.Second)
	assert.False(t, mr.Exists("test:orphan"))

	v, err = client.IncrWithExpire(ctx, "test:orphan", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

// failFirstPipeline rejects the first pipeline before it reaches the server.
type failFirstPipeline struct {
	calls atomic.Int32
}

func (h *failFirstPipeline) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *failFirstPipeline) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return next
}

func (h *failFirstPipeline) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		if h.calls.Add(1) == 1 {
			return stderrors.New("connection reset")
		}
		return next(ctx, cmds)
	}
}

func TestClient_IncrWithExpire_FailedTransaction(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	client.rdb.AddHook(&failFirstPipeline{})

	_, err := client.IncrWithExpire(ctx, "test:counter", time.Minute)
	require.Error(t, err)
	assert.False(t, mr.Exists("test:counter"))

	v, err := client.IncrWithExpire(ctx, "test:counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, time.Minute, mr.TTL("test:counter"))
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	assert.NoError(t, client.Health(ctx))

	mr.SetError("server down")
	assert.Error(t, client.Health(ctx))
}
