package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"survey-api/internal/metrics"
	"survey-api/pkg/errors"
	"survey-api/pkg/redis"
)

type MockFriendshipChecker struct {
	mock.Mock
}

func (m *MockFriendshipChecker) GetFriendship(ctx context.Context, accessToken string) (bool, error) {
	args := m.Called(ctx, accessToken)
	return args.Bool(0), args.Error(1)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestFriendshipService_CacheAside(t *testing.T) {
	mr, client := setupRedis(t)
	checker := new(MockFriendshipChecker)
	checker.On("GetFriendship", mock.Anything, "token-1").Return(true, nil).Once()

	m := metrics.New()
	svc := NewFriendshipService(checker, client, m, zap.NewNop())
	ctx := context.Background()

	status, err := svc.CheckFriendship(ctx, "U1", "token-1", false)
	require.NoError(t, err)
	assert.True(t, status.FriendFlag)
	assert.False(t, status.Cached)

	key := client.KeyBuilder.KeyFriendship("U1")
	require.Eventually(t, func() bool { return mr.Exists(key) }, time.Second, 10*time.Millisecond)
	assert.Equal(t, redis.TTLFriendship, mr.TTL(key))

	cached, err := svc.CheckFriendship(ctx, "U1", "token-1", false)
	require.NoError(t, err)
	assert.True(t, cached.FriendFlag)
	assert.True(t, cached.Cached)

	checker.AssertExpectations(t)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FriendshipChecks.WithLabelValues("line")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FriendshipChecks.WithLabelValues("cache")))
}

func TestFriendshipService_RefreshBypassesCache(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, mr.Set(client.KeyBuilder.KeyFriendship("U1"), `{"friend_flag":false,"checked_at":"2024-01-15T00:00:00Z"}`))

	checker := new(MockFriendshipChecker)
	checker.On("GetFriendship", mock.Anything, "token-1").Return(true, nil).Once()
	svc := NewFriendshipService(checker, client, nil, nil)

	status, err := svc.CheckFriendship(context.Background(), "U1", "token-1", true)
	require.NoError(t, err)
	assert.True(t, status.FriendFlag)
	assert.False(t, status.Cached)
	checker.AssertExpectations(t)
}

func TestFriendshipService_CorruptedCacheFallsBack(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, mr.Set(client.KeyBuilder.KeyFriendship("U1"), "not json"))

	checker := new(MockFriendshipChecker)
	checker.On("GetFriendship", mock.Anything, "token-1").Return(false, nil).Once()
	svc := NewFriendshipService(checker, client, nil, nil)

	status, err := svc.CheckFriendship(context.Background(), "U1", "token-1", false)
	require.NoError(t, err)
	assert.False(t, status.FriendFlag)
	checker.AssertExpectations(t)
}

func TestFriendshipService_WithoutRedis(t *testing.T) {
	checker := new(MockFriendshipChecker)
	checker.On("GetFriendship", mock.Anything, "token-1").Return(true, nil).Twice()
	svc := NewFriendshipService(checker, nil, nil, nil)

	for i := 0; i < 2; i++ {
		status, err := svc.CheckFriendship(context.Background(), "U1", "token-1", false)
		require.NoError(t, err)
		assert.False(t, status.Cached)
	}
	checker.AssertExpectations(t)
}

func TestFriendshipService_LineError(t *testing.T) {
	checker := new(MockFriendshipChecker)
	checker.On("GetFriendship", mock.Anything, "token-1").Return(false, stderrors.New("401 Unauthorized"))
	svc := NewFriendshipService(checker, nil, nil, nil)

	_, err := svc.CheckFriendship(context.Background(), "U1", "token-1", false)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeExternal, errors.AsAppError(err).Type)
}
