package lock

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/X-culture24/my-farm/pkg/errors"
)

func newTestLocker(t *testing.T, cfg Config) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestSaleKey(t *testing.T) {
	assert.Equal(t, "lock:sale:abc", SaleKey("abc"))
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t, Config{})

	release, err := locker.Acquire(context.Background(), SaleKey("s1"))
	require.NoError(t, err)
	assert.True(t, mr.Exists(SaleKey("s1")))

	release()
	assert.False(t, mr.Exists(SaleKey("s1")))
}

func TestRedisLocker_HeldLockConflicts(t *testing.T) {
	locker, _ := newTestLocker(t, Config{Retries: 2, Backoff: time.Millisecond})

	release, err := locker.Acquire(context.Background(), SaleKey("s1"))
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(context.Background(), SaleKey("s1"))
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	other, err := locker.Acquire(context.Background(), SaleKey("s2"))
	require.NoError(t, err)
	other()
}

func TestRedisLocker_ReacquireAfterRelease(t *testing.T) {
	locker, _ := newTestLocker(t, Config{Retries: 1, Backoff: time.Millisecond})

	release, err := locker.Acquire(context.Background(), SaleKey("s1"))
	require.NoError(t, err)
	release()

	release, err = locker.Acquire(context.Background(), SaleKey("s1"))
	require.NoError(t, err)
	release()
}

func TestRedisLocker_ExpiredLockCanBeTaken(t *testing.T) {
	locker, mr := newTestLocker(t, Config{TTL: time.Second, Retries: 1, Backoff: time.Millisecond})

	stale, err := locker.Acquire(context.Background(), SaleKey("s1"))
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	release, err := locker.Acquire(context.Background(), SaleKey("s1"))
	require.NoError(t, err)

	// Releasing the expired holder must not drop the new holder's lock.
	stale()
	assert.True(t, mr.Exists(SaleKey("s1")))
	release()
}

func TestRedisLocker_ReleaseAfterCancel(t *testing.T) {
	locker, mr := newTestLocker(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	release, err := locker.Acquire(ctx, SaleKey("s1"))
	require.NoError(t, err)
	cancel()

	release()
	assert.False(t, mr.Exists(SaleKey("s1")))
}
