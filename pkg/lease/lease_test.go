package lease

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/oh-scheduler-go/pkg/database"
)

func exerciseLocker(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()

	first, err := l.Acquire(ctx, "cs61a-fa26", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Token)

	_, err = l.Acquire(ctx, "cs61a-fa26", time.Minute)
	assert.ErrorIs(t, err, ErrLeaseHeld)

	other, err := l.Acquire(ctx, "cs61b-fa26", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	require.NoError(t, first.Release(ctx), "release is idempotent")

	again, err := l.Acquire(ctx, "cs61a-fa26", time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, again.Token)
	require.NoError(t, again.Release(ctx))
}

func TestMemoryLocker(t *testing.T) {
	exerciseLocker(t, NewMemory())
}

func TestMemoryLocker_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	stale, err := m.Acquire(context.Background(), "x", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := m.Acquire(context.Background(), "x", time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, stale.Release(context.Background()), ErrLeaseLost)
	require.NoError(t, fresh.Release(context.Background()))
}

func TestDBLocker(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	exerciseLocker(t, NewDB(db))
}

func TestDBLocker_Expiry(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	d := NewDB(db)
	now := time.Now()
	d.now = func() time.Time { return now }

	stale, err := d.Acquire(context.Background(), "x", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := d.Acquire(context.Background(), "x", time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, stale.Release(context.Background()), ErrLeaseLost)
	require.NoError(t, fresh.Release(context.Background()))
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	r, err := NewRedis(context.Background(), addr, os.Getenv("REDIS_PASSWORD"))
	require.NoError(t, err)
	defer r.Close()
	exerciseLocker(t, r)
}
