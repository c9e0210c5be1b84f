package lockfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "update.lock")
}

func TestAcquireAndRelease(t *testing.T) {
	path := lockPath(t)

	lock, err := Acquire(context.Background(), path, 10*time.Millisecond, 0)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "lock file must exist while held")

	require.NoError(t, lock.Release())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "lock file must be gone after release")
}

func TestAcquireWaitsForHolder(t *testing.T) {
	path := lockPath(t)

	// simulate another invocation holding the lock
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	released := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.Remove(path)
		close(released)
	}()

	start := time.Now()
	lock, err := Acquire(context.Background(), path, 5*time.Millisecond, 0)
	require.NoError(t, err)
	defer lock.Release()

	<-released
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond, "acquire must have waited for the holder")
}

func TestAcquireMaxWait(t *testing.T) {
	path := lockPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Acquire(context.Background(), path, 5*time.Millisecond, 30*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestAcquireContextCancel(t *testing.T) {
	path := lockPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Acquire(ctx, path, 5*time.Millisecond, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSecondAcquirerBlockedUntilFirstReleases(t *testing.T) {
	path := lockPath(t)

	first, err := Acquire(context.Background(), path, 5*time.Millisecond, 0)
	require.NoError(t, err)

	acquired := make(chan *Lock, 1)
	go func() {
		second, err := Acquire(context.Background(), path, 5*time.Millisecond, 0)
		if err == nil {
			acquired <- second
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second acquirer got the lock while the first still held it")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, first.Release())

	select {
	case second := <-acquired:
		require.NoError(t, second.Release())
	case <-time.After(time.Second):
		t.Fatal("second acquirer never got the lock after release")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	path := lockPath(t)

	lock, err := Acquire(context.Background(), path, 10*time.Millisecond, 0)
	require.NoError(t, err)

	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release(), "releasing an already-released lock is not an error")
}
