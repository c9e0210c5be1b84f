// Package lockfile implements the advisory cross-process lock used to
// serialize token refreshes: a well-known file whose existence means locked.
//
// The lock is compatible with other tooling that treats file presence as the
// lock signal, but acquisition here is atomic (O_CREATE|O_EXCL) rather than
// check-then-create, so two local acquirers cannot both win. Waiting polls at
// a fixed interval; a holder that never releases starves all waiters unless a
// maximum wait is set.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrWaitTimeout is returned when the lock stayed held for longer than the
// configured maximum wait.
var ErrWaitTimeout = errors.New("lock file still held after maximum wait")

// Lock is a held lock. Release removes the lock file; it must run on every
// exit path of the critical section.
type Lock struct {
	path string
}

// Acquire blocks until the lock file at path can be created, polling at
// pollInterval while another process holds it. A maxWait of zero waits
// forever. Cancelling ctx aborts the wait with ctx's error.
func Acquire(ctx context.Context, path string, pollInterval, maxWait time.Duration) (*Lock, error) {
	acquireCtx := ctx
	if maxWait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}

	attempt := func() error {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if os.IsExist(err) {
				// held by another invocation, keep polling
				return err
			}
			return backoff.Permanent(err)
		}
		return f.Close()
	}

	wait := backoff.WithContext(backoff.NewConstantBackOff(pollInterval), acquireCtx)
	if err := backoff.Retry(attempt, wait); err != nil {
		if acquireCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s held for longer than %s", ErrWaitTimeout, path, maxWait)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file. A lock file already gone is not an error;
// the point is that the lock is not held afterwards.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }
