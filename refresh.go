package storedsafe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/hengadev/storedsafe/internal/lockfile"
)

// Coordinator orchestrates one token refresh: it runs the external update
// script under the cross-process lock and re-reads the rc file the script is
// expected to have rewritten.
//
// The coordinator performs a single attempt per Refresh call; bounding the
// number of attempts is the caller's job via the shared RetryBudget. Whether
// an attempt may be repeated is encoded in the error class, see
// IsRetryableError.
type Coordinator struct {
	script       string
	rcFile       string
	lockPath     string
	pollInterval time.Duration
	lockMaxWait  time.Duration
	timeout      time.Duration
	hook         ObservabilityHook
}

// NewCoordinator builds a refresh coordinator for the given configuration
// with the default lock path and poll interval.
func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{
		script:       cfg.TokenUpdateScript,
		rcFile:       cfg.RCFile,
		lockPath:     LockFilePath,
		pollInterval: UpdateWaitSleep,
		hook:         &NoOpObservabilityHook{},
	}
}

// Refresh runs the update script once and returns the fresh session read
// back from the rc file.
//
// It fails with ErrUpdateScriptNotFound (fatal) when no script is configured
// or the configured path does not exist, with ErrTokenUpdateFailed
// (retryable) when the script exits nonzero or leaves no usable credentials,
// with ErrTokenUpdateTimeout (retryable) when the script outlives its run
// timeout, and with ErrLockWaitTimeout when a maximum lock wait is set and
// another invocation held the lock for longer. The lock is released on every
// exit path.
func (r *Coordinator) Refresh(ctx context.Context) (_ Session, err error) {
	if r.script == "" {
		return Session{}, fmt.Errorf("%w: not logged in to StoredSafe and no update script configured, set %s or the %s framework variable",
			ErrUpdateScriptNotFound, EnvTokenUpdateScript, VarTokenUpdateScript)
	}
	if _, statErr := os.Stat(r.script); statErr != nil {
		return Session{}, fmt.Errorf("%w: %s: %w", ErrUpdateScriptNotFound, r.script, statErr)
	}

	lock, err := lockfile.Acquire(ctx, r.lockPath, r.pollInterval, r.lockMaxWait)
	if err != nil {
		if errors.Is(err, lockfile.ErrWaitTimeout) {
			return Session{}, fmt.Errorf("%w: %w", ErrLockWaitTimeout, err)
		}
		return Session{}, err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			r.hook.OnError(ctx, PhaseRefresh, rerr, nil)
			if err == nil {
				err = rerr
			}
		}
	}()

	if err := r.runScript(ctx); err != nil {
		return Session{}, err
	}

	server, token, err := readRCFile(r.rcFile)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrTokenUpdateFailed, err)
	}
	if server == "" || token == "" {
		return Session{}, fmt.Errorf("%w: update script succeeded but %s holds no usable credentials", ErrTokenUpdateFailed, r.rcFile)
	}

	r.hook.OnTrace(ctx, "update script retrieved fresh token", map[string]any{"server": server})
	return NewSession(server, token), nil
}

func (r *Coordinator) runScript(ctx context.Context) error {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.hook.OnTrace(ctx, "running token update script", map[string]any{"script": r.script})

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, "/bin/sh", r.script)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that outlive a killed script must not pin the output pipes
	// open forever.
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()
	r.hook.OnTrace(ctx, "update script output", map[string]any{
		"stdout": stdout.String(),
		"stderr": stderr.String(),
	})

	if runErr == nil {
		return nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s exceeded %s", ErrTokenUpdateTimeout, r.script, r.timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return fmt.Errorf("%w: %s exited with code %d", ErrTokenUpdateFailed, r.script, exitErr.ExitCode())
	}
	return fmt.Errorf("%w: run %s: %w", ErrTokenUpdateFailed, r.script, runErr)
}
