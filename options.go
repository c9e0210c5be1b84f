package storedsafe

import (
	"fmt"
	"time"
)

// Option configures a Lookup.
type Option func(*Lookup) error

// WithObservabilityHook sets the hook receiving phase, error and trace
// events for the whole invocation, including the refresh coordinator and
// (unless replaced with WithClient) the vault client.
func WithObservabilityHook(hook ObservabilityHook) Option {
	return func(l *Lookup) error {
		if hook == nil {
			return fmt.Errorf("%w: observability hook cannot be nil", ErrInvalidConfiguration)
		}
		l.hook = hook
		return nil
	}
}

// WithClient replaces the vault client built from the configuration. The
// caller owns the client's base URL and TLS settings.
func WithClient(client *Client) Option {
	return func(l *Lookup) error {
		if client == nil {
			return fmt.Errorf("%w: client cannot be nil", ErrInvalidConfiguration)
		}
		l.client = client
		return nil
	}
}

// WithRefreshTimeout bounds each run of the token update script. Zero (the
// default) lets the script run for as long as the invocation's context
// allows.
func WithRefreshTimeout(d time.Duration) Option {
	return func(l *Lookup) error {
		if d < 0 {
			return fmt.Errorf("%w: refresh timeout cannot be negative", ErrInvalidConfiguration)
		}
		l.coordinator.timeout = d
		return nil
	}
}

// WithLockMaxWait bounds how long the coordinator waits for the refresh lock
// held by another invocation before failing with ErrLockWaitTimeout. Zero
// (the default) waits forever, matching the historical behavior of waiters
// polling until the holder releases.
func WithLockMaxWait(d time.Duration) Option {
	return func(l *Lookup) error {
		if d < 0 {
			return fmt.Errorf("%w: lock max wait cannot be negative", ErrInvalidConfiguration)
		}
		l.coordinator.lockMaxWait = d
		return nil
	}
}

// WithLockPath overrides the lock file location. Every invocation sharing a
// vault must use the same path for the lock to serialize them; overriding is
// for tests and for hosts that cannot write to /tmp.
func WithLockPath(path string) Option {
	return func(l *Lookup) error {
		if path == "" {
			return fmt.Errorf("%w: lock path cannot be empty", ErrInvalidConfiguration)
		}
		l.coordinator.lockPath = path
		return nil
	}
}

// WithLockPollInterval overrides the fixed interval between lock polls.
func WithLockPollInterval(d time.Duration) Option {
	return func(l *Lookup) error {
		if d <= 0 {
			return fmt.Errorf("%w: lock poll interval must be positive", ErrInvalidConfiguration)
		}
		l.coordinator.pollInterval = d
		return nil
	}
}
