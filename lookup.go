package storedsafe

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Lookup is the per-invocation orchestrator. It binds the config, the vault
// client and the refresh coordinator into the retry state machine: establish
// a valid session, fetch each term, refresh and retry on token rejection,
// all bounded by one shared retry budget.
type Lookup struct {
	cfg         Config
	client      *Client
	coordinator *Coordinator
	hook        ObservabilityHook
}

// New creates a Lookup for a validated configuration.
//
// Example usage:
//
//	cfg, err := storedsafe.ResolveConfig(frameworkVars)
//	if err != nil {
//	    return err
//	}
//	lookup, err := storedsafe.New(cfg)
//	if err != nil {
//	    return err
//	}
//	values, err := lookup.Run(ctx, []string{"1337/password"})
func New(cfg Config, opts ...Option) (*Lookup, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Lookup{
		cfg:         cfg,
		coordinator: NewCoordinator(cfg),
		hook:        &NoOpObservabilityHook{},
	}
	for i, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("invalid option %d: %w", i+1, err)
		}
	}

	if l.client == nil {
		client, err := NewClient(cfg.Server, cfg.VerifyMode(), WithClientHook(l.hook))
		if err != nil {
			return nil, err
		}
		l.client = client
	}
	l.coordinator.hook = l.hook

	return l, nil
}

// Run resolves every term, in input order, and returns the values in the
// same order. No partial results: on any failure the whole invocation fails
// with an error identifying the failing phase.
func Run(ctx context.Context, terms []string, vars map[string]any, opts ...Option) ([]string, error) {
	cfg, err := ResolveConfig(vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PhaseConfig, err)
	}
	l, err := New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PhaseConfig, err)
	}
	return l.Run(ctx, terms)
}

// Run executes one invocation over the given terms.
func (l *Lookup) Run(ctx context.Context, terms []string) ([]string, error) {
	meta := map[string]any{"invocation_id": uuid.NewString()}
	l.hook.OnTrace(ctx, "lookup starting", map[string]any{
		"invocation_id": meta["invocation_id"],
		"terms":         len(terms),
	})

	// All terms must parse before any network traffic happens.
	parsed := make([]LookupTerm, 0, len(terms))
	for _, raw := range terms {
		term, err := ParseTerm(raw)
		if err != nil {
			return nil, l.fail(ctx, PhaseConfig, err, meta)
		}
		parsed = append(parsed, term)
	}

	budget := NewRetryBudget(MaxRetries)
	session := NewSession(l.cfg.Server, l.cfg.Token)

	session, err := l.authenticate(ctx, session, budget, meta)
	if err != nil {
		return nil, l.fail(ctx, PhaseAuth, err, meta)
	}

	results := make([]string, 0, len(parsed))
	for _, term := range parsed {
		l.hook.OnTrace(ctx, "lookup using "+term.String(), meta)
		value, fresh, err := l.fetchTerm(ctx, session, term, budget, meta)
		if err != nil {
			return nil, l.fail(ctx, PhaseFetch, err, meta)
		}
		session = fresh
		results = append(results, value)
	}
	return results, nil
}

// authenticate loops until the session's token passes the auth check,
// refreshing on every rejection. Each refresh attempt spends one unit of the
// shared budget; retryable refresh failures send the loop back to the check
// with the old token, so exhaustion is reached rather than looped forever.
func (l *Lookup) authenticate(ctx context.Context, session Session, budget *RetryBudget, meta map[string]any) (Session, error) {
	start := time.Now()
	l.hook.OnPhaseStart(ctx, PhaseAuth, meta)

	for {
		ok, err := l.client.AuthCheck(ctx, session.Token)
		if err != nil {
			l.hook.OnPhaseComplete(ctx, PhaseAuth, time.Since(start), err, meta)
			return Session{}, err
		}
		if ok {
			l.hook.OnPhaseComplete(ctx, PhaseAuth, time.Since(start), nil, meta)
			return session, nil
		}

		if err := budget.Spend(); err != nil {
			err = fmt.Errorf("%w: %w", ErrTokenRejected, err)
			l.hook.OnPhaseComplete(ctx, PhaseAuth, time.Since(start), err, meta)
			return Session{}, err
		}
		fresh, err := l.refresh(ctx, meta)
		if err != nil {
			if IsRetryableError(err) {
				l.hook.OnError(ctx, PhaseRefresh, err, meta)
				continue
			}
			l.hook.OnPhaseComplete(ctx, PhaseAuth, time.Since(start), err, meta)
			return Session{}, err
		}
		session = fresh
	}
}

// fetchTerm retrieves one term, refreshing and retrying the same term on
// token rejection. It returns the session it ended up with so later terms
// reuse a refreshed token.
func (l *Lookup) fetchTerm(ctx context.Context, session Session, term LookupTerm, budget *RetryBudget, meta map[string]any) (string, Session, error) {
	for {
		outcome, err := l.client.FetchObject(ctx, session.Token, term)
		if err != nil {
			return "", Session{}, err
		}

		switch outcome.Kind {
		case OutcomeSuccess:
			return strings.TrimRightFunc(outcome.Value, unicode.IsSpace), session, nil

		case OutcomeTokenRejected:
			if err := budget.Spend(); err != nil {
				return "", Session{}, fmt.Errorf("%w: %w", ErrTokenRejected, err)
			}
			fresh, err := l.refresh(ctx, meta)
			if err != nil {
				if IsRetryableError(err) {
					l.hook.OnError(ctx, PhaseRefresh, err, meta)
					continue
				}
				return "", Session{}, err
			}
			fresh, err = l.authenticate(ctx, fresh, budget, meta)
			if err != nil {
				return "", Session{}, err
			}
			session = fresh

		case OutcomeTransientFailure:
			return "", Session{}, NewFetchFailedError(term.ObjectID, outcome.StatusCode)

		case OutcomeMalformed:
			return "", Session{}, NewFieldNotFoundError(term.ObjectID, term.FieldName)

		default:
			return "", Session{}, fmt.Errorf("unexpected fetch outcome %d", outcome.Kind)
		}
	}
}

func (l *Lookup) refresh(ctx context.Context, meta map[string]any) (Session, error) {
	start := time.Now()
	l.hook.OnPhaseStart(ctx, PhaseRefresh, meta)
	session, err := l.coordinator.Refresh(ctx)
	l.hook.OnPhaseComplete(ctx, PhaseRefresh, time.Since(start), err, meta)
	return session, err
}

func (l *Lookup) fail(ctx context.Context, phase string, err error, meta map[string]any) error {
	l.hook.OnError(ctx, phase, err, meta)
	return fmt.Errorf("%s: %w", phase, err)
}
