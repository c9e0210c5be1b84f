package storedsafe

import "fmt"

// RetryBudget is the single mutable counter bounding refresh-triggered
// retries across one whole invocation. It is shared between the
// authentication loop and every term's fetch loop: five rejections anywhere
// in the run exhaust it, it is never reset per term.
//
// RetryBudget is not safe for concurrent use; an invocation runs on a single
// logical thread of control.
type RetryBudget struct {
	max  int
	used int
}

// NewRetryBudget returns a budget allowing max refresh attempts.
func NewRetryBudget(max int) *RetryBudget {
	return &RetryBudget{max: max}
}

// Spend consumes one refresh attempt. Once the budget is exhausted it fails
// with ErrTokenUpdateFailed wrapping ErrMaxRetriesExceeded, which the
// orchestrator surfaces verbatim to the caller.
func (b *RetryBudget) Spend() error {
	if b.used >= b.max {
		return fmt.Errorf("%w: %w (%d refresh attempts)", ErrTokenUpdateFailed, ErrMaxRetriesExceeded, b.used)
	}
	b.used++
	return nil
}

// Used returns how many attempts have been consumed.
func (b *RetryBudget) Used() int { return b.used }

// Remaining returns how many attempts are left.
func (b *RetryBudget) Remaining() int { return b.max - b.used }
