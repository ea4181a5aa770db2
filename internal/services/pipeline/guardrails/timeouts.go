// Package guardrails holds cross cutting safety helpers for the runner
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for a single record of work.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Record is the overall time budget for one record end to end
	Record time.Duration

	// Transfer caps each source to stage or stage to target transfer
	Transfer time.Duration

	// Query caps each count query against source or target
	Query time.Duration

	// DB caps drive table writes
	DB time.Duration
}

// WithRecord returns a context limited by the record budget without extending any parent deadline
func WithRecord(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Record)
}

// ForTransfer returns a sub context for a transfer phase
func ForTransfer(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Transfer)
}

// ForQuery returns a sub context for a count query
func ForQuery(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Query)
}

// ForDB returns a sub context for drive table writes
func ForDB(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.DB)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
// When d is zero it returns a simple cancelable child inheriting the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}

	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
