package guardrails

import (
	"context"
	"errors"
	"time"

	"slipway/internal/modkit"
	"slipway/internal/platform/logger"
	"slipway/internal/platform/store"
)

// ErrLeaseHeld signals another runner owns the record already.
var ErrLeaseHeld = errors.New("pipeline: record lease already held")

// MakeRecordLease returns a function that claims an advisory lease on a
// pipeline record before running do. The claim is an insert into
// pipeline_record_leases; losing the insert race returns ErrLeaseHeld and
// the caller treats it as a clean skip. The lease only covers the work
// function: it is released when do returns, success or failure, so a
// requeued record can be claimed again on a later cycle. Leases orphaned by
// a crashed runner are expired by the stale cleanup pass
func MakeRecordLease(
	deps modkit.Deps,
) func(ctx context.Context, pipelineID string, do func(context.Context) error) error {
	return func(ctx context.Context, pipelineID string, do func(context.Context) error) error {
		var claimed bool
		err := deps.PG.Tx(ctx, func(q store.RowQuerier) error {
			rows, err := q.Query(ctx, `
				insert into pipeline_record_leases (pipeline_id)
				values ($1)
				on conflict (pipeline_id) do nothing
				returning true
			`, pipelineID)
			if err != nil {
				return err
			}
			defer rows.Close()
			if rows.Next() {
				claimed = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !claimed {
			return ErrLeaseHeld // clean skip
		}

		defer func() {
			// release survives a canceled record context
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			relErr := deps.PG.Tx(rctx, func(q store.RowQuerier) error {
				_, e := q.Exec(rctx, `
					delete from pipeline_record_leases
					where pipeline_id = $1
				`, pipelineID)
				return e
			})
			if relErr != nil {
				logger.C(ctx).Warn().
					Err(relErr).
					Str("pipeline_id", pipelineID).
					Msg("record lease release failed, stale cleanup will expire it")
			}
		}()
		return do(ctx)
	}
}
