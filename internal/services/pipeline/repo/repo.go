// Package repo provides the runner's drive table maintenance queries
package repo

import (
	"context"
	"time"

	"slipway/internal/modkit/repokit"
	perr "slipway/internal/platform/errors"
	"slipway/internal/services/pipeline/domain"
	recdom "slipway/internal/services/records/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// ResetStale does the whole cleanup in one conditional update instead of a
// fetch-and-loop, so concurrent runners cannot double reset a record
func (r *queries) ResetStale(
	ctx context.Context, key recdom.FlowKey, cutoff, now time.Time,
) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE pipeline_records SET
			status = $8,
			run_id = NULL,
			locked_at = NULL,
			pipeline_start = NULL,
			pipeline_end = NULL,
			retry_attempt = retry_attempt + 1,
			last_updated = $9
		WHERE source_name = $1
		AND source_category = $2
		AND source_subcategory = $3
		AND stage_name = $4
		AND target_name = $5
		AND priority = $6
		AND status = $10
		AND locked_at < $7`,
		key.SourceName, key.SourceCategory, key.SourceSubcategory,
		key.StageName, key.TargetName, key.Priority,
		cutoff, recdom.StatusPending, now, recdom.StatusInProgress,
	)
	if err != nil {
		return 0, perr.FromPostgres(err, "pipeline: reset stale")
	}
	return tag.RowsAffected(), nil
}

// ReleaseStaleLeases expires leases orphaned by crashed runners
func (r *queries) ReleaseStaleLeases(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM pipeline_record_leases
		WHERE claimed_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, perr.FromPostgres(err, "pipeline: release stale leases")
	}
	return tag.RowsAffected(), nil
}
