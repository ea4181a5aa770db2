// Package repo provides postgres access to the pipeline_records drive table
package repo

import (
	"context"
	"time"

	"slipway/internal/modkit/repokit"
	perr "slipway/internal/platform/errors"
	"slipway/internal/services/records/domain"
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

const recordColumns = `
	pipeline_id, source_id, stage_id, target_id, pipeline_name,
	source_name, source_category, source_subcategory,
	stage_name, stage_category, stage_subcategory,
	target_name, target_category, target_subcategory,
	priority, target_day, window_start, window_end, time_interval,
	status, run_id, locked_at, retry_attempt,
	pipeline_start, pipeline_end,
	source_to_stage_start, source_to_stage_end, source_to_stage_status,
	stage_to_target_start, stage_to_target_end, stage_to_target_status,
	audit_start, audit_end, audit_status, audit_result,
	source_count, target_count, count_difference, percentage_difference,
	phase_completed, first_created, last_updated`

const flowFilter = `
	source_name = $1
	AND source_category = $2
	AND source_subcategory = $3
	AND stage_name = $4
	AND target_name = $5
	AND priority = $6`

func flowArgs(key domain.FlowKey) []any {
	return []any{
		key.SourceName, key.SourceCategory, key.SourceSubcategory,
		key.StageName, key.TargetName, key.Priority,
	}
}

// LatestWindowEnd is the continuation source for the window engine
func (r *queries) LatestWindowEnd(ctx context.Context, key domain.FlowKey) (*time.Time, error) {
	var latest *time.Time
	err := r.q.QueryRow(ctx, `
		SELECT MAX(window_end) FROM pipeline_records
		WHERE `+flowFilter,
		flowArgs(key)...,
	).Scan(&latest)
	if err != nil {
		return nil, perr.FromPostgres(err, "records: latest window end")
	}
	return latest, nil
}

// OldestPending returns the pending record with the smallest window end
func (r *queries) OldestPending(ctx context.Context, key domain.FlowKey) (*domain.Record, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+recordColumns+`
		FROM pipeline_records
		WHERE `+flowFilter+`
		AND status = $7
		ORDER BY window_end ASC
		LIMIT 1`,
		append(flowArgs(key), domain.StatusPending)...,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "records: oldest pending")
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return rec, rows.Err()
}

// Insert writes a fresh record
func (r *queries) Insert(ctx context.Context, rec *domain.Record) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO pipeline_records (`+recordColumns+`)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18, $19,
			$20, NULLIF($21,''), $22, $23,
			$24, $25,
			$26, $27, $28,
			$29, $30, $31,
			$32, $33, $34, NULLIF($35,''),
			$36, $37, $38, $39,
			NULLIF($40,''), $41, $42
		)`,
		recordArgs(rec)...,
	)
	if err != nil {
		return perr.FromPostgres(err, "records: insert")
	}
	return nil
}

// Update rewrites every mutable column keyed by pipeline_id
func (r *queries) Update(ctx context.Context, rec *domain.Record) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE pipeline_records SET
			source_id = $2, stage_id = $3, target_id = $4, pipeline_name = $5,
			source_name = $6, source_category = $7, source_subcategory = $8,
			stage_name = $9, stage_category = $10, stage_subcategory = $11,
			target_name = $12, target_category = $13, target_subcategory = $14,
			priority = $15, target_day = $16, window_start = $17, window_end = $18,
			time_interval = $19,
			status = $20, run_id = NULLIF($21,''), locked_at = $22, retry_attempt = $23,
			pipeline_start = $24, pipeline_end = $25,
			source_to_stage_start = $26, source_to_stage_end = $27, source_to_stage_status = $28,
			stage_to_target_start = $29, stage_to_target_end = $30, stage_to_target_status = $31,
			audit_start = $32, audit_end = $33, audit_status = $34, audit_result = NULLIF($35,''),
			source_count = $36, target_count = $37,
			count_difference = $38, percentage_difference = $39,
			phase_completed = NULLIF($40,''), first_created = $41, last_updated = $42
		WHERE pipeline_id = $1`,
		recordArgs(rec)...,
	)
	if err != nil {
		return perr.FromPostgres(err, "records: update")
	}
	if tag.RowsAffected() == 0 {
		return perr.NotFoundf("record %s not found", rec.PipelineID)
	}
	return nil
}

// Claim is the lock: a conditional flip that only one runner can win
func (r *queries) Claim(ctx context.Context, pipelineID, runID string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE pipeline_records SET
			status = $3,
			run_id = $2,
			locked_at = $4,
			pipeline_start = $4,
			last_updated = $4
		WHERE pipeline_id = $1 AND status = $5`,
		pipelineID, runID, domain.StatusInProgress, at, domain.StatusPending,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "records: claim")
	}
	return tag.RowsAffected() > 0, nil
}

// InProgress lists locked records oldest window first
func (r *queries) InProgress(ctx context.Context, key domain.FlowKey) ([]domain.Record, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+recordColumns+`
		FROM pipeline_records
		WHERE `+flowFilter+`
		AND status = $7
		ORDER BY window_end ASC`,
		append(flowArgs(key), domain.StatusInProgress)...,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "records: in progress")
	}
	defer rows.Close()
	return collect(rows)
}

// Get fetches one record by pipeline id
func (r *queries) Get(ctx context.Context, pipelineID string) (*domain.Record, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+recordColumns+`
		FROM pipeline_records
		WHERE pipeline_id = $1`,
		pipelineID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "records: get")
	}
	defer rows.Close()
	if !rows.Next() {
		if e := rows.Err(); e != nil {
			return nil, e
		}
		return nil, perr.NotFoundf("record %s not found", pipelineID)
	}
	return scanRecord(rows)
}

// Pending lists pending records for the ops api
func (r *queries) Pending(ctx context.Context, key domain.FlowKey, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+recordColumns+`
		FROM pipeline_records
		WHERE `+flowFilter+`
		AND status = $7
		ORDER BY window_end ASC
		LIMIT $8`,
		append(flowArgs(key), domain.StatusPending, limit)...,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "records: pending")
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows repokit.Rows) ([]domain.Record, error) {
	var out []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func recordArgs(rec *domain.Record) []any {
	return []any{
		rec.PipelineID, rec.SourceID, rec.StageID, rec.TargetID, rec.PipelineName,
		rec.Flow.SourceName, rec.Flow.SourceCategory, rec.Flow.SourceSubcategory,
		rec.Flow.StageName, rec.StageCategory, rec.StageSubcategory,
		rec.Flow.TargetName, rec.TargetCategory, rec.TargetSubcategory,
		rec.Flow.Priority, rec.TargetDay, rec.WindowStart, rec.WindowEnd, rec.Interval,
		rec.Status, rec.RunID, rec.LockedAt, rec.RetryAttempt,
		rec.PipelineStart, rec.PipelineEnd,
		rec.SourceToStageStart, rec.SourceToStageEnd, rec.SourceToStageStatus,
		rec.StageToTargetStart, rec.StageToTargetEnd, rec.StageToTargetStatus,
		rec.AuditStart, rec.AuditEnd, rec.AuditStatus, rec.AuditResult,
		rec.SourceCount, rec.TargetCount, rec.CountDifference, rec.PercentageDiff,
		rec.PhaseCompleted, rec.FirstCreated, rec.LastUpdated,
	}
}

func scanRecord(row repokit.Row) (*domain.Record, error) {
	var rec domain.Record
	var runID, auditResult, phaseCompleted *string
	err := row.Scan(
		&rec.PipelineID, &rec.SourceID, &rec.StageID, &rec.TargetID, &rec.PipelineName,
		&rec.Flow.SourceName, &rec.Flow.SourceCategory, &rec.Flow.SourceSubcategory,
		&rec.Flow.StageName, &rec.StageCategory, &rec.StageSubcategory,
		&rec.Flow.TargetName, &rec.TargetCategory, &rec.TargetSubcategory,
		&rec.Flow.Priority, &rec.TargetDay, &rec.WindowStart, &rec.WindowEnd, &rec.Interval,
		&rec.Status, &runID, &rec.LockedAt, &rec.RetryAttempt,
		&rec.PipelineStart, &rec.PipelineEnd,
		&rec.SourceToStageStart, &rec.SourceToStageEnd, &rec.SourceToStageStatus,
		&rec.StageToTargetStart, &rec.StageToTargetEnd, &rec.StageToTargetStatus,
		&rec.AuditStart, &rec.AuditEnd, &rec.AuditStatus, &auditResult,
		&rec.SourceCount, &rec.TargetCount, &rec.CountDifference, &rec.PercentageDiff,
		&phaseCompleted, &rec.FirstCreated, &rec.LastUpdated,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "records: scan")
	}
	if runID != nil {
		rec.RunID = *runID
	}
	if auditResult != nil {
		rec.AuditResult = *auditResult
	}
	if phaseCompleted != nil {
		rec.PhaseCompleted = *phaseCompleted
	}
	return &rec, nil
}
