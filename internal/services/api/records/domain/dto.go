// Package domain holds the read-only DTOs for the records ops api
package domain

import (
	"time"

	recdom "slipway/internal/services/records/domain"
)

// PendingInput selects pending records, oldest window first
type PendingInput struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=500"`
}

// GetInput fetches a single record by pipeline id
type GetInput struct {
	PipelineID string `json:"pipeline_id" validate:"required"`
}

// RecordRow is the wire shape of one drive table record
type RecordRow struct {
	PipelineID string `json:"pipeline_id"`
	SourceID   string `json:"source_id"`
	StageID    string `json:"stage_id"`
	TargetID   string `json:"target_id"`

	PipelineName string `json:"pipeline_name"`
	SourceName   string `json:"source_name"`

	StageSubcategory  string `json:"stage_subcategory"`
	TargetCategory    string `json:"target_category"`
	TargetSubcategory string `json:"target_subcategory"`

	TargetDay   string `json:"target_day"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	Interval    string `json:"interval"`

	Status       string     `json:"status"`
	RunID        string     `json:"run_id,omitempty"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
	RetryAttempt int        `json:"retry_attempt"`

	SourceToStageStatus string `json:"source_to_stage_status"`
	StageToTargetStatus string `json:"stage_to_target_status"`
	AuditStatus         string `json:"audit_status"`
	AuditResult         string `json:"audit_result,omitempty"`

	SourceCount     *int64   `json:"source_count,omitempty"`
	TargetCount     *int64   `json:"target_count,omitempty"`
	CountDifference *int64   `json:"count_difference,omitempty"`
	PercentageDiff  *float64 `json:"percentage_diff,omitempty"`

	PhaseCompleted string `json:"phase_completed,omitempty"`

	FirstCreated time.Time `json:"first_created"`
	LastUpdated  time.Time `json:"last_updated"`
}

// RowFrom flattens a drive table record into its wire shape
func RowFrom(rec *recdom.Record) RecordRow {
	return RecordRow{
		PipelineID: rec.PipelineID,
		SourceID:   rec.SourceID,
		StageID:    rec.StageID,
		TargetID:   rec.TargetID,

		PipelineName: rec.PipelineName,
		SourceName:   rec.Flow.SourceName,

		StageSubcategory:  rec.StageSubcategory,
		TargetCategory:    rec.TargetCategory,
		TargetSubcategory: rec.TargetSubcategory,

		TargetDay:   rec.TargetDay.Format("2006-01-02"),
		WindowStart: rec.WindowStart.UTC().Format(time.RFC3339),
		WindowEnd:   rec.WindowEnd.UTC().Format(time.RFC3339),
		Interval:    rec.Interval,

		Status:       rec.Status,
		RunID:        rec.RunID,
		LockedAt:     rec.LockedAt,
		RetryAttempt: rec.RetryAttempt,

		SourceToStageStatus: rec.SourceToStageStatus,
		StageToTargetStatus: rec.StageToTargetStatus,
		AuditStatus:         rec.AuditStatus,
		AuditResult:         rec.AuditResult,

		SourceCount:     rec.SourceCount,
		TargetCount:     rec.TargetCount,
		CountDifference: rec.CountDifference,
		PercentageDiff:  rec.PercentageDiff,

		PhaseCompleted: rec.PhaseCompleted,

		FirstCreated: rec.FirstCreated,
		LastUpdated:  rec.LastUpdated,
	}
}
