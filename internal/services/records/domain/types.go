// Package domain holds the drive table record model and planner contracts
package domain

import (
	"time"
)

// Pipeline record statuses as stored in pipeline_records
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Phase markers, set when a transfer phase finishes
const (
	PhaseSourceToStage = "SOURCE_TO_STAGE"
	PhaseStageToTarget = "STAGE_TO_TARGET"
	PhaseAudit         = "AUDIT"
)

// Audit results
const (
	AuditPass = "PASS"
	AuditFail = "FAIL"
)

// FlowKey identifies one source -> stage -> target flow. Every drive table
// query is scoped by it so multiple flows can share the table
type FlowKey struct {
	SourceName        string
	SourceCategory    string
	SourceSubcategory string
	StageName         string
	TargetName        string
	Priority          int
}

// Record is one time window of one flow moving through the pipeline
type Record struct {
	PipelineID string
	SourceID   string
	StageID    string
	TargetID   string

	PipelineName string
	Flow         FlowKey

	// stage/target coordinates derived from the window
	StageCategory     string
	StageSubcategory  string
	TargetCategory    string
	TargetSubcategory string

	TargetDay   time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	Interval    string

	Status       string
	RunID        string
	LockedAt     *time.Time
	RetryAttempt int

	PipelineStart *time.Time
	PipelineEnd   *time.Time

	SourceToStageStart  *time.Time
	SourceToStageEnd    *time.Time
	SourceToStageStatus string

	StageToTargetStart  *time.Time
	StageToTargetEnd    *time.Time
	StageToTargetStatus string

	AuditStart  *time.Time
	AuditEnd    *time.Time
	AuditStatus string
	AuditResult string

	SourceCount     *int64
	TargetCount     *int64
	CountDifference *int64
	PercentageDiff  *float64

	PhaseCompleted string

	FirstCreated time.Time
	LastUpdated  time.Time
}

// NeedsRebuild reports whether any derived coordinate is missing, which
// happens when a record was seeded with only its time fields
func (r *Record) NeedsRebuild() bool {
	for _, f := range []string{
		r.StageCategory, r.StageSubcategory,
		r.TargetCategory, r.TargetSubcategory,
		r.SourceID, r.StageID, r.TargetID, r.PipelineID,
	} {
		if f == "" {
			return true
		}
	}
	return false
}

// Template is the flow configuration merged from the default and
// flow-specific JSON files. Validation runs once at boot
type Template struct {
	PipelineName string `json:"pipeline_name" validate:"required"`
	Priority     int    `json:"priority" validate:"min=0"`

	SourceName        string `json:"source_name" validate:"required"`
	SourceCategory    string `json:"source_category" validate:"required"`
	SourceSubcategory string `json:"source_subcategory" validate:"required"`

	StageName   string   `json:"stage_name" validate:"required"`
	Bucket      string   `json:"bucket" validate:"required"`
	PrefixParts []string `json:"prefix_parts" validate:"required,min=1,dive,required"`

	TargetName string `json:"target_name" validate:"required"`
	Database   string `json:"database" validate:"required"`
	Schema     string `json:"schema" validate:"required"`
	Table      string `json:"table" validate:"required"`
}

// Key returns the flow key implied by the template
func (t Template) Key() FlowKey {
	return FlowKey{
		SourceName:        t.SourceName,
		SourceCategory:    t.SourceCategory,
		SourceSubcategory: t.SourceSubcategory,
		StageName:         t.StageName,
		TargetName:        t.TargetName,
		Priority:          t.Priority,
	}
}
