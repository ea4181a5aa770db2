package domain

import (
	"context"
	"time"
)

// PlannerPort is the public port exposed by the records module
type PlannerPort interface {
	// Build assembles the next record for the flow's target day.
	// ok is false when the day is complete and nothing remains to build
	Build(ctx context.Context) (rec *Record, ok bool, err error)

	// Plan returns a claimed record ready to run, or ok=false when there is
	// nothing to do right now (day complete, record too recent, lost claim)
	Plan(ctx context.Context, runID string) (rec *Record, ok bool, err error)

	// Rebuild re-derives stage/target coordinates and ids from the record's
	// time fields
	Rebuild(rec *Record) error
}

// StorageRepo is the drive table surface, bound per transaction
type StorageRepo interface {
	// LatestWindowEnd is the continuation source: the max window end ever
	// recorded for the flow, nil when the flow has no records
	LatestWindowEnd(ctx context.Context, key FlowKey) (*time.Time, error)

	// OldestPending returns the pending record with the smallest window end,
	// nil when none are pending
	OldestPending(ctx context.Context, key FlowKey) (*Record, error)

	Insert(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error

	// Claim flips PENDING -> IN_PROGRESS for one record, stamping the run
	// id and lock time. Returns false when another runner won the row
	Claim(ctx context.Context, pipelineID, runID string, at time.Time) (bool, error)

	// InProgress lists the flow's IN_PROGRESS records, oldest window first
	InProgress(ctx context.Context, key FlowKey) ([]Record, error)

	// Get fetches one record by pipeline id
	Get(ctx context.Context, pipelineID string) (*Record, error)

	// Pending lists pending records for the ops api, oldest window first
	Pending(ctx context.Context, key FlowKey, limit int) ([]Record, error)
}
