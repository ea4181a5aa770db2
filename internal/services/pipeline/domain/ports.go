// Package domain holds the runner contracts for executing one record
package domain

import (
	"context"
	"time"

	recdom "slipway/internal/services/records/domain"
)

// Record aliases the drive table record, the unit of work here
type Record = recdom.Record

// RunnerPort is the public port exposed by the pipeline module
type RunnerPort interface {
	// RunCycle executes at most one record end to end.
	// worked is false when there was nothing to do
	RunCycle(ctx context.Context) (worked bool, err error)

	// RunDrain loops cycles until a cycle reports no work
	RunDrain(ctx context.Context) error

	// CleanupStale resets IN_PROGRESS records whose lock is older than the
	// configured threshold back to PENDING
	CleanupStale(ctx context.Context) (int, error)
}

// SourceDriver talks to the upstream system records are exported from
type SourceDriver interface {
	// Count returns how many source documents fall inside the record window
	Count(ctx context.Context, rec *Record) (int64, error)

	// Export moves the window's documents into the stage location
	Export(ctx context.Context, rec *Record) error
}

// StageStore manages the intermediate object storage location
type StageStore interface {
	// Clean removes everything under the record's stage prefix
	Clean(ctx context.Context, stageURI string) error
}

// TargetWarehouse is the final destination for window data
type TargetWarehouse interface {
	// Count returns how many rows the target holds for the record's file prefix
	Count(ctx context.Context, rec *Record) (int64, error)

	// Delete drops the target rows for the record's file prefix
	Delete(ctx context.Context, rec *Record) error

	// Load ingests the staged objects into the target table
	Load(ctx context.Context, rec *Record) error
}

// StorageRepo is the runner's own drive table surface
type StorageRepo interface {
	// ResetStale flips IN_PROGRESS records locked before cutoff back to
	// PENDING, clearing run state and bumping the retry attempt.
	// Returns how many records were reset
	ResetStale(ctx context.Context, key recdom.FlowKey, cutoff, now time.Time) (int64, error)

	// ReleaseStaleLeases drops record leases claimed before cutoff, the
	// leftovers of runners that died between claim and release
	ReleaseStaleLeases(ctx context.Context, cutoff time.Time) (int64, error)
}
