// Package service implements the drive table planner
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"slipway/internal/core/hashid"
	"slipway/internal/core/timewin"
	"slipway/internal/modkit/repokit"
	perr "slipway/internal/platform/errors"
	"slipway/internal/platform/logger"
	"slipway/internal/services/records/domain"
)

// Config holds the planner knobs resolved at module construction
type Config struct {
	Loc              *time.Location
	StabilitySeconds int64
	GranularitySec   int64
	Template         domain.Template
}

// Service implements domain.PlannerPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Cfg    Config

	// Clock is a seam for tests; nil means time.Now
	Clock func() time.Time
}

// New constructs the planner service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], cfg Config) *Service {
	if db == nil {
		panic("records.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("records.Service requires a non nil Repo binder")
	}
	if cfg.Loc == nil {
		panic("records.Service requires a location")
	}
	if cfg.GranularitySec <= 0 || cfg.StabilitySeconds <= 0 {
		panic("records.Service requires parsed positive durations")
	}
	return &Service{DB: db, Binder: binder, Cfg: cfg}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().In(s.Cfg.Loc)
	}
	return time.Now().In(s.Cfg.Loc)
}

// Build implements domain.PlannerPort
func (s *Service) Build(ctx context.Context) (*domain.Record, bool, error) {
	now := s.now()
	targetDay := timewin.TargetDay(now, s.Cfg.StabilitySeconds, s.Cfg.Loc)

	var cont *time.Time
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		c, e := s.Binder.Bind(q).LatestWindowEnd(ctx, s.Cfg.Template.Key())
		cont = c
		return e
	})
	if err != nil {
		return nil, false, err
	}

	w, ok := timewin.Next(targetDay, s.Cfg.GranularitySec, cont)
	if !ok {
		logger.C(ctx).Info().
			Time("target_day", targetDay).
			Msg("target day complete, no window to build")
		return nil, false, nil
	}

	rec := &domain.Record{
		PipelineName: s.Cfg.Template.PipelineName,
		Flow:         s.Cfg.Template.Key(),
		TargetDay:    targetDay,
		WindowStart:  w.Start,
		WindowEnd:    w.End,
		Interval:     w.Interval,
		Status:       domain.StatusPending,
		FirstCreated: now,
		LastUpdated:  now,

		SourceToStageStatus: domain.StatusPending,
		StageToTargetStatus: domain.StatusPending,
		AuditStatus:         domain.StatusPending,
	}
	if err := s.Rebuild(rec); err != nil {
		return nil, false, err
	}

	logger.C(ctx).Info().
		Time("window_start", w.Start).
		Time("window_end", w.End).
		Str("interval", w.Interval).
		Msg("record built")
	return rec, true, nil
}

// Plan implements domain.PlannerPort. It prefers the oldest pending record,
// builds a fresh one when none exist, and only returns a record it managed
// to claim for runID
func (s *Service) Plan(ctx context.Context, runID string) (*domain.Record, bool, error) {
	key := s.Cfg.Template.Key()

	rec, err := s.oldestPending(ctx, key)
	if err != nil {
		return nil, false, err
	}

	if rec == nil {
		built, ok, err := s.Build(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
			return s.Binder.Bind(q).Insert(ctx, built)
		}); err != nil {
			// another runner seeded the same window first; its row is
			// pending and the refetch below will pick it up
			if !perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
				return nil, false, err
			}
			logger.C(ctx).Info().
				Time("window_start", built.WindowStart).
				Msg("window already seeded by another runner")
		}
		// refetch so we claim whatever is actually oldest, not necessarily
		// the row we just wrote
		rec, err = s.oldestPending(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if rec == nil {
			logger.C(ctx).Warn().Msg("inserted record not visible yet")
			return nil, false, nil
		}
	}

	// records seeded with only time fields get their coordinates re-derived
	if rec.NeedsRebuild() {
		if err := s.Rebuild(rec); err != nil {
			return nil, false, err
		}
		if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
			return s.Binder.Bind(q).Update(ctx, rec)
		}); err != nil {
			return nil, false, err
		}
	}

	if tooRecent, stableCutoff := s.validateTiming(rec); tooRecent {
		logger.C(ctx).Info().
			Time("window_end", rec.WindowEnd).
			Time("stable_cutoff", stableCutoff).
			Msg("record too recent, skipping")
		return nil, false, nil
	}

	now := s.now()
	var claimed bool
	err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		ok, e := s.Binder.Bind(q).Claim(ctx, rec.PipelineID, runID, now)
		claimed = ok
		return e
	})
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		logger.C(ctx).Info().
			Str("pipeline_id", rec.PipelineID).
			Msg("record claimed by another runner")
		return nil, false, nil
	}

	rec.Status = domain.StatusInProgress
	rec.RunID = runID
	rec.LockedAt = &now
	rec.PipelineStart = &now
	rec.LastUpdated = now
	return rec, true, nil
}

func (s *Service) oldestPending(ctx context.Context, key domain.FlowKey) (*domain.Record, error) {
	var rec *domain.Record
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		r, e := s.Binder.Bind(q).OldestPending(ctx, key)
		rec = r
		return e
	})
	return rec, err
}

// validateTiming rejects records whose window end is newer than the
// stability cutoff: upstream data for that window may still be settling
func (s *Service) validateTiming(rec *domain.Record) (tooRecent bool, cutoff time.Time) {
	cutoff = s.now().Add(-time.Duration(s.Cfg.StabilitySeconds) * time.Second)
	return rec.WindowEnd.After(cutoff), cutoff
}

// Rebuild implements domain.PlannerPort
func (s *Service) Rebuild(rec *domain.Record) error {
	t := s.Cfg.Template
	if rec.WindowStart.IsZero() || rec.WindowEnd.IsZero() {
		return perr.Configf("record %q has no window to rebuild from", rec.PipelineID)
	}

	prefix := strings.Join(t.PrefixParts, "/")
	dateStr := rec.WindowStart.In(s.Cfg.Loc).Format("2006-01-02")
	timeStr := rec.WindowStart.In(s.Cfg.Loc).Format("15-04")

	rec.StageCategory = t.Bucket
	rec.StageSubcategory = fmt.Sprintf("s3://%s/%s/%s/%s/", t.Bucket, prefix, dateStr, timeStr)

	rec.TargetCategory = fmt.Sprintf("%s.%s.%s", t.Database, t.Schema, t.Table)
	// the target prefix mirrors the stage layout minus the bucket so the
	// warehouse can match loaded files by name
	rec.TargetSubcategory = fmt.Sprintf("%s/%s/%s/", prefix, dateStr, timeStr)

	if rec.FirstCreated.IsZero() {
		rec.FirstCreated = s.now()
	}

	ws := rec.WindowStart.UTC().Format(time.RFC3339)
	we := rec.WindowEnd.UTC().Format(time.RFC3339)
	rec.SourceID = hashid.New(t.SourceName, t.SourceCategory, t.SourceSubcategory, ws, we)
	rec.StageID = hashid.New(t.StageName, rec.StageCategory, rec.StageSubcategory)
	rec.TargetID = hashid.New(t.TargetName, rec.TargetCategory, rec.TargetSubcategory)
	rec.PipelineID = hashid.New(
		rec.SourceID, rec.StageID, rec.TargetID,
		rec.PipelineName, rec.FirstCreated.UTC().Format(time.RFC3339),
	)
	return nil
}
