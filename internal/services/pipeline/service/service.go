// Package service executes pipeline records end to end
package service

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"slipway/internal/modkit/repokit"
	perr "slipway/internal/platform/errors"
	"slipway/internal/platform/logger"
	"slipway/internal/services/pipeline/domain"
	"slipway/internal/services/pipeline/guardrails"
	recdom "slipway/internal/services/records/domain"
)

// Config holds the runner knobs
type Config struct {
	// Record-level retry
	MaxRetries int           // attempts per record; <=0 -> 1
	RetryBase  time.Duration // base backoff; <=0 -> 500ms

	// Timeouts applied via guardrails
	RecordTimeout   time.Duration
	TransferTimeout time.Duration
	QueryTimeout    time.Duration

	// Stale lock cleanup
	StaleAfter time.Duration // <=0 -> 2h

	// Audit settle polling
	AuditPollInterval time.Duration // <=0 -> 2m
	AuditMaxWait      time.Duration // <=0 -> 10m

	// Distributed lease per record
	EnableLeases bool

	// Pacing between drain cycles
	DelayPerCycle time.Duration
}

// Service implements domain.RunnerPort
type Service struct {
	DB      repokit.TxRunner
	Records repokit.Binder[recdom.StorageRepo]
	Repo    repokit.Binder[domain.StorageRepo]
	Planner recdom.PlannerPort
	Key     recdom.FlowKey

	Source domain.SourceDriver
	Stage  domain.StageStore
	Target domain.TargetWarehouse

	// Lease(ctx, pipelineID, do) takes a record-scoped advisory lock and runs do
	Lease func(ctx context.Context, pipelineID string, do func(context.Context) error) error

	Cfg Config

	// RunID labels this runner process; set by the module
	RunID string

	// Clock is a seam for tests; nil means time.Now
	Clock func() time.Time

	// sleep seam so audit settle tests do not wait wall clock time
	sleep func(context.Context, time.Duration) error
}

// New constructs the runner service
func New(
	db repokit.TxRunner,
	records repokit.Binder[recdom.StorageRepo],
	repo repokit.Binder[domain.StorageRepo],
	planner recdom.PlannerPort,
	key recdom.FlowKey,
	src domain.SourceDriver,
	stage domain.StageStore,
	target domain.TargetWarehouse,
	cfg Config,
	lease func(context.Context, string, func(context.Context) error) error,
	runID string,
) *Service {
	if db == nil {
		panic("pipeline.Service requires a non nil TxRunner")
	}
	if records == nil || repo == nil {
		panic("pipeline.Service requires repo binders")
	}
	if planner == nil {
		panic("pipeline.Service requires a planner")
	}
	return &Service{
		DB: db, Records: records, Repo: repo,
		Planner: planner, Key: key,
		Source: src, Stage: stage, Target: target,
		Lease: lease, Cfg: cfg, RunID: runID,
	}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Service) sleepCtx(ctx context.Context, d time.Duration) error {
	if s.sleep != nil {
		return s.sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

// CleanupStale implements domain.RunnerPort
func (s *Service) CleanupStale(ctx context.Context) (int, error) {
	stale := s.Cfg.StaleAfter
	if stale <= 0 {
		stale = 2 * time.Hour
	}
	now := s.now()
	cutoff := now.Add(-stale)

	var reset, expired int64
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		r := s.Repo.Bind(q)
		n, e := r.ResetStale(ctx, s.Key, cutoff, now)
		if e != nil {
			return e
		}
		reset = n
		expired, e = r.ReleaseStaleLeases(ctx, cutoff)
		return e
	})
	if err != nil {
		return 0, err
	}
	if reset > 0 || expired > 0 {
		logger.C(ctx).Warn().
			Int64("reset", reset).
			Int64("leases_expired", expired).
			Time("cutoff", cutoff).
			Msg("stale locks cleaned")
	}
	return int(reset), nil
}

// RunCycle implements domain.RunnerPort
func (s *Service) RunCycle(ctx context.Context) (bool, error) {
	if _, err := s.CleanupStale(ctx); err != nil {
		return false, err
	}

	rec, ok, err := s.Planner.Plan(ctx, s.RunID)
	if err != nil || !ok {
		return false, err
	}

	ctx = logger.WithRun(ctx, s.RunID, rec.PipelineName)
	logger.C(ctx).Info().Str("pipeline_id", rec.PipelineID).Msg("record claimed")

	run := func(ctx context.Context) error { return s.runRecordWithRetry(ctx, rec) }
	if s.Lease != nil && s.Cfg.EnableLeases {
		if err := s.Lease(ctx, rec.PipelineID, run); err != nil {
			if errors.Is(err, guardrails.ErrLeaseHeld) {
				logger.C(ctx).Info().Msg("record lease held elsewhere, skipping")
				return false, nil
			}
			return true, err
		}
		return true, nil
	}
	return true, run(ctx)
}

// RunDrain implements domain.RunnerPort
func (s *Service) RunDrain(ctx context.Context) error {
	for {
		worked, err := s.RunCycle(ctx)
		if err != nil {
			return err
		}
		if !worked {
			return nil
		}
		if s.Cfg.DelayPerCycle > 0 {
			if err := s.sleepCtx(ctx, s.Cfg.DelayPerCycle); err != nil {
				return err
			}
		}
	}
}

func (s *Service) runRecordWithRetry(ctx context.Context, rec *domain.Record) error {
	attempts := max(s.Cfg.MaxRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var last error
	for i := range attempts {
		err := s.runRecord(ctx, rec)
		if err == nil {
			return nil
		}
		last = err

		if !perr.Retryable(err) && perr.CodeOf(err) != perr.ErrorCodeUnavailable {
			return last
		}
		if i == attempts-1 {
			break
		}

		// exponential backoff with jitter, cap at 30s
		d := min(base<<i, 30*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)))
		if se := s.sleepCtx(ctx, j); se != nil {
			return se
		}
	}
	return last
}

func (s *Service) runRecord(ctx context.Context, rec *domain.Record) error {
	tos := guardrails.Timeouts{
		Record:   s.Cfg.RecordTimeout,
		Transfer: s.Cfg.TransferTimeout,
		Query:    s.Cfg.QueryTimeout,
	}
	recCtx, cancel := guardrails.WithRecord(ctx, tos)
	defer cancel()

	done, err := s.preflight(recCtx, tos, rec)
	if err != nil || done {
		return err
	}
	if err := s.sourceToStage(recCtx, tos, rec); err != nil {
		return err
	}
	if err := s.stageToTarget(recCtx, tos, rec); err != nil {
		return err
	}
	return s.audit(recCtx, tos, rec)
}

// preflight compares source and target counts before doing any work.
// Equal nonzero counts mean a previous run already landed this window
func (s *Service) preflight(ctx context.Context, tos guardrails.Timeouts, rec *domain.Record) (bool, error) {
	qctx, cancel := guardrails.ForQuery(ctx, tos)
	defer cancel()

	srcCount, err := s.Source.Count(qctx, rec)
	if err != nil {
		return false, err
	}
	tgtCount, err := s.Target.Count(qctx, rec)
	if err != nil {
		return false, err
	}

	if srcCount != tgtCount || srcCount == 0 {
		return false, nil
	}

	logger.C(ctx).Info().
		Int64("count", srcCount).
		Msg("window already processed, counts match")

	now := s.now()
	rec.SourceCount = &srcCount
	rec.TargetCount = &tgtCount
	zero := int64(0)
	pct := 0.0
	rec.CountDifference = &zero
	rec.PercentageDiff = &pct
	rec.AuditStatus = recdom.StatusCompleted
	rec.AuditResult = recdom.AuditPass
	rec.SourceToStageStatus = recdom.StatusCompleted
	rec.StageToTargetStatus = recdom.StatusCompleted
	rec.PhaseCompleted = recdom.PhaseAudit
	rec.Status = recdom.StatusCompleted
	rec.PipelineEnd = &now
	rec.LastUpdated = now
	return true, s.update(ctx, rec)
}

func (s *Service) sourceToStage(ctx context.Context, tos guardrails.Timeouts, rec *domain.Record) error {
	if rec.SourceToStageStatus == recdom.StatusCompleted {
		logger.C(ctx).Info().Msg("source to stage already completed")
		return nil
	}

	start := s.now()
	rec.SourceToStageStart = &start

	err := func() error {
		tctx, cancel := guardrails.ForTransfer(ctx, tos)
		defer cancel()
		if err := s.Stage.Clean(tctx, rec.StageSubcategory); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "stage cleanup failed")
		}
		return s.Source.Export(tctx, rec)
	}()
	if err != nil {
		logger.C(ctx).Error().Err(err).Msg("source to stage failed")
		s.failSourceToStage(ctx, rec)
		return err
	}

	end := s.now()
	rec.SourceToStageEnd = &end
	rec.SourceToStageStatus = recdom.StatusCompleted
	rec.PhaseCompleted = recdom.PhaseSourceToStage
	rec.LastUpdated = end
	return s.update(ctx, rec)
}

// failSourceToStage cleans partial stage output and requeues the record
func (s *Service) failSourceToStage(ctx context.Context, rec *domain.Record) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	if err := s.Stage.Clean(cctx, rec.StageSubcategory); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("stage cleanup after failure also failed")
	}

	rec.SourceToStageStart = nil
	rec.SourceToStageEnd = nil
	rec.SourceToStageStatus = recdom.StatusPending
	s.requeue(ctx, rec)
}

func (s *Service) stageToTarget(ctx context.Context, tos guardrails.Timeouts, rec *domain.Record) error {
	if rec.StageToTargetStatus == recdom.StatusCompleted {
		logger.C(ctx).Info().Msg("stage to target already completed")
		return nil
	}

	start := s.now()
	rec.StageToTargetStart = &start

	err := func() error {
		tctx, cancel := guardrails.ForTransfer(ctx, tos)
		defer cancel()
		if err := s.Target.Delete(tctx, rec); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "target cleanup failed")
		}
		return s.Target.Load(tctx, rec)
	}()
	if err != nil {
		logger.C(ctx).Error().Err(err).Msg("stage to target failed")
		rec.StageToTargetStart = nil
		rec.StageToTargetEnd = nil
		rec.StageToTargetStatus = recdom.StatusPending
		s.requeue(ctx, rec)
		return err
	}

	end := s.now()
	rec.StageToTargetEnd = &end
	rec.StageToTargetStatus = recdom.StatusCompleted
	rec.PhaseCompleted = recdom.PhaseStageToTarget
	rec.LastUpdated = end
	return s.update(ctx, rec)
}

func (s *Service) audit(ctx context.Context, tos guardrails.Timeouts, rec *domain.Record) error {
	if rec.AuditStatus == recdom.StatusCompleted {
		logger.C(ctx).Info().Msg("audit already completed")
		return nil
	}

	start := s.now()
	rec.AuditStart = &start

	qctx, cancel := guardrails.ForQuery(ctx, tos)
	srcCount, err := s.Source.Count(qctx, rec)
	cancel()
	if err != nil {
		s.failAudit(ctx, rec)
		return err
	}

	tgtCount, err := s.settleTargetCount(ctx, tos, rec, srcCount)
	if err != nil {
		s.failAudit(ctx, rec)
		return err
	}

	diff := srcCount - tgtCount
	if diff < 0 {
		diff = -diff
	}
	pct := percentageDiff(srcCount, tgtCount)

	end := s.now()
	rec.SourceCount = &srcCount
	rec.TargetCount = &tgtCount
	rec.CountDifference = &diff
	rec.PercentageDiff = &pct
	rec.AuditEnd = &end

	if srcCount == tgtCount {
		rec.AuditStatus = recdom.StatusCompleted
		rec.AuditResult = recdom.AuditPass
		rec.PhaseCompleted = recdom.PhaseAudit
		rec.Status = recdom.StatusCompleted
		rec.PipelineEnd = &end
		rec.LastUpdated = end
		logger.C(ctx).Info().Int64("count", srcCount).Msg("audit passed")
		return s.update(ctx, rec)
	}

	// counts disagree: the loaded slice is corrupt, purge and start over
	logger.C(ctx).Error().
		Int64("source_count", srcCount).
		Int64("target_count", tgtCount).
		Msg("audit mismatch, purging window")

	cctx, ccancel := guardrails.ForTransfer(ctx, tos)
	if err := s.Stage.Clean(cctx, rec.StageSubcategory); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("stage purge failed")
	}
	if err := s.Target.Delete(cctx, rec); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("target purge failed")
	}
	ccancel()

	s.resetAllPhases(ctx, rec)
	return nil
}

// failAudit resets audit fields only, earlier phases stay completed
func (s *Service) failAudit(ctx context.Context, rec *domain.Record) {
	rec.AuditStart = nil
	rec.AuditEnd = nil
	rec.AuditStatus = recdom.StatusPending
	rec.AuditResult = ""
	rec.SourceCount = nil
	rec.TargetCount = nil
	rec.CountDifference = nil
	rec.PercentageDiff = nil
	s.requeue(ctx, rec)
}

// resetAllPhases requeues the record from scratch after an audit mismatch
func (s *Service) resetAllPhases(ctx context.Context, rec *domain.Record) {
	rec.SourceToStageStart = nil
	rec.SourceToStageEnd = nil
	rec.SourceToStageStatus = recdom.StatusPending

	rec.StageToTargetStart = nil
	rec.StageToTargetEnd = nil
	rec.StageToTargetStatus = recdom.StatusPending

	rec.AuditStart = nil
	rec.AuditEnd = nil
	rec.AuditStatus = recdom.StatusPending
	rec.AuditResult = ""
	rec.SourceCount = nil
	rec.TargetCount = nil
	rec.CountDifference = nil
	rec.PercentageDiff = nil

	rec.PhaseCompleted = ""
	s.requeue(ctx, rec)
}

// requeue puts the record back to PENDING with the retry attempt bumped
func (s *Service) requeue(ctx context.Context, rec *domain.Record) {
	now := s.now()
	rec.Status = recdom.StatusPending
	rec.RunID = ""
	rec.LockedAt = nil
	rec.PipelineStart = nil
	rec.PipelineEnd = nil
	rec.RetryAttempt++
	rec.LastUpdated = now

	if err := s.update(ctx, rec); err != nil {
		logger.C(ctx).Error().Err(err).Msg("requeue update failed")
	}
}

// settleTargetCount polls the target count while async loading catches up.
// It stops early once the gap to the source count stops shrinking
func (s *Service) settleTargetCount(
	ctx context.Context, tos guardrails.Timeouts, rec *domain.Record, srcCount int64,
) (int64, error) {
	qctx, cancel := guardrails.ForQuery(ctx, tos)
	current, err := s.Target.Count(qctx, rec)
	cancel()
	if err != nil {
		return 0, err
	}
	if srcCount <= current {
		return current, nil
	}

	interval := s.Cfg.AuditPollInterval
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	maxWait := s.Cfg.AuditMaxWait
	if maxWait <= 0 {
		maxWait = 10 * time.Minute
	}

	deadline := s.now().Add(maxWait)
	previous := current
	for s.now().Before(deadline) {
		if err := s.sleepCtx(ctx, interval); err != nil {
			return current, err
		}

		qctx, cancel := guardrails.ForQuery(ctx, tos)
		current, err = s.Target.Count(qctx, rec)
		cancel()
		if err != nil {
			return 0, err
		}
		if current >= srcCount {
			break
		}

		if srcCount-current < srcCount-previous {
			// still loading, keep watching
			previous = current
			continue
		}
		break
	}
	return current, nil
}

func (s *Service) update(ctx context.Context, rec *domain.Record) error {
	dbCtx, cancel := guardrails.ForDB(ctx, guardrails.Timeouts{DB: s.Cfg.QueryTimeout})
	defer cancel()
	return s.DB.Tx(dbCtx, func(q repokit.Queryer) error {
		return s.Records.Bind(q).Update(dbCtx, rec)
	})
}

// percentageDiff is the audit's relative gap, rounded to two decimals.
// An empty source with rows in the target is treated as fully divergent
func percentageDiff(src, tgt int64) float64 {
	diff := src - tgt
	if diff < 0 {
		diff = -diff
	}
	switch {
	case src == 0 && tgt == 0:
		return 0
	case src == 0:
		return 100
	default:
		return math.Round(float64(diff)/float64(src)*100*100) / 100
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
