// Package service reads the drive table for the ops api
package service

import (
	"context"

	"slipway/internal/modkit/repokit"
	"slipway/internal/services/api/records/domain"
	recdom "slipway/internal/services/records/domain"
)

// Service exposes read-only drive table queries
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[recdom.StorageRepo]
	key    recdom.FlowKey
}

// New constructs the records read service
func New(db repokit.TxRunner, binder repokit.Binder[recdom.StorageRepo], key recdom.FlowKey) Service {
	if db == nil {
		panic("records api service requires a non nil TxRunner")
	}
	return Service{db: db, binder: binder, key: key}
}

// Pending lists pending records, oldest window first
func (s Service) Pending(ctx context.Context, in domain.PendingInput) ([]domain.RecordRow, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 50
	}

	var recs []recdom.Record
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var e error
		recs, e = s.binder.Bind(q).Pending(ctx, s.key, limit)
		return e
	})
	if err != nil {
		return nil, err
	}
	return rows(recs), nil
}

// InProgress lists records currently claimed by a runner
func (s Service) InProgress(ctx context.Context) ([]domain.RecordRow, error) {
	var recs []recdom.Record
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var e error
		recs, e = s.binder.Bind(q).InProgress(ctx, s.key)
		return e
	})
	if err != nil {
		return nil, err
	}
	return rows(recs), nil
}

// Get fetches one record by pipeline id
func (s Service) Get(ctx context.Context, in domain.GetInput) (domain.RecordRow, error) {
	var rec *recdom.Record
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var e error
		rec, e = s.binder.Bind(q).Get(ctx, in.PipelineID)
		return e
	})
	if err != nil {
		return domain.RecordRow{}, err
	}
	return domain.RowFrom(rec), nil
}

func rows(recs []recdom.Record) []domain.RecordRow {
	out := make([]domain.RecordRow, 0, len(recs))
	for i := range recs {
		out = append(out, domain.RowFrom(&recs[i]))
	}
	return out
}
